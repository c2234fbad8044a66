package payment

import (
	"errors"
	"log"
	"net/http"
	"net/url"

	"cedra_checkout/internal/models"
	"cedra_checkout/internal/reconcile"

	"github.com/gin-gonic/gin"
)

// refFrom lit la référence dans ?id=, sinon dans le champ tran_id du formulaire
func refFrom(c *gin.Context) string {
	if id := c.Query("id"); id != "" {
		return id
	}
	return c.PostForm("tran_id")
}

func field(c *gin.Context, key string) string {
	if v := c.PostForm(key); v != "" {
		return v
	}
	return c.Query(key)
}

func orderPage(status models.TransactionStatus) string {
	switch status {
	case models.TransactionSuccess:
		return "success"
	case models.TransactionFailed:
		return "failed"
	case models.TransactionCanceled:
		return "cancelled"
	default:
		return "pending"
	}
}

func (h *Handler) redirect(c *gin.Context, page, ref string) {
	c.Redirect(http.StatusFound, h.FrontendURL+"/order/"+page+"?id="+url.QueryEscape(ref))
}

// finishBrowserCallback redirige le navigateur ; une référence inconnue reste une erreur JSON
func (h *Handler) finishBrowserCallback(c *gin.Context, entry, ref string, out reconcile.Outcome, err error) {
	if err != nil {
		h.Metrics.Callback(entry, "error")
		if errors.Is(err, models.ErrPaymentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Paiement introuvable"})
			return
		}
		log.Printf("❌ Callback %s pour %s: %v", entry, ref, err)
		h.redirect(c, "error", ref)
		return
	}
	h.Metrics.Callback(entry, string(out.Status))
	h.redirect(c, orderPage(out.Status), ref)
}

// Success : retour navigateur après paiement (POST de la passerelle ou GET)
func (h *Handler) Success(c *gin.Context) {
	ref := refFrom(c)
	if ref == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Référence de paiement requise"})
		return
	}
	out, err := h.Reconciler.Success(c.Request.Context(), ref, reconcile.SuccessInput{
		ValID:  field(c, "val_id"),
		Status: field(c, "status"),
	})
	h.finishBrowserCallback(c, "success", ref, out, err)
}

func (h *Handler) Fail(c *gin.Context) {
	ref := refFrom(c)
	if ref == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Référence de paiement requise"})
		return
	}
	out, err := h.Reconciler.Fail(c.Request.Context(), ref)
	h.finishBrowserCallback(c, "fail", ref, out, err)
}

func (h *Handler) Cancel(c *gin.Context) {
	ref := refFrom(c)
	if ref == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Référence de paiement requise"})
		return
	}
	out, err := h.Reconciler.Cancel(c.Request.Context(), ref)
	h.finishBrowserCallback(c, "cancel", ref, out, err)
}

// IPN : notification serveur à serveur. Une signature présente mais fausse est refusée,
// une signature absente laisse la décision à la validation val_id.
func (h *Handler) IPN(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Formulaire IPN illisible"})
		return
	}
	form := c.Request.PostForm

	ref := c.Query("id")
	if ref == "" {
		ref = form.Get("tran_id")
	}
	if ref == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Référence de paiement requise"})
		return
	}

	verified := false
	if form.Get("verify_sign") != "" && h.Signatures != nil {
		if !h.Signatures.VerifyIPNSignature(form) {
			log.Printf("❌ Signature IPN invalide pour %s", ref)
			h.Metrics.Callback("ipn", "bad_signature")
			c.JSON(http.StatusBadRequest, gin.H{"error": "Signature IPN invalide"})
			return
		}
		verified = true
	}

	out, err := h.Reconciler.IPN(c.Request.Context(), ref, reconcile.IPNInput{
		Status:   form.Get("status"),
		ValID:    form.Get("val_id"),
		TranID:   form.Get("tran_id"),
		Verified: verified,
	})
	if err != nil {
		h.Metrics.Callback("ipn", "error")
		respondError(c, err)
		return
	}
	h.Metrics.Callback("ipn", string(out.Status))
	c.JSON(http.StatusOK, gin.H{"success": true, "status": out.Status, "alreadyProcessed": out.AlreadyProcessed})
}
