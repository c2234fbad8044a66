package payment

import (
	"errors"
	"log"
	"net/http"
	"time"

	"cedra_checkout/internal/middleware"
	"cedra_checkout/internal/models"

	"github.com/gin-gonic/gin"
)

const receiptURLTTL = 15 * time.Minute

// Status retourne l'état d'un paiement à son propriétaire
func (h *Handler) Status(c *gin.Context) {
	ref := c.Query("id")
	if ref == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Référence de paiement requise"})
		return
	}

	rec, err := h.Transactions.FindTransactionByRef(c.Request.Context(), ref)
	if errors.Is(err, models.ErrNotFound) || (err == nil && rec.UserID != c.GetString(middleware.ContextUserID)) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Paiement introuvable"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	data := gin.H{
		"transactionId": rec.ExternalRef,
		"status":        rec.Status,
		"amount":        rec.Amount.StringFixed(2),
		"discount":      rec.Discount.StringFixed(2),
		"tax":           rec.Tax.StringFixed(2),
		"payable":       rec.PayableAmount.StringFixed(2),
		"currency":      rec.Currency,
		"orderId":       rec.OrderID,
		"failureReason": rec.FailureReason,
		"updatedAt":     rec.UpdatedAt,
	}
	if rec.Status == models.TransactionSuccess && rec.Materialized && h.Receipts != nil {
		if u, err := h.Receipts.ReceiptURL(c.Request.Context(), rec.ExternalRef, receiptURLTTL); err == nil {
			data["receiptUrl"] = u
		} else {
			log.Printf("⚠️ URL du reçu %s indisponible: %v", rec.ExternalRef, err)
		}
	}
	c.JSON(http.StatusOK, gin.H{"data": data})
}
