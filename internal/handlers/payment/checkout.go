package payment

import (
	"net/http"

	"cedra_checkout/internal/middleware"
	"cedra_checkout/internal/models"

	"github.com/gin-gonic/gin"
)

type checkoutRequest struct {
	// Items absent : le panier serveur de l'utilisateur est utilisé
	Items           []models.CartItem      `json:"items"`
	ShippingDetails models.ShippingDetails `json:"shippingDetails"`
}

// Checkout ouvre une session de paiement pour l'utilisateur connecté
func (h *Handler) Checkout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides", "details": err.Error()})
		return
	}

	userID := c.GetString(middleware.ContextUserID)
	items := req.Items
	if len(items) == 0 && h.Carts != nil && userID != "" {
		snap, err := h.Carts.Get(c.Request.Context(), userID)
		if err != nil {
			respondError(c, err)
			return
		}
		items = snap.Items()
	}

	res, err := h.Initiator.InitiateCheckout(c.Request.Context(), userID, items, req.ShippingDetails)
	h.Metrics.Checkout(checkoutResult(err))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": res})
}
