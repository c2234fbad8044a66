package payment

import (
	"net/http"

	"cedra_checkout/internal/cart"
	"cedra_checkout/internal/middleware"
	"cedra_checkout/internal/models"
	"cedra_checkout/internal/pricing"

	"github.com/gin-gonic/gin"
)

func (h *Handler) cartResponse(c *gin.Context, snap cart.Snapshot) {
	items := snap.Items()
	if items == nil {
		items = []models.CartItem{}
	}
	c.JSON(http.StatusOK, gin.H{
		"items":     items,
		"count":     snap.Count(),
		"breakdown": pricing.Calculate(items, h.TaxRate).Rounded(),
	})
}

func (h *Handler) GetCart(c *gin.Context) {
	snap, err := h.Carts.Get(c.Request.Context(), c.GetString(middleware.ContextUserID))
	if err != nil {
		respondError(c, err)
		return
	}
	h.cartResponse(c, snap)
}

func (h *Handler) AddToCart(c *gin.Context) {
	var item models.CartItem
	if err := c.ShouldBindJSON(&item); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides", "details": err.Error()})
		return
	}
	snap, err := h.Carts.Add(c.Request.Context(), c.GetString(middleware.ContextUserID), item)
	if err != nil {
		respondError(c, err)
		return
	}
	h.cartResponse(c, snap)
}

// UpdateCartItem fixe la quantité ; color et size désignent la variante
func (h *Handler) UpdateCartItem(c *gin.Context) {
	var req struct {
		Quantity int    `json:"quantity"`
		Color    string `json:"color"`
		Size     string `json:"size"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides", "details": err.Error()})
		return
	}
	key := cart.LineKey{ProductID: c.Param("productId"), Color: req.Color, Size: req.Size}
	snap, err := h.Carts.UpdateQuantity(c.Request.Context(), c.GetString(middleware.ContextUserID), key, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	h.cartResponse(c, snap)
}

func (h *Handler) RemoveCartItem(c *gin.Context) {
	key := cart.LineKey{ProductID: c.Param("productId"), Color: c.Query("color"), Size: c.Query("size")}
	snap, err := h.Carts.Remove(c.Request.Context(), c.GetString(middleware.ContextUserID), key)
	if err != nil {
		respondError(c, err)
		return
	}
	h.cartResponse(c, snap)
}

func (h *Handler) ClearCart(c *gin.Context) {
	snap, err := h.Carts.Clear(c.Request.Context(), c.GetString(middleware.ContextUserID))
	if err != nil {
		respondError(c, err)
		return
	}
	h.cartResponse(c, snap)
}
