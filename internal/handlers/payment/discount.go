package payment

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ValidateDiscount vérifie si un code promo est utilisable
func (h *Handler) ValidateDiscount(c *gin.Context) {
	var req struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Code requis"})
		return
	}

	d, err := h.Discounts.Lookup(c.Request.Context(), req.Code)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"id":                d.ID,
			"code":              d.Code,
			"percent":           d.Percent,
			"maxDiscountAmount": d.MaxDiscountAmount,
		},
	})
}
