package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Cart struct {
	UserID string     `json:"user_id"`
	Items  []CartItem `json:"items"`
}

// CartItem est une ligne de panier telle que capturée au moment du checkout
type CartItem struct {
	ProductID       string          `json:"productId"`
	Title           string          `json:"title"`
	UnitPrice       decimal.Decimal `json:"unitPrice"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	Quantity        int             `json:"quantity"`
	Color           string          `json:"color,omitempty"`
	Size            string          `json:"size,omitempty"`
	Image           string          `json:"image,omitempty"`
}

// SameLine indique si deux lignes désignent la même variante produit
func (i CartItem) SameLine(productID, color, size string) bool {
	return i.ProductID == productID && i.Color == color && i.Size == size
}

// CartSnapshot est la copie figée du panier stockée dans la transaction
type CartSnapshot struct {
	Items      []CartItem `json:"items"`
	CapturedAt time.Time  `json:"captured_at"`
}
