package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID              string          `json:"id" db:"product_id"`
	Name            string          `json:"name" db:"name"`
	Price           decimal.Decimal `json:"price" db:"price"`
	DiscountPercent decimal.Decimal `json:"discount_percent" db:"discount_percent"`
	DiscountStart   *time.Time      `json:"discount_start,omitempty" db:"discount_start"`
	DiscountEnd     *time.Time      `json:"discount_end,omitempty" db:"discount_end"`
	Stock           int             `json:"stock" db:"stock"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

// StockResult est le résultat d'une décrémentation de stock.
// Quand AlreadyApplied est vrai, Backordered reprend le manque enregistré
// lors de la première application pour ce paiement.
type StockResult struct {
	Remaining      int
	Backordered    int
	AlreadyApplied bool
}
