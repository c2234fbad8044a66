package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID         string          `json:"id"`
	UserID     string          `json:"user_id"`
	AddressRef string          `json:"address_ref"`
	Total      decimal.Decimal `json:"total"`
	Discount   decimal.Decimal `json:"discount"`
	Tax        decimal.Decimal `json:"tax"`
	Payable    decimal.Decimal `json:"payable"`
	Status     OrderStatus     `json:"status"`
	PaymentRef string          `json:"payment_ref"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// OrderItem est immuable une fois écrit : il fige le prix payé
type OrderItem struct {
	OrderID         string          `json:"order_id"`
	LineNo          int             `json:"line_no"`
	ProductID       string          `json:"product_id"`
	Title           string          `json:"title"`
	Quantity        int             `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	Color           string          `json:"color,omitempty"`
	Size            string          `json:"size,omitempty"`
	Backordered     int             `json:"backordered,omitempty"`
}

// LineTotal retourne le montant remisé de la ligne, non arrondi
func (i OrderItem) LineTotal() decimal.Decimal {
	gross := i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
	off := gross.Mul(i.DiscountPercent).Div(decimal.NewFromInt(100))
	return gross.Sub(off)
}
