package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var ErrDiscountInactive = errors.New("discount code is not active")

// Discount est un code promo saisi au panier
type Discount struct {
	ID                string          `json:"id"`
	Code              string          `json:"code"`
	Percent           decimal.Decimal `json:"percent"`
	MaxDiscountAmount decimal.Decimal `json:"maxDiscountAmount"`
	Active            bool            `json:"active"`
	StartsAt          *time.Time      `json:"starts_at,omitempty"`
	ExpiresAt         *time.Time      `json:"expires_at,omitempty"`
}
