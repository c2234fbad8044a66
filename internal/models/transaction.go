package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionRecord est une tentative de paiement, identifiée par ExternalRef
type TransactionRecord struct {
	ID            string            `json:"id"`
	ExternalRef   string            `json:"external_ref"`
	UserID        string            `json:"user_id"`
	Amount        decimal.Decimal   `json:"amount"`
	Discount      decimal.Decimal   `json:"discount"`
	Tax           decimal.Decimal   `json:"tax"`
	PayableAmount decimal.Decimal   `json:"payable_amount"`
	Currency      string            `json:"currency"`
	Status        TransactionStatus `json:"status"`
	Shipping      ShippingDetails   `json:"shipping_snapshot"`
	Items         []CartItem        `json:"items_snapshot"`
	CustomerName  string            `json:"customer_name"`
	CustomerEmail string            `json:"customer_email"`
	CustomerPhone string            `json:"customer_phone"`
	ValID         string            `json:"val_id,omitempty"`
	GatewayStatus string            `json:"gateway_status,omitempty"`
	FailureReason string            `json:"failure_reason,omitempty"`
	OrderID       string            `json:"order_id,omitempty"`
	Materialized  bool              `json:"materialized"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// StatusChange décrit les champs écrits avec une transition de statut
type StatusChange struct {
	To            TransactionStatus
	ValID         string
	GatewayStatus string
	FailureReason string
	At            time.Time
}
