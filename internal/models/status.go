package models

import "strings"

// TransactionStatus est le cycle de vie d'une tentative de paiement
type TransactionStatus string

const (
	TransactionPending  TransactionStatus = "PENDING"
	TransactionSuccess  TransactionStatus = "SUCCESS"
	TransactionFailed   TransactionStatus = "FAILED"
	TransactionCanceled TransactionStatus = "CANCELED"
)

func (s TransactionStatus) IsTerminal() bool {
	return s == TransactionSuccess || s == TransactionFailed || s == TransactionCanceled
}

func (s TransactionStatus) String() string {
	return string(s)
}

// OrderStatus est le statut logistique d'une commande, indépendant du paiement
type OrderStatus string

const (
	OrderProcessing OrderStatus = "Processing"
	OrderShipped    OrderStatus = "Shipped"
	OrderDelivered  OrderStatus = "Delivered"
	OrderCancelled  OrderStatus = "Cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderProcessing: {OrderShipped, OrderCancelled},
	OrderShipped:    {OrderDelivered},
}

// ParseOrderStatus accepte la casse libre ("shipped", "SHIPPED")
func ParseOrderStatus(s string) (OrderStatus, bool) {
	for _, st := range []OrderStatus{OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled} {
		if strings.EqualFold(string(st), strings.TrimSpace(s)) {
			return st, true
		}
	}
	return "", false
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// GatewayStatus est le vocabulaire brut de la passerelle de paiement
type GatewayStatus string

const (
	GatewayValid              GatewayStatus = "VALID"
	GatewayValidated          GatewayStatus = "VALIDATED"
	GatewayFailed             GatewayStatus = "FAILED"
	GatewayCancelled          GatewayStatus = "CANCELLED"
	GatewayUnattempted        GatewayStatus = "UNATTEMPTED"
	GatewayExpired            GatewayStatus = "EXPIRED"
	GatewayInvalidTransaction GatewayStatus = "INVALID_TRANSACTION"
)

func ParseGatewayStatus(s string) GatewayStatus {
	return GatewayStatus(strings.ToUpper(strings.TrimSpace(s)))
}

// ToTransactionStatus projette le statut passerelle sur le statut interne.
// Tout statut inconnu reste PENDING : seul un callback explicite termine une transaction.
func (g GatewayStatus) ToTransactionStatus() TransactionStatus {
	switch g {
	case GatewayValid, GatewayValidated:
		return TransactionSuccess
	case GatewayFailed:
		return TransactionFailed
	case GatewayCancelled:
		return TransactionCanceled
	default:
		return TransactionPending
	}
}
