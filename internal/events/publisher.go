package events

import (
	"context"
	"log"
	"time"

	"cedra_checkout/internal/reconcile"
)

// OrderMaterialized est le message publié pour chaque commande créée
type OrderMaterialized struct {
	PaymentRef  string    `json:"payment_ref"`
	OrderID     string    `json:"order_id"`
	UserID      string    `json:"user_id"`
	Payable     string    `json:"payable"`
	Currency    string    `json:"currency"`
	Items       int       `json:"items"`
	Backordered bool      `json:"backordered"`
	CreatedAt   time.Time `json:"created_at"`
}

// Publisher partitionne par référence de paiement
type Publisher struct {
	writer MessageWriter
}

func NewPublisher(writer MessageWriter) *Publisher {
	return &Publisher{writer: writer}
}

func (p *Publisher) Name() string { return "kafka" }

func (p *Publisher) OnOrderMaterialized(ctx context.Context, ev reconcile.OrderEvent) error {
	qty := 0
	for _, it := range ev.Items {
		qty += it.Quantity
	}
	msg := OrderMaterialized{
		PaymentRef:  ev.Order.PaymentRef,
		OrderID:     ev.Order.ID,
		UserID:      ev.Order.UserID,
		Payable:     ev.Order.Payable.StringFixed(2),
		Currency:    ev.Record.Currency,
		Items:       qty,
		Backordered: ev.Backordered,
		CreatedAt:   ev.Order.CreatedAt,
	}
	if err := PublishJSON(ctx, p.writer, ev.Order.PaymentRef, msg); err != nil {
		return err
	}
	log.Printf("📤 Commande %s publiée sur Kafka", ev.Order.ID)
	return nil
}
