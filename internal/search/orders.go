// Package search indexe les commandes payées dans Elasticsearch pour le back-office.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"cedra_checkout/internal/reconcile"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

const OrdersIndex = "orders"

// OrderDocument est la forme indexée d'une commande
type OrderDocument struct {
	OrderID      string    `json:"order_id"`
	PaymentRef   string    `json:"payment_ref"`
	UserID       string    `json:"user_id"`
	CustomerName string    `json:"customer_name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	City         string    `json:"city"`
	Country      string    `json:"country"`
	Status       string    `json:"status"`
	Payable      string    `json:"payable"`
	Currency     string    `json:"currency"`
	Products     []string  `json:"products"`
	Backordered  bool      `json:"backordered"`
	CreatedAt    time.Time `json:"created_at"`
}

type OrderIndexer struct {
	client *elasticsearch.Client
	index  string
}

func NewOrderIndexer(client *elasticsearch.Client) *OrderIndexer {
	return &OrderIndexer{client: client, index: OrdersIndex}
}

func (x *OrderIndexer) Name() string { return "elastic" }

func documentFor(ev reconcile.OrderEvent) OrderDocument {
	doc := OrderDocument{
		OrderID:      ev.Order.ID,
		PaymentRef:   ev.Order.PaymentRef,
		UserID:       ev.Order.UserID,
		CustomerName: ev.Record.CustomerName,
		Email:        ev.Record.CustomerEmail,
		Phone:        ev.Record.Shipping.Phone,
		City:         ev.Record.Shipping.City,
		Country:      ev.Record.Shipping.Country,
		Status:       string(ev.Order.Status),
		Payable:      ev.Order.Payable.StringFixed(2),
		Currency:     ev.Record.Currency,
		Backordered:  ev.Backordered,
		CreatedAt:    ev.Order.CreatedAt,
	}
	for _, it := range ev.Items {
		doc.Products = append(doc.Products, it.Title)
	}
	return doc
}

func (x *OrderIndexer) OnOrderMaterialized(ctx context.Context, ev reconcile.OrderEvent) error {
	data, err := json.Marshal(documentFor(ev))
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      x.index,
		DocumentID: ev.Order.ID,
		Body:       bytes.NewReader(data),
		Refresh:    "true",
	}
	res, err := req.Do(ctx, x.client)
	if err != nil {
		return fmt.Errorf("envoi Elastic: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elastic a refusé la commande %s: %s", ev.Order.ID, res.String())
	}
	log.Printf("✅ Commande indexée dans Elasticsearch: %s", ev.Order.ID)
	return nil
}
