package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cedra_checkout/internal/models"
	"cedra_checkout/internal/reconcile"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEvent() reconcile.OrderEvent {
	return reconcile.OrderEvent{
		Order: models.Order{
			ID:         "ord-1",
			UserID:     "u1",
			PaymentRef: "CEDRA-1-abc",
			Status:     models.OrderProcessing,
			Payable:    decimal.RequireFromString("196.2"),
			CreatedAt:  time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		},
		Items: []models.OrderItem{{Title: "Lampe", Quantity: 2}},
		Record: models.TransactionRecord{
			CustomerName:  "Ada",
			CustomerEmail: "ada@cedra.test",
			Currency:      "EUR",
			Shipping:      models.ShippingDetails{City: "Lyon", Phone: "0600000000"},
		},
	}
}

func newIndexer(t *testing.T, h http.HandlerFunc) *OrderIndexer {
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return NewOrderIndexer(client)
}

func TestOrderIndexer_IndexesDocument(t *testing.T) {
	var (
		path string
		doc  OrderDocument
	)
	x := newIndexer(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		assert.Equal(t, "true", r.URL.Query().Get("refresh"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&doc))
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"result":"created"}`))
	})

	require.NoError(t, x.OnOrderMaterialized(context.Background(), sampleEvent()))
	assert.Equal(t, "/orders/_doc/ord-1", path)
	assert.Equal(t, "196.20", doc.Payable)
	assert.Equal(t, "Processing", doc.Status)
	assert.Equal(t, []string{"Lampe"}, doc.Products)
	assert.Equal(t, "Lyon", doc.City)
}

func TestOrderIndexer_ReportsElasticError(t *testing.T) {
	x := newIndexer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"mapper_parsing_exception"}`))
	})

	err := x.OnOrderMaterialized(context.Background(), sampleEvent())
	assert.Error(t, err)
}
