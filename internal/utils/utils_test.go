package utils

import (
	"context"
	"encoding/base64"
	"os/exec"
	"strings"
	"testing"
	"time"

	"cedra_checkout/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleMail() OrderMailData {
	return OrderMailData{
		Order: models.Order{
			ID: "9f1c2d3e-0000-4000-8000-000000000000", Total: decimal.RequireFromString("100"),
			Discount: decimal.Zero, Tax: decimal.RequireFromString("9"), Payable: decimal.RequireFromString("109"),
			CreatedAt: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
		},
		Items: []models.OrderItem{{Title: "T-shirt <b>", Quantity: 2, UnitPrice: decimal.RequireFromString("50"), DiscountPercent: decimal.Zero, Backordered: 1}},
		Record: models.TransactionRecord{
			ExternalRef: "TXN-1", CustomerName: "Ada", CustomerEmail: "ada@cedra.test", Currency: "EUR",
			Shipping: models.ShippingDetails{Address: "1 rue Haute", City: "Bruxelles", Phone: "0102"},
		},
		FrontendURL: "https://cedra.test",
		Backordered: true,
	}
}

func TestOrderConfirmationHTML(t *testing.T) {
	html, err := OrderConfirmationHTML(sampleMail())
	require.NoError(t, err)
	assert.Contains(t, html, "#9f1c2d3e")
	assert.Contains(t, html, "109.00 EUR")
	assert.Contains(t, html, "100.00")
	assert.Contains(t, html, "1 en réapprovisionnement")
	assert.Contains(t, html, "T-shirt &lt;b&gt;")
	assert.False(t, strings.Contains(html, "T-shirt <b>"))
}

func TestAdminAndReceiptHTML(t *testing.T) {
	admin, err := AdminOrderHTML(sampleMail())
	require.NoError(t, err)
	assert.Contains(t, admin, "ada@cedra.test")
	assert.Contains(t, admin, "Stock insuffisant")

	data := sampleMail()
	qr, err := PaymentQR("TXN-1", data.Order.Payable, "EUR")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(qr, "data:image/png;base64,"))

	data.QRCode = toURL(qr)
	receipt, err := ReceiptHTML(data)
	require.NoError(t, err)
	assert.Contains(t, receipt, "Payé : 109.00 EUR")
	assert.Contains(t, receipt, "data:image/png;base64,")
}

func TestOrderStatusEmail(t *testing.T) {
	subject, body := OrderStatusEmail(models.Order{ID: "abcdef123456", Status: models.OrderShipped, Payable: decimal.RequireFromString("12.5")}, "https://cedra.test")
	assert.Contains(t, subject, "expédiée")
	assert.Contains(t, body, "#abcdef12")
	assert.Contains(t, body, "12.50")
	assert.Contains(t, body, "https://cedra.test/orders")
}

func TestHTMLDataURL(t *testing.T) {
	u := HTMLDataURL("<p>Reçu</p>")
	require.True(t, strings.HasPrefix(u, "data:text/html;charset=utf-8;base64,"))

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(u, "data:text/html;charset=utf-8;base64,"))
	require.NoError(t, err)
	assert.Equal(t, "<p>Reçu</p>", string(raw))
}

func TestPDFRenderer_Render(t *testing.T) {
	var chrome string
	for _, name := range []string{"headless-shell", "chromium", "chromium-browser", "google-chrome"} {
		if p, err := exec.LookPath(name); err == nil {
			chrome = p
			break
		}
	}
	if chrome == "" {
		t.Skip("aucun Chrome disponible")
	}

	html, err := ReceiptHTML(sampleMail())
	require.NoError(t, err)

	pdf, err := NewPDFRenderer(chrome, time.Minute).Render(context.Background(), html)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(pdf), "%PDF"))
}
