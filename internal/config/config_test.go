package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "BASE_URL", "TAX_RATE", "STORE_DRIVER", "GATEWAY_TIMEOUT", "GATEWAY_REQUIRE_VALIDATION", "SCYLLA_KS_ORDERS_KEYSPACE", "CART_TTL"} {
		t.Setenv(k, "")
	}

	cfg := FromEnv()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "http://localhost:8080", cfg.Checkout.BaseURL)
	assert.True(t, cfg.Checkout.TaxRate.Equal(decimal.RequireFromString("0.09")))
	assert.Equal(t, "scylla", cfg.StoreDriver)
	assert.Equal(t, 15*time.Second, cfg.Gateway.Timeout)
	assert.True(t, cfg.RequireValidation)
	assert.Equal(t, "cedra_orders", cfg.Scylla.Orders.Keyspace)
	assert.Equal(t, 30*24*time.Hour, cfg.CartTTL)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("FRONTEND_URL", "https://shop.test/")
	t.Setenv("CORS_ORIGINS", "https://a.test, https://b.test")
	t.Setenv("STORE_DRIVER", "MEMORY")
	t.Setenv("TAX_RATE", "0.2")
	t.Setenv("GATEWAY_TIMEOUT", "3s")
	t.Setenv("GATEWAY_REQUIRE_VALIDATION", "false")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("RECEIPT_PDF", "true")
	t.Setenv("CHROME_PATH", "/usr/bin/chromium")
	t.Setenv("SCYLLA_HOSTS", "10.0.0.1, 10.0.0.2")
	t.Setenv("SCYLLA_KS_USERS_ROLE", "users_rw")

	cfg := FromEnv()
	assert.Equal(t, "https://shop.test", cfg.FrontendURL)
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, cfg.CORSOrigins)
	assert.Equal(t, "memory", cfg.StoreDriver)
	assert.True(t, cfg.Checkout.TaxRate.Equal(decimal.RequireFromString("0.2")))
	assert.Equal(t, 3*time.Second, cfg.Gateway.Timeout)
	assert.False(t, cfg.RequireValidation)
	assert.Equal(t, 2525, cfg.SMTP.Port)
	assert.True(t, cfg.ReceiptPDF)
	assert.Equal(t, "/usr/bin/chromium", cfg.ChromePath)
	assert.Equal(t, 30*time.Second, cfg.ReceiptPDFTTL)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, cfg.Scylla.Hosts)
	assert.Equal(t, "users_rw", cfg.Scylla.Users.Role)
}

func TestFromEnv_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("TAX_RATE", "-1")
	t.Setenv("GATEWAY_TIMEOUT", "soon")

	cfg := FromEnv()
	assert.True(t, cfg.Checkout.TaxRate.Equal(decimal.RequireFromString("0.09")))
	assert.Equal(t, 15*time.Second, cfg.Gateway.Timeout)
}
