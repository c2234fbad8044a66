// Package payment expose le tunnel de paiement : checkout, callbacks de la passerelle,
// statut, codes promo et panier.
package payment

import (
	"context"
	"errors"
	"log"
	"net/http"
	"net/url"
	"time"

	"cedra_checkout/internal/cart"
	"cedra_checkout/internal/checkout"
	"cedra_checkout/internal/models"
	"cedra_checkout/internal/reconcile"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type Initiator interface {
	InitiateCheckout(ctx context.Context, userID string, items []models.CartItem, shipping models.ShippingDetails) (*checkout.Result, error)
}

type Reconciler interface {
	Success(ctx context.Context, ref string, in reconcile.SuccessInput) (reconcile.Outcome, error)
	Fail(ctx context.Context, ref string) (reconcile.Outcome, error)
	Cancel(ctx context.Context, ref string) (reconcile.Outcome, error)
	IPN(ctx context.Context, ref string, in reconcile.IPNInput) (reconcile.Outcome, error)
}

type Transactions interface {
	FindTransactionByRef(ctx context.Context, ref string) (*models.TransactionRecord, error)
}

type SignatureVerifier interface {
	VerifyIPNSignature(form url.Values) bool
}

type Discounts interface {
	Lookup(ctx context.Context, code string) (*models.Discount, error)
}

type Receipts interface {
	ReceiptURL(ctx context.Context, ref string, ttl time.Duration) (string, error)
}

// Metrics est satisfait par *metrics.ServerMetrics
type Metrics interface {
	Checkout(result string)
	Callback(entry, outcome string)
}

type Deps struct {
	Initiator    Initiator
	Reconciler   Reconciler
	Transactions Transactions
	Signatures   SignatureVerifier
	Discounts    Discounts
	Carts        *cart.Store
	// Receipts et Metrics sont optionnels
	Receipts    Receipts
	Metrics     Metrics
	TaxRate     decimal.Decimal
	FrontendURL string
}

type Handler struct {
	Deps
}

func NewHandler(d Deps) *Handler {
	if d.Metrics == nil {
		d.Metrics = noMetrics{}
	}
	return &Handler{Deps: d}
}

type noMetrics struct{}

func (noMetrics) Checkout(string)         {}
func (noMetrics) Callback(string, string) {}

// respondError traduit les erreurs métier en codes HTTP
func respondError(c *gin.Context, err error) {
	var gwErr *models.GatewayError
	switch {
	case errors.Is(err, models.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Utilisateur non authentifié"})
	case errors.Is(err, models.ErrEmptyCart):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Panier vide"})
	case errors.Is(err, models.ErrInvalidShipping):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Adresse et téléphone de livraison requis"})
	case errors.Is(err, models.ErrInvalidCart):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Panier invalide"})
	case errors.Is(err, models.ErrInsufficientStock):
		c.JSON(http.StatusConflict, gin.H{"error": "Stock insuffisant"})
	case errors.As(err, &gwErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": "Paiement refusé par la passerelle", "reason": gwErr.Reason})
	case errors.Is(err, models.ErrPaymentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Paiement introuvable"})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Introuvable"})
	case errors.Is(err, models.ErrRefMismatch):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Référence de paiement incohérente"})
	case errors.Is(err, models.ErrDiscountInactive):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Code promo expiré ou inactif"})
	default:
		log.Printf("❌ Erreur interne: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur interne, réessayez plus tard"})
	}
}

// checkoutResult est le libellé de métrique d'une tentative de checkout
func checkoutResult(err error) string {
	var gwErr *models.GatewayError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &gwErr):
		return "gateway_" + gwErr.Reason
	case errors.Is(err, models.ErrInsufficientStock):
		return "out_of_stock"
	case errors.Is(err, models.ErrStorage):
		return "storage_error"
	default:
		return "invalid"
	}
}
