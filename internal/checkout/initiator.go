// Package checkout ouvre une tentative de paiement à partir du panier.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"cedra_checkout/internal/gateway"
	"cedra_checkout/internal/models"
	"cedra_checkout/internal/pricing"
	"cedra_checkout/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type UserLookup interface {
	GetUser(ctx context.Context, userID string) (*models.User, error)
}

type Gateway interface {
	CreateTransaction(ctx context.Context, req gateway.Request) (*gateway.Result, error)
}

type Repository interface {
	store.TransactionStore
	store.ProductStore
}

type Config struct {
	BaseURL        string
	Currency       string
	TaxRate        decimal.Decimal
	RefPrefix      string
	DefaultCountry string
}

type Initiator struct {
	repo    Repository
	users   UserLookup
	gateway Gateway
	cfg     Config
	now     func() time.Time
}

func NewInitiator(repo Repository, users UserLookup, gw Gateway, cfg Config) *Initiator {
	if cfg.Currency == "" {
		cfg.Currency = "EUR"
	}
	if cfg.TaxRate.IsZero() {
		cfg.TaxRate = pricing.DefaultTaxRate
	}
	return &Initiator{repo: repo, users: users, gateway: gw, cfg: cfg, now: func() time.Time { return time.Now().UTC() }}
}

type Result struct {
	ExternalRef string            `json:"transactionId"`
	Status      string            `json:"status"`
	Options     []gateway.Option  `json:"desc"`
	GatewayURL  string            `json:"gatewayUrl"`
	Breakdown   pricing.Breakdown `json:"breakdown"`
}

// InitiateCheckout crée une transaction PENDING puis ouvre la session de paiement.
// Une fois la validation passée, exactement un enregistrement est créé et la
// passerelle est appelée au plus une fois.
func (in *Initiator) InitiateCheckout(ctx context.Context, userID string, items []models.CartItem, shipping models.ShippingDetails) (*Result, error) {
	user, err := in.resolveUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, models.ErrEmptyCart
	}
	if err := shipping.Validate(); err != nil {
		return nil, err
	}

	now := in.now()
	snapshot, err := in.refreshItems(ctx, items, now)
	if err != nil {
		return nil, err
	}
	breakdown := pricing.Calculate(snapshot, in.cfg.TaxRate).Rounded()

	ref := NewExternalRef(in.cfg.RefPrefix, now)
	rec := &models.TransactionRecord{
		ID:            uuid.NewString(),
		ExternalRef:   ref,
		UserID:        user.ID,
		Amount:        breakdown.Total,
		Discount:      breakdown.Discount,
		Tax:           breakdown.Tax,
		PayableAmount: breakdown.Payable,
		Currency:      in.cfg.Currency,
		Status:        models.TransactionPending,
		Shipping:      shipping,
		Items:         snapshot,
		CustomerName:  firstNonEmpty(shipping.FullName, user.Name),
		CustomerEmail: user.Email,
		CustomerPhone: firstNonEmpty(shipping.Phone, user.Phone),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := in.repo.CreateTransaction(ctx, rec); err != nil {
		log.Printf("❌ Création transaction %s: %v", ref, err)
		return nil, models.Storage("create transaction", err)
	}
	log.Printf("💳 Transaction %s créée (%s %s)", ref, rec.PayableAmount.StringFixed(2), rec.Currency)

	res, err := in.gateway.CreateTransaction(ctx, gateway.Request{
		Amount:   rec.PayableAmount,
		Currency: rec.Currency,
		TranID:   ref,
		URLs:     gateway.CallbackURLs(in.cfg.BaseURL, ref),
		UserID:   user.ID,
		Customer: gateway.Customer{
			Name:    rec.CustomerName,
			Email:   rec.CustomerEmail,
			Phone:   rec.CustomerPhone,
			Country: shipping.CountryOrDefault(in.cfg.DefaultCountry),
		},
		Shipping:    shipping,
		ProductName: productSummary(snapshot),
		NumItems:    totalQuantity(snapshot),
	})
	if err != nil {
		return nil, in.handleGatewayError(ctx, ref, err)
	}

	log.Printf("✅ Session de paiement ouverte pour %s", ref)
	return &Result{
		ExternalRef: ref,
		Status:      res.Status,
		Options:     res.Options,
		GatewayURL:  res.GatewayURL,
		Breakdown:   breakdown,
	}, nil
}

// handleGatewayError : un refus explicite termine la transaction en FAILED,
// un échec de transport la laisse PENDING pour qu'un callback tardif puisse la conclure.
func (in *Initiator) handleGatewayError(ctx context.Context, ref string, err error) error {
	if errors.Is(err, gateway.ErrTransport) {
		reason := "transport"
		if gateway.IsTimeout(err) {
			reason = "timeout"
		}
		log.Printf("⚠️ Passerelle injoignable pour %s (%s), transaction laissée PENDING: %v", ref, reason, err)
		return &models.GatewayError{Reason: reason, Err: err}
	}

	var gwErr *models.GatewayError
	if !errors.As(err, &gwErr) {
		gwErr = &models.GatewayError{Reason: "unexpected gateway error", Err: err}
	}

	log.Printf("❌ Passerelle a refusé %s: %s", ref, gwErr.Reason)
	if _, _, terr := in.repo.TransitionStatus(ctx, ref, models.StatusChange{
		To:            models.TransactionFailed,
		GatewayStatus: "REJECTED",
		FailureReason: gwErr.Reason,
		At:            in.now(),
	}); terr != nil {
		log.Printf("❌ Impossible de marquer %s en FAILED: %v", ref, terr)
	}
	return gwErr
}

func (in *Initiator) resolveUser(ctx context.Context, userID string) (*models.User, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, models.ErrUnauthorized
	}
	user, err := in.users.GetUser(ctx, userID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.ErrUnauthorized
	}
	if err != nil {
		return nil, models.Storage("get user", err)
	}
	return user, nil
}

// refreshItems remplace les prix envoyés par le client par ceux du catalogue
func (in *Initiator) refreshItems(ctx context.Context, items []models.CartItem, now time.Time) ([]models.CartItem, error) {
	requested := map[string]int{}
	out := make([]models.CartItem, 0, len(items))

	for _, item := range items {
		if item.Quantity <= 0 || strings.TrimSpace(item.ProductID) == "" {
			return nil, fmt.Errorf("%w: %q quantity %d", models.ErrInvalidCart, item.ProductID, item.Quantity)
		}
		p, err := in.repo.GetProduct(ctx, item.ProductID)
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown product %q", models.ErrInvalidCart, item.ProductID)
		}
		if err != nil {
			return nil, models.Storage("get product", err)
		}

		requested[p.ID] += item.Quantity
		if requested[p.ID] > p.Stock {
			return nil, fmt.Errorf("%w: %q has %d, requested %d", models.ErrInsufficientStock, p.ID, p.Stock, requested[p.ID])
		}

		item.Title = p.Name
		item.UnitPrice = p.Price
		item.DiscountPercent = pricing.EffectiveDiscountPercent(p.DiscountPercent, p.DiscountStart, p.DiscountEnd, now)
		out = append(out, item)
	}
	return out, nil
}

func productSummary(items []models.CartItem) string {
	names := make([]string, 0, len(items))
	for _, it := range items {
		names = append(names, it.Title)
	}
	summary := strings.Join(names, ", ")
	if len(summary) > 255 {
		cut := 252
		for cut > 0 && !utf8.RuneStart(summary[cut]) {
			cut--
		}
		summary = summary[:cut] + "..."
	}
	return summary
}

func totalQuantity(items []models.CartItem) int {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
