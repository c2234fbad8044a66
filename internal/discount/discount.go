// Package discount résout et valide les codes promo saisis au panier.
package discount

import (
	"context"
	"strings"
	"time"

	"cedra_checkout/internal/models"
	"cedra_checkout/internal/store"
)

// Source retrouve un code promo, models.ErrNotFound s'il n'existe pas
type Source interface {
	FindByCode(ctx context.Context, code string) (*models.Discount, error)
}

// StoreSource lit la table coupons
type StoreSource struct {
	store store.DiscountStore
}

func NewStoreSource(s store.DiscountStore) *StoreSource {
	return &StoreSource{store: s}
}

func (s *StoreSource) FindByCode(ctx context.Context, code string) (*models.Discount, error) {
	return s.store.FindDiscountByCode(ctx, code)
}

// Validate refuse un code désactivé, pas encore ouvert ou expiré
func Validate(d *models.Discount, now time.Time) error {
	if !d.Active {
		return models.ErrDiscountInactive
	}
	if d.StartsAt != nil && now.Before(*d.StartsAt) {
		return models.ErrDiscountInactive
	}
	if d.ExpiresAt != nil && !now.Before(*d.ExpiresAt) {
		return models.ErrDiscountInactive
	}
	return nil
}

type Validator struct {
	source Source
	now    func() time.Time
}

func NewValidator(source Source) *Validator {
	return &Validator{source: source, now: time.Now}
}

// Lookup retrouve le code puis vérifie sa fenêtre de validité
func (v *Validator) Lookup(ctx context.Context, code string) (*models.Discount, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, models.ErrNotFound
	}
	d, err := v.source.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := Validate(d, v.now()); err != nil {
		return nil, err
	}
	return d, nil
}
