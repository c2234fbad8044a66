package cart

import (
	"context"

	"cedra_checkout/internal/reconcile"
)

// ClearOnOrder vide le panier du client une fois sa commande créée
type ClearOnOrder struct {
	store *Store
}

func NewClearOnOrder(s *Store) *ClearOnOrder {
	return &ClearOnOrder{store: s}
}

func (h *ClearOnOrder) Name() string { return "cart" }

func (h *ClearOnOrder) OnOrderMaterialized(ctx context.Context, ev reconcile.OrderEvent) error {
	_, err := h.store.Clear(ctx, ev.Order.UserID)
	return err
}
