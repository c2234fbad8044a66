package reconcile

import (
	"context"
	"errors"
	"log"

	"cedra_checkout/internal/models"

	"github.com/google/uuid"
)

// finish matérialise la commande d'une transaction SUCCESS si ce n'est pas déjà fait.
// Chaque étape est idempotente : un callback concurrent ou une reprise après panne
// refait le même travail sans effet de bord, et seul le gagnant de la bascule
// materialized déclenche notifications et hooks.
func (r *Reconciler) finish(ctx context.Context, rec *models.TransactionRecord, already bool) (Outcome, error) {
	if rec.Materialized {
		return Outcome{Ref: rec.ExternalRef, Status: models.TransactionSuccess, OrderID: rec.OrderID, AlreadyProcessed: already}, nil
	}

	ev, err := r.materialize(ctx, rec)
	if err != nil {
		return Outcome{}, err
	}

	won, err := r.repo.MarkMaterialized(ctx, rec.ExternalRef, ev.Order.ID)
	if err != nil {
		return Outcome{}, r.storageErr("mark materialized", err)
	}
	if won {
		log.Printf("✅ Commande %s créée pour le paiement %s", ev.Order.ID, rec.ExternalRef)
		r.fanOut(ctx, ev)
	}
	return Outcome{Ref: rec.ExternalRef, Status: models.TransactionSuccess, OrderID: ev.Order.ID, AlreadyProcessed: already}, nil
}

func (r *Reconciler) materialize(ctx context.Context, rec *models.TransactionRecord) (OrderEvent, error) {
	ref := rec.ExternalRef
	orderID, err := r.repo.ClaimOrder(ctx, ref, uuid.NewString())
	if err != nil {
		return OrderEvent{}, r.storageErr("claim order", err)
	}

	now := r.now()
	order := models.Order{
		ID:     orderID,
		UserID: rec.UserID,
		// l'adresse figée reste portée par la transaction
		AddressRef: ref,
		Total:      rec.Amount,
		Discount:   rec.Discount,
		Tax:        rec.Tax,
		Payable:    rec.PayableAmount,
		Status:     models.OrderProcessing,
		PaymentRef: ref,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	created, err := r.repo.CreateOrder(ctx, &order)
	if err != nil {
		return OrderEvent{}, r.storageErr("create order", err)
	}
	if !created {
		existing, err := r.repo.GetOrder(ctx, orderID)
		if err != nil {
			return OrderEvent{}, r.storageErr("get order", err)
		}
		order = *existing
	}

	ev := OrderEvent{Order: order, Record: *rec}
	for i, line := range rec.Items {
		item := models.OrderItem{
			OrderID:         orderID,
			LineNo:          i + 1,
			ProductID:       line.ProductID,
			Title:           line.Title,
			Quantity:        line.Quantity,
			UnitPrice:       line.UnitPrice,
			DiscountPercent: line.DiscountPercent,
			Color:           line.Color,
			Size:            line.Size,
		}

		stock, err := r.repo.DecrementStock(ctx, line.ProductID, ref, line.Quantity)
		switch {
		case errors.Is(err, models.ErrNotFound):
			log.Printf("⚠️ Produit %s introuvable, stock non décrémenté pour %s", line.ProductID, ref)
		case err != nil:
			return OrderEvent{}, r.storageErr("decrement stock", err)
		default:
			// en reprise, le manque vient de la première application
			item.Backordered = stock.Backordered
		}
		if item.Backordered > 0 {
			log.Printf("⚠️ Rupture: %d x %s en attente pour la commande %s", item.Backordered, line.ProductID, orderID)
			ev.Backordered = true
		}

		if err := r.repo.SaveOrderItem(ctx, item); err != nil {
			return OrderEvent{}, r.storageErr("save order item", err)
		}
		ev.Items = append(ev.Items, item)
	}

	ev.Record.Materialized = true
	ev.Record.OrderID = orderID
	return ev, nil
}

// fanOut lance notifications et hooks hors du chemin du callback
func (r *Reconciler) fanOut(ctx context.Context, ev OrderEvent) {
	bg := context.WithoutCancel(ctx)
	r.inflight.Add(1)
	r.runAsync(func() {
		defer r.inflight.Done()
		if r.notifier != nil {
			r.notifier.NotifyOrderCreated(bg, ev)
		}
		for _, h := range r.hooks {
			if err := h.OnOrderMaterialized(bg, ev); err != nil {
				log.Printf("⚠️ Hook %s en échec pour la commande %s: %v", h.Name(), ev.Order.ID, err)
			}
		}
	})
}
