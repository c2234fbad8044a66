// Package reconcile fait converger une transaction vers un unique état final,
// quels que soient l'ordre et le nombre des callbacks reçus de la passerelle.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"cedra_checkout/internal/gateway"
	"cedra_checkout/internal/models"
	"cedra_checkout/internal/store"
)

type Repository interface {
	store.TransactionStore
	store.OrderStore
	store.ProductStore
}

type Validator interface {
	ValidatePayment(ctx context.Context, valID string) (*gateway.Validation, error)
}

// OrderEvent décrit une commande qui vient d'être matérialisée
type OrderEvent struct {
	Order       models.Order
	Items       []models.OrderItem
	Record      models.TransactionRecord
	Backordered bool
}

// Notifier prévient les administrateurs et le client. Best effort.
type Notifier interface {
	NotifyOrderCreated(ctx context.Context, ev OrderEvent)
}

// Hook reçoit chaque commande matérialisée, une seule fois
type Hook interface {
	Name() string
	OnOrderMaterialized(ctx context.Context, ev OrderEvent) error
}

type Config struct {
	// RequireValidation refuse de conclure un succès sans val_id vérifié
	RequireValidation bool
}

type Reconciler struct {
	repo      Repository
	validator Validator
	notifier  Notifier
	hooks     []Hook
	cfg       Config
	now       func() time.Time
	runAsync  func(func())
	inflight  sync.WaitGroup
}

func NewReconciler(repo Repository, validator Validator, notifier Notifier, cfg Config, hooks ...Hook) *Reconciler {
	return &Reconciler{
		repo:      repo,
		validator: validator,
		notifier:  notifier,
		hooks:     hooks,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
		runAsync:  func(f func()) { go f() },
	}
}

// Wait attend la fin des notifications et hooks en cours, dans la limite de ctx.
// À appeler à l'arrêt, avant de fermer les clients utilisés par les hooks.
func (r *Reconciler) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Outcome est l'état observé après traitement d'un callback
type Outcome struct {
	Ref              string                   `json:"ref"`
	Status           models.TransactionStatus `json:"status"`
	OrderID          string                   `json:"orderId,omitempty"`
	AlreadyProcessed bool                     `json:"alreadyProcessed"`
}

type SuccessInput struct {
	ValID  string
	Status string
}

type IPNInput struct {
	Status string
	ValID  string
	TranID string
	// Verified indique que la signature verify_sign a été contrôlée
	Verified bool
}

// Success traite le retour navigateur (ou l'IPN) annonçant un paiement réussi
func (r *Reconciler) Success(ctx context.Context, ref string, in SuccessInput) (Outcome, error) {
	return r.success(ctx, ref, in, false)
}

func (r *Reconciler) success(ctx context.Context, ref string, in SuccessInput, trusted bool) (Outcome, error) {
	rec, err := r.load(ctx, ref)
	if err != nil {
		return Outcome{}, err
	}

	switch rec.Status {
	case models.TransactionSuccess:
		log.Printf("🔁 Callback succès en double pour %s", ref)
		return r.finish(ctx, rec, true)
	case models.TransactionFailed, models.TransactionCanceled:
		log.Printf("🔁 Callback succès ignoré pour %s, déjà %s", ref, rec.Status)
		return Outcome{Ref: ref, Status: rec.Status, OrderID: rec.OrderID, AlreadyProcessed: true}, nil
	}

	change, err := r.decide(ctx, rec, in, trusted)
	if err != nil {
		return Outcome{}, err
	}
	if change == nil {
		return Outcome{Ref: ref, Status: models.TransactionPending}, nil
	}

	applied, current, err := r.repo.TransitionStatus(ctx, ref, *change)
	if err != nil {
		return Outcome{}, r.storageErr("transition status", err)
	}
	if !applied {
		log.Printf("🔁 %s déjà conclu en %s par un autre callback", ref, current)
		if current == models.TransactionSuccess {
			return r.finish(ctx, rec, true)
		}
		return Outcome{Ref: ref, Status: current, AlreadyProcessed: true}, nil
	}

	if change.To != models.TransactionSuccess {
		log.Printf("❌ Paiement %s refusé à la validation: %s", ref, change.FailureReason)
		return Outcome{Ref: ref, Status: change.To}, nil
	}

	log.Printf("✅ Paiement %s confirmé", ref)
	rec.Status = models.TransactionSuccess
	return r.finish(ctx, rec, false)
}

// decide calcule la transition à appliquer, ou nil si la transaction doit rester PENDING
func (r *Reconciler) decide(ctx context.Context, rec *models.TransactionRecord, in SuccessInput, trusted bool) (*models.StatusChange, error) {
	reported := models.ParseGatewayStatus(in.Status)

	if in.ValID == "" {
		if in.Status != "" {
			switch to := reported.ToTransactionStatus(); to {
			case models.TransactionPending:
				return nil, nil
			case models.TransactionFailed, models.TransactionCanceled:
				return &models.StatusChange{To: to, GatewayStatus: string(reported), FailureReason: "gateway reported " + string(reported), At: r.now()}, nil
			}
		}
		if r.cfg.RequireValidation && !trusted {
			log.Printf("⚠️ Succès sans val_id pour %s, validation exigée : transaction laissée PENDING", rec.ExternalRef)
			return nil, nil
		}
		gs := string(reported)
		if gs == "" {
			gs = string(models.GatewayValid)
		}
		return &models.StatusChange{To: models.TransactionSuccess, GatewayStatus: gs, At: r.now()}, nil
	}

	v, err := r.validator.ValidatePayment(ctx, in.ValID)
	if err != nil {
		log.Printf("⚠️ Validation %s impossible pour %s: %v", in.ValID, rec.ExternalRef, err)
		return nil, fmt.Errorf("validate payment %s: %w", rec.ExternalRef, err)
	}
	if v.TranID != "" && v.TranID != rec.ExternalRef {
		log.Printf("❌ val_id %s appartient à %s, pas à %s", in.ValID, v.TranID, rec.ExternalRef)
		return nil, models.ErrRefMismatch
	}

	change := &models.StatusChange{To: models.TransactionSuccess, ValID: in.ValID, GatewayStatus: string(v.Status), At: r.now()}
	switch {
	case v.Status.ToTransactionStatus() != models.TransactionSuccess:
		change.To = models.TransactionFailed
		change.FailureReason = "validation status " + string(v.Status)
	case !v.Amount.Round(2).Equal(rec.PayableAmount.Round(2)):
		change.To = models.TransactionFailed
		change.FailureReason = fmt.Sprintf("amount mismatch: expected %s, got %s", rec.PayableAmount.StringFixed(2), v.Amount.StringFixed(2))
	case v.Currency != "" && rec.Currency != "" && v.Currency != rec.Currency:
		change.To = models.TransactionFailed
		change.FailureReason = fmt.Sprintf("currency mismatch: expected %s, got %s", rec.Currency, v.Currency)
	}
	return change, nil
}

// Fail traite le callback d'échec
func (r *Reconciler) Fail(ctx context.Context, ref string) (Outcome, error) {
	return r.terminate(ctx, ref, models.TransactionFailed, models.GatewayFailed, "gateway reported failure")
}

// Cancel traite l'abandon du paiement par le client
func (r *Reconciler) Cancel(ctx context.Context, ref string) (Outcome, error) {
	return r.terminate(ctx, ref, models.TransactionCanceled, models.GatewayCancelled, "cancelled by customer")
}

func (r *Reconciler) terminate(ctx context.Context, ref string, to models.TransactionStatus, gs models.GatewayStatus, reason string) (Outcome, error) {
	rec, err := r.load(ctx, ref)
	if err != nil {
		return Outcome{}, err
	}
	if rec.Status.IsTerminal() {
		log.Printf("🔁 Callback %s ignoré pour %s, déjà %s", to, ref, rec.Status)
		return Outcome{Ref: ref, Status: rec.Status, OrderID: rec.OrderID, AlreadyProcessed: true}, nil
	}

	applied, current, err := r.repo.TransitionStatus(ctx, ref, models.StatusChange{
		To:            to,
		GatewayStatus: string(gs),
		FailureReason: reason,
		At:            r.now(),
	})
	if err != nil {
		return Outcome{}, r.storageErr("transition status", err)
	}
	if !applied {
		return Outcome{Ref: ref, Status: current, AlreadyProcessed: true}, nil
	}

	log.Printf("💳 Transaction %s passée en %s", ref, to)
	r.cancelLinkedOrder(ctx, ref)
	return Outcome{Ref: ref, Status: to}, nil
}

// IPN traite la notification serveur à serveur de la passerelle
func (r *Reconciler) IPN(ctx context.Context, ref string, in IPNInput) (Outcome, error) {
	if in.TranID != "" && in.TranID != ref {
		log.Printf("❌ IPN tran_id %s ne correspond pas à %s", in.TranID, ref)
		return Outcome{}, models.ErrRefMismatch
	}

	switch models.ParseGatewayStatus(in.Status).ToTransactionStatus() {
	case models.TransactionSuccess:
		return r.success(ctx, ref, SuccessInput{ValID: in.ValID, Status: in.Status}, in.Verified)
	case models.TransactionFailed:
		return r.Fail(ctx, ref)
	case models.TransactionCanceled:
		return r.Cancel(ctx, ref)
	}

	rec, err := r.load(ctx, ref)
	if err != nil {
		return Outcome{}, err
	}
	log.Printf("ℹ️ IPN %s pour %s sans effet", in.Status, ref)
	return Outcome{Ref: ref, Status: rec.Status, OrderID: rec.OrderID}, nil
}

func (r *Reconciler) load(ctx context.Context, ref string) (*models.TransactionRecord, error) {
	rec, err := r.repo.FindTransactionByRef(ctx, ref)
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.ErrPaymentNotFound
	}
	if err != nil {
		return nil, r.storageErr("find transaction", err)
	}
	return rec, nil
}

func (r *Reconciler) cancelLinkedOrder(ctx context.Context, ref string) {
	order, err := r.repo.FindOrderByPaymentRef(ctx, ref)
	if errors.Is(err, models.ErrNotFound) {
		return
	}
	if err != nil {
		log.Printf("⚠️ Lecture commande liée à %s: %v", ref, err)
		return
	}
	if ok, err := r.repo.UpdateOrderStatus(ctx, order.ID, models.OrderProcessing, models.OrderCancelled); err != nil {
		log.Printf("⚠️ Annulation commande %s: %v", order.ID, err)
	} else if ok {
		log.Printf("❌ Commande %s annulée suite au paiement %s", order.ID, ref)
	}
}

func (r *Reconciler) storageErr(op string, err error) error {
	log.Printf("❌ Stockage (%s): %v", op, err)
	return models.Storage(op, err)
}
