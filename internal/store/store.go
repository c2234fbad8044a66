// Package store définit la persistance du tunnel de paiement et ses deux
// implémentations : ScyllaDB (production) et mémoire (tests, STORE_DRIVER=memory).
package store

import (
	"context"

	"cedra_checkout/internal/models"
)

type TransactionStore interface {
	CreateTransaction(ctx context.Context, rec *models.TransactionRecord) error
	// FindTransactionByRef retourne models.ErrNotFound si la référence est inconnue
	FindTransactionByRef(ctx context.Context, ref string) (*models.TransactionRecord, error)
	// TransitionStatus n'applique le changement que si le statut courant est PENDING.
	// current est le statut observé après l'opération.
	TransitionStatus(ctx context.Context, ref string, change models.StatusChange) (applied bool, current models.TransactionStatus, err error)
	// MarkMaterialized bascule materialized à true une seule fois, sur une transaction SUCCESS
	MarkMaterialized(ctx context.Context, ref, orderID string) (bool, error)
}

type OrderStore interface {
	// ClaimOrder associe candidateID au paiement s'il n'a pas encore de commande,
	// et retourne dans tous les cas l'identifiant retenu.
	ClaimOrder(ctx context.Context, paymentRef, candidateID string) (string, error)
	FindOrderByPaymentRef(ctx context.Context, paymentRef string) (*models.Order, error)
	GetOrder(ctx context.Context, orderID string) (*models.Order, error)
	// CreateOrder n'écrase jamais une commande existante
	CreateOrder(ctx context.Context, order *models.Order) (bool, error)
	SaveOrderItem(ctx context.Context, item models.OrderItem) error
	ListOrderItems(ctx context.Context, orderID string) ([]models.OrderItem, error)
	// UpdateOrderStatus ne s'applique que si le statut courant vaut from
	UpdateOrderStatus(ctx context.Context, orderID string, from, to models.OrderStatus) (bool, error)
}

type ProductStore interface {
	GetProduct(ctx context.Context, productID string) (*models.Product, error)
	// DecrementStock retire qty du stock une seule fois par référence de paiement,
	// sans jamais descendre sous zéro.
	DecrementStock(ctx context.Context, productID, paymentRef string, qty int) (models.StockResult, error)
}

type NotificationStore interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	ListNotifications(ctx context.Context, userID string, limit int) ([]models.Notification, error)
}

type UserStore interface {
	GetUser(ctx context.Context, userID string) (*models.User, error)
	FindUsersByRole(ctx context.Context, role string) ([]models.User, error)
}

type DiscountStore interface {
	FindDiscountByCode(ctx context.Context, code string) (*models.Discount, error)
}

// Store regroupe tout ce dont le tunnel de paiement a besoin
type Store interface {
	TransactionStore
	OrderStore
	ProductStore
	NotificationStore
	UserStore
	DiscountStore
}
