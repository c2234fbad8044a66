// Package admin regroupe le suivi logistique des commandes et les notifications.
package admin

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"cedra_checkout/internal/middleware"
	"cedra_checkout/internal/models"
	"cedra_checkout/internal/notify"
	"cedra_checkout/internal/reconcile"

	"github.com/gin-gonic/gin"
)

type Orders interface {
	GetOrder(ctx context.Context, orderID string) (*models.Order, error)
	ListOrderItems(ctx context.Context, orderID string) ([]models.OrderItem, error)
	UpdateOrderStatus(ctx context.Context, orderID string, from, to models.OrderStatus) (bool, error)
}

type Users interface {
	GetUser(ctx context.Context, userID string) (*models.User, error)
}

type Notifications interface {
	ListNotifications(ctx context.Context, userID string, limit int) ([]models.Notification, error)
}

type Transactions interface {
	FindTransactionByRef(ctx context.Context, ref string) (*models.TransactionRecord, error)
}

type ReceiptSender interface {
	SendReceipt(ctx context.Context, ev reconcile.OrderEvent) error
}

type StatusNotifier interface {
	NotifyOrderStatus(ctx context.Context, order models.Order, email string)
}

type Handler struct {
	orders        Orders
	users         Users
	notifications Notifications
	notifier      StatusNotifier
	broadcaster   notify.Broadcaster
	transactions  Transactions
	receipts      ReceiptSender
	now           func() time.Time
	runAsync      func(func())
}

func NewHandler(orders Orders, users Users, notifications Notifications, notifier StatusNotifier, b notify.Broadcaster) *Handler {
	return &Handler{
		orders:        orders,
		users:         users,
		notifications: notifications,
		notifier:      notifier,
		broadcaster:   b,
		now:           func() time.Time { return time.Now().UTC() },
		runAsync:      func(f func()) { go f() },
	}
}

// WithReceipts active le renvoi des reçus par e-mail
func (h *Handler) WithReceipts(tx Transactions, sender ReceiptSender) *Handler {
	h.transactions = tx
	h.receipts = sender
	return h
}

// UpdateOrderStatus permet à un admin de faire avancer une commande
// (Processing → Shipped → Delivered, ou Processing → Cancelled)
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	orderID := c.Param("id")

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides", "details": err.Error()})
		return
	}

	next, ok := models.ParseOrderStatus(req.Status)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":          "Statut invalide",
			"valid_statuses": []models.OrderStatus{models.OrderProcessing, models.OrderShipped, models.OrderDelivered, models.OrderCancelled},
		})
		return
	}

	ctx := c.Request.Context()
	order, err := h.orders.GetOrder(ctx, orderID)
	if errors.Is(err, models.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Commande introuvable"})
		return
	}
	if err != nil {
		log.Printf("❌ Lecture commande %s: %v", orderID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur serveur"})
		return
	}

	if !order.Status.CanTransitionTo(next) {
		c.JSON(http.StatusConflict, gin.H{
			"error":   "Transition de statut impossible",
			"current": order.Status,
		})
		return
	}

	applied, err := h.orders.UpdateOrderStatus(ctx, orderID, order.Status, next)
	if err != nil {
		log.Printf("❌ Erreur mise à jour commande %s: %v", orderID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur mise à jour commande"})
		return
	}
	if !applied {
		c.JSON(http.StatusConflict, gin.H{"error": "La commande a été modifiée entre-temps, réessayez"})
		return
	}

	order.Status = next
	order.UpdatedAt = h.now()
	log.Printf("📦 Commande %s passée en %s par %s", orderID, next, c.GetString(middleware.ContextUserID))

	updated := *order
	bg := context.WithoutCancel(ctx)
	h.runAsync(func() {
		email := ""
		if u, err := h.users.GetUser(bg, updated.UserID); err == nil {
			email = u.Email
		} else {
			log.Printf("⚠️ Client %s introuvable pour la commande %s: %v", updated.UserID, updated.ID, err)
		}
		h.notifier.NotifyOrderStatus(bg, updated, email)
	})

	c.JSON(http.StatusOK, gin.H{"message": "Statut mis à jour", "order": updated})
}

// ListNotifications retourne les dernières notifications de l'utilisateur connecté
func (h *Handler) ListNotifications(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 || limit > 200 {
		limit = 50
	}

	list, err := h.notifications.ListNotifications(c.Request.Context(), c.GetString(middleware.ContextUserID), limit)
	if err != nil {
		log.Printf("❌ Lecture notifications: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur serveur"})
		return
	}
	if list == nil {
		list = []models.Notification{}
	}
	c.JSON(http.StatusOK, gin.H{"notifications": list, "count": len(list)})
}

// ResendReceipt renvoie au client le reçu d'une commande payée
func (h *Handler) ResendReceipt(c *gin.Context) {
	if h.receipts == nil || h.transactions == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Envoi des reçus non configuré"})
		return
	}

	ctx := c.Request.Context()
	orderID := c.Param("id")
	order, err := h.orders.GetOrder(ctx, orderID)
	if errors.Is(err, models.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Commande introuvable"})
		return
	}
	if err != nil {
		log.Printf("❌ Lecture commande %s: %v", orderID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur serveur"})
		return
	}

	rec, err := h.transactions.FindTransactionByRef(ctx, order.PaymentRef)
	if errors.Is(err, models.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Paiement introuvable pour cette commande"})
		return
	}
	if err != nil {
		log.Printf("❌ Lecture paiement %s: %v", order.PaymentRef, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur serveur"})
		return
	}
	if rec.Status != models.TransactionSuccess {
		c.JSON(http.StatusConflict, gin.H{"error": "Paiement non confirmé", "status": rec.Status})
		return
	}

	items, err := h.orders.ListOrderItems(ctx, order.ID)
	if err != nil {
		log.Printf("❌ Lecture articles %s: %v", order.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur serveur"})
		return
	}
	backordered := false
	for _, it := range items {
		if it.Backordered > 0 {
			backordered = true
			break
		}
	}

	ev := reconcile.OrderEvent{Order: *order, Items: items, Record: *rec, Backordered: backordered}
	if err := h.receipts.SendReceipt(ctx, ev); err != nil {
		log.Printf("❌ Envoi du reçu %s: %v", order.PaymentRef, err)
		if errors.Is(err, notify.ErrNoRecipient) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Aucune adresse e-mail pour ce client"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "Envoi du reçu impossible"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Reçu envoyé", "email": rec.CustomerEmail})
}
