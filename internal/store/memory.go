package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"cedra_checkout/internal/models"
)

// MemoryStore est un Store en mémoire. Toutes les opérations conditionnelles
// sont sérialisées par le même verrou, comme une LWT côté Scylla.
type MemoryStore struct {
	mu             sync.RWMutex
	transactions   map[string]models.TransactionRecord
	orders         map[string]models.Order
	orderByPayment map[string]string
	orderItems     map[string]map[int]models.OrderItem
	products       map[string]models.Product
	// produit -> paiement -> quantité en réapprovisionnement
	sales         map[string]map[string]int
	notifications map[string][]models.Notification
	users         map[string]models.User
	discounts     map[string]models.Discount
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		transactions:   make(map[string]models.TransactionRecord),
		orders:         make(map[string]models.Order),
		orderByPayment: make(map[string]string),
		orderItems:     make(map[string]map[int]models.OrderItem),
		products:       make(map[string]models.Product),
		sales:          make(map[string]map[string]int),
		notifications:  make(map[string][]models.Notification),
		users:          make(map[string]models.User),
		discounts:      make(map[string]models.Discount),
	}
}

// --- Données de référence ---

func (s *MemoryStore) PutProduct(p models.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

func (s *MemoryStore) PutUser(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

func (s *MemoryStore) PutDiscount(d models.Discount) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.discounts[strings.ToUpper(d.Code)] = d
}

// --- Transactions ---

func (s *MemoryStore) CreateTransaction(_ context.Context, rec *models.TransactionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.transactions[rec.ExternalRef]; exists {
		return models.Storage("create transaction", errDuplicateRef)
	}
	s.transactions[rec.ExternalRef] = copyRecord(*rec)
	return nil
}

func (s *MemoryStore) FindTransactionByRef(_ context.Context, ref string) (*models.TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.transactions[ref]
	if !ok {
		return nil, models.ErrNotFound
	}
	out := copyRecord(rec)
	return &out, nil
}

func (s *MemoryStore) TransitionStatus(_ context.Context, ref string, change models.StatusChange) (bool, models.TransactionStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.transactions[ref]
	if !ok {
		return false, "", models.ErrNotFound
	}
	if rec.Status != models.TransactionPending {
		return false, rec.Status, nil
	}
	rec.Status = change.To
	rec.ValID = change.ValID
	rec.GatewayStatus = change.GatewayStatus
	rec.FailureReason = change.FailureReason
	rec.UpdatedAt = change.At
	s.transactions[ref] = rec
	return true, rec.Status, nil
}

func (s *MemoryStore) MarkMaterialized(_ context.Context, ref, orderID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.transactions[ref]
	if !ok {
		return false, models.ErrNotFound
	}
	if rec.Status != models.TransactionSuccess || rec.Materialized {
		return false, nil
	}
	rec.Materialized = true
	rec.OrderID = orderID
	rec.UpdatedAt = time.Now().UTC()
	s.transactions[ref] = rec
	return true, nil
}

// --- Commandes ---

func (s *MemoryStore) ClaimOrder(_ context.Context, paymentRef, candidateID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.orderByPayment[paymentRef]; ok {
		return id, nil
	}
	s.orderByPayment[paymentRef] = candidateID
	return candidateID, nil
}

func (s *MemoryStore) FindOrderByPaymentRef(_ context.Context, paymentRef string) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.orderByPayment[paymentRef]
	if !ok {
		return nil, models.ErrNotFound
	}
	o, ok := s.orders[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &o, nil
}

func (s *MemoryStore) GetOrder(_ context.Context, orderID string) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[orderID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &o, nil
}

func (s *MemoryStore) CreateOrder(_ context.Context, order *models.Order) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.orders[order.ID]; exists {
		return false, nil
	}
	s.orders[order.ID] = *order
	return true, nil
}

func (s *MemoryStore) SaveOrderItem(_ context.Context, item models.OrderItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lines, ok := s.orderItems[item.OrderID]
	if !ok {
		lines = make(map[int]models.OrderItem)
		s.orderItems[item.OrderID] = lines
	}
	lines[item.LineNo] = item
	return nil
}

func (s *MemoryStore) ListOrderItems(_ context.Context, orderID string) ([]models.OrderItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]models.OrderItem, 0, len(s.orderItems[orderID]))
	for _, it := range s.orderItems[orderID] {
		items = append(items, it)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].LineNo < items[j].LineNo })
	return items, nil
}

func (s *MemoryStore) UpdateOrderStatus(_ context.Context, orderID string, from, to models.OrderStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return false, models.ErrNotFound
	}
	if o.Status != from {
		return false, nil
	}
	o.Status = to
	o.UpdatedAt = time.Now().UTC()
	s.orders[orderID] = o
	return true, nil
}

// --- Produits ---

func (s *MemoryStore) GetProduct(_ context.Context, productID string) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[productID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &p, nil
}

func (s *MemoryStore) DecrementStock(_ context.Context, productID, paymentRef string, qty int) (models.StockResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[productID]
	if !ok {
		return models.StockResult{}, models.ErrNotFound
	}
	if backordered, ok := s.sales[productID][paymentRef]; ok {
		return models.StockResult{Remaining: p.Stock, Backordered: backordered, AlreadyApplied: true}, nil
	}
	res := applyDecrement(p.Stock, qty)
	p.Stock = res.Remaining
	if s.sales[productID] == nil {
		s.sales[productID] = make(map[string]int)
	}
	s.sales[productID][paymentRef] = res.Backordered
	p.UpdatedAt = time.Now().UTC()
	s.products[productID] = p
	return res, nil
}

// --- Notifications & utilisateurs ---

func (s *MemoryStore) CreateNotification(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications[n.UserID] = append(s.notifications[n.UserID], *n)
	return nil
}

func (s *MemoryStore) ListNotifications(_ context.Context, userID string, limit int) ([]models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.notifications[userID]
	out := make([]models.Notification, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, all[i])
	}
	return out, nil
}

func (s *MemoryStore) GetUser(_ context.Context, userID string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &u, nil
}

func (s *MemoryStore) FindUsersByRole(_ context.Context, role string) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.User
	for _, u := range s.users {
		if u.Role == role {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) FindDiscountByCode(_ context.Context, code string) (*models.Discount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.discounts[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &d, nil
}

func copyRecord(rec models.TransactionRecord) models.TransactionRecord {
	rec.Items = append([]models.CartItem(nil), rec.Items...)
	return rec
}
