package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"cedra_checkout/internal/models"

	"github.com/gocql/gocql"
	"gopkg.in/inf.v0"
)

// ScyllaSessions regroupe une session par keyspace (commandes, produits, utilisateurs)
type ScyllaSessions struct {
	Orders   *gocql.Session
	Products *gocql.Session
	Users    *gocql.Session
}

// ScyllaStore implémente Store sur ScyllaDB.
// Les transitions passent toutes par des LWT (IF ...), seule garantie d'exclusivité
// entre callbacks concurrents.
type ScyllaStore struct {
	orders   *gocql.Session
	products *gocql.Session
	users    *gocql.Session
}

func NewScyllaStore(s ScyllaSessions) *ScyllaStore {
	return &ScyllaStore{orders: s.Orders, products: s.Products, users: s.Users}
}

// =============================================
// TRANSACTIONS
// =============================================

const transactionColumns = `external_ref, id, user_id, amount, discount, tax, payable_amount, currency,
	status, shipping_snapshot, items_snapshot, customer_name, customer_email, customer_phone,
	val_id, gateway_status, failure_reason, order_id, materialized, created_at, updated_at`

func (s *ScyllaStore) CreateTransaction(ctx context.Context, rec *models.TransactionRecord) error {
	shipping, err := encodeShipping(rec.Shipping)
	if err != nil {
		return models.Storage("encode shipping", err)
	}
	items, err := encodeItems(rec.Items)
	if err != nil {
		return models.Storage("encode items", err)
	}

	prev := map[string]interface{}{}
	applied, err := s.orders.Query(`INSERT INTO payment_transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) IF NOT EXISTS`,
		rec.ExternalRef, rec.ID, rec.UserID,
		toCQLDecimal(rec.Amount), toCQLDecimal(rec.Discount), toCQLDecimal(rec.Tax), toCQLDecimal(rec.PayableAmount),
		rec.Currency, string(rec.Status), shipping, items,
		rec.CustomerName, rec.CustomerEmail, rec.CustomerPhone,
		rec.ValID, rec.GatewayStatus, rec.FailureReason, rec.OrderID, false,
		rec.CreatedAt, rec.UpdatedAt,
	).WithContext(ctx).MapScanCAS(prev)
	if err != nil {
		return models.Storage("create transaction", err)
	}
	if !applied {
		return models.Storage("create transaction", errDuplicateRef)
	}
	return nil
}

func (s *ScyllaStore) FindTransactionByRef(ctx context.Context, ref string) (*models.TransactionRecord, error) {
	var (
		rec                            models.TransactionRecord
		status, shipping, items        string
		amount, discount, tax, payable = new(inf.Dec), new(inf.Dec), new(inf.Dec), new(inf.Dec)
	)
	err := s.orders.Query(`SELECT `+transactionColumns+` FROM payment_transactions WHERE external_ref = ?`, ref).
		WithContext(ctx).
		Scan(&rec.ExternalRef, &rec.ID, &rec.UserID, amount, discount, tax, payable, &rec.Currency,
			&status, &shipping, &items, &rec.CustomerName, &rec.CustomerEmail, &rec.CustomerPhone,
			&rec.ValID, &rec.GatewayStatus, &rec.FailureReason, &rec.OrderID, &rec.Materialized,
			&rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, models.Storage("find transaction", err)
	}

	rec.Amount = fromCQLDecimal(amount)
	rec.Discount = fromCQLDecimal(discount)
	rec.Tax = fromCQLDecimal(tax)
	rec.PayableAmount = fromCQLDecimal(payable)
	rec.Status = models.TransactionStatus(status)
	if rec.Shipping, err = decodeShipping(shipping); err != nil {
		return nil, models.Storage("decode shipping", err)
	}
	if rec.Items, err = decodeItems(items); err != nil {
		return nil, models.Storage("decode items", err)
	}
	return &rec, nil
}

func (s *ScyllaStore) TransitionStatus(ctx context.Context, ref string, change models.StatusChange) (bool, models.TransactionStatus, error) {
	prev := map[string]interface{}{}
	applied, err := s.orders.Query(`UPDATE payment_transactions
		SET status = ?, val_id = ?, gateway_status = ?, failure_reason = ?, updated_at = ?
		WHERE external_ref = ? IF status = ?`,
		string(change.To), change.ValID, change.GatewayStatus, change.FailureReason, change.At,
		ref, string(models.TransactionPending),
	).WithContext(ctx).MapScanCAS(prev)
	if err != nil {
		return false, "", models.Storage("transition status", err)
	}
	if applied {
		return true, change.To, nil
	}

	// Ligne absente : Scylla répond non appliqué sans colonne status
	current, ok := prev["status"].(string)
	if !ok || current == "" {
		return false, "", models.ErrNotFound
	}
	return false, models.TransactionStatus(current), nil
}

func (s *ScyllaStore) MarkMaterialized(ctx context.Context, ref, orderID string) (bool, error) {
	prev := map[string]interface{}{}
	applied, err := s.orders.Query(`UPDATE payment_transactions SET materialized = true, order_id = ?, updated_at = ?
		WHERE external_ref = ? IF status = ? AND materialized = false`,
		orderID, time.Now().UTC(), ref, string(models.TransactionSuccess),
	).WithContext(ctx).MapScanCAS(prev)
	if err != nil {
		return false, models.Storage("mark materialized", err)
	}
	return applied, nil
}

// =============================================
// COMMANDES
// =============================================

func (s *ScyllaStore) ClaimOrder(ctx context.Context, paymentRef, candidateID string) (string, error) {
	prev := map[string]interface{}{}
	applied, err := s.orders.Query(`INSERT INTO orders_by_payment (payment_ref, order_id) VALUES (?, ?) IF NOT EXISTS`,
		paymentRef, candidateID,
	).WithContext(ctx).MapScanCAS(prev)
	if err != nil {
		return "", models.Storage("claim order", err)
	}
	if applied {
		return candidateID, nil
	}
	existing, _ := prev["order_id"].(string)
	if existing == "" {
		return "", models.Storage("claim order", fmt.Errorf("order claim for %s returned no owner", paymentRef))
	}
	return existing, nil
}

func (s *ScyllaStore) FindOrderByPaymentRef(ctx context.Context, paymentRef string) (*models.Order, error) {
	var orderID string
	err := s.orders.Query(`SELECT order_id FROM orders_by_payment WHERE payment_ref = ?`, paymentRef).
		WithContext(ctx).Scan(&orderID)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, models.Storage("find order by payment", err)
	}
	return s.GetOrder(ctx, orderID)
}

func (s *ScyllaStore) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	var (
		o                             models.Order
		status                        string
		total, discount, tax, payable = new(inf.Dec), new(inf.Dec), new(inf.Dec), new(inf.Dec)
	)
	err := s.orders.Query(`SELECT order_id, user_id, address_ref, total, discount, tax, payable, status, payment_ref, created_at, updated_at
		FROM orders WHERE order_id = ?`, orderID).
		WithContext(ctx).
		Scan(&o.ID, &o.UserID, &o.AddressRef, total, discount, tax, payable, &status, &o.PaymentRef, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, models.Storage("get order", err)
	}
	o.Total = fromCQLDecimal(total)
	o.Discount = fromCQLDecimal(discount)
	o.Tax = fromCQLDecimal(tax)
	o.Payable = fromCQLDecimal(payable)
	o.Status = models.OrderStatus(status)
	return &o, nil
}

func (s *ScyllaStore) CreateOrder(ctx context.Context, o *models.Order) (bool, error) {
	prev := map[string]interface{}{}
	applied, err := s.orders.Query(`INSERT INTO orders (order_id, user_id, address_ref, total, discount, tax, payable, status, payment_ref, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) IF NOT EXISTS`,
		o.ID, o.UserID, o.AddressRef,
		toCQLDecimal(o.Total), toCQLDecimal(o.Discount), toCQLDecimal(o.Tax), toCQLDecimal(o.Payable),
		string(o.Status), o.PaymentRef, o.CreatedAt, o.UpdatedAt,
	).WithContext(ctx).MapScanCAS(prev)
	if err != nil {
		return false, models.Storage("create order", err)
	}
	return applied, nil
}

func (s *ScyllaStore) SaveOrderItem(ctx context.Context, it models.OrderItem) error {
	err := s.orders.Query(`INSERT INTO order_items (order_id, line_no, product_id, title, quantity, unit_price, discount_percent, color, size, backordered)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		it.OrderID, it.LineNo, it.ProductID, it.Title, it.Quantity,
		toCQLDecimal(it.UnitPrice), toCQLDecimal(it.DiscountPercent), it.Color, it.Size, it.Backordered,
	).WithContext(ctx).Exec()
	return models.Storage("save order item", err)
}

func (s *ScyllaStore) ListOrderItems(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	iter := s.orders.Query(`SELECT line_no, product_id, title, quantity, unit_price, discount_percent, color, size, backordered
		FROM order_items WHERE order_id = ?`, orderID).WithContext(ctx).Iter()

	var items []models.OrderItem
	for {
		it := models.OrderItem{OrderID: orderID}
		price, percent := new(inf.Dec), new(inf.Dec)
		if !iter.Scan(&it.LineNo, &it.ProductID, &it.Title, &it.Quantity, price, percent, &it.Color, &it.Size, &it.Backordered) {
			break
		}
		it.UnitPrice = fromCQLDecimal(price)
		it.DiscountPercent = fromCQLDecimal(percent)
		items = append(items, it)
	}
	if err := iter.Close(); err != nil {
		return nil, models.Storage("list order items", err)
	}
	return items, nil
}

func (s *ScyllaStore) UpdateOrderStatus(ctx context.Context, orderID string, from, to models.OrderStatus) (bool, error) {
	prev := map[string]interface{}{}
	applied, err := s.orders.Query(`UPDATE orders SET status = ?, updated_at = ? WHERE order_id = ? IF status = ?`,
		string(to), time.Now().UTC(), orderID, string(from),
	).WithContext(ctx).MapScanCAS(prev)
	if err != nil {
		return false, models.Storage("update order status", err)
	}
	if !applied {
		if _, ok := prev["status"]; !ok {
			return false, models.ErrNotFound
		}
	}
	return applied, nil
}

// =============================================
// PRODUITS
// =============================================

func (s *ScyllaStore) GetProduct(ctx context.Context, productID string) (*models.Product, error) {
	var (
		p              models.Product
		price, percent = new(inf.Dec), new(inf.Dec)
		start, end     time.Time
	)
	err := s.products.Query(`SELECT product_id, name, price, discount_percent, discount_start, discount_end, updated_at
		FROM products WHERE product_id = ?`, productID).
		WithContext(ctx).
		Scan(&p.ID, &p.Name, price, percent, &start, &end, &p.UpdatedAt)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, models.Storage("get product", err)
	}
	p.Price = fromCQLDecimal(price)
	p.DiscountPercent = fromCQLDecimal(percent)
	p.DiscountStart = optionalTime(start)
	p.DiscountEnd = optionalTime(end)

	stock, err := s.readStock(ctx, productID)
	switch {
	case errors.Is(err, models.ErrNotFound):
		// produit sans ligne de stock : rien à vendre
	case err != nil:
		return nil, err
	default:
		p.Stock = stock
	}
	return &p, nil
}

func (s *ScyllaStore) readStock(ctx context.Context, productID string) (int, error) {
	var stock int
	err := s.products.Query(`SELECT stock FROM product_stock WHERE product_id = ? LIMIT 1`, productID).
		WithContext(ctx).Scan(&stock)
	if errors.Is(err, gocql.ErrNotFound) {
		return 0, models.ErrNotFound
	}
	if err != nil {
		return 0, models.Storage("read stock", err)
	}
	return stock, nil
}

// DecrementStock applique le stock et enregistre le paiement dans un seul batch
// conditionnel sur la partition du produit : la décrémentation n'a lieu que si
// le stock n'a pas bougé et que ce paiement n'a encore rien retiré.
func (s *ScyllaStore) DecrementStock(ctx context.Context, productID, paymentRef string, qty int) (models.StockResult, error) {
	for attempt := 0; attempt < maxStockAttempts; attempt++ {
		var backordered int
		err := s.products.Query(`SELECT backordered FROM product_stock WHERE product_id = ? AND payment_ref = ?`,
			productID, paymentRef).WithContext(ctx).Scan(&backordered)
		switch {
		case err == nil:
			stock, err := s.readStock(ctx, productID)
			if err != nil {
				return models.StockResult{}, err
			}
			return models.StockResult{Remaining: stock, Backordered: backordered, AlreadyApplied: true}, nil
		case !errors.Is(err, gocql.ErrNotFound):
			return models.StockResult{}, models.Storage("read sale", err)
		}

		stock, err := s.readStock(ctx, productID)
		if err != nil {
			return models.StockResult{}, err
		}

		res := applyDecrement(stock, qty)
		batch := s.products.NewBatch(gocql.LoggedBatch).WithContext(ctx)
		batch.Query(`UPDATE product_stock SET stock = ? WHERE product_id = ? IF stock = ?`,
			res.Remaining, productID, stock)
		batch.Query(`INSERT INTO product_stock (product_id, payment_ref, backordered, applied_at)
			VALUES (?, ?, ?, ?) IF NOT EXISTS USING TTL ?`,
			productID, paymentRef, res.Backordered, time.Now().UTC(), saleRefTTLSeconds)

		applied, iter, err := s.products.MapExecuteBatchCAS(batch, map[string]interface{}{})
		if iter != nil {
			_ = iter.Close()
		}
		if err != nil {
			return models.StockResult{}, models.Storage("decrement stock", err)
		}
		if applied {
			return res, nil
		}
		log.Printf("🔁 Stock de %s modifié en concurrence (tentative %d)", productID, attempt+1)
	}
	return models.StockResult{}, models.Storage("decrement stock", errStockContended)
}

// =============================================
// NOTIFICATIONS & UTILISATEURS
// =============================================

func (s *ScyllaStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	err := s.users.Query(`INSERT INTO notifications (user_id, created_at, id, content, order_id) VALUES (?, ?, ?, ?, ?)`,
		n.UserID, n.CreatedAt, n.ID, n.Content, n.OrderID,
	).WithContext(ctx).Exec()
	return models.Storage("create notification", err)
}

func (s *ScyllaStore) ListNotifications(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	iter := s.users.Query(`SELECT id, content, order_id, created_at FROM notifications WHERE user_id = ? LIMIT ?`,
		userID, limit).WithContext(ctx).Iter()

	var out []models.Notification
	n := models.Notification{UserID: userID}
	for iter.Scan(&n.ID, &n.Content, &n.OrderID, &n.CreatedAt) {
		out = append(out, n)
	}
	if err := iter.Close(); err != nil {
		return nil, models.Storage("list notifications", err)
	}
	return out, nil
}

func (s *ScyllaStore) GetUser(ctx context.Context, userID string) (*models.User, error) {
	var u models.User
	err := s.users.Query(`SELECT user_id, name, email, phone, role FROM users WHERE user_id = ?`, userID).
		WithContext(ctx).Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.Role)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, models.Storage("get user", err)
	}
	return &u, nil
}

// FindUsersByRole s'appuie sur l'index secondaire users(role)
func (s *ScyllaStore) FindUsersByRole(ctx context.Context, role string) ([]models.User, error) {
	iter := s.users.Query(`SELECT user_id, name, email, phone, role FROM users WHERE role = ?`, role).
		WithContext(ctx).Iter()

	var out []models.User
	var u models.User
	for iter.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.Role) {
		out = append(out, u)
	}
	if err := iter.Close(); err != nil {
		return nil, models.Storage("find users by role", err)
	}
	return out, nil
}

// =============================================
// CODES PROMO
// =============================================

func (s *ScyllaStore) FindDiscountByCode(ctx context.Context, code string) (*models.Discount, error) {
	var (
		d               models.Discount
		percent, maxAmt = new(inf.Dec), new(inf.Dec)
		starts, expires time.Time
	)
	err := s.orders.Query(`SELECT id, code, percent, max_discount, active, starts_at, expires_at FROM coupons WHERE code = ?`,
		strings.ToUpper(strings.TrimSpace(code))).
		WithContext(ctx).
		Scan(&d.ID, &d.Code, percent, maxAmt, &d.Active, &starts, &expires)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, models.Storage("find discount", err)
	}
	d.Percent = fromCQLDecimal(percent)
	d.MaxDiscountAmount = fromCQLDecimal(maxAmt)
	d.StartsAt = optionalTime(starts)
	d.ExpiresAt = optionalTime(expires)
	return &d, nil
}
