// Package cart gère le panier serveur, persisté dans Redis sous la clé cart:<userID>.
package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"cedra_checkout/internal/models"
)

// Persistence est l'adaptateur de stockage du panier, injecté à la construction
type Persistence interface {
	Load(ctx context.Context, userID string) ([]models.CartItem, error)
	Save(ctx context.Context, userID string, items []models.CartItem) error
	Delete(ctx context.Context, userID string) error
}

type ProductLookup interface {
	GetProduct(ctx context.Context, productID string) (*models.Product, error)
}

// Snapshot est une copie figée du panier : la modifier n'a aucun effet sur le stockage
type Snapshot struct {
	UserID string
	items  []models.CartItem
}

func (s Snapshot) Items() []models.CartItem {
	return append([]models.CartItem(nil), s.items...)
}

func (s Snapshot) Count() int {
	n := 0
	for _, it := range s.items {
		n += it.Quantity
	}
	return n
}

func (s Snapshot) IsEmpty() bool { return len(s.items) == 0 }

// LineKey identifie une ligne du panier
type LineKey struct {
	ProductID string
	Color     string
	Size      string
}

type Store struct {
	persistence Persistence
	catalog     ProductLookup

	mu    sync.Mutex
	locks map[string]*userLock
}

// userLock est supprimé de la table dès que plus personne ne l'attend
type userLock struct {
	mu   sync.Mutex
	refs int
}

func NewStore(p Persistence, catalog ProductLookup) *Store {
	return &Store{persistence: p, catalog: catalog, locks: make(map[string]*userLock)}
}

// lock sérialise les lecture-modification-écriture d'un même panier
func (s *Store) lock(userID string) func() {
	s.mu.Lock()
	l, ok := s.locks[userID]
	if !ok {
		l = &userLock{}
		s.locks[userID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, userID)
		}
		s.mu.Unlock()
	}
}

func (s *Store) Get(ctx context.Context, userID string) (Snapshot, error) {
	items, err := s.persistence.Load(ctx, userID)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{UserID: userID, items: items}, nil
}

// Add ajoute un article ; une ligne identique (produit, couleur, taille) voit sa quantité augmenter
func (s *Store) Add(ctx context.Context, userID string, item models.CartItem) (Snapshot, error) {
	if strings.TrimSpace(item.ProductID) == "" || item.Quantity <= 0 {
		return Snapshot{}, models.ErrInvalidCart
	}
	if s.catalog != nil {
		p, err := s.catalog.GetProduct(ctx, item.ProductID)
		if errors.Is(err, models.ErrNotFound) {
			return Snapshot{}, fmt.Errorf("%w: unknown product %q", models.ErrInvalidCart, item.ProductID)
		}
		if err != nil {
			return Snapshot{}, err
		}
		item.Title = p.Name
		item.UnitPrice = p.Price
		item.DiscountPercent = p.DiscountPercent
	}

	unlock := s.lock(userID)
	defer unlock()

	items, err := s.persistence.Load(ctx, userID)
	if err != nil {
		return Snapshot{}, err
	}
	merged := false
	for i := range items {
		if items[i].SameLine(item.ProductID, item.Color, item.Size) {
			items[i].Quantity += item.Quantity
			merged = true
			break
		}
	}
	if !merged {
		items = append(items, item)
	}
	return s.save(ctx, userID, items)
}

// UpdateQuantity fixe la quantité d'une ligne ; zéro ou moins la supprime
func (s *Store) UpdateQuantity(ctx context.Context, userID string, key LineKey, qty int) (Snapshot, error) {
	if qty <= 0 {
		return s.Remove(ctx, userID, key)
	}

	unlock := s.lock(userID)
	defer unlock()

	items, err := s.persistence.Load(ctx, userID)
	if err != nil {
		return Snapshot{}, err
	}
	for i := range items {
		if items[i].SameLine(key.ProductID, key.Color, key.Size) {
			items[i].Quantity = qty
			return s.save(ctx, userID, items)
		}
	}
	return Snapshot{}, models.ErrNotFound
}

func (s *Store) Remove(ctx context.Context, userID string, key LineKey) (Snapshot, error) {
	unlock := s.lock(userID)
	defer unlock()

	items, err := s.persistence.Load(ctx, userID)
	if err != nil {
		return Snapshot{}, err
	}
	kept := items[:0]
	found := false
	for _, it := range items {
		if it.SameLine(key.ProductID, key.Color, key.Size) {
			found = true
			continue
		}
		kept = append(kept, it)
	}
	if !found {
		return Snapshot{}, models.ErrNotFound
	}
	return s.save(ctx, userID, kept)
}

func (s *Store) Clear(ctx context.Context, userID string) (Snapshot, error) {
	unlock := s.lock(userID)
	defer unlock()

	if err := s.persistence.Delete(ctx, userID); err != nil {
		return Snapshot{}, err
	}
	return Snapshot{UserID: userID}, nil
}

func (s *Store) save(ctx context.Context, userID string, items []models.CartItem) (Snapshot, error) {
	if len(items) == 0 {
		if err := s.persistence.Delete(ctx, userID); err != nil {
			return Snapshot{}, err
		}
		return Snapshot{UserID: userID}, nil
	}
	if err := s.persistence.Save(ctx, userID, items); err != nil {
		return Snapshot{}, err
	}
	return Snapshot{UserID: userID, items: append([]models.CartItem(nil), items...)}, nil
}
