package cart

import (
	"context"
	"sync"

	"cedra_checkout/internal/models"
)

type MemoryPersistence struct {
	mu    sync.RWMutex
	carts map[string][]models.CartItem
}

func NewMemoryPersistence() *MemoryPersistence {
	return &MemoryPersistence{carts: make(map[string][]models.CartItem)}
}

func (p *MemoryPersistence) Load(_ context.Context, userID string) ([]models.CartItem, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]models.CartItem(nil), p.carts[userID]...), nil
}

func (p *MemoryPersistence) Save(_ context.Context, userID string, items []models.CartItem) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.carts[userID] = append([]models.CartItem(nil), items...)
	return nil
}

func (p *MemoryPersistence) Delete(_ context.Context, userID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.carts, userID)
	return nil
}
