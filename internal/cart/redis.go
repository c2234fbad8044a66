package cart

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"cedra_checkout/internal/models"

	"github.com/redis/go-redis/v9"
)

const defaultTTL = 30 * 24 * time.Hour

// RedisPersistence stocke le panier en JSON et publie "updated"/"cleared"
// sur le canal cart:<userID> pour les autres onglets ouverts.
type RedisPersistence struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisPersistence(client *redis.Client, ttl time.Duration) *RedisPersistence {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisPersistence{client: client, ttl: ttl}
}

func key(userID string) string {
	return "cart:" + userID
}

func (p *RedisPersistence) Load(ctx context.Context, userID string) ([]models.CartItem, error) {
	data, err := p.client.Get(ctx, key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, models.Storage("load cart", err)
	}

	var items []models.CartItem
	if err := json.Unmarshal(data, &items); err != nil {
		log.Printf("⚠️ Panier illisible pour %s, réinitialisé: %v", userID, err)
		return nil, nil
	}
	return items, nil
}

func (p *RedisPersistence) Save(ctx context.Context, userID string, items []models.CartItem) error {
	data, err := json.Marshal(items)
	if err != nil {
		return err
	}
	if err := p.client.Set(ctx, key(userID), data, p.ttl).Err(); err != nil {
		return models.Storage("save cart", err)
	}
	p.client.Publish(ctx, key(userID), "updated")
	return nil
}

func (p *RedisPersistence) Delete(ctx context.Context, userID string) error {
	if err := p.client.Del(ctx, key(userID)).Err(); err != nil {
		return models.Storage("delete cart", err)
	}
	log.Printf("🧹 Panier supprimé Redis pour %s", userID)
	p.client.Publish(ctx, key(userID), "cleared")
	return nil
}
