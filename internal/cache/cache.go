// Package cache met en cache Redis les lectures utilisateur faites à chaque checkout.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"cedra_checkout/internal/models"
	"cedra_checkout/internal/store"

	"github.com/redis/go-redis/v9"
)

const UserCacheTTL = 5 * time.Minute

// UserCache lit l'utilisateur depuis Redis, puis depuis le stockage principal
type UserCache struct {
	client *redis.Client
	users  store.UserStore
	ttl    time.Duration
}

func NewUserCache(client *redis.Client, users store.UserStore, ttl time.Duration) *UserCache {
	if ttl <= 0 {
		ttl = UserCacheTTL
	}
	return &UserCache{client: client, users: users, ttl: ttl}
}

func userKey(userID string) string {
	return "user:" + userID
}

func (c *UserCache) GetUser(ctx context.Context, userID string) (*models.User, error) {
	// 1. Essayer le cache Redis
	data, err := c.client.Get(ctx, userKey(userID)).Bytes()
	switch {
	case err == nil:
		var user models.User
		if json.Unmarshal(data, &user) == nil {
			return &user, nil
		}
	case !errors.Is(err, redis.Nil):
		log.Printf("⚠️ Cache utilisateur indisponible: %v", err)
	}

	// 2. Récupérer du stockage principal
	user, err := c.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	// 3. Mettre en cache
	if payload, err := json.Marshal(user); err == nil {
		if err := c.client.Set(ctx, userKey(userID), payload, c.ttl).Err(); err != nil {
			log.Printf("⚠️ Mise en cache de %s impossible: %v", userID, err)
		}
	}
	return user, nil
}

func (c *UserCache) Invalidate(ctx context.Context, userID string) error {
	return c.client.Del(ctx, userKey(userID)).Err()
}
