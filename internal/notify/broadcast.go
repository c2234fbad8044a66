package notify

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"cedra_checkout/internal/models"

	"github.com/redis/go-redis/v9"
)

// Broadcaster pousse une notification aux sessions websocket ouvertes d'un utilisateur
type Broadcaster interface {
	Publish(ctx context.Context, n models.Notification) error
	Subscribe(ctx context.Context, userID string) (Subscription, error)
}

type Subscription interface {
	C() <-chan models.Notification
	Close() error
}

func channelFor(userID string) string {
	return "notifications:" + userID
}

// RedisBroadcaster diffuse via Redis Pub/Sub, partagé par toutes les instances
type RedisBroadcaster struct {
	client *redis.Client
}

func NewRedisBroadcaster(client *redis.Client) *RedisBroadcaster {
	return &RedisBroadcaster{client: client}
}

func (b *RedisBroadcaster) Publish(ctx context.Context, n models.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, channelFor(n.UserID), data).Err()
}

func (b *RedisBroadcaster) Subscribe(ctx context.Context, userID string) (Subscription, error) {
	pubsub := b.client.Subscribe(ctx, channelFor(userID))
	// attend la confirmation pour ne rien perdre entre Subscribe et le premier Publish
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, err
	}

	sub := &redisSubscription{pubsub: pubsub, out: make(chan models.Notification, 16)}
	go sub.pump()
	return sub, nil
}

type redisSubscription struct {
	pubsub *redis.PubSub
	out    chan models.Notification
}

func (s *redisSubscription) pump() {
	defer close(s.out)
	for msg := range s.pubsub.Channel() {
		var n models.Notification
		if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
			log.Printf("⚠️ Notification illisible sur %s: %v", msg.Channel, err)
			continue
		}
		s.out <- n
	}
}

func (s *redisSubscription) C() <-chan models.Notification { return s.out }

func (s *redisSubscription) Close() error { return s.pubsub.Close() }

// LocalHub diffuse en mémoire, pour une instance unique (STORE_DRIVER=memory)
type LocalHub struct {
	mu   sync.Mutex
	subs map[string]map[*localSubscription]struct{}
}

func NewLocalHub() *LocalHub {
	return &LocalHub{subs: make(map[string]map[*localSubscription]struct{})}
}

func (h *LocalHub) Publish(_ context.Context, n models.Notification) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs[n.UserID] {
		select {
		case sub.out <- n:
		default:
			log.Printf("⚠️ Abonné websocket de %s saturé, notification %s perdue", n.UserID, n.ID)
		}
	}
	return nil
}

func (h *LocalHub) Subscribe(_ context.Context, userID string) (Subscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sub := &localSubscription{hub: h, userID: userID, out: make(chan models.Notification, 16)}
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[*localSubscription]struct{})
	}
	h.subs[userID][sub] = struct{}{}
	return sub, nil
}

type localSubscription struct {
	hub    *LocalHub
	userID string
	out    chan models.Notification
	once   sync.Once
}

func (s *localSubscription) C() <-chan models.Notification { return s.out }

func (s *localSubscription) Close() error {
	s.once.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subs[s.userID], s)
		s.hub.mu.Unlock()
		close(s.out)
	})
	return nil
}
