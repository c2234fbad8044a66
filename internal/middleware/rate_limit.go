package middleware

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	CheckoutMaxRequests = 10 // Par minute et par utilisateur
	CartMaxRequests     = 20
)

// RateLimit compte les requêtes par clé sur une fenêtre fixe dans Redis.
// Une panne Redis laisse passer la requête.
func RateLimit(client *redis.Client, prefix string, max int, window time.Duration, keyOf func(*gin.Context) string, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := keyOf(c)
		if id == "" {
			c.Next()
			return
		}
		ctx := c.Request.Context()
		key := prefix + ":" + id

		requests, err := client.Get(ctx, key).Int()
		if err != nil && err != redis.Nil {
			log.Printf("⚠️ Rate limit indisponible (%s): %v", prefix, err)
			c.Next()
			return
		}
		if requests >= max {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       message,
				"retry_after": int(window.Seconds()),
			})
			c.Abort()
			return
		}

		pipe := client.Pipeline()
		pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, window)
		if _, err := pipe.Exec(ctx); err != nil {
			log.Printf("⚠️ Rate limit non incrémenté (%s): %v", prefix, err)
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(max))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(max-requests-1))
		c.Next()
	}
}

// CheckoutRateLimit limite l'ouverture de paiements par utilisateur
func CheckoutRateLimit(client *redis.Client) gin.HandlerFunc {
	return RateLimit(client, "checkout_requests", CheckoutMaxRequests, time.Minute,
		func(c *gin.Context) string { return c.GetString(ContextUserID) },
		"Trop de tentatives de paiement. Réessayez dans 1 minute")
}

// CartRateLimit limite les modifications du panier (anti-spam)
func CartRateLimit(client *redis.Client) gin.HandlerFunc {
	return RateLimit(client, "cart_add", CartMaxRequests, time.Minute,
		func(c *gin.Context) string { return c.GetString(ContextUserID) },
		"Trop d'ajouts au panier. Ralentissez un peu")
}
