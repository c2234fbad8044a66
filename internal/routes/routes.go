package routes

import (
	"net/http"
	"time"

	"cedra_checkout/internal/gateway"
	"cedra_checkout/internal/handlers/admin"
	"cedra_checkout/internal/handlers/payment"
	"cedra_checkout/internal/metrics"
	"cedra_checkout/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

type Options struct {
	Payment     *payment.Handler
	Admin       *admin.Handler
	Metrics     *metrics.ServerMetrics
	Gatherer    prometheus.Gatherer
	JWTSecret   string
	CORSOrigins []string
	// Redis active la limitation de débit ; nil la désactive
	Redis *redis.Client
}

func RegisterRoutes(r *gin.Engine, o Options) {
	corsConfig := cors.Config{
		AllowOrigins:     o.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(o.CORSOrigins) == 0 {
		corsConfig.AllowOrigins = nil
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	}
	r.Use(cors.New(corsConfig))
	if o.Metrics != nil {
		r.Use(o.Metrics.Middleware())
		r.GET("/metrics", gin.WrapH(metrics.Handler(o.Gatherer)))
	}
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	auth := middleware.AuthRequired(o.JWTSecret)
	limit := func(build func(*redis.Client) gin.HandlerFunc) gin.HandlerFunc {
		if o.Redis == nil {
			return func(c *gin.Context) { c.Next() }
		}
		return build(o.Redis)
	}

	p := o.Payment
	api := r.Group("/api")
	{
		api.POST("/checkout", auth, limit(middleware.CheckoutRateLimit), p.Checkout)
		api.POST("/discount/validate", p.ValidateDiscount)
	}

	// Callbacks de la passerelle : pas de JWT, la référence et val_id font foi
	r.POST(gateway.SuccessPath, p.Success)
	r.GET(gateway.SuccessPath, p.Success)
	r.POST(gateway.FailPath, p.Fail)
	r.POST(gateway.CancelPath, p.Cancel)
	r.POST(gateway.IPNPath, p.IPN)
	api.GET("/payment/status", auth, p.Status)

	cart := api.Group("/cart", auth)
	{
		cart.GET("", p.GetCart)
		cart.POST("/items", limit(middleware.CartRateLimit), p.AddToCart)
		cart.PATCH("/items/:productId", p.UpdateCartItem)
		cart.DELETE("/items/:productId", p.RemoveCartItem)
		cart.DELETE("", p.ClearCart)
	}

	notifications := api.Group("/notifications", auth)
	{
		notifications.GET("", o.Admin.ListNotifications)
		notifications.GET("/ws", o.Admin.NotificationsWS)
	}

	adm := api.Group("/admin", auth, middleware.RequireAdmin)
	{
		adm.PATCH("/orders/:id/status", o.Admin.UpdateOrderStatus)
		adm.POST("/orders/:id/receipt", o.Admin.ResendReceipt)
		adm.GET("/notifications", o.Admin.ListNotifications)
		adm.GET("/notifications/ws", o.Admin.NotificationsWS)
	}
}
