package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cedra_checkout/internal/archive"
	"cedra_checkout/internal/cache"
	"cedra_checkout/internal/cart"
	"cedra_checkout/internal/checkout"
	"cedra_checkout/internal/config"
	"cedra_checkout/internal/database"
	"cedra_checkout/internal/discount"
	"cedra_checkout/internal/events"
	"cedra_checkout/internal/gateway"
	"cedra_checkout/internal/handlers/admin"
	"cedra_checkout/internal/handlers/payment"
	"cedra_checkout/internal/metrics"
	"cedra_checkout/internal/notify"
	"cedra_checkout/internal/reconcile"
	"cedra_checkout/internal/routes"
	"cedra_checkout/internal/search"
	"cedra_checkout/internal/store"
	"cedra_checkout/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/stripe/stripe-go/v83"
)

func main() {
	config.Load()
	cfg := config.FromEnv()

	if cfg.JWTSecret == "" {
		log.Fatal("❌ JWT_SECRET manquant")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// 1. Stockage principal
	var (
		st     store.Store
		scylla *database.ScyllaManager
	)
	switch cfg.StoreDriver {
	case "memory":
		log.Println("⚠️ STORE_DRIVER=memory : données perdues à l'arrêt")
		st = store.NewMemoryStore()
	default:
		sm, sessions, err := database.ConnectScylla(cfg.Scylla)
		if err != nil {
			log.Fatalf("❌ Échec initialisation ScyllaDB: %v", err)
		}
		scylla = sm
		st = store.NewScyllaStore(sessions)
	}

	// 2. Redis : obligatoire avec Scylla, optionnel en mémoire
	rdb, err := database.ConnectRedis(ctx, cfg.Redis)
	if err != nil {
		if cfg.StoreDriver != "memory" {
			log.Fatalf("❌ %v", err)
		}
		log.Printf("⚠️ Redis indisponible, panier et temps réel en mémoire: %v", err)
		rdb = nil
	}

	var (
		users       checkout.UserLookup = st
		cartBackend cart.Persistence    = cart.NewMemoryPersistence()
		broadcaster notify.Broadcaster  = notify.NewLocalHub()
	)
	if rdb != nil {
		users = cache.NewUserCache(rdb, st, cache.UserCacheTTL)
		cartBackend = cart.NewRedisPersistence(rdb, cfg.CartTTL)
		broadcaster = notify.NewRedisBroadcaster(rdb)
	}
	carts := cart.NewStore(cartBackend, st)

	// 3. Métriques
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	srvMetrics := metrics.NewServerMetrics(reg)

	// 4. Notifications et hooks post-commande
	var mailer utils.Sender
	if cfg.SMTP.Host != "" {
		mailer = utils.NewMailer(cfg.SMTP)
	} else {
		log.Println("⚠️ SMTP_HOST absent, aucun e-mail ne sera envoyé")
	}
	dispatcher := notify.NewDispatcher(st, mailer, broadcaster, cfg.FrontendURL)
	if cfg.ReceiptPDF {
		dispatcher.WithPDF(utils.NewPDFRenderer(cfg.ChromePath, cfg.ReceiptPDFTTL))
		log.Println("✅ Reçus PDF activés")
	}

	hooks := []reconcile.Hook{srvMetrics, cart.NewClearOnOrder(carts)}

	es, err := database.ConnectElastic(cfg.Elastic)
	if err != nil {
		log.Printf("⚠️ Elasticsearch ignoré: %v", err)
	} else if es != nil {
		hooks = append(hooks, search.NewOrderIndexer(es))
	}

	var receipts *archive.ReceiptArchiver
	mc, err := database.ConnectMinIO(ctx, cfg.MinIO)
	if err != nil {
		log.Printf("⚠️ MinIO ignoré: %v", err)
	} else if mc != nil {
		receipts = archive.NewReceiptArchiver(mc, cfg.MinIO.Bucket, cfg.FrontendURL)
		hooks = append(hooks, receipts)
	}

	kafkaClient := events.NewClient(cfg.Kafka.Brokers)
	if kafkaClient.Enabled() {
		writer := kafkaClient.NewWriter(cfg.Kafka.Topic)
		defer writer.Close()
		hooks = append(hooks, events.NewPublisher(writer))
		log.Printf("✅ Publication Kafka activée sur %s", cfg.Kafka.Topic)
	}

	// 5. Tunnel de paiement
	gw := gateway.NewClient(cfg.Gateway)
	initiator := checkout.NewInitiator(st, users, gw, cfg.Checkout)
	reconciler := reconcile.NewReconciler(st, gw, dispatcher, reconcile.Config{RequireValidation: cfg.RequireValidation}, hooks...)

	var source discount.Source = discount.NewStoreSource(st)
	if cfg.DiscountSource == "stripe" {
		stripe.Key = cfg.StripeSecretKey
		if stripe.Key == "" {
			log.Fatal("❌ Impossible d'initialiser Stripe : clé manquante")
		}
		source = discount.NewStripeSource()
		log.Println("✅ Codes promo lus depuis Stripe")
	}

	deps := payment.Deps{
		Initiator:    initiator,
		Reconciler:   reconciler,
		Transactions: st,
		Signatures:   gw,
		Discounts:    discount.NewValidator(source),
		Carts:        carts,
		Metrics:      srvMetrics,
		TaxRate:      cfg.Checkout.TaxRate,
		FrontendURL:  cfg.FrontendURL,
	}
	if receipts != nil {
		deps.Receipts = receipts
	}

	r := gin.Default()
	routes.RegisterRoutes(r, routes.Options{
		Payment:     payment.NewHandler(deps),
		Admin:       admin.NewHandler(st, users, st, dispatcher, broadcaster).WithReceipts(st, dispatcher),
		Metrics:     srvMetrics,
		Gatherer:    reg,
		JWTSecret:   cfg.JWTSecret,
		CORSOrigins: cfg.CORSOrigins,
		Redis:       rdb,
	})

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Println("🚀 Serveur Cedra lancé sur le port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("❌ Erreur serveur: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Arrêt du serveur...")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("❌ Arrêt forcé: %v", err)
	}
	if err := reconciler.Wait(shutdownCtx); err != nil {
		log.Printf("⚠️ Notifications encore en cours à l'arrêt: %v", err)
	}
	if rdb != nil {
		closeRedis(rdb)
	}
	if scylla != nil {
		scylla.Close()
	}
	log.Println("👋 Serveur arrêté")
}

func closeRedis(rdb *redis.Client) {
	if err := rdb.Close(); err != nil {
		log.Printf("⚠️ Fermeture Redis: %v", err)
	}
}
