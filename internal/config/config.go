package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"cedra_checkout/internal/checkout"
	"cedra_checkout/internal/gateway"
	"cedra_checkout/internal/pricing"
	"cedra_checkout/internal/utils"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

func Load() {
	err := godotenv.Load(".env")
	if err != nil {
		log.Println("⚠️  Aucun fichier .env trouvé — on continue avec les variables d'environnement du système")
	} else {
		log.Println("✅ Fichier .env chargé avec succès")
	}
}

type KeyspaceConfig struct {
	Keyspace string
	Role     string
	Password string
}

type ScyllaConfig struct {
	Hosts      []string
	SSLEnabled bool
	CACertPath string
	Products   KeyspaceConfig
	Users      KeyspaceConfig
	Orders     KeyspaceConfig
}

type RedisConfig struct {
	Host     string
	Password string
}

type ElasticConfig struct {
	URL      string
	User     string
	Password string
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

type KafkaConfig struct {
	Brokers string
	Topic   string
}

type Config struct {
	Port        string
	FrontendURL string
	CORSOrigins []string
	JWTSecret   string
	// STORE_DRIVER : scylla (défaut) ou memory
	StoreDriver string
	CartTTL     time.Duration

	Scylla  ScyllaConfig
	Redis   RedisConfig
	Elastic ElasticConfig
	MinIO   MinIOConfig
	Kafka   KafkaConfig

	Gateway           gateway.Config
	RequireValidation bool
	Checkout          checkout.Config
	SMTP              utils.SMTPConfig

	// Reçus PDF joints aux renvois, imprimés par Chrome headless
	ReceiptPDF    bool
	ChromePath    string
	ReceiptPDFTTL time.Duration

	// DISCOUNT_SOURCE : scylla (défaut) ou stripe
	DiscountSource  string
	StripeSecretKey string
}

// FromEnv lit la configuration depuis l'environnement, avec des valeurs par défaut
func FromEnv() Config {
	port := getEnv("PORT", "8080")
	baseURL := getEnv("BASE_URL", "http://localhost:"+port)
	frontendURL := getEnv("FRONTEND_URL", "http://localhost:3000")

	return Config{
		Port:        port,
		FrontendURL: strings.TrimRight(frontendURL, "/"),
		CORSOrigins: splitCSV(getEnv("CORS_ORIGINS", frontendURL)),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", "scylla")),
		CartTTL:     getDuration("CART_TTL", 30*24*time.Hour),

		Scylla: ScyllaConfig{
			Hosts:      splitCSV(getEnv("SCYLLA_HOSTS", "127.0.0.1")),
			SSLEnabled: getBool("SCYLLA_SSL_ENABLED", false),
			CACertPath: os.Getenv("SCYLLA_SSL_CA_PATH"),
			Products:   keyspace("PRODUCTS", "cedra_products"),
			Users:      keyspace("USERS", "cedra_users"),
			Orders:     keyspace("ORDERS", "cedra_orders"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
		},
		Elastic: ElasticConfig{
			URL:      os.Getenv("ELASTIC_URL"),
			User:     os.Getenv("ELASTIC_USER"),
			Password: os.Getenv("ELASTIC_PASSWORD"),
		},
		MinIO: MinIOConfig{
			Endpoint:  os.Getenv("MINIO_ENDPOINT"),
			AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			UseSSL:    getBool("MINIO_USE_SSL", false),
			Bucket:    getEnv("MINIO_BUCKET", "cedra-receipts"),
		},
		Kafka: KafkaConfig{
			Brokers: os.Getenv("KAFKA_BROKERS"),
			Topic:   getEnv("KAFKA_TOPIC", "orders.materialized"),
		},

		Gateway: gateway.Config{
			BaseURL:       getEnv("GATEWAY_BASE_URL", "https://sandbox.sslcommerz.com"),
			StoreID:       os.Getenv("GATEWAY_STORE_ID"),
			StorePassword: os.Getenv("GATEWAY_STORE_PASSWORD"),
			Timeout:       getDuration("GATEWAY_TIMEOUT", 15*time.Second),
		},
		RequireValidation: getBool("GATEWAY_REQUIRE_VALIDATION", true),
		Checkout: checkout.Config{
			BaseURL:        baseURL,
			Currency:       getEnv("CURRENCY", "BDT"),
			TaxRate:        getDecimal("TAX_RATE", pricing.DefaultTaxRate),
			RefPrefix:      getEnv("REF_PREFIX", "CEDRA"),
			DefaultCountry: getEnv("DEFAULT_COUNTRY", "Bangladesh"),
		},
		SMTP: utils.SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     getInt("SMTP_PORT", 587),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     getEnv("MAIL_FROM", os.Getenv("SMTP_USERNAME")),
		},

		ReceiptPDF:    getBool("RECEIPT_PDF", false),
		ChromePath:    os.Getenv("CHROME_PATH"),
		ReceiptPDFTTL: getDuration("RECEIPT_PDF_TIMEOUT", 30*time.Second),

		DiscountSource:  strings.ToLower(getEnv("DISCOUNT_SOURCE", "scylla")),
		StripeSecretKey: os.Getenv("STRIPE_SECRET_KEY"),
	}
}

func keyspace(name, def string) KeyspaceConfig {
	prefix := "SCYLLA_KS_" + name + "_"
	return KeyspaceConfig{
		Keyspace: getEnv(prefix+"KEYSPACE", def),
		Role:     os.Getenv(prefix + "ROLE"),
		Password: os.Getenv(prefix + "PASSWORD"),
	}
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getBool(key string, def bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func getInt(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func getDuration(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	log.Printf("⚠️ %s invalide (%q), valeur par défaut %s", key, raw, def)
	return def
}

func getDecimal(key string, def decimal.Decimal) decimal.Decimal {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		log.Printf("⚠️ %s invalide (%q), valeur par défaut %s", key, raw, def)
		return def
	}
	return d
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
