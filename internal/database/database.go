package database

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"cedra_checkout/internal/config"
	"cedra_checkout/internal/store"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/gocql/gocql"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
)

// --- Configuration ScyllaDB ---
type ScyllaKeyspaceConfig struct {
	Hosts       []string
	Keyspace    string
	Username    string
	Password    string
	SSLEnabled  bool
	CACertPath  string
	Timeout     time.Duration
	NumConns    int
	Consistency gocql.Consistency
}

type ScyllaManager struct {
	sessions map[string]*gocql.Session // keyspace → session
	configs  map[string]ScyllaKeyspaceConfig
	mu       sync.Mutex
}

// =============================================
// SCYLLA DB (Multi-Keyspaces avec SSL & Rôles)
// =============================================

func NewScyllaManager(cfg config.ScyllaConfig) *ScyllaManager {
	return &ScyllaManager{
		sessions: make(map[string]*gocql.Session),
		configs:  keyspaceConfigs(cfg),
	}
}

// ConnectScylla ouvre une session par keyspace.
// Les tables sont créées via scripts/scylladb_init.cql.
func ConnectScylla(cfg config.ScyllaConfig) (*ScyllaManager, store.ScyllaSessions, error) {
	sm := NewScyllaManager(cfg)

	var (
		sessions store.ScyllaSessions
		err      error
	)
	if sessions.Orders, err = sm.GetSession(cfg.Orders.Keyspace); err != nil {
		return nil, sessions, err
	}
	if sessions.Products, err = sm.GetSession(cfg.Products.Keyspace); err != nil {
		sm.Close()
		return nil, sessions, err
	}
	if sessions.Users, err = sm.GetSession(cfg.Users.Keyspace); err != nil {
		sm.Close()
		return nil, sessions, err
	}
	return sm, sessions, nil
}

func keyspaceConfigs(cfg config.ScyllaConfig) map[string]ScyllaKeyspaceConfig {
	configs := make(map[string]ScyllaKeyspaceConfig)
	for _, ks := range []config.KeyspaceConfig{cfg.Products, cfg.Users, cfg.Orders} {
		if ks.Keyspace == "" {
			continue
		}
		configs[ks.Keyspace] = ScyllaKeyspaceConfig{
			Hosts:       cfg.Hosts,
			Keyspace:    ks.Keyspace,
			Username:    ks.Role,
			Password:    ks.Password,
			SSLEnabled:  cfg.SSLEnabled,
			CACertPath:  cfg.CACertPath,
			Timeout:     5 * time.Second,
			NumConns:    20,
			Consistency: gocql.Quorum,
		}
	}
	return configs
}

// createScyllaCluster crée une configuration de cluster pour un keyspace
func createScyllaCluster(config ScyllaKeyspaceConfig) *gocql.ClusterConfig {
	cluster := gocql.NewCluster(config.Hosts...)
	cluster.Keyspace = config.Keyspace
	cluster.Consistency = config.Consistency
	// Les écritures conditionnelles (IF ...) passent en SERIAL
	cluster.SerialConsistency = gocql.Serial
	cluster.Timeout = config.Timeout
	cluster.NumConns = config.NumConns

	cluster.MaxWaitSchemaAgreement = 30 * time.Second
	cluster.ReconnectInterval = 1 * time.Second
	if config.Username != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: config.Username,
			Password: config.Password,
		}
	}

	if config.SSLEnabled {
		cluster.SslOpts = &gocql.SslOptions{
			CaPath:                 config.CACertPath,
			EnableHostVerification: config.CACertPath != "",
		}
	}

	cluster.PoolConfig.HostSelectionPolicy = gocql.TokenAwareHostPolicy(gocql.RoundRobinHostPolicy())
	return cluster
}

// GetSession retourne une session pour un keyspace donné
func (sm *ScyllaManager) GetSession(keyspace string) (*gocql.Session, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	config, exists := sm.configs[keyspace]
	if !exists {
		return nil, fmt.Errorf("keyspace '%s' non configuré", keyspace)
	}

	if session, exists := sm.sessions[keyspace]; exists && !session.Closed() {
		return session, nil
	}

	session, err := createScyllaCluster(config).CreateSession()
	if err != nil {
		return nil, fmt.Errorf("erreur création session pour %s: %w", keyspace, err)
	}

	sm.sessions[keyspace] = session
	log.Printf("✅ Nouvelle session ScyllaDB pour keyspace '%s' (utilisateur: %s)",
		keyspace, config.Username)

	return session, nil
}

// Close ferme toutes les sessions ScyllaDB
func (sm *ScyllaManager) Close() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	for keyspace, session := range sm.sessions {
		session.Close()
		delete(sm.sessions, keyspace)
		log.Printf("🔌 Session ScyllaDB fermée pour keyspace '%s'", keyspace)
	}
}

// =============================================
// REDIS
// =============================================
func ConnectRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Host,
		Password: cfg.Password,
		DB:       0,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connexion Redis: %w", err)
	}
	log.Println("✅ Connecté à Redis")
	return client, nil
}

// =============================================
// ELASTICSEARCH (optionnel)
// =============================================

// ConnectElastic retourne nil sans erreur si ELASTIC_URL est vide
func ConnectElastic(cfg config.ElasticConfig) (*elasticsearch.Client, error) {
	if cfg.URL == "" {
		log.Println("⚠️ ELASTIC_URL absent, indexation des commandes désactivée")
		return nil, nil
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.User,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("création client Elasticsearch: %w", err)
	}

	res, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("connexion Elasticsearch: %w", err)
	}
	defer res.Body.Close()

	log.Println("✅ Connecté à Elasticsearch")
	return client, nil
}

// =============================================
// MINIO (optionnel)
// =============================================

// ConnectMinIO retourne nil sans erreur si MINIO_ENDPOINT est vide
func ConnectMinIO(ctx context.Context, cfg config.MinIOConfig) (*minio.Client, error) {
	if cfg.Endpoint == "" {
		log.Println("⚠️ MINIO_ENDPOINT absent, archivage des reçus désactivé")
		return nil, nil
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connexion MinIO: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("vérification bucket MinIO: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("création bucket MinIO: %w", err)
		}
		log.Println("🪣 Bucket créé :", cfg.Bucket)
	} else {
		log.Println("🪣 Bucket MinIO déjà présent :", cfg.Bucket)
	}

	log.Println("✅ Connecté à MinIO :", cfg.Endpoint)
	return client, nil
}
