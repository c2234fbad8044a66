package database

import (
	"context"
	"testing"

	"cedra_checkout/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/gocql/gocql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyspaceConfigs(t *testing.T) {
	cfg := config.ScyllaConfig{
		Hosts:      []string{"10.0.0.1"},
		SSLEnabled: true,
		CACertPath: "/etc/ca.pem",
		Orders:     config.KeyspaceConfig{Keyspace: "cedra_orders", Role: "orders_rw", Password: "pw"},
		Users:      config.KeyspaceConfig{Keyspace: "cedra_users"},
	}

	configs := keyspaceConfigs(cfg)
	require.Len(t, configs, 2)
	assert.Equal(t, "orders_rw", configs["cedra_orders"].Username)
	assert.Equal(t, gocql.Quorum, configs["cedra_orders"].Consistency)

	cluster := createScyllaCluster(configs["cedra_orders"])
	assert.Equal(t, "cedra_orders", cluster.Keyspace)
	assert.Equal(t, gocql.Serial, cluster.SerialConsistency)
	require.NotNil(t, cluster.SslOpts)
	assert.Equal(t, "/etc/ca.pem", cluster.SslOpts.CaPath)
	assert.NotNil(t, cluster.Authenticator)

	assert.Nil(t, createScyllaCluster(configs["cedra_users"]).Authenticator)
}

func TestGetSession_UnknownKeyspace(t *testing.T) {
	sm := NewScyllaManager(config.ScyllaConfig{})
	_, err := sm.GetSession("nope")
	assert.Error(t, err)
}

func TestConnectRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := ConnectRedis(context.Background(), config.RedisConfig{Host: mr.Addr()})
	require.NoError(t, err)
	client.Close()

	mr.Close()
	_, err = ConnectRedis(context.Background(), config.RedisConfig{Host: mr.Addr()})
	assert.Error(t, err)
}

func TestOptionalBackendsDisabled(t *testing.T) {
	es, err := ConnectElastic(config.ElasticConfig{})
	assert.NoError(t, err)
	assert.Nil(t, es)

	mc, err := ConnectMinIO(context.Background(), config.MinIOConfig{})
	assert.NoError(t, err)
	assert.Nil(t, mc)
}
