package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gomarketplace/cartstore/internal/cart"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 8003, cfg.HTTPPort)
	assert.Equal(t, BackendSQLite, cfg.StorageBackend)
	assert.Equal(t, "cart:products", cfg.StorageKey)
	assert.Equal(t, 10*time.Second, cfg.LoadTimeout)
	assert.Zero(t, cfg.CartTTLDuration())
	assert.False(t, cfg.KafkaEnabled())

	persist, err := cfg.Persist()
	require.NoError(t, err)
	assert.Equal(t, cart.PersistStrict, persist)

	match, err := cfg.Match()
	require.NoError(t, err)
	assert.Equal(t, cart.MatchByID, match)
}

func TestLoad_InvalidHTTPPort(t *testing.T) {
	t.Setenv("CART_HTTP_PORT", "0")

	cfg, err := Load()

	assert.Nil(t, cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid HTTP port")
}

func TestLoad_InvalidOTELSampleRate(t *testing.T) {
	t.Setenv("OTEL_SAMPLE_RATE", "2.0")

	cfg, err := Load()

	assert.Nil(t, cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "OTEL_SAMPLE_RATE must be between 0.0 and 1.0")
}

func TestLoad_UnknownBackend(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "etcd")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORAGE_BACKEND")
}

func TestLoad_UnknownPersistMode(t *testing.T) {
	t.Setenv("CART_PERSIST_MODE", "eventual")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CART_PERSIST_MODE")
}

func TestLoad_UnknownMatchMode(t *testing.T) {
	t.Setenv("CART_MATCH_MODE", "title")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CART_MATCH_MODE")
}

func TestLoad_NegativeTTL(t *testing.T) {
	t.Setenv("CART_TTL_HOURS", "-1")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "CART_TTL_HOURS")
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "redis.prod:6380")
	t.Setenv("CART_TTL_HOURS", "24")
	t.Setenv("CART_STORAGE_KEY", "@GoMarketPlace:product")
	t.Setenv("CART_PERSIST_MODE", "best_effort")
	t.Setenv("CART_MATCH_MODE", "value")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, BackendRedis, cfg.StorageBackend)
	assert.Equal(t, "redis.prod:6380", cfg.RedisAddr)
	assert.Equal(t, 24*time.Hour, cfg.CartTTLDuration())
	assert.Equal(t, "@GoMarketPlace:product", cfg.StorageKey)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.KafkaEnabled())

	persist, _ := cfg.Persist()
	assert.Equal(t, cart.PersistBestEffort, persist)
	match, _ := cfg.Match()
	assert.Equal(t, cart.MatchByValue, match)
}
