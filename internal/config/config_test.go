package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"HTTP_PORT", "CART_STORAGE", "REQUEST_TIMEOUT", "CART_TTL", "KAFKA_BROKERS", "JOURNAL_DRIVER", "IDLE_TTL", "MONGO_MAX_POOL_SIZE"} {
		t.Setenv(k, "")
	}

	cfg := Load()
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, StorageMemory, cfg.CartStorage)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, time.Duration(0), cfg.CartTTL)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "sqlite", cfg.JournalDriver)
	assert.Equal(t, 30*time.Minute, cfg.IdleTTL)
	assert.Equal(t, uint64(100), cfg.MongoPool.MaxSize)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("CART_STORAGE", "redis")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("CART_TTL", "72h")
	t.Setenv("REQUEST_TIMEOUT", "250ms")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,,")
	t.Setenv("MONGO_MAX_POOL_SIZE", "20")
	t.Setenv("MONGO_CONNECT_TIMEOUT", "3s")
	t.Setenv("IDLE_TTL", "5m")

	cfg := Load()
	assert.Equal(t, "9000", cfg.HTTPPort)
	assert.Equal(t, StorageRedis, cfg.CartStorage)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, 72*time.Hour, cfg.CartTTL)
	assert.Equal(t, 250*time.Millisecond, cfg.RequestTimeout)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, uint64(20), cfg.MongoPool.MaxSize)
	assert.Equal(t, 3*time.Second, cfg.MongoPool.ConnectTimeout)
	assert.Equal(t, 5*time.Minute, cfg.IdleTTL)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("REDIS_DB", "three")
	t.Setenv("SHUTDOWN_TIMEOUT", "soon")

	cfg := Load()
	assert.Equal(t, 0, cfg.RedisDB)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}
