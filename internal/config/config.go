// Package config loads service settings from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
	StorageMongo  = "mongo"

	JournalNone = "none"
)

type MongoPool struct {
	MaxSize                uint64
	MinSize                uint64
	ConnectTimeout         time.Duration
	ServerSelectionTimeout time.Duration
}

type Config struct {
	HTTPPort           string
	APIURL             string
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64
	HydrateConcurrency int

	CartStorage   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CartTTL       time.Duration
	MongoURI      string
	MongoDBName   string
	MongoPool     MongoPool

	JournalDriver string
	JournalDSN    string

	// IdleTTL bounds how long unused carts and checkout sessions stay in memory.
	IdleTTL       time.Duration
	SweepInterval time.Duration

	KafkaBrokers []string

	OTLPEndpoint string
	LogLevel     string
	Version      string
}

func Load() *Config {
	return &Config{
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		APIURL:             getEnv("API_URL", "http://localhost:3001"),
		RequestTimeout:     getDuration("REQUEST_TIMEOUT", 10*time.Second),
		ShutdownTimeout:    getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		MaxRequestBodySize: 1 << 20, // 1MB
		HydrateConcurrency: getInt("HYDRATE_CONCURRENCY", 8),

		CartStorage:   getEnv("CART_STORAGE", StorageMemory),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getInt("REDIS_DB", 0),
		CartTTL:       getDuration("CART_TTL", 0),
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:   getEnv("MONGO_DB_NAME", "pixelshop"),
		MongoPool: MongoPool{
			MaxSize:                uint64(getInt("MONGO_MAX_POOL_SIZE", 100)),
			MinSize:                uint64(getInt("MONGO_MIN_POOL_SIZE", 10)),
			ConnectTimeout:         getDuration("MONGO_CONNECT_TIMEOUT", 10*time.Second),
			ServerSelectionTimeout: getDuration("MONGO_SERVER_SELECTION_TIMEOUT", 5*time.Second),
		},

		JournalDriver: getEnv("JOURNAL_DRIVER", "sqlite"),
		JournalDSN:    getEnv("JOURNAL_DSN", "file:checkout.db"),

		IdleTTL:       getDuration("IDLE_TTL", 30*time.Minute),
		SweepInterval: getDuration("SWEEP_INTERVAL", time.Minute),

		KafkaBrokers: splitList(getEnv("KAFKA_BROKERS", "")),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		Version:      getEnv("SERVICE_VERSION", "dev"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
