// Package config builds runtime configuration from the environment so main
// stays lean.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// Postgres captures database connectivity. An empty DSN selects the
// in-memory stores.
type Postgres struct {
	DSN string
}

// Redis captures rank-cache connectivity. An empty URL disables caching.
type Redis struct {
	URL     string
	RankTTL time.Duration
}

// Kafka captures outbound notification connectivity. Empty brokers select
// the discard dispatcher.
type Kafka struct {
	Brokers []string
}

// Notify captures the async dispatch worker settings.
type Notify struct {
	Buffer int
}

// Config is the full runtime configuration.
type Config struct {
	Server   Server
	Postgres Postgres
	Redis    Redis
	Kafka    Kafka
	Notify   Notify
	LogLevel string
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:            envString("LIFEDROP_ADDR", ":8080"),
			ShutdownTimeout: envDuration("LIFEDROP_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Postgres: Postgres{
			DSN: os.Getenv("LIFEDROP_POSTGRES_DSN"),
		},
		Redis: Redis{
			URL:     os.Getenv("LIFEDROP_REDIS_URL"),
			RankTTL: envDuration("LIFEDROP_RANK_CACHE_TTL", 30*time.Second),
		},
		Kafka: Kafka{
			Brokers: envList("LIFEDROP_KAFKA_BROKERS"),
		},
		Notify: Notify{
			Buffer: envInt("LIFEDROP_NOTIFY_BUFFER", 256),
		},
		LogLevel: envString("LIFEDROP_LOG_LEVEL", "info"),
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
