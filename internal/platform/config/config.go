package config

import (
	"os"
	"strconv"
	"strings"
)

// Server captures process-level configuration. Stores and sinks are selected
// here so main stays lean: no DSN means in-memory stores, and the audit sink
// defaults to the in-process memory store.
type Server struct {
	Addr        string
	AdminToken  string
	LayoutPath  string
	PostgresDSN string

	RedisURL     string
	RedisStream  string
	KafkaBrokers []string
	KafkaTopic   string

	// AuditSink selects the append-only log sink: memory, postgres, redis
	// or kafka.
	AuditSink   string
	AuditBuffer int

	// AllocationRetries bounds the reserve retry loop when concurrent
	// allocations race for the same slot.
	AllocationRetries int
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	cfg := Server{
		Addr:              envOr("PARKTRUST_ADDR", ":8080"),
		AdminToken:        os.Getenv("PARKTRUST_ADMIN_TOKEN"),
		LayoutPath:        os.Getenv("PARKTRUST_LAYOUT_FILE"),
		PostgresDSN:       os.Getenv("PARKTRUST_POSTGRES_DSN"),
		RedisURL:          os.Getenv("PARKTRUST_REDIS_URL"),
		RedisStream:       envOr("PARKTRUST_REDIS_STREAM", "parktrust:audit"),
		KafkaTopic:        envOr("PARKTRUST_KAFKA_TOPIC", "parktrust.audit"),
		AuditSink:         envOr("PARKTRUST_AUDIT_SINK", "memory"),
		AuditBuffer:       envIntOr("PARKTRUST_AUDIT_BUFFER", 256),
		AllocationRetries: envIntOr("PARKTRUST_ALLOCATION_RETRIES", 3),
	}
	if brokers := os.Getenv("PARKTRUST_KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
