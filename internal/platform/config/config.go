package config

import (
	"os"
	"strings"
	"time"

	pstrings "veritasor/pkg/platform/strings"
)

// Server captures process-level configuration for the bond service.
type Server struct {
	Addr          string
	JWTSigningKey string
	// AdminSubject is the administrator identity registered at startup via
	// Initialize. Default-marking is refused for any other caller.
	AdminSubject string
	// PostgresURL enables the durable store when set; empty keeps the
	// in-memory store (dev and tests).
	PostgresURL string
	// RedisURL enables the attestation existence cache when set.
	RedisURL string
	// AttestationURL is the base URL of the external attestation service.
	AttestationURL string
	// TreasuryURL is the base URL of the token transfer service. Empty
	// selects the in-memory ledger (dev only).
	TreasuryURL string
	// KafkaBrokers enables the Kafka audit sink when non-empty.
	KafkaBrokers []string
	// AuditTopic is the Kafka topic audit events are published to.
	AuditTopic string
}

// RedisConfig tunes the optional Redis connection.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("BOND_SERVICE_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	auditTopic := os.Getenv("AUDIT_TOPIC")
	if auditTopic == "" {
		auditTopic = "bond.audit"
	}

	var brokers []string
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		brokers = pstrings.DedupeAndTrim(strings.Split(raw, ","))
	}

	return Server{
		Addr:           addr,
		JWTSigningKey:  jwtSigningKey,
		AdminSubject:   os.Getenv("BOND_ADMIN_SUBJECT"),
		PostgresURL:    os.Getenv("POSTGRES_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		AttestationURL: os.Getenv("ATTESTATION_URL"),
		TreasuryURL:    os.Getenv("TREASURY_URL"),
		KafkaBrokers:   brokers,
		AuditTopic:     auditTopic,
	}
}

// Redis builds the Redis configuration with pool defaults.
func (s Server) Redis() RedisConfig {
	return RedisConfig{
		URL:          s.RedisURL,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}
