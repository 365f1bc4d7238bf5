// Package config builds runtime configuration from the environment so main
// stays lean. A .env file in the working directory is honored for local
// development.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config captures everything the server needs at startup.
type Config struct {
	Addr          string
	AdminToken    string
	JWTSigningKey string

	// PostgresURL selects the SQL-backed stores when set; otherwise the
	// in-memory stores are used.
	PostgresURL string

	// RedisURL enables the Redis recent-scan index when set.
	RedisURL string

	// KafkaBrokers enables the Kafka audit publisher when non-empty
	// (comma-separated broker list).
	KafkaBrokers string
	KafkaTopic   string

	// DedupWindow suppresses repeat scans for the same registration within
	// this sliding interval.
	DedupWindow time.Duration

	// DispatchWorkers bounds concurrent notification sends per batch.
	DispatchWorkers int

	// SendTimeout bounds each external notification send call.
	SendTimeout time.Duration

	// CertMailURL is the external certificate mailer's base URL.
	CertMailURL string

	// PublicRateLimit caps requests per client IP per minute on the public
	// endpoints. Zero disables the limiter.
	PublicRateLimit int

	// ReleaseRoomOnRevoke frees the room seat when an approved registration
	// is revoked. The upstream system left the seat held; default false
	// preserves that behavior.
	ReleaseRoomOnRevoke bool
}

// FromEnv builds a Config from environment variables, loading .env first if
// present.
func FromEnv() Config {
	_ = godotenv.Load()

	return Config{
		Addr:                envOr("CONEXUS_ADDR", ":8080"),
		AdminToken:          envOr("ADMIN_TOKEN", "dev-admin-token"),
		JWTSigningKey:       envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		PostgresURL:         os.Getenv("DATABASE_URL"),
		RedisURL:            os.Getenv("REDIS_URL"),
		KafkaBrokers:        os.Getenv("KAFKA_BROKERS"),
		KafkaTopic:          envOr("KAFKA_AUDIT_TOPIC", "conexus.audit"),
		DedupWindow:         envDurationOr("SCAN_DEDUP_WINDOW", 5*time.Minute),
		DispatchWorkers:     envIntOr("DISPATCH_WORKERS", 3),
		SendTimeout:         envDurationOr("SEND_TIMEOUT", 15*time.Second),
		CertMailURL:         envOr("CERT_MAIL_URL", "http://localhost:3000"),
		PublicRateLimit:     envIntOr("PUBLIC_RATE_LIMIT", 120),
		ReleaseRoomOnRevoke: os.Getenv("RELEASE_ROOM_ON_REVOKE") == "true",
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
