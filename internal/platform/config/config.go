package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Server captures process-level configuration. FromEnv builds it from
// environment variables so main stays lean.
type Server struct {
	Addr          string
	JWTSigningKey string

	// PostgresURL enables the durable consent and audit stores. Empty means
	// in-memory stores (dev and tests).
	PostgresURL string

	Redis RedisConfig
	Kafka KafkaConfig

	// DependencyTimeout bounds every call to an external collaborator
	// (consent store, audit store). A timeout is a dependency failure,
	// never an implicit allow or deny.
	DependencyTimeout time.Duration

	// ConsentCacheTTL bounds how long a consent snapshot may be served from
	// the read-through cache.
	ConsentCacheTTL time.Duration
}

// RedisConfig configures the optional consent read-through cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the optional audit event fan-out.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// FromEnv builds a Server config from environment variables. A .env file in
// the working directory is loaded first when present (dev convenience).
func FromEnv() Server {
	_ = godotenv.Load()

	addr := os.Getenv("BRIDGE_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	cfg := Server{
		Addr:              addr,
		JWTSigningKey:     jwtSigningKey,
		PostgresURL:       os.Getenv("BRIDGE_POSTGRES_URL"),
		DependencyTimeout: durationEnv("BRIDGE_DEPENDENCY_TIMEOUT", 5*time.Second),
		ConsentCacheTTL:   durationEnv("BRIDGE_CONSENT_CACHE_TTL", time.Minute),
		Redis: RedisConfig{
			URL:          os.Getenv("BRIDGE_REDIS_URL"),
			PoolSize:     intEnv("BRIDGE_REDIS_POOL_SIZE", 10),
			MinIdleConns: intEnv("BRIDGE_REDIS_MIN_IDLE", 2),
			DialTimeout:  durationEnv("BRIDGE_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  durationEnv("BRIDGE_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: durationEnv("BRIDGE_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
	}

	if brokers := os.Getenv("BRIDGE_KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka = KafkaConfig{
			Brokers: splitNonEmpty(brokers),
			Topic:   envDefault("BRIDGE_KAFKA_AUDIT_TOPIC", "bridge.audit.events"),
		}
	}

	return cfg
}

func envDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func splitNonEmpty(csv string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(csv); i++ {
		if i == len(csv) || csv[i] == ',' {
			if part := csv[start:i]; part != "" {
				out = append(out, part)
			}
			start = i + 1
		}
	}
	return out
}
