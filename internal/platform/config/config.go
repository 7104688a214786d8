package config

import (
	"os"
	"strings"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr string

	PostgresURL string
	Redis       RedisConfig
	Kafka       KafkaConfig

	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string

	QRSessionTTL time.Duration
}

// RedisConfig holds connection settings for the QR session store. An empty
// URL means redis is not configured and the in-memory store is used.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig holds settings for the notification publisher. Empty brokers
// mean notifications are logged instead of published.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("CLUBHUB_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	topic := os.Getenv("KAFKA_NOTIFICATIONS_TOPIC")
	if topic == "" {
		topic = "clubhub.notifications"
	}
	var brokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers = strings.Split(v, ",")
	}

	return Server{
		Addr:        addr,
		PostgresURL: os.Getenv("POSTGRES_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka:         KafkaConfig{Brokers: brokers, Topic: topic},
		JWTSigningKey: jwtSigningKey,
		JWTIssuer:     "clubhub",
		JWTAudience:   "clubhub-api",
		QRSessionTTL:  30 * time.Minute,
	}
}
