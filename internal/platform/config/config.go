package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process-level configuration. FromEnv keeps main lean.
type Server struct {
	Addr              string
	PostgresURL       string
	Redis             RedisConfig
	Kafka             KafkaConfig
	JWTSigningKey     string
	OtpSendWindow     time.Duration
	OtpSendsPerWindow int
}

// RedisConfig configures the optional redis-backed OTP send limiter.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the domain-event publisher. Empty brokers disable
// kafka and events go to the log-only publisher.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	addr := os.Getenv("KONTO_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("KONTO_JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development default, must be overridden in production.
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	topic := os.Getenv("KONTO_KAFKA_TOPIC")
	if topic == "" {
		topic = "onboarding.events"
	}

	var brokers []string
	if raw := os.Getenv("KONTO_KAFKA_BROKERS"); raw != "" {
		for _, b := range strings.Split(raw, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
	}

	return Server{
		Addr:        addr,
		PostgresURL: os.Getenv("KONTO_POSTGRES_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("KONTO_REDIS_URL"),
			PoolSize:     envInt("KONTO_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("KONTO_REDIS_MIN_IDLE", 2),
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers: brokers,
			Topic:   topic,
		},
		JWTSigningKey:     jwtSigningKey,
		OtpSendWindow:     time.Hour,
		OtpSendsPerWindow: envInt("KONTO_OTP_SENDS_PER_HOUR", 5),
	}
}

func envInt(key string, fallback int) int {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return fallback
}
