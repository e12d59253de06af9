package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv string

	HTTPAddr    string
	DatabaseURL string

	JWTSecret string
	JWTIssuer string

	// RabbitMQ (replay queue)
	RabbitURL      string
	RabbitExchange string

	// Redis & cache tiers
	RedisURL         string
	CacheTTLStatic   time.Duration
	CacheTTLModerate time.Duration
	CacheTTLDynamic  time.Duration
	CacheTTLShort    time.Duration

	// Fraud thresholds
	FraudImpressionsPerWindow int
	FraudClicksPerWindow      int
	FraudConversionsPerWindow int
	FraudVelocityWindow       time.Duration
	FraudLookback             time.Duration
	FraudLookbackTimeout      time.Duration

	// Ingest retry budget
	IngestRetryAttempts int
	IngestRetryBackoff  time.Duration

	// Reconciler
	ReconcileEnabled  bool
	ReconcileInterval time.Duration

	// Rate limiting
	RLEnabled bool
	RLLimit   int
	RLWindow  time.Duration

	LogLevel  string
	LogFormat string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	ShutdownTimeout  time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.AppEnv = getEnv("APP_ENV", "dev")
	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":8084")
	cfg.DatabaseURL = getEnv("DATABASE_URL", "")

	cfg.JWTSecret = getEnv("JWT_SECRET", "")
	cfg.JWTIssuer = getEnv("JWT_ISSUER", "")

	cfg.RabbitURL = getEnv("RABBIT_URL", "")
	cfg.RabbitExchange = getEnv("RABBIT_EXCHANGE", "adserve.replay")

	cfg.RedisURL = getEnv("REDIS_URL", "redis://localhost:6379/0")
	cfg.CacheTTLStatic = getDuration("CACHE_TTL_STATIC", 60*time.Minute)
	cfg.CacheTTLModerate = getDuration("CACHE_TTL_MODERATE", 15*time.Minute)
	cfg.CacheTTLDynamic = getDuration("CACHE_TTL_DYNAMIC", 5*time.Minute)
	cfg.CacheTTLShort = getDuration("CACHE_TTL_SHORT", 2*time.Minute)

	cfg.FraudImpressionsPerWindow = getIntEnv("FRAUD_IMPRESSIONS_PER_WINDOW", 20)
	cfg.FraudClicksPerWindow = getIntEnv("FRAUD_CLICKS_PER_WINDOW", 1)
	cfg.FraudConversionsPerWindow = getIntEnv("FRAUD_CONVERSIONS_PER_WINDOW", 5)
	cfg.FraudVelocityWindow = getDuration("FRAUD_VELOCITY_WINDOW", time.Minute)
	cfg.FraudLookback = getDuration("FRAUD_LOOKBACK", 30*time.Minute)
	cfg.FraudLookbackTimeout = getDuration("FRAUD_LOOKBACK_TIMEOUT", 50*time.Millisecond)

	cfg.IngestRetryAttempts = getIntEnv("INGEST_RETRY_ATTEMPTS", 3)
	cfg.IngestRetryBackoff = getDuration("INGEST_RETRY_BACKOFF", 50*time.Millisecond)

	cfg.ReconcileEnabled = getEnv("RECONCILE_ENABLED", "true") == "true"
	cfg.ReconcileInterval = getDuration("RECONCILE_INTERVAL", time.Hour)

	// Rate limiting defaults: 300 reqs / 1 min, the serve path is chatty.
	cfg.RLEnabled = getEnv("RL_ENABLED", "true") == "true"
	cfg.RLLimit = getIntEnv("RL_IP_LIMIT", 300)
	cfg.RLWindow = getDuration("RL_IP_WINDOW", 1*time.Minute)

	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.LogFormat = getEnv("LOG_FORMAT", "console")

	cfg.HTTPReadTimeout = getDuration("HTTP_READ_TIMEOUT", 10*time.Second)
	cfg.HTTPWriteTimeout = getDuration("HTTP_WRITE_TIMEOUT", 20*time.Second)
	cfg.HTTPIdleTimeout = getDuration("HTTP_IDLE_TIMEOUT", 60*time.Second)
	cfg.ShutdownTimeout = getDuration("SHUTDOWN_TIMEOUT", 10*time.Second)

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("missing DATABASE_URL")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("missing JWT_SECRET")
	}
	if cfg.AppEnv != "dev" && cfg.RabbitURL == "" {
		return nil, fmt.Errorf("missing RABBIT_URL (required when APP_ENV != dev)")
	}

	return cfg, nil
}

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func getIntEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}
