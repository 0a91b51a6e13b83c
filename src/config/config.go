package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

type Config struct {
	APIEnv          string
	Port            string
	AppHost         string
	DatabaseDriver  string
	DSN             string
	RedisURL        string
	JWTSecret       string
	PaymentsEnabled bool
	StripeSecretKey string
	Currency        string
	PaymentTimeout  time.Duration
	KafkaBroker     string
	KafkaTopic      string
	SecretsDir      string
	PusherAppID     string
	PusherKey       string
	PusherSecret    string
	PusherCluster   string
	TempDir         string
	SchedulerOn     bool
	JobLockTTL      time.Duration
	InstanceID      string
}

func GetDSN() string {
	DATABASE_HOST := os.Getenv("DATABASE_HOST")
	DATABASE_PORT := os.Getenv("DATABASE_PORT")
	DATABASE_SSLMODE := os.Getenv("DATABASE_SSLMODE")
	DATABASE_TIMEZONE := os.Getenv("DATABASE_TIMEZONE")
	DATABASE_USER := os.Getenv("DATABASE_USER")
	DATABASE_PASSWORD := os.Getenv("DATABASE_PASSWORD")
	DATABASE_NAME := os.Getenv("DATABASE_NAME")
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s", DATABASE_HOST, DATABASE_USER, DATABASE_PASSWORD, DATABASE_NAME, DATABASE_PORT, DATABASE_SSLMODE, DATABASE_TIMEZONE)
	return dsn
}

// Load reads the process configuration from the environment.
func Load() (Config, error) {
	hostname, _ := os.Hostname()
	cfg := Config{
		APIEnv:          getenv("API_ENV", "local"),
		Port:            getenv("PORT", "9090"),
		AppHost:         os.Getenv("APP_HOST"),
		DatabaseDriver:  getenv("DATABASE_DRIVER", "postgres"),
		RedisURL:        os.Getenv("REDIS_HOST"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		StripeSecretKey: os.Getenv("STRIPE_SECRET_KEY"),
		Currency:        getenv("PAYMENT_CURRENCY", "eur"),
		KafkaBroker:     os.Getenv("KAFKA_BROKER"),
		KafkaTopic:      getenv("KAFKA_BOOKINGS_TOPIC", "bookings.lifecycle"),
		SecretsDir:      os.Getenv("SECRETS_DIR"),
		PusherAppID:     os.Getenv("PUSHER_APP_ID"),
		PusherKey:       os.Getenv("PUSHER_KEY"),
		PusherSecret:    os.Getenv("PUSHER_SECRET"),
		PusherCluster:   os.Getenv("PUSHER_CLUSTER"),
		TempDir:         getenv("TEMP_DIR", os.TempDir()),
		InstanceID:      getenv("INSTANCE_ID", hostname),
	}

	var err error
	if cfg.PaymentsEnabled, err = getbool("PAYMENTS_ENABLED", true); err != nil {
		return cfg, err
	}
	if cfg.SchedulerOn, err = getbool("SCHEDULER_ENABLED", true); err != nil {
		return cfg, err
	}
	if cfg.PaymentTimeout, err = getduration("PAYMENT_TIMEOUT", 15*time.Second); err != nil {
		return cfg, err
	}
	if cfg.JobLockTTL, err = getduration("JOB_LOCK_TTL", 120*time.Second); err != nil {
		return cfg, err
	}

	switch cfg.DatabaseDriver {
	case "postgres":
		cfg.DSN = GetDSN()
	case "sqlite":
		cfg.DSN = getenv("DATABASE_NAME", "mazza.db")
	default:
		return cfg, fmt.Errorf("unsupported DATABASE_DRIVER %q", cfg.DatabaseDriver)
	}
	if cfg.RedisURL != "" {
		if _, err := redis.ParseURL(cfg.RedisURL); err != nil {
			return cfg, fmt.Errorf("REDIS_HOST: %w", err)
		}
	}
	if cfg.JWTSecret == "" {
		return cfg, errors.New("JWT_SECRET is required")
	}
	if cfg.PaymentsEnabled && cfg.StripeSecretKey == "" {
		return cfg, errors.New("STRIPE_SECRET_KEY is required when PAYMENTS_ENABLED is true")
	}
	if cfg.JobLockTTL <= 0 {
		return cfg, errors.New("JOB_LOCK_TTL must be positive")
	}
	return cfg, nil
}

func (c Config) IsLocal() bool {
	return c.APIEnv == "local"
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getbool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func getduration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
