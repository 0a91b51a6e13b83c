package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_123")
	t.Setenv("DATABASE_HOST", "localhost")
	t.Setenv("DATABASE_NAME", "mazza")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.Contains(t, cfg.DSN, "host=localhost")
	assert.Contains(t, cfg.DSN, "dbname=mazza")
	assert.Equal(t, 120*time.Second, cfg.JobLockTTL)
	assert.Equal(t, 15*time.Second, cfg.PaymentTimeout)
	assert.True(t, cfg.PaymentsEnabled)
	assert.Equal(t, "eur", cfg.Currency)
}

func TestLoadRequiresStripeKeyWhenPaymentsEnabled(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("STRIPE_SECRET_KEY", "")
	t.Setenv("PAYMENTS_ENABLED", "true")

	_, err := Load()
	assert.Error(t, err)

	t.Setenv("PAYMENTS_ENABLED", "false")
	_, err = Load()
	assert.NoError(t, err)
}

func TestLoadSqlite(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("PAYMENTS_ENABLED", "false")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_NAME", "local.db")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "local.db", cfg.DSN)
}

func TestLoadRejectsMalformedRedisURL(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("PAYMENTS_ENABLED", "false")

	t.Setenv("REDIS_HOST", "not a url")
	_, err := Load()
	assert.ErrorContains(t, err, "REDIS_HOST")

	t.Setenv("REDIS_HOST", "redis://cache:6379/0")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "redis://cache:6379/0", cfg.RedisURL)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("PAYMENTS_ENABLED", "false")

	t.Setenv("JOB_LOCK_TTL", "soon")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("JOB_LOCK_TTL", "")
	t.Setenv("DATABASE_DRIVER", "mysql")
	_, err = Load()
	assert.Error(t, err)
}
