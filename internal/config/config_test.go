package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/shifts")
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 0.5, cfg.Scheduling.CompletionRadiusMiles)
	assert.Equal(t, 2*1024*1024, cfg.Scheduling.MaxSignatureBytes)
	assert.Equal(t, 31, cfg.Scheduling.MaxRecurringOccurrences)
	assert.Equal(t, "Europe/London", cfg.Scheduling.Location().String())
	assert.Equal(t, time.Hour, cfg.JWT.AccessTokenExpiry)
	assert.False(t, cfg.Redis.Enabled)
	assert.False(t, cfg.RabbitMQ.Enabled)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/shifts")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("COMPLETION_RADIUS_MILES", "0.25")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("REDIS_SUBSCRIPTION_TTL", "120")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 0.25, cfg.Scheduling.CompletionRadiusMiles)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 2*time.Minute, cfg.Redis.SubscriptionTTL)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Database:   DatabaseConfig{URL: "postgres://localhost/shifts"},
			JWT:        JWTConfig{Secret: "secret"},
			Scheduling: SchedulingConfig{Timezone: "UTC", CompletionRadiusMiles: 0.5, MaxSignatureBytes: 1024},
		}
	}

	t.Run("Valid", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("Missing database URL", func(t *testing.T) {
		cfg := valid()
		cfg.Database.URL = ""
		assert.EqualError(t, cfg.Validate(), "DATABASE_URL is required")
	})

	t.Run("Missing JWT secret", func(t *testing.T) {
		cfg := valid()
		cfg.JWT.Secret = ""
		assert.EqualError(t, cfg.Validate(), "JWT_SECRET is required")
	})

	t.Run("Bad timezone", func(t *testing.T) {
		cfg := valid()
		cfg.Scheduling.Timezone = "Mars/Olympus"
		assert.Error(t, cfg.Validate())
	})

	t.Run("Non-positive radius", func(t *testing.T) {
		cfg := valid()
		cfg.Scheduling.CompletionRadiusMiles = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("RabbitMQ without queue", func(t *testing.T) {
		cfg := valid()
		cfg.RabbitMQ = RabbitMQConfig{Enabled: true}
		assert.Error(t, cfg.Validate())
	})
}
