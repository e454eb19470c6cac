package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/poker")
	t.Setenv("PORT", "")
	t.Setenv("TIMER_PERSIST_EVERY_SECONDS", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "5200", cfg.Port)
	assert.Equal(t, DefaultTimerConfig(), cfg.Timer)
	assert.False(t, cfg.R2.Enabled())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/poker")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("TIMER_TICK_INTERVAL", "500ms")
	t.Setenv("TIMER_FAILURE_THRESHOLD", "3")
	t.Setenv("TIMER_GRACE_SECONDS", "-1")
	t.Setenv("LOG_PRETTY", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 500*time.Millisecond, cfg.Timer.TickInterval)
	assert.Equal(t, 3, cfg.Timer.FailureThreshold)
	assert.Equal(t, 60, cfg.Timer.GraceSeconds)
	assert.True(t, cfg.LogPretty)
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	_, err := Load()
	assert.Error(t, err)
}
