package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, ":8443", cfg.Server.ListenAddr)
	assert.Equal(t, 30*time.Minute, cfg.Session.IdleThreshold)
	assert.Equal(t, 5*time.Minute, cfg.Session.ReapInterval)
	assert.Equal(t, 10*time.Second, cfg.Session.ActionTimeout)
	assert.Equal(t, 5*time.Second, cfg.Session.ReadTimeout)
	assert.Equal(t, time.Second, cfg.Session.DefaultWait)
	assert.True(t, cfg.Browser.Headless)
}

func TestNewConfigFromViperOverrides(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("server.listen_addr", ":9000")
	v.Set("session.idle_threshold", "10m")
	v.Set("auth.enabled", false)

	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.ListenAddr)
	assert.Equal(t, 10*time.Minute, cfg.Session.IdleThreshold)
	assert.False(t, cfg.Auth.Enabled)
}

func TestValidate(t *testing.T) {
	t.Run("rejects missing auth secret when auth is enabled", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.Auth.Enabled = true
		cfg.Auth.Secret = ""
		require.Error(t, cfg.Validate())
	})

	t.Run("rejects llm without api key", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.Auth.Enabled = false
		cfg.LLM.Enabled = true
		cfg.LLM.APIKey = ""
		require.Error(t, cfg.Validate())
	})

	t.Run("rejects non-positive timeouts", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.Auth.Enabled = false
		cfg.Session.ActionTimeout = 0
		require.Error(t, cfg.Validate())
	})

	t.Run("accepts defaults with auth disabled", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.Auth.Enabled = false
		require.NoError(t, cfg.Validate())
	})
}
