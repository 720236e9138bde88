package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestNewConfigFromViper(t *testing.T) {
	t.Run("defaults produce a valid config", func(t *testing.T) {
		cfg, err := NewConfigFromViper(newTestViper())
		require.NoError(t, err)

		assert.Equal(t, "loginforge", cfg.Logger.ServiceName)
		assert.Equal(t, ProviderOpenAI, cfg.Advisor.Provider)
		assert.Equal(t, "gpt-4o-mini", cfg.Advisor.Model)
		assert.Equal(t, 30*time.Second, cfg.Advisor.RequestTimeout)
		assert.Equal(t, 5*time.Second, cfg.Browser.ActionTimeout)
		assert.Equal(t, 3*time.Second, cfg.Browser.SettleWait)
		assert.True(t, cfg.Browser.Headless)
		assert.Equal(t, "output/screenshots", cfg.Output.ScreenshotDir)
	})

	t.Run("credentials are read from the environment", func(t *testing.T) {
		t.Setenv("LOGINFORGE_LOGIN_IDENTIFIER", "user@example.com")
		t.Setenv("LOGINFORGE_LOGIN_SECRET", "hunter2")
		t.Setenv("LOGINFORGE_ADVISOR_API_KEY", "sk-test")

		cfg, err := NewConfigFromViper(newTestViper())
		require.NoError(t, err)

		assert.Equal(t, "user@example.com", cfg.Login.Identifier)
		assert.Equal(t, "hunter2", cfg.Login.Secret)
		assert.Equal(t, "sk-test", cfg.Advisor.APIKey)
	})

	t.Run("rejects unknown advisor provider", func(t *testing.T) {
		v := newTestViper()
		v.Set("advisor.provider", "ouija")

		_, err := NewConfigFromViper(v)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "advisor.provider")
	})

	t.Run("rejects non-positive action timeout", func(t *testing.T) {
		v := newTestViper()
		v.Set("browser.action_timeout", "0s")

		_, err := NewConfigFromViper(v)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "action_timeout")
	})
}

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1920, cfg.Browser.WindowWidth)
	assert.Equal(t, 1080, cfg.Browser.WindowHeight)
}
