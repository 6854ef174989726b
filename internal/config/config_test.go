package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		prev, ok := os.LookupEnv(key)
		require.NoError(t, os.Unsetenv(key))
		if ok {
			t.Cleanup(func() { _ = os.Setenv(key, prev) })
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	unsetEnv(t, "PORT", "RELAY_BASE_URL", "RELAY_TIMEOUT", "DEFAULT_PROFILE",
		"CHAT_TTL", "WS_MAX_MESSAGE_LENGTH")

	cfg, err := Load()
	require.NoError(t, err)

	addr, err := cfg.Server.Addr()
	require.NoError(t, err)
	assert.Equal(t, ":8080", addr)
	assert.Equal(t, "https://neo-abhinav.onrender.com/api", cfg.Relay.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Relay.Timeout)
	assert.Equal(t, "exha", cfg.DefaultProfile)
	assert.Equal(t, 24*time.Hour, cfg.Chat.TTL)
	assert.Equal(t, 4000, cfg.Realtime.MaxMessageLength)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "127.0.0.1:9000")
	t.Setenv("RELAY_TIMEOUT", "5s")
	t.Setenv("DEFAULT_PROFILE", " reka ")
	t.Setenv("WS_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example")
	t.Setenv("ARK_TEMPERATURE", "0.3")

	cfg, err := Load()
	require.NoError(t, err)

	addr, err := cfg.Server.Addr()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", addr)
	assert.Equal(t, 5*time.Second, cfg.Relay.Timeout)
	assert.Equal(t, "reka", cfg.DefaultProfile)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Realtime.AllowedOrigins)
	assert.Equal(t, []string{"https://a.example"}, cfg.Server.CORSAllowedOrigins)
	require.NotNil(t, cfg.AI.Temperature)
	assert.InDelta(t, 0.3, *cfg.AI.Temperature, 0.0001)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Run("port with spaces", func(t *testing.T) {
		t.Setenv("PORT", "80 80")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("unparsable timeout", func(t *testing.T) {
		t.Setenv("RELAY_TIMEOUT", "soon")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("non-positive timeout", func(t *testing.T) {
		t.Setenv("RELAY_TIMEOUT", "0s")
		_, err := Load()
		assert.Error(t, err)
	})
}

func TestServerAddr(t *testing.T) {
	cases := map[string]string{
		"":      ":8080",
		"3000":  ":3000",
		":4000": ":4000",
	}
	for in, want := range cases {
		got, err := ServerConfig{Port: in}.Addr()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestAIConfigEnabled(t *testing.T) {
	assert.False(t, AIConfig{}.Enabled())
	assert.False(t, AIConfig{APIKey: "k"}.Enabled())
	assert.True(t, AIConfig{APIKey: "k", Model: "m"}.Enabled())
	assert.True(t, AIConfig{AccessKey: "a", SecretKey: "s", Model: "m"}.Enabled())
	assert.False(t, AIConfig{AccessKey: "a", Model: "m"}.Enabled())
}
