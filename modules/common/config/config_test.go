package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("GEMINI_API_KEY", "key-a, key-b")
	t.Setenv("PRODUCT_SNAPSHOT_PATH", "products.csv")
	t.Setenv("GOVERNANCE_RULES_PATH", "rules.yaml")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"key-a", "key-b"}, cfg.GeminiAPIKeys)
	assert.Equal(t, "v1", cfg.EngineVersion)
	assert.Equal(t, 101, cfg.CounterStart)
	assert.Equal(t, 110, cfg.CounterMax)
	assert.Equal(t, "1:1", cfg.AspectRatio)
	assert.Equal(t, "localhost:6379", cfg.GetRedisAddr())
	assert.False(t, cfg.MirrorEnabled())
}

func TestLoadValidation(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ENGINE_VERSION", "v3")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ENGINE_VERSION")
}

func TestLoadMissingAPIKey(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("GEMINI_API_KEY", "")

	_, err := Load()
	require.Error(t, err)
}

func TestCounterWindowValidation(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("COUNTER_START", "120")
	t.Setenv("COUNTER_MAX", "110")

	_, err := Load()
	require.Error(t, err)
}

func TestMirrorEnabled(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SUPABASE_URL", "https://example.supabase.co")
	t.Setenv("SUPABASE_SERVICE_KEY", "service-key")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.MirrorEnabled())
}
