package config_test

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/fable/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, config.StoreMemory, cfg.Store)
	assert.Equal(t, 256, cfg.Ream)
	assert.Equal(t, 64, cfg.MaxCheckpoints)
	assert.Equal(t, []string{"gpt-4o-mini"}, cfg.Models)
	assert.True(t, cfg.Metrics)
}

func TestLoad_Environment(t *testing.T) {
	key := base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", 32)))
	t.Setenv("FABLE_STORE", "redis")
	t.Setenv("FABLE_REDIS_TTL", "90s")
	t.Setenv("FABLE_PII_PATTERNS", "email,phone")
	t.Setenv("FABLE_ENCRYPTION_KEY", key)
	t.Setenv("FABLE_GENERATE_AUDIO", "true")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, config.StoreRedis, cfg.Store)
	assert.Equal(t, 90*time.Second, cfg.RedisTTL)
	assert.Equal(t, []string{"email", "phone"}, cfg.PIIPatterns)
	assert.True(t, cfg.GenerateAudio)

	keys, err := cfg.Keys()
	require.NoError(t, err)
	assert.Len(t, keys, 1)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("FABLE_STORE", "tape")
	t.Setenv("FABLE_ENCRYPTION_KEY", base64.StdEncoding.EncodeToString([]byte("short")))

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown store "tape"`)
	assert.Contains(t, err.Error(), "32 bytes")
}

func TestOptions(t *testing.T) {
	t.Setenv("FABLE_SEED", "fixed")
	t.Setenv("FABLE_REAM", "0")

	cfg, err := config.Load()
	require.NoError(t, err)

	opts := cfg.Options()
	assert.Equal(t, "fixed", opts.Seed)
	assert.Equal(t, 256, opts.Ream)
	assert.Equal(t, 2, opts.InputRetryMax)
}
