// Package config reads fable settings from FABLE_* environment variables.
// Command-line flags override the parsed values.
package config

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/fable/pkg/domain"
	"github.com/caarlos0/env/v11"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
)

// Config is the process configuration.
type Config struct {
	LogLevel string `env:"FABLE_LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"FABLE_LOG_FILE"`
	LogJSON  bool   `env:"FABLE_LOG_JSON"`

	Store         string        `env:"FABLE_STORE" envDefault:"memory"`
	SessionDir    string        `env:"FABLE_SESSION_DIR" envDefault:".fable/sessions"`
	RedisAddr     string        `env:"FABLE_REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string        `env:"FABLE_REDIS_PASSWORD"`
	RedisDB       int           `env:"FABLE_REDIS_DB" envDefault:"0"`
	RedisTTL      time.Duration `env:"FABLE_REDIS_TTL" envDefault:"0s"`
	SQLitePath    string        `env:"FABLE_SQLITE_PATH" envDefault:".fable/sessions.db"`

	// EncryptionKey is a base64 AES-256 key. Older keys listed in
	// EncryptionFallbackKeys still decrypt.
	EncryptionKey          string   `env:"FABLE_ENCRYPTION_KEY"`
	EncryptionFallbackKeys []string `env:"FABLE_ENCRYPTION_FALLBACK_KEYS" envSeparator:","`
	PIIPatterns            []string `env:"FABLE_PII_PATTERNS" envSeparator:","`

	OpenAIKey     string   `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string   `env:"FABLE_OPENAI_BASE_URL"`
	Models        []string `env:"FABLE_MODELS" envSeparator:"," envDefault:"gpt-4o-mini"`
	CacheSize     int      `env:"FABLE_CACHE_SIZE" envDefault:"512"`

	Seed           string `env:"FABLE_SEED"`
	Ream           int    `env:"FABLE_REAM" envDefault:"256"`
	MaxCheckpoints int    `env:"FABLE_MAX_CHECKPOINTS" envDefault:"64"`
	InputRetryMax  int    `env:"FABLE_INPUT_RETRY_MAX" envDefault:"2"`
	GenerateAudio  bool   `env:"FABLE_GENERATE_AUDIO"`
	GenerateImage  bool   `env:"FABLE_GENERATE_IMAGE"`

	// Tools lists local commands exposed to story scripts. A relative
	// path is looked up next to the story first.
	Tools string `env:"FABLE_TOOLS" envDefault:"tools.yaml"`

	HTTPAddr     string `env:"FABLE_HTTP_ADDR" envDefault:":8080"`
	Metrics      bool   `env:"FABLE_METRICS" envDefault:"true"`
	OTELEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// Load parses the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := ParseEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// ParseEnv loads configuration from environment variables into target.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate reports settings that cannot work together.
func (c *Config) Validate() error {
	var errs []string
	switch c.Store {
	case StoreMemory, StoreFile, StoreRedis, StoreSQLite:
	default:
		errs = append(errs, fmt.Sprintf("unknown store %q", c.Store))
	}
	if c.Ream < 0 {
		errs = append(errs, "ream must not be negative")
	}
	if c.EncryptionKey != "" {
		if _, err := c.Keys(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Keys decodes the active and fallback encryption keys.
func (c *Config) Keys() ([][]byte, error) {
	if c.EncryptionKey == "" {
		return nil, nil
	}
	raw := append([]string{c.EncryptionKey}, c.EncryptionFallbackKeys...)
	keys := make([][]byte, 0, len(raw))
	for i, k := range raw {
		key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(k))
		if err != nil {
			return nil, fmt.Errorf("encryption key %d is not base64: %w", i, err)
		}
		if len(key) != 32 {
			return nil, fmt.Errorf("encryption key %d must decode to 32 bytes, got %d", i, len(key))
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// Options converts the engine budgets into advance options.
func (c *Config) Options() domain.Options {
	return domain.Options{
		Seed:           c.Seed,
		Ream:           c.Ream,
		MaxCheckpoints: c.MaxCheckpoints,
		InputRetryMax:  c.InputRetryMax,
		GenerateAudio:  c.GenerateAudio,
		GenerateImage:  c.GenerateImage,
		Models:         c.Models,
	}.WithDefaults()
}
