package config

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

var knownWeakSecrets = []string{
	"change-me", "dev-secret-change-me", "secret", "admin", "password",
}

const (
	CredentialBackendFile     = "file"
	CredentialBackendPostgres = "postgres"

	DedupBackendMemory = "memory"
	DedupBackendRedis  = "redis"
)

type Config struct {
	Port                  int      `env:"PORT" envDefault:"8080"`
	DatabaseURL           string   `env:"DATABASE_URL,required"`
	RedisURL              string   `env:"REDIS_URL,required"`
	AdminSecret           string   `env:"ADMIN_SECRET"`
	AdminSecretHash       string   `env:"ADMIN_SECRET_HASH"`
	EncryptionKey         string   `env:"ENCRYPTION_KEY"`
	CredentialBackend     string   `env:"CREDENTIAL_BACKEND" envDefault:"file"`
	CredentialFile        string   `env:"CREDENTIAL_FILE" envDefault:"data/access_token.json"`
	DedupBackend          string   `env:"DEDUP_BACKEND" envDefault:"memory"`
	DedupTTLSeconds       int      `env:"DEDUP_TTL_SECONDS" envDefault:"60"`
	EffectFallbackSeconds int      `env:"EFFECT_FALLBACK_SECONDS" envDefault:"30"`
	AnnounceDelayMillis   int      `env:"ANNOUNCE_DELAY_MS" envDefault:"2000"`
	ChatWebhookURL        string   `env:"CHAT_WEBHOOK_URL"`
	ChatWebhookToken      string   `env:"CHAT_WEBHOOK_TOKEN"`
	AllowedOrigins        []string `env:"ALLOWED_ORIGINS" envSeparator:","`
	StaticDir             string   `env:"STATIC_DIR" envDefault:"static/overlay"`
	LogLevel              string   `env:"LOG_LEVEL" envDefault:"info"`
}

func (c *Config) DedupTTL() time.Duration {
	return time.Duration(c.DedupTTLSeconds) * time.Second
}

func (c *Config) EffectFallback() time.Duration {
	return time.Duration(c.EffectFallbackSeconds) * time.Second
}

func (c *Config) AnnounceDelay() time.Duration {
	return time.Duration(c.AnnounceDelayMillis) * time.Millisecond
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// AdminConfigured reports whether any admin secret is set.
func (c *Config) AdminConfigured() bool {
	return c.AdminSecret != "" || c.AdminSecretHash != ""
}

func (c *Config) Validate(isProduction bool) error {
	if c.AdminSecretHash != "" {
		if !strings.HasPrefix(c.AdminSecretHash, "$2a$") &&
			!strings.HasPrefix(c.AdminSecretHash, "$2b$") &&
			!strings.HasPrefix(c.AdminSecretHash, "$2y$") {
			return fmt.Errorf("ADMIN_SECRET_HASH must be a bcrypt hash (generate with: go run scripts/hash-secret.go <secret>)")
		}
	}

	switch c.CredentialBackend {
	case CredentialBackendFile, CredentialBackendPostgres:
	default:
		return fmt.Errorf("CREDENTIAL_BACKEND must be %q or %q", CredentialBackendFile, CredentialBackendPostgres)
	}

	switch c.DedupBackend {
	case DedupBackendMemory, DedupBackendRedis:
	default:
		return fmt.Errorf("DEDUP_BACKEND must be %q or %q", DedupBackendMemory, DedupBackendRedis)
	}

	if c.DedupTTLSeconds <= 0 || c.EffectFallbackSeconds <= 0 || c.AnnounceDelayMillis < 0 {
		return fmt.Errorf("DEDUP_TTL_SECONDS and EFFECT_FALLBACK_SECONDS must be positive, ANNOUNCE_DELAY_MS non-negative")
	}

	if c.EncryptionKey != "" {
		key, err := hex.DecodeString(c.EncryptionKey)
		if err != nil || len(key) != 32 {
			return fmt.Errorf("ENCRYPTION_KEY must be 64 hex characters")
		}
	}

	if isProduction {
		if c.AdminSecret != "" {
			if err := validateSecret("ADMIN_SECRET", c.AdminSecret); err != nil {
				return err
			}
		}

		if !c.AdminConfigured() {
			log.Warn().Msg("no admin secret configured in production: admin room and admin API disabled")
		}
		if c.ChatWebhookURL == "" {
			log.Warn().Msg("CHAT_WEBHOOK_URL is empty in production: chat announcements disabled")
		}
		if strings.HasPrefix(c.RedisURL, "redis://") {
			log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
		}
		if c.EncryptionKey == "" && c.CredentialBackend == CredentialBackendFile {
			log.Warn().Msg("ENCRYPTION_KEY is empty in production: access token stored in plaintext")
		}
	}

	return nil
}

func validateSecret(name, value string) error {
	if len(value) < 16 {
		return fmt.Errorf("%s must be at least 16 characters in production (generate with: openssl rand -base64 24)", name)
	}
	for _, weak := range knownWeakSecrets {
		if value == weak {
			return fmt.Errorf("%s is a known weak default; set a strong secret in production", name)
		}
	}
	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
