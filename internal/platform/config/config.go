// Package config provides configuration loading and validation for the
// coordination server. It uses koanf to merge an optional YAML file with
// environment variables; environment variables take precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration values for the coordination server.
type Config struct {
	// Server settings
	Addr     string `koanf:"addr"`
	Env      string `koanf:"env"`
	LogLevel string `koanf:"log_level"`

	// Persistence
	DatabaseURL string `koanf:"database_url"`

	// Redis (proof replay cache)
	Redis RedisConfig `koanf:"redis"`

	// Kafka event stream; empty brokers disable the Kafka publisher.
	KafkaBrokers []string `koanf:"kafka_brokers"`
	KafkaTopic   string   `koanf:"kafka_topic"`

	// Keys. ProofVerifyKey checks capability proof signatures; it is a
	// separate secret from the API signing key so the verifier never shares
	// trust with caller authentication.
	JWTSigningKey  string `koanf:"jwt_signing_key"`
	ProofVerifyKey string `koanf:"proof_verify_key"`

	// PseudonymMapKey encrypts pseudonym map entries at rest. 32 bytes,
	// hex-encoded (64 chars).
	PseudonymMapKey string `koanf:"pseudonym_map_key"`

	// Coordination tuning
	DispatchTimeout          time.Duration `koanf:"dispatch_timeout"`
	EmergencyDispatchTimeout time.Duration `koanf:"emergency_dispatch_timeout"`
	EscalationLimit          int           `koanf:"escalation_limit"`
	ProofValidityWindow      time.Duration `koanf:"proof_validity_window"`
	CleanupSweepInterval     time.Duration `koanf:"cleanup_sweep_interval"`

	// RateLimitPerMinute caps API requests per authenticated caller. Zero
	// disables limiting.
	RateLimitPerMinute int `koanf:"rate_limit_per_minute"`
}

// RedisConfig holds connection tuning for the replay cache.
type RedisConfig struct {
	URL          string        `koanf:"url"`
	PoolSize     int           `koanf:"pool_size"`
	MinIdleConns int           `koanf:"min_idle_conns"`
	DialTimeout  time.Duration `koanf:"dial_timeout"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
}

// Configuration validation errors.
var (
	ErrMissingJWTSigningKey  = errors.New("VEIL_JWT_SIGNING_KEY is required")
	ErrMissingProofVerifyKey = errors.New("VEIL_PROOF_VERIFY_KEY is required")
	ErrInvalidEscalation     = errors.New("VEIL_ESCALATION_LIMIT must be a non-negative integer")
)

// Default values for non-secret configuration.
const (
	DefaultAddr                     = ":8080"
	DefaultEnv                      = "development"
	DefaultLogLevel                 = "info"
	DefaultKafkaTopic               = "veil.coordination"
	DefaultDispatchTimeout          = 30 * time.Second
	DefaultEmergencyDispatchTimeout = 5 * time.Second
	DefaultEscalationLimit          = 1
	DefaultProofValidityWindow      = 15 * time.Minute
	DefaultCleanupSweepInterval     = time.Minute
	DefaultRedisPoolSize            = 10
	DefaultRedisTimeout             = 3 * time.Second
	DefaultRateLimitPerMinute       = 120
)

// Load reads configuration from an optional YAML file and the environment.
// Returns the loaded config and a slice of validation errors (empty if valid).
func Load(configFilePath string) (*Config, []error) {
	k := koanf.New(".")
	var loadErrs []error

	if configFilePath != "" {
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return nil, []error{fmt.Errorf("failed to load config file %s: %w", configFilePath, err)}
		}
	}

	cfg := &Config{
		Addr:            envOrKoanf("VEIL_ADDR", k, "addr", DefaultAddr),
		Env:             envOrKoanf("VEIL_ENV", k, "env", DefaultEnv),
		LogLevel:        envOrKoanf("VEIL_LOG_LEVEL", k, "log_level", DefaultLogLevel),
		DatabaseURL:     envOrKoanf("VEIL_DATABASE_URL", k, "database_url", ""),
		KafkaTopic:      envOrKoanf("VEIL_KAFKA_TOPIC", k, "kafka_topic", DefaultKafkaTopic),
		JWTSigningKey:   envOrKoanf("VEIL_JWT_SIGNING_KEY", k, "jwt_signing_key", ""),
		ProofVerifyKey:  envOrKoanf("VEIL_PROOF_VERIFY_KEY", k, "proof_verify_key", ""),
		PseudonymMapKey: envOrKoanf("VEIL_PSEUDONYM_MAP_KEY", k, "pseudonym_map_key", ""),
		Redis: RedisConfig{
			URL:          envOrKoanf("VEIL_REDIS_URL", k, "redis.url", ""),
			PoolSize:     intOr(k.Int("redis.pool_size"), DefaultRedisPoolSize),
			MinIdleConns: k.Int("redis.min_idle_conns"),
			DialTimeout:  durationOr(k.Duration("redis.dial_timeout"), DefaultRedisTimeout),
			ReadTimeout:  durationOr(k.Duration("redis.read_timeout"), DefaultRedisTimeout),
			WriteTimeout: durationOr(k.Duration("redis.write_timeout"), DefaultRedisTimeout),
		},
		DispatchTimeout:          durationOr(k.Duration("dispatch_timeout"), DefaultDispatchTimeout),
		EmergencyDispatchTimeout: durationOr(k.Duration("emergency_dispatch_timeout"), DefaultEmergencyDispatchTimeout),
		ProofValidityWindow:      durationOr(k.Duration("proof_validity_window"), DefaultProofValidityWindow),
		CleanupSweepInterval:     durationOr(k.Duration("cleanup_sweep_interval"), DefaultCleanupSweepInterval),
		RateLimitPerMinute:       DefaultRateLimitPerMinute,
	}

	if k.Exists("rate_limit_per_minute") {
		cfg.RateLimitPerMinute = k.Int("rate_limit_per_minute")
	}
	if env := os.Getenv("VEIL_RATE_LIMIT_PER_MINUTE"); env != "" {
		if parsed, err := strconv.Atoi(env); err == nil && parsed >= 0 {
			cfg.RateLimitPerMinute = parsed
		}
	}

	if brokers := k.Strings("kafka_brokers"); len(brokers) > 0 {
		cfg.KafkaBrokers = brokers
	}
	if env := os.Getenv("VEIL_KAFKA_BROKERS"); env != "" {
		cfg.KafkaBrokers = splitAndTrim(env)
	}

	escalation := DefaultEscalationLimit
	if k.Exists("escalation_limit") {
		escalation = k.Int("escalation_limit")
	}
	if env := os.Getenv("VEIL_ESCALATION_LIMIT"); env != "" {
		parsed, err := strconv.Atoi(env)
		if err != nil || parsed < 0 {
			loadErrs = append(loadErrs, ErrInvalidEscalation)
		} else {
			escalation = parsed
		}
	}
	cfg.EscalationLimit = escalation

	loadErrs = append(loadErrs, cfg.validate()...)
	return cfg, loadErrs
}

func (c *Config) validate() []error {
	var errs []error
	if c.JWTSigningKey == "" {
		errs = append(errs, ErrMissingJWTSigningKey)
	}
	if c.ProofVerifyKey == "" {
		errs = append(errs, ErrMissingProofVerifyKey)
	}
	if c.EscalationLimit < 0 {
		errs = append(errs, ErrInvalidEscalation)
	}
	return errs
}

// IsProduction returns true when running in a production environment.
func (c *Config) IsProduction() bool { return c.Env == "production" }

func envOrKoanf(envKey string, k *koanf.Koanf, koanfKey, fallback string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	if v := k.String(koanfKey); v != "" {
		return v
	}
	return fallback
}

func intOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}

func splitAndTrim(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
