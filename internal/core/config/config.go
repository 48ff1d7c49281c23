// Package config provides configuration management for wordloom services.
package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/solatis/wordloom/internal/rules"
	"github.com/solatis/wordloom/internal/types"
)

// Config is the full service configuration.
type Config struct {
	Engine   EngineConfig
	Analysis AnalysisConfig
	Server   ServerConfig
	Database DatabaseConfig
	Log      LogConfig
}

// EngineConfig configures every engine the process builds.
type EngineConfig struct {
	MaxDepth     int
	Seed         *int64
	SafeAttempts int
}

// AnalysisConfig bounds the complexity and probability analyzers.
type AnalysisConfig struct {
	MaxDepth                 int
	MaxOutcomes              int
	ContinuousRangesInfinite bool
}

// ServerConfig holds configuration for the gRPC grammar service.
type ServerConfig struct {
	Host           string
	Port           int
	MaxConnections int
	RequestTimeout time.Duration
	MaxBatchSize   int
	MaxVariations  int
}

// DatabaseConfig locates the grammar store.
type DatabaseConfig struct {
	URL string
}

// LogConfig selects log level and handler.
type LogConfig struct {
	Level  string
	Format string
}

// Default returns configuration with default values.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			MaxDepth:     types.DefaultMaxDepth,
			SafeAttempts: types.DefaultSafeParseAttempts,
		},
		Analysis: AnalysisConfig{
			MaxDepth:    types.DefaultAnalysisDepth,
			MaxOutcomes: types.DefaultMaxOutcomes,
		},
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           50061,
			MaxConnections: 1000,
			RequestTimeout: 30 * time.Second,
			MaxBatchSize:   100,
			MaxVariations:  100,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// AnalysisOptions converts the analysis section for rules.WithAnalysisOptions.
func (c AnalysisConfig) AnalysisOptions() rules.AnalysisOptions {
	return rules.AnalysisOptions{
		MaxDepth:                 c.MaxDepth,
		MaxOutcomes:              c.MaxOutcomes,
		ContinuousRangesInfinite: c.ContinuousRangesInfinite,
	}
}

// EngineOptions returns the engine options derived from the configuration.
func (c *Config) EngineOptions() []rules.Option {
	opts := []rules.Option{
		rules.WithMaxDepth(c.Engine.MaxDepth),
		rules.WithAnalysisOptions(c.Analysis.AnalysisOptions()),
	}
	if c.Engine.Seed != nil {
		opts = append(opts, rules.WithSeed(*c.Engine.Seed))
	}
	return opts
}

// HMACSecrets extracts HMAC secrets from environment variables.
// Supports WL_HMAC_SECRET (single) and WL_HMAC_SECRET_N (rotation).
// Returns map of secret_id -> decoded secret bytes.
// Secret IDs are 32 hex chars, matching the id embedded in API keys.
func HMACSecrets() (map[string][]byte, error) {
	secrets := make(map[string][]byte)

	add := func(key, val string) error {
		secretID, decoded, err := ParseHMACSecretWithID(val)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if _, exists := secrets[secretID]; exists {
			return fmt.Errorf("duplicate secret_id '%s' found in environment variables (check WL_HMAC_SECRET and WL_HMAC_SECRET_* for conflicts)", secretID)
		}
		secrets[secretID] = decoded
		return nil
	}

	if val := os.Getenv("WL_HMAC_SECRET"); val != "" {
		if err := add("WL_HMAC_SECRET", val); err != nil {
			return nil, err
		}
	}

	// Numbered secrets stop at the first gap
	for i := 1; ; i++ {
		key := fmt.Sprintf("WL_HMAC_SECRET_%d", i)
		val := os.Getenv(key)
		if val == "" {
			break
		}
		if err := add(key, val); err != nil {
			return nil, err
		}
	}

	return secrets, nil
}

// ParseHMACSecretWithID parses secret_id:base64_secret format.
// Secret ID must be 32 lower-case hex chars.
func ParseHMACSecretWithID(envValue string) (secretID string, secret []byte, err error) {
	parts := strings.SplitN(strings.TrimSpace(envValue), ":", 2)
	if len(parts) != 2 {
		return "", nil, fmt.Errorf("format must be <secret_id>:<base64_secret>")
	}

	secretID = parts[0]
	if len(secretID) != 32 {
		return "", nil, fmt.Errorf("secret_id must be 32 hex chars")
	}
	for _, c := range secretID {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return "", nil, fmt.Errorf("secret_id must be hex chars only")
		}
	}

	secret, err = base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", nil, fmt.Errorf("invalid base64 encoding: %w", err)
	}
	if len(secret) < 32 {
		return "", nil, fmt.Errorf("secret must be at least 32 bytes, got %d", len(secret))
	}

	return secretID, secret, nil
}
