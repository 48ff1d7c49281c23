package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/solatis/wordloom/internal/types"
)

// FlagKeys maps CLI flag names to configuration keys. Flags present in the
// set passed to LoadConfig override every other source once changed.
var FlagKeys = map[string]string{
	"max-depth":    "engine.max_depth",
	"seed":         "engine.seed",
	"host":         "server.host",
	"port":         "server.port",
	"db-url":       "database.url",
	"log-level":    "log.level",
	"log-format":   "log.format",
	"max-outcomes": "analysis.max_outcomes",
}

// LoadConfig loads configuration using viper.
// CLI flags > environment > config file > defaults precedence.
// flags may be nil.
func LoadConfig(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// WL_ENGINE_MAX_DEPTH, WL_SERVER_PORT, ...
	v.SetEnvPrefix("WL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Secrets are environment-only
	if err := validateNoSecretsInConfig(v); err != nil {
		return nil, err
	}

	if flags != nil {
		for name, key := range FlagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	cfg := &Config{
		Engine: EngineConfig{
			MaxDepth:     v.GetInt("engine.max_depth"),
			SafeAttempts: v.GetInt("engine.safe_attempts"),
		},
		Analysis: AnalysisConfig{
			MaxDepth:                 v.GetInt("analysis.max_depth"),
			MaxOutcomes:              v.GetInt("analysis.max_outcomes"),
			ContinuousRangesInfinite: v.GetBool("analysis.continuous_ranges_infinite"),
		},
		Server: ServerConfig{
			Host:           v.GetString("server.host"),
			Port:           v.GetInt("server.port"),
			MaxConnections: v.GetInt("server.max_connections"),
			RequestTimeout: v.GetDuration("server.request_timeout"),
			MaxBatchSize:   v.GetInt("server.max_batch_size"),
			MaxVariations:  v.GetInt("server.max_variations"),
		},
		Database: DatabaseConfig{URL: v.GetString("database.url")},
		Log: LogConfig{
			Level:  strings.ToLower(v.GetString("log.level")),
			Format: strings.ToLower(v.GetString("log.format")),
		},
	}
	// IsSet ignores unchanged flag defaults, so an absent seed stays nil
	if v.IsSet("engine.seed") {
		seed := v.GetInt64("engine.seed")
		cfg.Engine.Seed = &seed
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("engine.max_depth", d.Engine.MaxDepth)
	v.SetDefault("engine.safe_attempts", d.Engine.SafeAttempts)
	v.SetDefault("analysis.max_depth", d.Analysis.MaxDepth)
	v.SetDefault("analysis.max_outcomes", d.Analysis.MaxOutcomes)
	v.SetDefault("analysis.continuous_ranges_infinite", d.Analysis.ContinuousRangesInfinite)
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.max_connections", d.Server.MaxConnections)
	v.SetDefault("server.request_timeout", d.Server.RequestTimeout.String())
	v.SetDefault("server.max_batch_size", d.Server.MaxBatchSize)
	v.SetDefault("server.max_variations", d.Server.MaxVariations)
	v.SetDefault("database.url", "")
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// validateConfig rejects out-of-range values.
func validateConfig(cfg *Config) error {
	if cfg.Engine.MaxDepth < types.MinMaxDepth {
		return fmt.Errorf("engine.max_depth must be at least %d, got %d", types.MinMaxDepth, cfg.Engine.MaxDepth)
	}
	if cfg.Engine.SafeAttempts <= 0 {
		return fmt.Errorf("engine.safe_attempts must be positive, got %d", cfg.Engine.SafeAttempts)
	}
	if cfg.Analysis.MaxDepth <= 0 {
		return fmt.Errorf("analysis.max_depth must be positive, got %d", cfg.Analysis.MaxDepth)
	}
	if cfg.Analysis.MaxOutcomes <= 0 {
		return fmt.Errorf("analysis.max_outcomes must be positive, got %d", cfg.Analysis.MaxOutcomes)
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", cfg.Server.Port)
	}
	if cfg.Server.MaxConnections <= 0 {
		return fmt.Errorf("max_connections must be positive, got %d", cfg.Server.MaxConnections)
	}
	if cfg.Server.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %v", cfg.Server.RequestTimeout)
	}
	if cfg.Server.MaxBatchSize <= 0 {
		return fmt.Errorf("max_batch_size must be positive, got %d", cfg.Server.MaxBatchSize)
	}
	if cfg.Server.MaxVariations <= 0 {
		return fmt.Errorf("max_variations must be positive, got %d", cfg.Server.MaxVariations)
	}
	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", cfg.Log.Level)
	}
	switch cfg.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", cfg.Log.Format)
	}
	return nil
}

// validateNoSecretsInConfig enforces environment-only secrets (12-factor principle).
func validateNoSecretsInConfig(v *viper.Viper) error {
	// InConfig, not IsSet: AutomaticEnv would map hmac_secret to WL_HMAC_SECRET
	if v.InConfig("hmac_secret") || v.InConfig("server.hmac_secret") {
		return fmt.Errorf("HMAC secrets not allowed in config files (use WL_HMAC_SECRET environment variable)")
	}
	return nil
}
