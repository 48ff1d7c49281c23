// Package cmd implements the wordloom command line.
package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/solatis/wordloom/internal/core/config"
	"github.com/solatis/wordloom/internal/core/db"
)

// Version is the wordloom release.
const Version = "0.1.0"

// NewRootCmd builds the command tree. Every call returns fresh flag state.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "wordloom",
		Short:         "Wordloom combinatorial text generator",
		Long:          `Wordloom expands %rule% templates against grammars of static, weighted, conditional, sequential, range and template rules.`,
		Version:       Version,
		SilenceUsage:  true,
	}

	root.PersistentFlags().String("config", "", "config file path")
	root.PersistentFlags().String("db-url", "", "database connection URL (sqlite://path or postgres://...)")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-format", "text", "log format (json, text)")

	root.AddCommand(
		newGenerateCmd(),
		newAnalyzeCmd(),
		newValidateCmd(),
		newGrammarCmd(),
		newKeysCmd(),
		newMigrateCmd(),
		newServeCmd(),
	)
	return root
}

// Execute runs the command line.
func Execute() error {
	return NewRootCmd().Execute()
}

// setup loads configuration with cmd's flags bound and builds the logger.
func setup(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadConfig(configFile, cmd.Flags())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := newLogger(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// newLogger builds a tint handler for text output or a JSON handler.
func newLogger(cfg config.LogConfig, w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	switch strings.ToLower(cfg.Format) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})), nil
	case "text", "":
		noColor := true
		if f, ok := w.(*os.File); ok {
			noColor = !isTerminal(f)
		}
		return slog.New(tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: "15:04:05",
			NoColor:    noColor,
		})), nil
	default:
		return nil, fmt.Errorf("invalid log format %q (want json or text)", cfg.Format)
	}
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// openDatabase connects to the configured database. When migrated is set the
// schema must be current.
func openDatabase(ctx context.Context, cfg *config.Config, migrated bool) (*sqlx.DB, *db.Queries, error) {
	database, err := db.Open(ctx, cfg.Database.URL)
	if err != nil {
		return nil, nil, err
	}
	if migrated {
		if err := db.RequireMigrations(ctx, database); err != nil {
			database.Close()
			return nil, nil, err
		}
	}
	queries, err := db.LoadQueries(database)
	if err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to load queries: %w", err)
	}
	return database, queries, nil
}
