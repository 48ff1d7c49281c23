package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/solatis/wordloom/internal/core/config"
	"github.com/solatis/wordloom/internal/core/grammars"
	"github.com/solatis/wordloom/internal/grammar"
	"github.com/solatis/wordloom/internal/rules"
	"github.com/solatis/wordloom/internal/types"
)

// addGrammarFlags registers the flags that select a grammar: a file, or a
// stored grammar by tenant and name.
func addGrammarFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("grammar", "g", "", "grammar file (YAML or JSON)")
	cmd.Flags().String("root", "", "path of an embedded grammar inside the file (e.g. grammars[0].story)")
	cmd.Flags().String("name", "", "stored grammar name (requires --db-url)")
	cmd.Flags().String("tenant", "default", "tenant owning the stored grammar")
}

// loadDocument reads the grammar selected by the grammar flags.
func loadDocument(cmd *cobra.Command, cfg *config.Config) (*grammar.Document, error) {
	path, _ := cmd.Flags().GetString("grammar")
	name, _ := cmd.Flags().GetString("name")

	switch {
	case path != "" && name != "":
		return nil, fmt.Errorf("use --grammar or --name, not both")
	case path != "":
		root, _ := cmd.Flags().GetString("root")
		return grammar.Load(path, root)
	case name != "":
		tenant, _ := cmd.Flags().GetString("tenant")
		database, queries, err := openDatabase(cmd.Context(), cfg, true)
		if err != nil {
			return nil, err
		}
		defer database.Close()
		stored, err := grammars.NewRepository(queries).Load(cmd.Context(), types.TenantID(tenant), name)
		if err != nil {
			return nil, err
		}
		return stored.Document, nil
	default:
		return nil, fmt.Errorf("--grammar or --name is required")
	}
}

// loadEngine builds an engine from configuration and the selected grammar.
// A --seed flag overrides the grammar's own seed.
func loadEngine(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) (*rules.Engine, error) {
	doc, err := loadDocument(cmd, cfg)
	if err != nil {
		return nil, err
	}

	e := rules.NewEngine(append(cfg.EngineOptions(), rules.WithLogger(logger))...)
	if err := doc.Apply(e); err != nil {
		return nil, err
	}
	if f := cmd.Flags().Lookup("seed"); f != nil && f.Changed && cfg.Engine.Seed != nil {
		e.SetRandomSeed(*cfg.Engine.Seed)
	}
	return e, nil
}
