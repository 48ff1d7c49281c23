package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/solatis/wordloom/internal/core/grammars"
	"github.com/solatis/wordloom/internal/grammar"
	"github.com/solatis/wordloom/internal/types"
)

func newGrammarCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grammar",
		Short: "Manage stored grammars",
	}
	cmd.PersistentFlags().String("tenant", "default", "tenant owning the grammars")

	importCmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Store a grammar file under a name",
		Args:  cobra.ExactArgs(1),
		RunE:  runGrammarImport,
	}
	importCmd.Flags().String("name", "", "grammar name (required)")
	importCmd.Flags().String("root", "", "path of an embedded grammar inside the file")
	_ = importCmd.MarkFlagRequired("name")

	exportCmd := &cobra.Command{
		Use:   "export NAME",
		Short: "Write a stored grammar as YAML or JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  runGrammarExport,
	}
	exportCmd.Flags().StringP("output", "o", "", "output file; format follows the extension (default stdout)")
	exportCmd.Flags().String("format", "yaml", "stdout format (yaml, json)")

	cmd.AddCommand(
		importCmd,
		exportCmd,
		&cobra.Command{Use: "list", Short: "List stored grammars", Args: cobra.NoArgs, RunE: runGrammarList},
		&cobra.Command{Use: "delete NAME", Short: "Delete a stored grammar", Args: cobra.ExactArgs(1), RunE: runGrammarDelete},
	)
	return cmd
}

// withRepository runs fn against the grammar repository of the configured database.
func withRepository(cmd *cobra.Command, fn func(repo *grammars.Repository, tenant types.TenantID) error) error {
	cfg, _, err := setup(cmd)
	if err != nil {
		return err
	}
	database, queries, err := openDatabase(cmd.Context(), cfg, true)
	if err != nil {
		return err
	}
	defer database.Close()

	tenant, _ := cmd.Flags().GetString("tenant")
	return fn(grammars.NewRepository(queries), types.TenantID(tenant))
}

func runGrammarImport(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("name")
	root, _ := cmd.Flags().GetString("root")
	doc, err := grammar.Load(args[0], root)
	if err != nil {
		return err
	}
	return withRepository(cmd, func(repo *grammars.Repository, tenant types.TenantID) error {
		g, err := repo.Save(cmd.Context(), tenant, name, doc)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "stored %s (%s, %d rules)\n", g.Name, g.ID, g.RuleCount)
		return nil
	})
}

func runGrammarExport(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")
	format, _ := cmd.Flags().GetString("format")

	return withRepository(cmd, func(repo *grammars.Repository, tenant types.TenantID) error {
		g, err := repo.Load(cmd.Context(), tenant, args[0])
		if err != nil {
			return err
		}
		f := grammar.Format(format)
		if output != "" {
			f = grammar.FormatFromPath(output)
		}
		data, err := g.Document.Marshal(f)
		if err != nil {
			return err
		}
		if output == "" {
			_, err = cmd.OutOrStdout().Write(data)
			return err
		}
		return os.WriteFile(output, data, 0o644)
	})
}

func runGrammarList(cmd *cobra.Command, args []string) error {
	return withRepository(cmd, func(repo *grammars.Repository, tenant types.TenantID) error {
		list, err := repo.List(cmd.Context(), tenant)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tRULES\tMODIFIED\tID")
		for _, g := range list {
			fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", g.Name, g.RuleCount, g.ModifiedAt.Format("2006-01-02 15:04:05"), g.ID)
		}
		return tw.Flush()
	})
}

func runGrammarDelete(cmd *cobra.Command, args []string) error {
	return withRepository(cmd, func(repo *grammars.Repository, tenant types.TenantID) error {
		if err := repo.Delete(cmd.Context(), tenant, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
		return nil
	})
}
