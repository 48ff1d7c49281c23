package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a grammar for missing, circular, empty and unreachable rules",
		Args:  cobra.NoArgs,
		RunE:  runValidate,
	}
	addGrammarFlags(cmd)
	return cmd
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	e, err := loadEngine(cmd, cfg, logger)
	if err != nil {
		return err
	}

	report := e.Validate()
	out := cmd.OutOrStdout()
	sections := []struct {
		label string
		names []string
	}{
		{"missing", report.MissingRules},
		{"circular", report.CircularReferences},
		{"empty", report.EmptyRules},
		{"unreachable", report.UnreachableRules},
	}
	for _, s := range sections {
		if len(s.names) > 0 {
			fmt.Fprintf(out, "%-12s %s\n", s.label+":", strings.Join(s.names, ", "))
		}
	}
	for _, w := range report.Warnings {
		fmt.Fprintf(out, "warning:     %s\n", w)
	}

	if !report.IsValid {
		return report.Err()
	}
	fmt.Fprintln(out, "grammar is valid")
	return nil
}
