package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/solatis/wordloom/internal/rules"
)

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate [flags] TEXT...",
		Short: "Expand text against a grammar",
		Long: `Expand each TEXT against the grammar and print one result per line.

With --count N each TEXT is expanded N times. With --seed the output is
deterministic; variation i of a counted run uses seed+i.`,
		Example: `  wordloom generate -g story.yaml '%start%'
  wordloom generate -g story.yaml --count 5 --seed 42 'A %adjective% %animal%'`,
		Args: cobra.MinimumNArgs(1),
		RunE: runGenerate,
	}
	addGrammarFlags(cmd)
	cmd.Flags().Int("count", 1, "variations per text")
	cmd.Flags().Int64("seed", 0, "random seed for deterministic output")
	cmd.Flags().Int("max-depth", 0, "maximum expansion depth (default from config)")
	cmd.Flags().Bool("preserve-context", false, "share rule values across all texts")
	cmd.Flags().Bool("safe", false, "retry deep expansions with a smaller depth and report failures inline")
	return cmd
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	e, err := loadEngine(cmd, cfg, logger)
	if err != nil {
		return err
	}

	count, _ := cmd.Flags().GetInt("count")
	if count < 1 {
		return fmt.Errorf("--count must be at least 1")
	}
	preserve, _ := cmd.Flags().GetBool("preserve-context")
	safe, _ := cmd.Flags().GetBool("safe")
	out := cmd.OutOrStdout()

	for _, text := range args {
		switch {
		case safe:
			for i := 0; i < count; i++ {
				r := e.SafeParse(text, rules.SafeParseOptions{
					PreserveContext: preserve,
					MaxAttempts:     cfg.Engine.SafeAttempts,
				})
				if !r.Success {
					logger.Warn("expansion failed", "text", text, "attempts", r.Attempts, "error", r.Err)
					fmt.Fprintln(cmd.ErrOrStderr(), e.HelpfulError(r.Err, text))
					continue
				}
				fmt.Fprintln(out, r.Result)
			}

		case count > 1:
			var results []string
			if seed, ok := e.RandomSeed(); ok {
				results, err = e.GenerateSeededVariations(text, count, seed)
			} else {
				results, err = e.GenerateVariations(text, count)
			}
			if err != nil {
				return fmt.Errorf("%s", e.HelpfulError(err, text))
			}
			for _, r := range results {
				fmt.Fprintln(out, r)
			}

		default:
			var result string
			if preserve {
				result, err = e.ParsePreserving(text)
			} else {
				result, err = e.Parse(text)
			}
			if err != nil {
				return fmt.Errorf("%s", e.HelpfulError(err, text))
			}
			fmt.Fprintln(out, result)
		}
	}
	return nil
}
