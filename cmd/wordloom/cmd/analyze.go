package cmd

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/spf13/cobra"

	"github.com/solatis/wordloom/internal/rules"
)

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Report grammar complexity and outcome probabilities",
		Long: `Without --rule, report the number of distinct outputs of every rule and
the grammar total. With --rule, report that rule's complexity and its most
probable outcomes.`,
		Args: cobra.NoArgs,
		RunE: runAnalyze,
	}
	addGrammarFlags(cmd)
	cmd.Flags().String("rule", "", "rule to analyze")
	cmd.Flags().Int("max-outcomes", 0, "cap on enumerated outcomes (default from config)")
	cmd.Flags().Int("top", 10, "outcomes to print")
	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	e, err := loadEngine(cmd, cfg, logger)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	name, _ := cmd.Flags().GetString("rule")
	if name == "" {
		printTotal(out, e.TotalComplexity())
		return nil
	}

	c, err := e.RuleComplexity(name)
	if err != nil {
		return err
	}
	p, err := e.Probabilities(name)
	if err != nil {
		return err
	}
	top, _ := cmd.Flags().GetInt("top")
	printRule(out, c, p, top)
	return nil
}

// formatCount renders a complexity count. An infinite count of a finite
// grammar overflowed float64.
func formatCount(n float64, finite bool) string {
	if math.IsInf(n, 1) {
		if finite {
			return "more than 1.8e308"
		}
		return "unbounded"
	}
	return fmt.Sprintf("%.0f", n)
}

func printTotal(w io.Writer, t rules.TotalComplexityResult) {
	fmt.Fprintf(w, "rules:     %d\n", t.RuleCount)
	fmt.Fprintf(w, "total:     %s\n", formatCount(t.Total, t.IsFinite))
	if !math.IsInf(t.Average, 1) {
		fmt.Fprintf(w, "average:   %.1f\n", t.Average)
	}
	if len(t.Top) > 0 {
		fmt.Fprintln(w, "most complex:")
		for _, rc := range t.Top {
			fmt.Fprintf(w, "  %-20s %s\n", rc.Rule, formatCount(rc.Count, t.IsFinite))
		}
	}
	if len(t.Cycles) > 0 {
		fmt.Fprintf(w, "cycles:    %s\n", strings.Join(t.Cycles, ", "))
	}
	for _, warning := range t.Warnings {
		fmt.Fprintf(w, "warning:   %s\n", warning)
	}
}

func printRule(w io.Writer, c rules.ComplexityResult, p rules.ProbabilityResult, top int) {
	fmt.Fprintf(w, "rule:      %s (%s)\n", c.Rule, c.Kind)
	fmt.Fprintf(w, "outputs:   %s\n", formatCount(c.Count, c.IsFinite))
	if len(c.Variables) > 0 {
		fmt.Fprintf(w, "references: %s\n", strings.Join(c.Variables, ", "))
	}
	fmt.Fprintf(w, "entropy:   %.3f bits\n", p.Entropy)

	shown := p.Outcomes
	if top > 0 && len(shown) > top {
		shown = shown[:top]
	}
	if len(shown) > 0 {
		fmt.Fprintln(w, "outcomes:")
		for _, o := range shown {
			fmt.Fprintf(w, "  %6.2f%%  %s\n", o.Probability*100, o.Text)
		}
	}
	if p.Truncated {
		fmt.Fprintf(w, "  ... %d outcomes enumerated before truncation\n", p.TotalOutcomes)
	}
	for _, warning := range append(c.Warnings, p.Warnings...) {
		fmt.Fprintf(w, "warning:   %s\n", warning)
	}
}
