package rules

import (
	"errors"
	"fmt"
	"strings"

	"github.com/solatis/wordloom/internal/types"
)

// HelpfulError annotates err with remediation hints and the current
// validation findings. input is the text being parsed and may be empty.
// The result is advisory text only.
func (e *Engine) HelpfulError(err error, input string) string {
	if err == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString(err.Error())

	var hints []string
	switch {
	case errors.Is(err, types.ErrRecursionLimit):
		hints = append(hints,
			fmt.Sprintf("check for rules that reference themselves directly or through other rules (max depth %d)", e.maxDepth),
			"raise the limit with SetMaxDepth if the grammar is legitimately deep")
	case errors.Is(err, types.ErrFunctionRule):
		hints = append(hints, "the function rule's generator returned an error; make it return values instead of failing")
	case errors.Is(err, types.ErrWeightSum), errors.Is(err, types.ErrWeightCount), errors.Is(err, types.ErrNegativeWeight):
		hints = append(hints, "each value needs one non-negative weight and the weights must sum to 1.0")
	case errors.Is(err, types.ErrNoConditionMatched):
		hints = append(hints, "add a default branch to the conditional rule")
	case errors.Is(err, types.ErrRuleNotFound), errors.Is(err, types.ErrInvalidGrammar):
		hints = append(hints, "define every rule referenced with %name% before parsing")
	}

	if input != "" {
		var undefined []string
		for _, name := range FindVariables(input) {
			if !e.store.HasAny(name) {
				undefined = append(undefined, name)
			}
		}
		if len(undefined) > 0 {
			hints = append(hints, "input references undefined rules: "+strings.Join(undefined, ", "))
		}
	}

	report := e.Validate()
	if len(report.MissingRules) > 0 {
		hints = append(hints, "missing rules: "+strings.Join(report.MissingRules, ", "))
	}
	if len(report.CircularReferences) > 0 {
		hints = append(hints, "self-referencing rules: "+strings.Join(report.CircularReferences, ", "))
	}
	if len(report.EmptyRules) > 0 {
		hints = append(hints, "rules without values: "+strings.Join(report.EmptyRules, ", "))
	}

	for _, h := range hints {
		b.WriteString("\n  - ")
		b.WriteString(h)
	}
	return b.String()
}
