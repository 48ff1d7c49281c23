// internal/rules/validate.go
package rules

import (
	"fmt"
	"sort"
	"strings"

	"github.com/solatis/wordloom/internal/types"
)

/*
 * Grammar validation.
 *
 * Scans static rules only. Other kinds count as existing names, but their
 * values are not scanned; the analyzers cover deep references while
 * traversing.
 *
 * Findings:
 *   - missing:    a static value references a name no kind registers
 *                 (back-references included, prefix stripped)
 *   - circular:   a static rule whose values reference itself directly
 *   - empty:      a static rule with no values
 *   - unreachable: a name no static value references that does not look like
 *                 an entry point (see rootPatterns); reported as a warning
 *
 * IsValid is false when any missing, circular or empty finding exists.
 */

// rootPatterns are conventional entry-point names, matched exactly or as a prefix.
var rootPatterns = []string{
	"start", "main", "story", "root", "origin",
	"entry", "begin", "sentence", "template", "output",
}

// ValidationReport lists the findings of Validate. Every slice is sorted.
type ValidationReport struct {
	IsValid            bool
	MissingRules       []string
	CircularReferences []string
	EmptyRules         []string
	UnreachableRules   []string
	Warnings           []string
}

// Validate checks the static rules of store for holes.
func Validate(store *Store) ValidationReport {
	report := ValidationReport{
		MissingRules:       []string{},
		CircularReferences: []string{},
		EmptyRules:         []string{},
		UnreachableRules:   []string{},
		Warnings:           []string{},
	}

	missing := make(map[string]bool)
	referenced := make(map[string]bool)

	for _, r := range store.staticRules() {
		if len(r.Values) == 0 {
			report.EmptyRules = append(report.EmptyRules, r.name)
		}

		self := false
		for _, v := range r.Values {
			for _, tok := range scanTokens(v) {
				if tok.name == "" {
					continue
				}
				if tok.name != r.name {
					referenced[tok.name] = true
				} else if !tok.backref {
					self = true
				}
				if !store.HasAny(tok.name) {
					missing[tok.name] = true
				}
			}
		}
		if self {
			report.CircularReferences = append(report.CircularReferences, r.name)
		}
	}

	for name := range missing {
		report.MissingRules = append(report.MissingRules, name)
	}
	sort.Strings(report.MissingRules)

	for _, name := range store.Names() {
		if referenced[name] || isRootName(name) {
			continue
		}
		report.UnreachableRules = append(report.UnreachableRules, name)
	}

	for _, name := range report.MissingRules {
		report.Warnings = append(report.Warnings, fmt.Sprintf("rule %q is referenced but not defined", name))
	}
	for _, name := range report.CircularReferences {
		report.Warnings = append(report.Warnings, fmt.Sprintf("rule %q references itself", name))
	}
	for _, name := range report.EmptyRules {
		report.Warnings = append(report.Warnings, fmt.Sprintf("rule %q has no values", name))
	}
	for _, name := range report.UnreachableRules {
		report.Warnings = append(report.Warnings, fmt.Sprintf("rule %q is never referenced", name))
	}

	report.IsValid = len(report.MissingRules) == 0 &&
		len(report.CircularReferences) == 0 &&
		len(report.EmptyRules) == 0
	return report
}

// isRootName reports whether name looks like a grammar entry point.
func isRootName(name string) bool {
	lower := strings.ToLower(name)
	for _, p := range rootPatterns {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}

// Err returns ErrInvalidGrammar describing the findings, or nil when valid.
func (r ValidationReport) Err() error {
	if r.IsValid {
		return nil
	}
	var parts []string
	if len(r.MissingRules) > 0 {
		parts = append(parts, "missing "+strings.Join(r.MissingRules, ", "))
	}
	if len(r.CircularReferences) > 0 {
		parts = append(parts, "circular "+strings.Join(r.CircularReferences, ", "))
	}
	if len(r.EmptyRules) > 0 {
		parts = append(parts, "empty "+strings.Join(r.EmptyRules, ", "))
	}
	return fmt.Errorf("%w: %s", types.ErrInvalidGrammar, strings.Join(parts, "; "))
}
