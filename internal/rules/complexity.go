// internal/rules/complexity.go
package rules

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/solatis/wordloom/internal/types"
)

/*
 * Complexity model: how many distinct outputs a rule can produce.
 *
 * Counting rules:
 *   - static, weighted, sequential: sum over values; a value with no tokens
 *     counts 1, otherwise the product of its tokens' complexities
 *   - conditional: sum over every branch's values
 *   - function: +Inf (generators are never invoked during analysis)
 *   - range: floor((max-min)/step)+1, step 1 when none is set
 *   - template: product over local variables of each variable's value-list
 *     complexity
 *
 * Degradation instead of failure: a missing reference, a name already on the
 * in-progress path (cycle), or a path at MaxDepth each count as 1 and add a
 * warning. Only an unknown top-level rule is an error.
 *
 * A nested rule with zero outputs (an empty static rule) counts 1, because
 * the expander leaves its token in place, which is itself one output. This
 * also keeps 0 * +Inf from producing NaN.
 *
 * Unstepped ranges: sized as if step were 1. That is an approximation for
 * float ranges; AnalysisOptions.ContinuousRangesInfinite reports +Inf for
 * unstepped float ranges instead.
 *
 * The in-progress path is passed explicitly, so concurrent analyses over
 * the same store never share state.
 *
 * Counts are memoized per name within one call, so shared sub-rules are
 * counted once. A count that hit a cycle or a depth cutoff is reused only
 * for the same in-progress path. A finite count too large for float64
 * saturates to +Inf: Count is then +Inf but IsFinite stays true and a
 * warning says so. IsFinite is false only for function rules and, with
 * ContinuousRangesInfinite, unstepped float ranges.
 */

// AnalysisOptions bounds the static analyzers.
type AnalysisOptions struct {
	// MaxDepth limits the in-progress reference path.
	MaxDepth int

	// MaxOutcomes limits probability enumeration per rule.
	MaxOutcomes int

	// ContinuousRangesInfinite reports unstepped float ranges as unbounded.
	ContinuousRangesInfinite bool
}

// DefaultAnalysisOptions returns the default analyzer bounds.
func DefaultAnalysisOptions() AnalysisOptions {
	return AnalysisOptions{
		MaxDepth:    types.DefaultAnalysisDepth,
		MaxOutcomes: types.DefaultMaxOutcomes,
	}
}

func (o AnalysisOptions) normalized() AnalysisOptions {
	if o.MaxDepth < 1 {
		o.MaxDepth = types.DefaultAnalysisDepth
	}
	if o.MaxOutcomes < 1 {
		o.MaxOutcomes = types.DefaultMaxOutcomes
	}
	return o
}

// ComplexityResult describes one rule's output space.
type ComplexityResult struct {
	Rule      string
	Kind      Kind
	Count     float64 // +Inf when unbounded or beyond float64
	IsFinite  bool    // false only when the output space is unbounded
	Variables []string // names referenced directly by the rule
	Warnings  []string
	Cycles    []string // names found on a reference cycle
}

// RuleCount pairs a rule with its complexity.
type RuleCount struct {
	Rule  string
	Count float64
}

// TotalComplexityResult aggregates complexity over every registered name.
type TotalComplexityResult struct {
	Total     float64 // +Inf when any rule is unbounded or the sum overflows
	IsFinite  bool
	RuleCount int
	PerRule   map[string]float64
	Average   float64
	Top       []RuleCount // most complex first, at most TopComplexRules
	Warnings  []string
	Cycles    []string
}

// analyzer is the shared traversal state of one analysis call.
type analyzer struct {
	store    *Store
	opts     AnalysisOptions
	warnings []string
	seen     map[string]bool
	cycles   map[string]bool

	unbounded bool
	counts    map[memoKey]float64
	pathBound map[string]bool // names with a path-keyed memo entry
	pathHits  int             // cycles and depth cutoffs seen so far
}

func newAnalyzer(store *Store, opts AnalysisOptions) *analyzer {
	return &analyzer{
		store:     store,
		opts:      opts.normalized(),
		seen:      make(map[string]bool),
		cycles:    make(map[string]bool),
		counts:    make(map[memoKey]float64),
		pathBound: make(map[string]bool),
	}
}

// memoKey identifies a result computed for name at a path depth. path is
// empty unless the result hit a cycle or a depth cutoff, which makes it
// depend on which names are on the path.
type memoKey struct {
	name  string
	depth int
	path  string
}

func pathKey(path map[string]bool) string {
	names := make([]string, 0, len(path))
	for n := range path {
		names = append(names, n)
	}
	sort.Strings(names)
	return strings.Join(names, "\x00")
}

func cachedResult[V any](a *analyzer, memo map[memoKey]V, name string, path map[string]bool) (V, bool) {
	if v, ok := memo[memoKey{name: name, depth: len(path)}]; ok {
		return v, true
	}
	if !a.pathBound[name] {
		var zero V
		return zero, false
	}
	v, ok := memo[memoKey{name: name, depth: len(path), path: pathKey(path)}]
	if ok {
		a.pathHits++
	}
	return v, ok
}

func rememberResult[V any](a *analyzer, memo map[memoKey]V, name string, path map[string]bool, pathBound bool, v V) {
	key := memoKey{name: name, depth: len(path)}
	if pathBound {
		key.path = pathKey(path)
		a.pathBound[name] = true
	}
	memo[key] = v
}

// warn records a warning once.
func (a *analyzer) warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if a.seen[msg] {
		return
	}
	a.seen[msg] = true
	a.warnings = append(a.warnings, msg)
}

func (a *analyzer) cycleNames() []string {
	names := make([]string, 0, len(a.cycles))
	for n := range a.cycles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Complexity computes the output count of a registered rule.
func Complexity(store *Store, name string, opts AnalysisOptions) (ComplexityResult, error) {
	rule, ok := store.Lookup(name)
	if !ok {
		return ComplexityResult{}, fmt.Errorf("%w: %q", types.ErrRuleNotFound, name)
	}

	a := newAnalyzer(store, opts)
	count := a.complexity(name, make(map[string]bool))
	if math.IsInf(count, 1) && !a.unbounded {
		a.warn("output count of %q exceeds the float64 range", name)
	}

	return ComplexityResult{
		Rule:      name,
		Kind:      rule.Kind(),
		Count:     count,
		IsFinite:  !a.unbounded,
		Variables: ruleVariables(rule),
		Warnings:  nonNil(a.warnings),
		Cycles:    a.cycleNames(),
	}, nil
}

// TotalComplexity aggregates Complexity over every registered name.
func TotalComplexity(store *Store, opts AnalysisOptions) TotalComplexityResult {
	result := TotalComplexityResult{
		PerRule:  make(map[string]float64),
		IsFinite: true,
		Warnings: []string{},
		Cycles:   []string{},
	}

	cycles := make(map[string]bool)
	for _, name := range store.Names() {
		c, err := Complexity(store, name, opts)
		if err != nil {
			continue
		}
		result.PerRule[name] = c.Count
		result.Total += c.Count
		result.RuleCount++
		if !c.IsFinite {
			result.IsFinite = false
		}
		for _, w := range c.Warnings {
			result.Warnings = append(result.Warnings, name+": "+w)
		}
		for _, cy := range c.Cycles {
			cycles[cy] = true
		}
		result.Top = append(result.Top, RuleCount{Rule: name, Count: c.Count})
	}

	if result.RuleCount > 0 {
		result.Average = result.Total / float64(result.RuleCount)
	}

	// Names are already sorted, so the stable sort breaks ties alphabetically
	sort.SliceStable(result.Top, func(i, j int) bool {
		return result.Top[i].Count > result.Top[j].Count
	})
	if len(result.Top) > types.TopComplexRules {
		result.Top = result.Top[:types.TopComplexRules]
	}

	for cy := range cycles {
		result.Cycles = append(result.Cycles, cy)
	}
	sort.Strings(result.Cycles)

	return result
}

// complexity returns the count for name, degrading on missing, cyclic or
// too-deep references.
func (a *analyzer) complexity(name string, path map[string]bool) float64 {
	rule, ok := a.store.Lookup(name)
	if !ok {
		a.warn("missing rule %q", name)
		return 1
	}
	if path[name] {
		a.warn("circular reference to %q", name)
		a.cycles[name] = true
		a.pathHits++
		return 1
	}
	if len(path) >= a.opts.MaxDepth {
		a.warn("max depth %d reached at %q", a.opts.MaxDepth, name)
		a.pathHits++
		return 1
	}
	if c, ok := cachedResult(a, a.counts, name, path); ok {
		return c
	}

	hits := a.pathHits
	path[name] = true
	c := a.ruleComplexity(name, rule, path)
	delete(path, name)
	rememberResult(a, a.counts, name, path, a.pathHits != hits, c)
	return c
}

func (a *analyzer) ruleComplexity(name string, rule Rule, path map[string]bool) float64 {
	switch r := rule.(type) {
	case *FunctionRule:
		a.warn("function rule %q has unbounded complexity", name)
		a.unbounded = true
		return math.Inf(1)
	case *StaticRule:
		return a.listComplexity(r.Values, path)
	case *WeightedRule:
		return a.listComplexity(r.Values, path)
	case *SequentialRule:
		return a.listComplexity(r.Values, path)
	case *ConditionalRule:
		total := 0.0
		for _, c := range r.Conditions {
			total += a.listComplexity(c.Values, path)
		}
		return total
	case *RangeRule:
		if a.opts.ContinuousRangesInfinite && !r.HasStep() && r.Numeric == NumericFloat {
			a.unbounded = true
			return math.Inf(1)
		}
		return r.StepCount()
	case *TemplateRule:
		product := 1.0
		for _, v := range r.VariableNames() {
			product = mulCount(product, a.listComplexity(r.Variables[v], path))
		}
		return product
	default:
		return 1
	}
}

// listComplexity sums the complexity of each value.
func (a *analyzer) listComplexity(values []string, path map[string]bool) float64 {
	total := 0.0
	for _, v := range values {
		total += a.valueComplexity(v, path)
	}
	return total
}

// valueComplexity multiplies the complexity of each forward reference in v.
// Back-references replay an earlier choice and add no outputs.
func (a *analyzer) valueComplexity(v string, path map[string]bool) float64 {
	product := 1.0
	for _, tok := range scanTokens(v) {
		if tok.backref {
			continue
		}
		c := a.complexity(tok.name, path)
		if c == 0 {
			c = 1
		}
		product = mulCount(product, c)
	}
	return product
}

// mulCount multiplies counts, treating a zero factor as absorbing even against +Inf.
func mulCount(a, b float64) float64 {
	if a == 0 || b == 0 {
		return 0
	}
	return a * b
}

// ruleVariables lists the names a rule references directly.
func ruleVariables(rule Rule) []string {
	var values []string
	switch r := rule.(type) {
	case *StaticRule:
		values = r.Values
	case *WeightedRule:
		values = r.Values
	case *SequentialRule:
		values = r.Values
	case *ConditionalRule:
		for _, c := range r.Conditions {
			values = append(values, c.Values...)
		}
	case *TemplateRule:
		return r.VariableNames()
	}

	names := []string{}
	seen := make(map[string]bool)
	for _, v := range values {
		for _, n := range referencedNames(v) {
			if !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}
	return names
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
