// internal/rules/compile.go
package rules

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/solatis/wordloom/internal/types"
)

/*
 * Rule compilation and validation.
 *
 * Builds the seven rule variants from caller input, enforcing every
 * structural invariant at registration time so resolution never has to
 * re-check them. A constructor either returns a complete rule or an error;
 * nothing is registered partially.
 *
 * Compilation per kind:
 *   - Weighted: non-negative weights, sum within WeightTolerance of 1.0,
 *     cumulative prefix sums precomputed for inverse-CDF sampling
 *   - Conditional: each record is a predicate or a default, never both;
 *     at most one default; every record carries values
 *   - Sequential: non-empty value list, index starts at 0
 *   - Range: min < max, step > 0 when present
 *   - Template: every literal %name% in the template has a local variable
 *
 * Resolution is a type switch over the highest-priority occupant of a name
 * (see resolve.go).
 */

// Kind identifies a rule variant. Declaration order is resolution priority.
type Kind int

const (
	KindUnspecified Kind = iota
	KindFunction
	KindConditional
	KindSequential
	KindRange
	KindTemplate
	KindWeighted
	KindStatic

	kindCount
)

// resolutionOrder is the fixed dispatch order used when a name backs several kinds.
var resolutionOrder = [...]Kind{
	KindFunction,
	KindConditional,
	KindSequential,
	KindRange,
	KindTemplate,
	KindWeighted,
	KindStatic,
}

// Kinds returns every rule kind in resolution priority order.
func Kinds() []Kind {
	out := make([]Kind, len(resolutionOrder))
	copy(out, resolutionOrder[:])
	return out
}

func (k Kind) String() string {
	switch k {
	case KindFunction:
		return "function"
	case KindConditional:
		return "conditional"
	case KindSequential:
		return "sequential"
	case KindRange:
		return "range"
	case KindTemplate:
		return "template"
	case KindWeighted:
		return "weighted"
	case KindStatic:
		return "static"
	default:
		return "unspecified"
	}
}

// NumericKind selects integer or float output for range rules.
type NumericKind int

const (
	NumericInteger NumericKind = iota
	NumericFloat
)

// Rule is one of *StaticRule, *FunctionRule, *WeightedRule, *ConditionalRule,
// *SequentialRule, *RangeRule or *TemplateRule.
type Rule interface {
	Name() string
	Kind() Kind
}

// StaticRule picks uniformly from a fixed list of values.
type StaticRule struct {
	name   string
	Values []string
}

func (r *StaticRule) Name() string { return r.name }
func (r *StaticRule) Kind() Kind   { return KindStatic }

// Generator produces the candidate values of a function rule.
// It is invoked on every resolution; results are never cached.
type Generator interface {
	Generate() ([]string, error)
}

// GeneratorFunc adapts a plain function to Generator.
type GeneratorFunc func() ([]string, error)

// Generate calls f.
func (f GeneratorFunc) Generate() ([]string, error) { return f() }

// FunctionRule delegates to a Generator.
type FunctionRule struct {
	name      string
	Generator Generator
}

func (r *FunctionRule) Name() string { return r.name }
func (r *FunctionRule) Kind() Kind   { return KindFunction }

// WeightedRule picks a value with probability equal to its weight.
type WeightedRule struct {
	name       string
	Values     []string
	Weights    []float64
	Cumulative []float64 // prefix sums of Weights
}

func (r *WeightedRule) Name() string { return r.name }
func (r *WeightedRule) Kind() Kind   { return KindWeighted }

// Predicate inspects the parse context.
type Predicate func(ctx *Context) bool

// Condition is one branch of a conditional rule. Either When is set or
// Default is true.
type Condition struct {
	When    Predicate
	Default bool
	Values  []string

	// Definition is the declarative form of When, when it was compiled from one.
	// Only such branches can be exported.
	Definition *types.PredicateDefinition
}

// ConditionalRule picks from the first branch whose predicate holds.
type ConditionalRule struct {
	name       string
	Conditions []Condition
}

func (r *ConditionalRule) Name() string { return r.name }
func (r *ConditionalRule) Kind() Kind   { return KindConditional }

// defaultBranch returns the default record, if any.
func (r *ConditionalRule) defaultBranch() (Condition, bool) {
	for _, c := range r.Conditions {
		if c.Default {
			return c, true
		}
	}
	return Condition{}, false
}

// SequentialRule returns its values in order, cycling or pinning at the end.
type SequentialRule struct {
	name   string
	Values []string
	Cycle  bool
	index  int
}

func (r *SequentialRule) Name() string { return r.name }
func (r *SequentialRule) Kind() Kind   { return KindSequential }

// Index returns the position of the next value.
func (r *SequentialRule) Index() int { return r.index }

// Reset rewinds the rule to its first value.
func (r *SequentialRule) Reset() { r.index = 0 }

// next returns the current value and advances.
// index == len(Values) only between calls; wrap or pin happens here.
func (r *SequentialRule) next() string {
	if r.index >= len(r.Values) {
		if r.Cycle {
			r.index = 0
		} else {
			r.index = len(r.Values) - 1
		}
	}
	v := r.Values[r.index]
	r.index++
	return v
}

// RangeOptions configures a range rule.
// Step 0 means no step. A nil Decimals derives float precision from the
// step, or DefaultFloatDecimals for continuous ranges.
type RangeOptions struct {
	Step     float64
	Numeric  NumericKind
	Decimals *int
}

// RangeRule samples a number between Min and Max.
type RangeRule struct {
	name     string
	Min      float64
	Max      float64
	Step     float64
	Numeric  NumericKind
	Decimals *int
}

func (r *RangeRule) Name() string { return r.name }
func (r *RangeRule) Kind() Kind   { return KindRange }

// HasStep reports whether a step is set.
func (r *RangeRule) HasStep() bool { return r.Step > 0 }

// stepEpsilon absorbs float error in (max-min)/step, e.g. 0.3/0.1.
const stepEpsilon = 1e-9

// StepCount returns floor((max-min)/step)+1, assuming step 1 when none is
// set. Analyzers size unstepped ranges this way as well. The count is a
// float because unstepped float ranges may span more than any int.
func (r *RangeRule) StepCount() float64 {
	step := r.Step
	if step <= 0 {
		step = 1
	}
	return math.Floor((r.Max-r.Min)/step+stepEpsilon) + 1
}

// Steps returns StepCount as an int, saturated at MaxRangeSteps.
func (r *RangeRule) Steps() int {
	n := r.StepCount()
	if n > types.MaxRangeSteps {
		return types.MaxRangeSteps
	}
	return int(n)
}

// discrete reports whether sampling picks from Steps() points.
func (r *RangeRule) discrete() bool {
	return r.HasStep() || r.Numeric == NumericInteger
}

// valueAt returns the formatted i-th discrete value.
func (r *RangeRule) valueAt(i int) string {
	step := r.Step
	if step <= 0 {
		step = 1
	}
	return r.format(r.Min + float64(i)*step)
}

// format renders v according to the numeric kind.
func (r *RangeRule) format(v float64) string {
	if r.Numeric == NumericInteger {
		return strconv.FormatInt(int64(math.Round(v)), 10)
	}
	var decimals int
	switch {
	case r.Decimals != nil:
		decimals = *r.Decimals
	case r.HasStep():
		decimals = decimalPlaces(r.Step)
	default:
		decimals = types.DefaultFloatDecimals
	}
	return strconv.FormatFloat(v, 'f', decimals, 64)
}

// decimalPlaces counts digits after the point in the shortest representation of f.
func decimalPlaces(f float64) int {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return len(s) - i - 1
	}
	return 0
}

// TemplateRule renders a template from locally scoped variables.
type TemplateRule struct {
	name      string
	Template  string
	Variables map[string][]string
}

func (r *TemplateRule) Name() string { return r.name }
func (r *TemplateRule) Kind() Kind   { return KindTemplate }

// VariableNames returns the local variable names in sorted order.
func (r *TemplateRule) VariableNames() []string {
	names := make([]string, 0, len(r.Variables))
	for name := range r.Variables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewStaticRule validates and builds a static rule. An empty value list is
// accepted so incremental grammars can declare a rule before filling it;
// Validate reports it.
func NewStaticRule(name string, values []string) (*StaticRule, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	return &StaticRule{name: name, Values: cloneStrings(values)}, nil
}

// NewFunctionRule validates and builds a function rule.
func NewFunctionRule(name string, gen Generator) (*FunctionRule, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	if gen == nil {
		return nil, fmt.Errorf("%w: %q", types.ErrNilGenerator, name)
	}
	return &FunctionRule{name: name, Generator: gen}, nil
}

// NewWeightedRule validates weights and precomputes cumulative sums.
func NewWeightedRule(name string, values []string, weights []float64) (*WeightedRule, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: weighted rule %q", types.ErrEmptyValues, name)
	}
	if len(values) != len(weights) {
		return nil, fmt.Errorf("%w: weighted rule %q has %d values and %d weights",
			types.ErrWeightCount, name, len(values), len(weights))
	}

	cumulative := make([]float64, len(weights))
	sum := 0.0
	for i, w := range weights {
		if w < 0 || math.IsNaN(w) {
			return nil, fmt.Errorf("%w: weighted rule %q weight %d is %v", types.ErrNegativeWeight, name, i, w)
		}
		sum += w
		cumulative[i] = sum
	}
	if math.Abs(sum-1.0) > types.WeightTolerance {
		return nil, fmt.Errorf("%w: weighted rule %q sums to %v", types.ErrWeightSum, name, sum)
	}

	return &WeightedRule{
		name:       name,
		Values:     cloneStrings(values),
		Weights:    append([]float64(nil), weights...),
		Cumulative: cumulative,
	}, nil
}

// NewConditionalRule validates condition records.
func NewConditionalRule(name string, conditions []Condition) (*ConditionalRule, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	if len(conditions) == 0 {
		return nil, fmt.Errorf("%w: conditional rule %q has no conditions", types.ErrInvalidCondition, name)
	}

	defaults := 0
	compiled := make([]Condition, 0, len(conditions))
	for i, c := range conditions {
		switch {
		case c.Default && c.When != nil:
			return nil, fmt.Errorf("%w: conditional rule %q record %d has both a predicate and default",
				types.ErrInvalidCondition, name, i)
		case !c.Default && c.When == nil:
			return nil, fmt.Errorf("%w: conditional rule %q record %d has no predicate",
				types.ErrInvalidCondition, name, i)
		}
		if c.Default {
			defaults++
		}
		if len(c.Values) == 0 {
			return nil, fmt.Errorf("%w: conditional rule %q record %d", types.ErrEmptyValues, name, i)
		}
		compiled = append(compiled, Condition{
			When:       c.When,
			Default:    c.Default,
			Values:     cloneStrings(c.Values),
			Definition: c.Definition,
		})
	}
	if defaults > 1 {
		return nil, fmt.Errorf("%w: conditional rule %q has %d", types.ErrMultipleDefaults, name, defaults)
	}

	return &ConditionalRule{name: name, Conditions: compiled}, nil
}

// NewSequentialRule validates a sequential rule.
func NewSequentialRule(name string, values []string, cycle bool) (*SequentialRule, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: sequential rule %q", types.ErrEmptyValues, name)
	}
	return &SequentialRule{name: name, Values: cloneStrings(values), Cycle: cycle}, nil
}

// NewRangeRule validates range bounds and step.
func NewRangeRule(name string, lo, hi float64, opts RangeOptions) (*RangeRule, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	if math.IsNaN(lo) || math.IsNaN(hi) || math.IsInf(lo, 0) || math.IsInf(hi, 0) || lo >= hi {
		return nil, fmt.Errorf("%w: range rule %q has min %v, max %v", types.ErrInvalidRange, name, lo, hi)
	}
	if opts.Step < 0 || math.IsNaN(opts.Step) || math.IsInf(opts.Step, 0) {
		return nil, fmt.Errorf("%w: range rule %q has step %v", types.ErrInvalidStep, name, opts.Step)
	}
	r := &RangeRule{
		name:    name,
		Min:     lo,
		Max:     hi,
		Step:    opts.Step,
		Numeric: opts.Numeric,
	}
	if opts.Decimals != nil {
		if *opts.Decimals < 0 {
			return nil, fmt.Errorf("%w: range rule %q has decimals %d", types.ErrInvalidDecimals, name, *opts.Decimals)
		}
		decimals := *opts.Decimals
		r.Decimals = &decimals
	}
	if r.discrete() && r.StepCount() > types.MaxRangeSteps {
		return nil, fmt.Errorf("%w: range rule %q spans %g steps, more than %d",
			types.ErrInvalidRange, name, r.StepCount(), types.MaxRangeSteps)
	}
	return r, nil
}

// NewTemplateRule validates that every template token has a local variable.
// Back-reference tokens (%@name%) are resolved from the parse context and
// need no variable.
func NewTemplateRule(name, template string, variables map[string][]string) (*TemplateRule, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}

	for _, tok := range scanTokens(template) {
		if tok.backref {
			continue
		}
		if _, ok := variables[tok.name]; !ok {
			return nil, fmt.Errorf("%w: template rule %q uses %%%s%%", types.ErrMissingTemplateVariable, name, tok.name)
		}
	}

	vars := make(map[string][]string, len(variables))
	for v, values := range variables {
		if len(values) == 0 {
			return nil, fmt.Errorf("%w: template rule %q variable %q", types.ErrEmptyValues, name, v)
		}
		vars[v] = cloneStrings(values)
	}

	return &TemplateRule{name: name, Template: template, Variables: vars}, nil
}

// checkName rejects empty rule names.
func checkName(name string) error {
	if name == "" {
		return types.ErrEmptyRuleName
	}
	return nil
}

func cloneStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
