package rules

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/solatis/wordloom/internal/random"
	"github.com/solatis/wordloom/internal/types"
)

// Engine is the grammar façade: a rule store, a modifier pipeline, a parse
// context and an RNG owned by one instance.
//
// Not safe for concurrent use. Sequential rule indices and the parse context
// mutate on every parse; callers needing parallelism run one Engine per
// goroutine.
type Engine struct {
	store     *Store
	modifiers *Pipeline
	ctx       *Context
	rng       *random.Source
	maxDepth  int
	analysis  AnalysisOptions
	logger    *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMaxDepth sets the expansion depth limit. Values below MinMaxDepth are ignored.
func WithMaxDepth(n int) Option {
	return func(e *Engine) {
		if n >= types.MinMaxDepth {
			e.maxDepth = n
		}
	}
}

// WithSeed starts the engine in deterministic mode.
func WithSeed(seed int64) Option {
	return func(e *Engine) { e.rng.SetSeed(seed) }
}

// WithAnalysisOptions sets the analyzer bounds.
func WithAnalysisOptions(o AnalysisOptions) Option {
	return func(e *Engine) { e.analysis = o.normalized() }
}

// NewEngine creates an empty engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		store:     NewStore(),
		modifiers: NewPipeline(),
		ctx:       NewContext(),
		rng:       random.New(),
		maxDepth:  types.DefaultMaxDepth,
		analysis:  DefaultAnalysisOptions(),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) add(r Rule, err error) error {
	if err != nil {
		return err
	}
	e.store.Add(r)
	e.logger.Debug("rule registered", "rule", r.Name(), "kind", r.Kind().String())
	return nil
}

// AddRule registers a static rule.
func (e *Engine) AddRule(name string, values []string) error {
	return e.add(NewStaticRule(name, values))
}

// AddFunctionRule registers a function rule.
func (e *Engine) AddFunctionRule(name string, gen Generator) error {
	return e.add(NewFunctionRule(name, gen))
}

// AddWeightedRule registers a weighted rule.
func (e *Engine) AddWeightedRule(name string, values []string, weights []float64) error {
	return e.add(NewWeightedRule(name, values, weights))
}

// AddConditionalRule registers a conditional rule.
func (e *Engine) AddConditionalRule(name string, conditions []Condition) error {
	return e.add(NewConditionalRule(name, conditions))
}

// AddSequentialRule registers a sequential rule.
func (e *Engine) AddSequentialRule(name string, values []string, cycle bool) error {
	return e.add(NewSequentialRule(name, values, cycle))
}

// AddRangeRule registers a range rule.
func (e *Engine) AddRangeRule(name string, lo, hi float64, opts RangeOptions) error {
	return e.add(NewRangeRule(name, lo, hi, opts))
}

// AddTemplateRule registers a template rule.
func (e *Engine) AddTemplateRule(name, template string, variables map[string][]string) error {
	return e.add(NewTemplateRule(name, template, variables))
}

// Register adds prebuilt rules, replacing registrations of the same kind and name.
func (e *Engine) Register(rs ...Rule) {
	for _, r := range rs {
		e.store.Add(r)
	}
	e.logger.Debug("rules registered", "count", len(rs))
}

// Has reports whether name is registered as kind.
func (e *Engine) Has(kind Kind, name string) bool { return e.store.Has(kind, name) }

// Remove deletes the kind registration of name.
func (e *Engine) Remove(kind Kind, name string) bool { return e.store.Remove(kind, name) }

// Clear deletes every rule of kind and returns how many were removed.
func (e *Engine) Clear(kind Kind) int { return e.store.Clear(kind) }

// HasRule reports whether name is registered under any kind.
func (e *Engine) HasRule(name string) bool { return e.store.HasAny(name) }

// RemoveRule deletes name from every kind.
func (e *Engine) RemoveRule(name string) bool { return e.store.RemoveAny(name) }

// ClearAll deletes every rule. Modifiers are kept.
func (e *Engine) ClearAll() {
	e.logger.Debug("clearing all rules", "names", e.store.Len())
	e.store.ClearAll()
}

// RuleKind returns the kind that resolves name.
func (e *Engine) RuleKind(name string) (Kind, bool) { return e.store.KindOf(name) }

// Rule returns the rule of kind registered under name.
func (e *Engine) Rule(kind Kind, name string) (Rule, bool) { return e.store.Get(kind, name) }

// RuleNames returns the sorted names of kind, or every name for KindUnspecified.
func (e *Engine) RuleNames(kind Kind) []string {
	if kind == KindUnspecified {
		return e.store.Names()
	}
	return e.store.NamesOf(kind)
}

// AddModifier registers a modifier, replacing one of the same name.
func (e *Engine) AddModifier(m Modifier) error { return e.modifiers.Add(m) }

// LoadModifiers registers every modifier or none.
func (e *Engine) LoadModifiers(ms []Modifier) error {
	if err := e.modifiers.Load(ms); err != nil {
		return err
	}
	e.logger.Debug("modifiers loaded", "count", len(ms))
	return nil
}

// RemoveModifier deletes the named modifier.
func (e *Engine) RemoveModifier(name string) bool { return e.modifiers.Remove(name) }

// HasModifier reports whether a modifier is registered under name.
func (e *Engine) HasModifier(name string) bool { return e.modifiers.Has(name) }

// ClearModifiers removes every modifier.
func (e *Engine) ClearModifiers() { e.modifiers.Clear() }

// Modifiers returns the registered modifiers in application order.
func (e *Engine) Modifiers() []Modifier { return e.modifiers.Ordered() }

// Parse clears the parse context, expands text and applies modifiers.
func (e *Engine) Parse(text string) (string, error) {
	return e.parse(text, false)
}

// ParsePreserving expands text on top of the context left by earlier parses,
// so back-references can reach values resolved in previous calls.
func (e *Engine) ParsePreserving(text string) (string, error) {
	return e.parse(text, true)
}

func (e *Engine) parse(text string, preserveContext bool) (string, error) {
	if !preserveContext {
		e.ctx.Clear()
	}

	x := &expander{store: e.store, ctx: e.ctx, rng: e.rng, maxDepth: e.maxDepth}
	expanded, err := x.expand(text, 0)
	if err != nil {
		e.logger.Debug("parse failed", "error", err, "max_depth", e.maxDepth)
		return "", err
	}

	if e.modifiers.Len() == 0 {
		return expanded, nil
	}
	return e.modifiers.Apply(expanded, ModifierContext{Input: text, Values: e.ctx.Values()}), nil
}

// SafeParseOptions configures SafeParse.
type SafeParseOptions struct {
	PreserveContext bool
	ValidateFirst   bool
	MaxAttempts     int // DefaultSafeParseAttempts when < 1
}

// SafeParseResult reports the outcome of SafeParse instead of returning an error.
type SafeParseResult struct {
	Success    bool
	Result     string
	Err        error
	Attempts   int
	Validation *ValidationReport // set when ValidateFirst was requested
}

// SafeParse parses text, converting failures into a result.
//
// With ValidateFirst, an invalid grammar fails before any attempt. A
// recursion-limit failure is retried with maxDepth scaled by
// SafeParseDepthFactor, never below SafeParseDepthFloor; other failures are
// not retried. The configured maxDepth is restored afterwards.
func (e *Engine) SafeParse(text string, opts SafeParseOptions) SafeParseResult {
	var result SafeParseResult

	if opts.ValidateFirst {
		report := e.Validate()
		result.Validation = &report
		if !report.IsValid {
			result.Err = report.Err()
			return result
		}
	}

	attempts := opts.MaxAttempts
	if attempts < 1 {
		attempts = types.DefaultSafeParseAttempts
	}

	original := e.maxDepth
	defer func() { e.maxDepth = original }()

	for result.Attempts < attempts {
		result.Attempts++
		out, err := e.parse(text, opts.PreserveContext)
		if err == nil {
			result.Success = true
			result.Result = out
			result.Err = nil
			return result
		}
		result.Err = err
		if !errors.Is(err, types.ErrRecursionLimit) {
			break
		}
		e.maxDepth = shrinkDepth(e.maxDepth)
		e.logger.Debug("retrying parse with reduced depth",
			"attempt", result.Attempts, "max_depth", e.maxDepth)
	}
	return result
}

// shrinkDepth scales depth down, flooring at SafeParseDepthFloor but never
// raising a depth that is already below it.
func shrinkDepth(depth int) int {
	next := int(float64(depth) * types.SafeParseDepthFactor)
	if next < types.SafeParseDepthFloor {
		next = types.SafeParseDepthFloor
	}
	if next > depth {
		next = depth
	}
	return next
}

// ParseBatch parses each text in order. It stops at the first failure,
// returning the results so far and the error.
func (e *Engine) ParseBatch(texts []string, preserveContext bool) ([]string, error) {
	results := make([]string, 0, len(texts))
	for i, text := range texts {
		out, err := e.parse(text, preserveContext)
		if err != nil {
			return results, fmt.Errorf("batch item %d: %w", i, err)
		}
		results = append(results, out)
	}
	return results, nil
}

// GenerateVariations parses text count times with fresh contexts.
func (e *Engine) GenerateVariations(text string, count int) ([]string, error) {
	results := make([]string, 0, max(count, 0))
	for i := 0; i < count; i++ {
		out, err := e.parse(text, false)
		if err != nil {
			return results, fmt.Errorf("variation %d: %w", i, err)
		}
		results = append(results, out)
	}
	return results, nil
}

// GenerateSeededVariations parses text count times, seeding variation i
// with seed+i. The previous seed configuration is restored afterwards.
func (e *Engine) GenerateSeededVariations(text string, count int, seed int64) ([]string, error) {
	prevSeed, seeded := e.rng.Seed()
	defer func() {
		if seeded {
			e.rng.SetSeed(prevSeed)
		} else {
			e.rng.ClearSeed()
		}
	}()

	results := make([]string, 0, max(count, 0))
	for i := 0; i < count; i++ {
		e.rng.SetSeed(seed + int64(i))
		out, err := e.parse(text, false)
		if err != nil {
			return results, fmt.Errorf("variation %d: %w", i, err)
		}
		results = append(results, out)
	}
	return results, nil
}

// SetMaxDepth sets the expansion depth limit.
func (e *Engine) SetMaxDepth(n int) error {
	if n < types.MinMaxDepth {
		return fmt.Errorf("%w: got %d", types.ErrInvalidMaxDepth, n)
	}
	e.maxDepth = n
	return nil
}

// MaxDepth returns the expansion depth limit.
func (e *Engine) MaxDepth() int { return e.maxDepth }

// SetRandomSeed switches to deterministic mode.
func (e *Engine) SetRandomSeed(seed int64) { e.rng.SetSeed(seed) }

// ClearRandomSeed switches back to a non-deterministic source.
func (e *Engine) ClearRandomSeed() { e.rng.ClearSeed() }

// RandomSeed returns the configured seed, if any.
func (e *Engine) RandomSeed() (int64, bool) { return e.rng.Seed() }

// FindVariables returns the unique token names in text.
func (e *Engine) FindVariables(text string) []string { return FindVariables(text) }

// Validate checks the grammar for holes.
func (e *Engine) Validate() ValidationReport { return Validate(e.store) }

// AnalysisOptions returns the analyzer bounds.
func (e *Engine) AnalysisOptions() AnalysisOptions { return e.analysis }

// RuleComplexity computes how many outputs name can produce.
func (e *Engine) RuleComplexity(name string) (ComplexityResult, error) {
	return Complexity(e.store, name, e.analysis)
}

// TotalComplexity aggregates complexity over every rule.
func (e *Engine) TotalComplexity() TotalComplexityResult {
	return TotalComplexity(e.store, e.analysis)
}

// Probabilities computes the output distribution of name.
func (e *Engine) Probabilities(name string) (ProbabilityResult, error) {
	return Probabilities(e.store, name, e.analysis)
}

// MostProbableOutcome returns the likeliest output of name.
// ok is false when the rule has no outcomes.
func (e *Engine) MostProbableOutcome(name string) (Outcome, bool, error) {
	p, err := e.Probabilities(name)
	if err != nil || p.TotalOutcomes == 0 {
		return Outcome{}, false, err
	}
	return p.MostProbable, true, nil
}

// LeastProbableOutcome returns the least likely output of name.
func (e *Engine) LeastProbableOutcome(name string) (Outcome, bool, error) {
	p, err := e.Probabilities(name)
	if err != nil || p.TotalOutcomes == 0 {
		return Outcome{}, false, err
	}
	return p.LeastProbable, true, nil
}

// Stats summarizes the engine configuration.
type Stats struct {
	Rules       map[Kind]int
	TotalRules  int // registrations across all kinds
	Names       int // distinct names
	Modifiers   int
	MaxDepth    int
	Seeded      bool
	Seed        int64
	ContextSize int
}

// Stats returns counts by rule kind and the current configuration.
func (e *Engine) Stats() Stats {
	s := Stats{
		Rules:       make(map[Kind]int, len(resolutionOrder)),
		Names:       e.store.Len(),
		Modifiers:   e.modifiers.Len(),
		MaxDepth:    e.maxDepth,
		ContextSize: e.ctx.Len(),
	}
	for _, k := range resolutionOrder {
		n := e.store.Count(k)
		s.Rules[k] = n
		s.TotalRules += n
	}
	s.Seed, s.Seeded = e.rng.Seed()
	return s
}

// ResetSequentialRule rewinds the named sequential rule.
func (e *Engine) ResetSequentialRule(name string) bool {
	r, ok := e.store.Get(KindSequential, name)
	if !ok {
		return false
	}
	r.(*SequentialRule).Reset()
	return true
}

// ResetSequentialRules rewinds every sequential rule.
func (e *Engine) ResetSequentialRules() {
	names := e.store.NamesOf(KindSequential)
	for _, name := range names {
		e.ResetSequentialRule(name)
	}
	e.logger.Debug("sequential rules reset", "count", len(names))
}

// ClearContext drops every value recorded by earlier parses.
func (e *Engine) ClearContext() { e.ctx.Clear() }

// ContextValues returns a copy of the parse context.
func (e *Engine) ContextValues() map[string]string { return e.ctx.Values() }
