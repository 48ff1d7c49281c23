// internal/types/rules.go
package types

/*
 * Wire-agnostic rule definitions.
 *
 * Provides the data-only shape of every rule kind that can be written down:
 * grammar documents (internal/grammar), the SQL store (internal/core/grammars)
 * and the gRPC layer (internal/core/api) all exchange these. Function rules
 * and arbitrary Go predicates have no data form and never appear here.
 *
 * Values are []any because YAML/JSON documents carry numbers and booleans as
 * rule outcomes; internal/grammar coerces them to text before registration.
 *
 * Dependencies: None (standard library only)
 */

// PredicateDefinition is a declarative condition over the parse context.
// Rule names the context entry; Op is one of eq, neq, lt, lte, gt, gte,
// prefix, suffix, in, exists.
type PredicateDefinition struct {
	Rule   string `yaml:"rule" json:"rule"`
	Op     string `yaml:"op" json:"op"`
	Value  any    `yaml:"value,omitempty" json:"value,omitempty"`
	Values []any  `yaml:"values,omitempty" json:"values,omitempty"`
}

// ConditionDefinition is one branch of a conditional rule.
// Exactly one of When or Default must be set.
type ConditionDefinition struct {
	When    *PredicateDefinition `yaml:"when,omitempty" json:"when,omitempty"`
	Default bool                 `yaml:"default,omitempty" json:"default,omitempty"`
	Values  []any                `yaml:"values" json:"values"`
}

// WeightedDefinition pairs values with probabilities summing to 1.0.
type WeightedDefinition struct {
	Values  []any     `yaml:"values" json:"values"`
	Weights []float64 `yaml:"weights" json:"weights"`
}

// SequentialDefinition lists values returned in order.
// Cycle defaults to true when omitted.
type SequentialDefinition struct {
	Values []any `yaml:"values" json:"values"`
	Cycle  *bool `yaml:"cycle,omitempty" json:"cycle,omitempty"`
}

// RangeDefinition describes a numeric range rule.
// Type is "integer" (default) or "float".
type RangeDefinition struct {
	Min      float64  `yaml:"min" json:"min"`
	Max      float64  `yaml:"max" json:"max"`
	Step     *float64 `yaml:"step,omitempty" json:"step,omitempty"`
	Type     string   `yaml:"type,omitempty" json:"type,omitempty"`
	Decimals *int     `yaml:"decimals,omitempty" json:"decimals,omitempty"`
}

// TemplateDefinition is a template string with locally scoped variables.
type TemplateDefinition struct {
	Template  string           `yaml:"template" json:"template"`
	Variables map[string][]any `yaml:"variables" json:"variables"`
}

// ModifierDefinition enables a built-in modifier by name.
// Priority overrides the built-in default when set.
type ModifierDefinition struct {
	Name     string `yaml:"name" json:"name"`
	Priority *int   `yaml:"priority,omitempty" json:"priority,omitempty"`
}

// Settings carries engine configuration stored alongside a grammar.
type Settings struct {
	MaxDepth int    `yaml:"max_depth,omitempty" json:"max_depth,omitempty"`
	Seed     *int64 `yaml:"seed,omitempty" json:"seed,omitempty"`
}
