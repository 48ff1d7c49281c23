// internal/rules/resolve.go
package rules

import (
	"fmt"

	"github.com/solatis/wordloom/internal/random"
	"github.com/solatis/wordloom/internal/types"
)

/*
 * Rule resolution.
 *
 * Resolve picks one raw value for a name. It does not expand tokens inside
 * the value; expand.go recurses into the result.
 *
 * Dispatch priority (first occupant wins):
 *   function -> conditional -> sequential -> range -> template -> weighted -> static
 *
 * Outcomes:
 *   - ok=false, err=nil: name unknown, or a function/static rule with no
 *     values. The caller leaves the token in place.
 *   - err != nil: function generator failure (ErrFunctionRule) or a
 *     conditional with no matching branch and no default
 *     (ErrNoConditionMatched). Both are fatal to the parse.
 *
 * Side effects: sequential rules advance their index; every kind except
 * sequential draws from rng.
 */

// Resolve returns a raw value for name using the fixed priority order.
func (s *Store) Resolve(name string, ctx *Context, rng *random.Source) (string, bool, error) {
	rule, ok := s.Lookup(name)
	if !ok {
		return "", false, nil
	}

	switch r := rule.(type) {
	case *FunctionRule:
		return resolveFunction(r, rng)
	case *ConditionalRule:
		return resolveConditional(r, ctx, rng)
	case *SequentialRule:
		return r.next(), true, nil
	case *RangeRule:
		return sampleRange(r, rng), true, nil
	case *TemplateRule:
		v, err := renderTemplate(r, rng)
		if err != nil {
			return "", false, err
		}
		return v, true, nil
	case *WeightedRule:
		return choose(random.WeightedChoice(rng, r.Values, r.Cumulative))
	case *StaticRule:
		return choose(random.Choice(rng, r.Values))
	default:
		return "", false, nil
	}
}

// choose maps an empty-list choice to "unresolved" rather than an error.
func choose(v string, err error) (string, bool, error) {
	if err != nil {
		return "", false, nil
	}
	return v, true, nil
}

// resolveFunction invokes the generator; its values are never cached.
func resolveFunction(r *FunctionRule, rng *random.Source) (string, bool, error) {
	values, err := r.Generator.Generate()
	if err != nil {
		return "", false, fmt.Errorf("%w %q: %w", types.ErrFunctionRule, r.name, err)
	}
	return choose(random.Choice(rng, values))
}

// resolveConditional evaluates predicates in order and falls back to the default.
func resolveConditional(r *ConditionalRule, ctx *Context, rng *random.Source) (string, bool, error) {
	for _, c := range r.Conditions {
		if c.Default {
			continue
		}
		if c.When(ctx) {
			return choose(random.Choice(rng, c.Values))
		}
	}
	if def, ok := r.defaultBranch(); ok {
		return choose(random.Choice(rng, def.Values))
	}
	return "", false, fmt.Errorf("%w: conditional rule %q", types.ErrNoConditionMatched, r.name)
}

// sampleRange draws a value from a range rule.
// Stepped ranges and unstepped integer ranges pick one of Steps() discrete
// points; unstepped float ranges sample [min, max).
func sampleRange(r *RangeRule, rng *random.Source) string {
	if r.discrete() {
		return r.valueAt(rng.Intn(0, r.Steps()))
	}
	return r.format(r.Min + rng.Float64()*(r.Max-r.Min))
}

// renderTemplate substitutes the template's own tokens from its local
// variables only. Back-references and names without a local variable are
// left for global expansion.
func renderTemplate(r *TemplateRule, rng *random.Source) (string, error) {
	return replaceTokens(r.Template, func(tok token) (string, bool, error) {
		if tok.backref {
			return "", false, nil
		}
		values, ok := r.Variables[tok.name]
		if !ok {
			return "", false, nil
		}
		v, err := random.Choice(rng, values)
		if err != nil {
			return "", false, nil
		}
		return v, true, nil
	})
}
