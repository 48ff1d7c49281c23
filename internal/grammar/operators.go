// internal/grammar/operators.go
package grammar

import (
	"fmt"
	"strings"

	"github.com/solatis/wordloom/internal/rules"
	"github.com/solatis/wordloom/internal/types"
)

/*
 * Declarative conditions.
 *
 * A conditional branch in a document is {rule, op, value|values}. It compiles
 * to a rules.Predicate that reads the named entry of the parse context.
 *
 * Operators:
 *   - exists: the rule has been resolved in this parse
 *   - eq/neq: numeric equality when both sides are numbers, text otherwise
 *   - lt/lte/gt/gte: numeric only; non-numeric operands never match
 *   - prefix/suffix: text matching
 *   - in: eq against any member of values
 *
 * Every operator except exists is false when the rule has not been resolved,
 * neq included. Targets are coerced once at compile time.
 */

// Operator is a comparison applied to a parse context value.
type Operator int

const (
	OpUnspecified Operator = iota
	OpExists
	OpEq
	OpNeq
	OpLt
	OpLte
	OpGt
	OpGte
	OpPrefix
	OpSuffix
	OpIn
)

var operatorNames = map[string]Operator{
	"exists": OpExists,
	"eq":     OpEq,
	"neq":    OpNeq,
	"lt":     OpLt,
	"lte":    OpLte,
	"gt":     OpGt,
	"gte":    OpGte,
	"prefix": OpPrefix,
	"suffix": OpSuffix,
	"in":     OpIn,
}

// ParseOperator resolves an operator name, case-insensitively.
func ParseOperator(s string) (Operator, error) {
	op, ok := operatorNames[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return OpUnspecified, fmt.Errorf("%w: %q", types.ErrInvalidOperator, s)
	}
	return op, nil
}

func (o Operator) String() string {
	for name, op := range operatorNames {
		if op == o {
			return name
		}
	}
	return "unspecified"
}

// operand is a compile-time coerced comparison target.
type operand struct {
	text      string
	number    float64
	isNumeric bool
}

func newOperand(v any) (operand, error) {
	text, err := toText(v)
	if err != nil {
		return operand{}, err
	}
	n, ok := toNumber(v)
	return operand{text: text, number: n, isNumeric: ok}, nil
}

// CompilePredicate builds a predicate from its declarative form.
func CompilePredicate(def *types.PredicateDefinition) (rules.Predicate, error) {
	if def == nil {
		return nil, fmt.Errorf("%w: missing predicate", types.ErrInvalidCondition)
	}
	if def.Rule == "" {
		return nil, fmt.Errorf("%w: predicate has no rule", types.ErrInvalidCondition)
	}
	op, err := ParseOperator(def.Op)
	if err != nil {
		return nil, err
	}

	name := def.Rule
	switch op {
	case OpExists:
		return func(ctx *rules.Context) bool { return ctx.Has(name) }, nil

	case OpIn:
		if len(def.Values) == 0 {
			return nil, fmt.Errorf("%w: %q needs values", types.ErrInvalidCondition, op)
		}
		set := make([]operand, len(def.Values))
		for i, v := range def.Values {
			if set[i], err = newOperand(v); err != nil {
				return nil, fmt.Errorf("%w: in value %d: %w", types.ErrInvalidCondition, i, err)
			}
		}
		return func(ctx *rules.Context) bool {
			v, ok := ctx.Get(name)
			if !ok {
				return false
			}
			for _, target := range set {
				if equal(v, target) {
					return true
				}
			}
			return false
		}, nil

	default:
		if def.Value == nil {
			return nil, fmt.Errorf("%w: %q needs a value", types.ErrInvalidCondition, op)
		}
		target, err := newOperand(def.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", types.ErrInvalidCondition, err)
		}
		return func(ctx *rules.Context) bool {
			v, ok := ctx.Get(name)
			if !ok {
				return false
			}
			return compare(op, v, target)
		}, nil
	}
}

// compare applies a binary operator to a context value.
func compare(op Operator, value string, target operand) bool {
	switch op {
	case OpEq:
		return equal(value, target)
	case OpNeq:
		return !equal(value, target)
	case OpLt, OpLte, OpGt, OpGte:
		n, ok := toNumber(value)
		if !ok || !target.isNumeric {
			return false
		}
		switch op {
		case OpLt:
			return n < target.number
		case OpLte:
			return n <= target.number
		case OpGt:
			return n > target.number
		default:
			return n >= target.number
		}
	case OpPrefix:
		return strings.HasPrefix(value, target.text)
	case OpSuffix:
		return strings.HasSuffix(value, target.text)
	default:
		return false
	}
}

// equal compares numerically when both sides are numbers, so "5" equals 5.0.
func equal(value string, target operand) bool {
	if target.isNumeric {
		if n, ok := toNumber(value); ok {
			return n == target.number
		}
	}
	return value == target.text
}
