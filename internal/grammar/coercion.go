// internal/grammar/coercion.go
package grammar

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/solatis/wordloom/internal/types"
)

/*
 * Scalar coercion for grammar documents.
 *
 * YAML and JSON decode rule outcomes and condition operands into Go scalars:
 * yaml.v3 produces int, int64, uint64, float64 and bool; encoding/json
 * produces float64 and bool. Rule outcomes are always text, and condition
 * operands are compared against parse context values, which are text too.
 *
 * Modes:
 *   - text: lenient, every scalar formats to its canonical string
 *   - numeric: strict, numbers and trimmed numeric strings only; booleans
 *     are rejected
 *
 * Null, maps and lists are never valid outcomes (ErrCoercionFailed).
 */

// toText converts a decoded scalar to its text form.
func toText(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case uint64:
		return strconv.FormatUint(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), nil
	case bool:
		return strconv.FormatBool(v), nil
	case nil:
		return "", fmt.Errorf("%w: null value", types.ErrCoercionFailed)
	default:
		return "", fmt.Errorf("%w: %T is not a scalar", types.ErrCoercionFailed, value)
	}
}

// toTexts converts a decoded list of scalars, naming the offending index on failure.
func toTexts(values []any) ([]string, error) {
	out := make([]string, len(values))
	for i, v := range values {
		s, err := toText(v)
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", i, err)
		}
		out[i] = s
	}
	return out, nil
}

// toNumber converts a decoded scalar or numeric string to float64.
// Whitespace-only strings and booleans are not numbers.
func toNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint64:
		return float64(v), true
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// fromTexts converts rule values back to document values.
func fromTexts(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
