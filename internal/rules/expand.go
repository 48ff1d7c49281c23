// internal/rules/expand.go
package rules

import (
	"fmt"

	"github.com/solatis/wordloom/internal/random"
	"github.com/solatis/wordloom/internal/types"
)

/*
 * Recursive token expansion.
 *
 * Expansion flow for each token, left to right:
 *   1. %@name%: replay the context value verbatim (no recursion); leave the
 *      token when name has not been resolved in this parse
 *   2. %name%: Resolve via the store; leave the token when unresolved
 *   3. record the raw value under name, expand it at depth+1, then overwrite
 *      the record with the fully expanded text and substitute it
 *
 * Recording the raw value first lets conditional rules nested inside the
 * value see which branch was taken; overwriting afterwards means
 * back-references always replay finalized text.
 *
 * Depth bound: checked on entry before any scanning, so a self-referencing
 * rule fails after maxDepth levels instead of looping.
 */

// expander carries the per-parse state of one expansion.
type expander struct {
	store    *Store
	ctx      *Context
	rng      *random.Source
	maxDepth int
}

// expand replaces every token in text, recursing into resolved values.
func (x *expander) expand(text string, depth int) (string, error) {
	if depth >= x.maxDepth {
		return "", fmt.Errorf("%w: depth %d reached limit %d", types.ErrRecursionLimit, depth, x.maxDepth)
	}

	return replaceTokens(text, func(tok token) (string, bool, error) {
		if tok.backref {
			v, ok := x.ctx.Get(tok.name)
			return v, ok, nil
		}

		value, ok, err := x.store.Resolve(tok.name, x.ctx, x.rng)
		if err != nil || !ok {
			return "", false, err
		}

		x.ctx.Set(tok.name, value)
		expanded, err := x.expand(value, depth+1)
		if err != nil {
			return "", false, err
		}
		x.ctx.Set(tok.name, expanded)
		return expanded, true, nil
	})
}
