// internal/grammar/path.go
package grammar

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/solatis/wordloom/internal/types"
)

/*
 * Root paths into decoded documents.
 *
 * A grammar may live inside a larger config file. A root path such as
 * "services.story.grammar" or "grammars[1]" selects it: dot-separated object
 * keys, each optionally followed by one or more [n] array indices.
 *
 * Key functions:
 *   - ParsePath: text form to []types.PathSegment, bounded by MaxPathDepth
 *   - ResolvePath: walks decoded YAML/JSON (map[string]any / []any)
 */

// ParsePath splits a root path into segments. The empty path selects the whole document.
func ParsePath(path string) ([]types.PathSegment, error) {
	if path == "" {
		return nil, nil
	}

	var segs []types.PathSegment
	for _, part := range strings.Split(path, ".") {
		key := part
		var indices []int
		if i := strings.IndexByte(part, '['); i >= 0 {
			key = part[:i]
			rest := part[i:]
			for rest != "" {
				if rest[0] != '[' {
					return nil, fmt.Errorf("invalid path %q: unexpected %q", path, rest)
				}
				end := strings.IndexByte(rest, ']')
				if end < 0 {
					return nil, fmt.Errorf("invalid path %q: unclosed index", path)
				}
				n, err := strconv.Atoi(rest[1:end])
				if err != nil || n < 0 {
					return nil, fmt.Errorf("invalid path %q: bad index %q", path, rest[1:end])
				}
				indices = append(indices, n)
				rest = rest[end+1:]
			}
		}
		if key == "" && len(indices) == 0 {
			return nil, fmt.Errorf("invalid path %q: empty segment", path)
		}
		if key != "" {
			segs = append(segs, types.PathSegment{Key: key})
		}
		for _, n := range indices {
			segs = append(segs, types.PathSegment{Index: n, IsIndex: true})
		}
	}

	if len(segs) > types.MaxPathDepth {
		return nil, fmt.Errorf("%w: %d segments", types.ErrPathTooDeep, len(segs))
	}
	return segs, nil
}

// ResolvePath walks data along path.
// Returns ErrFieldNotFound naming the first segment that does not resolve.
func ResolvePath(path []types.PathSegment, data any) (any, error) {
	if len(path) > types.MaxPathDepth {
		return nil, types.ErrPathTooDeep
	}

	current := data
	for i, seg := range path {
		switch v := current.(type) {
		case map[string]any:
			if seg.IsIndex {
				return nil, fmt.Errorf("%w: segment %d indexes an object", types.ErrFieldNotFound, i)
			}
			next, ok := v[seg.Key]
			if !ok {
				return nil, fmt.Errorf("%w: %q", types.ErrFieldNotFound, seg.Key)
			}
			current = next
		case []any:
			if !seg.IsIndex {
				return nil, fmt.Errorf("%w: segment %d keys a list", types.ErrFieldNotFound, i)
			}
			if seg.Index < 0 || seg.Index >= len(v) {
				return nil, fmt.Errorf("%w: index %d out of range", types.ErrFieldNotFound, seg.Index)
			}
			current = v[seg.Index]
		default:
			// Scalar or null but path continues
			return nil, fmt.Errorf("%w: segment %d", types.ErrFieldNotFound, i)
		}
	}
	return current, nil
}

// FormatPath renders segments back to their text form.
func FormatPath(path []types.PathSegment) string {
	var b strings.Builder
	for i, seg := range path {
		if seg.IsIndex {
			b.WriteString("[" + strconv.Itoa(seg.Index) + "]")
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(seg.Key)
	}
	return b.String()
}
