package english

import (
	"fmt"
	"sort"

	"github.com/solatis/wordloom/internal/rules"
	"github.com/solatis/wordloom/internal/types"
)

// builtins maps modifier names to constructors.
var builtins = map[string]func() rules.Modifier{
	CollapseWhitespace: NewCollapseWhitespace,
	Articles:           NewArticles,
	Ordinals:           NewOrdinals,
	SentenceCase:       NewSentenceCase,
	Capitalize:         NewCapitalize,
	TitleCase:          NewTitleCase,
}

// Lookup returns a fresh built-in modifier by name.
func Lookup(name string) (rules.Modifier, error) {
	ctor, ok := builtins[name]
	if !ok {
		return rules.Modifier{}, fmt.Errorf("%w: %q", types.ErrUnknownModifier, name)
	}
	return ctor(), nil
}

// IsBuiltin reports whether name is a built-in modifier.
func IsBuiltin(name string) bool {
	_, ok := builtins[name]
	return ok
}

// Names returns every built-in modifier name, sorted.
func Names() []string {
	names := make([]string, 0, len(builtins))
	for n := range builtins {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Defaults returns the modifiers most English grammars want: whitespace
// cleanup, article correction, ordinals and sentence case.
func Defaults() []rules.Modifier {
	return []rules.Modifier{
		NewCollapseWhitespace(),
		NewArticles(),
		NewOrdinals(),
		NewSentenceCase(),
	}
}
