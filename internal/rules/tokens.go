// internal/rules/tokens.go
package rules

import (
	"regexp"
	"strings"
)

/*
 * Token scanning.
 *
 * A token is %name% where name is any run of characters other than '%'.
 * %@name% is a back-reference to the parse context. There is no escape for a
 * literal '%'; text that does not form a token passes through untouched.
 *
 * Scanning is left-to-right and non-overlapping, and replacement text is never
 * re-scanned at the same level. Recursion into replacement text is the
 * expander's job, where it is bounded by max depth.
 */

var tokenPattern = regexp.MustCompile(`%([^%]+)%`)

// backrefPrefix marks a back-reference token.
const backrefPrefix = "@"

// token is one %name% occurrence in a text.
type token struct {
	start   int    // byte offset of the opening '%'
	end     int    // byte offset after the closing '%'
	raw     string // the full token including delimiters
	name    string // name with any back-reference prefix stripped
	backref bool
}

// scanTokens returns every token in text, in order.
func scanTokens(text string) []token {
	matches := tokenPattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return nil
	}
	tokens := make([]token, 0, len(matches))
	for _, m := range matches {
		name := text[m[2]:m[3]]
		tok := token{start: m[0], end: m[1], raw: text[m[0]:m[1]], name: name}
		if strings.HasPrefix(name, backrefPrefix) {
			tok.backref = true
			tok.name = strings.TrimPrefix(name, backrefPrefix)
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// replaceFunc returns the replacement for a token. ok=false leaves the token as is.
type replaceFunc func(tok token) (replacement string, ok bool, err error)

// replaceTokens rebuilds text with every token passed through fn.
// The first error aborts the scan.
func replaceTokens(text string, fn replaceFunc) (string, error) {
	tokens := scanTokens(text)
	if len(tokens) == 0 {
		return text, nil
	}

	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, tok := range tokens {
		b.WriteString(text[last:tok.start])
		replacement, ok, err := fn(tok)
		if err != nil {
			return "", err
		}
		if ok {
			b.WriteString(replacement)
		} else {
			b.WriteString(tok.raw)
		}
		last = tok.end
	}
	b.WriteString(text[last:])
	return b.String(), nil
}

// referencedNames returns the unique forward-reference names in text, in order
// of first appearance. Back-references are skipped.
func referencedNames(text string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, tok := range scanTokens(text) {
		if tok.backref || tok.name == "" || seen[tok.name] {
			continue
		}
		seen[tok.name] = true
		names = append(names, tok.name)
	}
	return names
}

// FindVariables returns the unique token names in text in order of first
// appearance, with the back-reference prefix stripped.
func FindVariables(text string) []string {
	names := []string{}
	seen := make(map[string]bool)
	for _, tok := range scanTokens(text) {
		if tok.name == "" || seen[tok.name] {
			continue
		}
		seen[tok.name] = true
		names = append(names, tok.name)
	}
	return names
}
