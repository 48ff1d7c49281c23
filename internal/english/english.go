// Package english provides built-in text modifiers for English output.
//
// Every modifier is a rules.Modifier ready to register on an engine. Grammar
// documents enable them by name through the registry in registry.go.
//
// Default priorities run cleanup before casing:
//
//	collapse-whitespace 100
//	articles             90
//	ordinals             80
//	sentence-case        50
//	capitalize           40
//	title-case           30
package english

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/solatis/wordloom/internal/rules"
)

// Modifier names.
const (
	CollapseWhitespace = "collapse-whitespace"
	Articles           = "articles"
	Ordinals           = "ordinals"
	SentenceCase       = "sentence-case"
	Capitalize         = "capitalize"
	TitleCase          = "title-case"
)

var (
	spaceRun    = regexp.MustCompile(`[ \t]+`)
	spaceBefore = regexp.MustCompile(`[ \t]+([,.;:!?])`)

	// an article followed by the next word
	articleWord = regexp.MustCompile(`\b([Aa]n?) +([A-Za-z0-9][\w'-]*)`)

	// an integer followed by an ordinal suffix, possibly the wrong one
	ordinalWord = regexp.MustCompile(`\b(\d+)(st|nd|rd|th)\b`)

	sentenceEnd = regexp.MustCompile(`([.!?])(\s+)(\p{Ll})`)
)

// smallWords stay lower case inside titles.
var smallWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "but": true, "or": true,
	"nor": true, "of": true, "in": true, "on": true, "at": true, "to": true,
	"by": true, "for": true, "with": true,
}

// NewCollapseWhitespace trims the text, squeezes runs of spaces and removes
// spaces before punctuation. Empty expansions tend to leave both behind.
func NewCollapseWhitespace() rules.Modifier {
	return rules.Modifier{
		Name:     CollapseWhitespace,
		Priority: 100,
		Transform: func(text string, _ rules.ModifierContext) string {
			text = spaceRun.ReplaceAllString(text, " ")
			text = spaceBefore.ReplaceAllString(text, "$1")
			return strings.TrimSpace(text)
		},
	}
}

// NewArticles picks "a" or "an" from the sound of the following word.
func NewArticles() rules.Modifier {
	return rules.Modifier{
		Name:      Articles,
		Priority:  90,
		Condition: func(text string, _ rules.ModifierContext) bool { return articleWord.MatchString(text) },
		Transform: func(text string, _ rules.ModifierContext) string {
			return articleWord.ReplaceAllStringFunc(text, func(m string) string {
				parts := articleWord.FindStringSubmatch(m)
				article, word := parts[1], parts[2]
				want := "a"
				if startsWithVowelSound(word) {
					want = "an"
				}
				if unicode.IsUpper(rune(article[0])) {
					want = strings.ToUpper(want[:1]) + want[1:]
				}
				return want + " " + word
			})
		},
	}
}

// vowel-letter words pronounced with a leading consonant, and the reverse
var (
	consonantSoundPrefixes = []string{"uni", "use", "usu", "uti", "eu", "one", "once", "ubi", "ure"}
	vowelSoundPrefixes     = []string{"hour", "honest", "honor", "honour", "heir"}
)

func startsWithVowelSound(word string) bool {
	lower := strings.ToLower(word)
	for _, p := range vowelSoundPrefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	for _, p := range consonantSoundPrefixes {
		if strings.HasPrefix(lower, p) {
			return false
		}
	}
	if lower[0] >= '0' && lower[0] <= '9' {
		// eight, eighty, eight hundred, eleven, eighteen
		return lower[0] == '8' || lower == "11" || lower == "18"
	}
	return strings.ContainsRune("aeiou", rune(lower[0]))
}

// NewOrdinals corrects ordinal suffixes on integers, so a grammar can write
// "%day%th" and get "1st", "22nd" or "13th".
func NewOrdinals() rules.Modifier {
	return rules.Modifier{
		Name:      Ordinals,
		Priority:  80,
		Condition: func(text string, _ rules.ModifierContext) bool { return ordinalWord.MatchString(text) },
		Transform: func(text string, _ rules.ModifierContext) string {
			return ordinalWord.ReplaceAllStringFunc(text, func(m string) string {
				parts := ordinalWord.FindStringSubmatch(m)
				n, err := strconv.Atoi(parts[1])
				if err != nil {
					return m
				}
				return parts[1] + OrdinalSuffix(n)
			})
		},
	}
}

// OrdinalSuffix returns "st", "nd", "rd" or "th" for n.
func OrdinalSuffix(n int) string {
	if n < 0 {
		n = -n
	}
	switch n % 100 {
	case 11, 12, 13:
		return "th"
	}
	switch n % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	default:
		return "th"
	}
}

// NewSentenceCase upper-cases the first letter of the text and of every
// sentence that follows a terminal punctuation mark.
func NewSentenceCase() rules.Modifier {
	return rules.Modifier{
		Name:     SentenceCase,
		Priority: 50,
		Transform: func(text string, _ rules.ModifierContext) string {
			text = upperFirst(text)
			return sentenceEnd.ReplaceAllStringFunc(text, func(m string) string {
				parts := sentenceEnd.FindStringSubmatch(m)
				return parts[1] + parts[2] + strings.ToUpper(parts[3])
			})
		},
	}
}

// NewCapitalize upper-cases the first letter of the text.
func NewCapitalize() rules.Modifier {
	return rules.Modifier{
		Name:     Capitalize,
		Priority: 40,
		Condition: func(text string, _ rules.ModifierContext) bool {
			r, _ := utf8.DecodeRuneInString(text)
			return unicode.IsLower(r)
		},
		Transform: func(text string, _ rules.ModifierContext) string { return upperFirst(text) },
	}
}

// NewTitleCase capitalizes every word except short function words in the middle.
func NewTitleCase() rules.Modifier {
	return rules.Modifier{
		Name:     TitleCase,
		Priority: 30,
		Transform: func(text string, _ rules.ModifierContext) string {
			words := strings.Fields(text)
			for i, w := range words {
				if i > 0 && i < len(words)-1 && smallWords[strings.ToLower(w)] {
					words[i] = strings.ToLower(w)
					continue
				}
				words[i] = upperFirst(w)
			}
			return strings.Join(words, " ")
		},
	}
}

// upperFirst upper-cases the first rune.
func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError || !unicode.IsLower(r) {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
