// Package convention holds the naming conventions used by built-in string
// items: word splitting, case conversion and English pluralization.
package convention

import (
	"strings"
	"unicode"
)

// Words splits s into words at separators (space, underscore, hyphen, dot),
// at lower-to-upper transitions and before the last capital of an acronym:
// "HTTPServer_id" gives ["HTTP", "Server", "id"].
func Words(s string) []string {
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, string(cur))
			cur = cur[:0]
		}
	}

	runes := []rune(s)
	for i, r := range runes {
		if isSeparator(r) {
			flush()
			continue
		}
		if unicode.IsUpper(r) && len(cur) > 0 {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				flush()
			}
		}
		cur = append(cur, r)
	}
	flush()
	return words
}

func isSeparator(r rune) bool {
	return r == '_' || r == '-' || r == '.' || unicode.IsSpace(r)
}

// WordCase returns the lower-cased words of s joined by spaces.
func WordCase(s string) string {
	words := Words(s)
	for i, w := range words {
		words[i] = strings.ToLower(w)
	}
	return strings.Join(words, " ")
}

// TitleCase capitalizes every word: "foo_bar" gives "Foo Bar".
func TitleCase(s string) string {
	words := Words(s)
	for i, w := range words {
		words[i] = capitalize(strings.ToLower(w))
	}
	return strings.Join(words, " ")
}

// SentenceCase capitalizes the first word only: "fooBar" gives "Foo bar".
func SentenceCase(s string) string {
	return capitalize(WordCase(s))
}

// SnakeCase joins lower-cased words with underscores.
func SnakeCase(s string) string {
	return strings.ReplaceAll(WordCase(s), " ", "_")
}

func capitalize(s string) string {
	for i, r := range s {
		return string(unicode.ToUpper(r)) + s[i+len(string(r)):]
	}
	return s
}
