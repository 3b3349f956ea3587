package convention

import "strings"

// Pluralize returns the English plural of word. Irregular forms come from a
// fixed table; the case of the first letter is kept.
func Pluralize(word string) string {
	if word == "" {
		return ""
	}
	lower := strings.ToLower(word)
	if plural, ok := irregularPlurals[lower]; ok {
		return matchInitial(word, plural)
	}

	switch {
	case hasAnySuffix(lower, "s", "x", "z", "ch", "sh"):
		return word + "es"
	case strings.HasSuffix(lower, "y") && len(lower) > 1 && !isVowel(rune(lower[len(lower)-2])):
		return word[:len(word)-1] + "ies"
	case strings.HasSuffix(lower, "fe"):
		return word[:len(word)-2] + "ves"
	case strings.HasSuffix(lower, "f"):
		return word[:len(word)-1] + "ves"
	}
	return word + "s"
}

// Singularize reverses Pluralize.
func Singularize(word string) string {
	if word == "" {
		return ""
	}
	lower := strings.ToLower(word)
	if singular, ok := irregularSingulars[lower]; ok {
		return matchInitial(word, singular)
	}

	switch {
	case strings.HasSuffix(lower, "ies"):
		return word[:len(word)-3] + "y"
	case strings.HasSuffix(lower, "ves"):
		return word[:len(word)-3] + "f"
	case hasAnySuffix(lower, "ses", "xes", "zes", "ches", "shes"):
		return word[:len(word)-2]
	case strings.HasSuffix(lower, "s") && !strings.HasSuffix(lower, "ss"):
		return word[:len(word)-1]
	}
	return word
}

func hasAnySuffix(s string, suffixes ...string) bool {
	for _, suffix := range suffixes {
		if strings.HasSuffix(s, suffix) {
			return true
		}
	}
	return false
}

func matchInitial(word, replacement string) string {
	if word[0] >= 'A' && word[0] <= 'Z' {
		return strings.ToUpper(replacement[:1]) + replacement[1:]
	}
	return replacement
}

func isVowel(r rune) bool {
	return strings.ContainsRune("aeiouAEIOU", r)
}

var irregularPlurals = map[string]string{
	"person":   "people",
	"man":      "men",
	"woman":    "women",
	"child":    "children",
	"foot":     "feet",
	"tooth":    "teeth",
	"goose":    "geese",
	"mouse":    "mice",
	"ox":       "oxen",
	"index":    "indices",
	"matrix":   "matrices",
	"vertex":   "vertices",
	"analysis": "analyses",
	"crisis":   "crises",
	"datum":    "data",
	"medium":   "media",
	"schema":   "schemas",
	"status":   "statuses",
}

var irregularSingulars = func() map[string]string {
	m := make(map[string]string, len(irregularPlurals))
	for singular, plural := range irregularPlurals {
		m[plural] = singular
	}
	return m
}()
