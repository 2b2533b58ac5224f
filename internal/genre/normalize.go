package genre

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultGenre is assigned to tracks that no stage could resolve.
const DefaultGenre = "Pop"

// unknownLabel is the display label for a blank genre.
const unknownLabel = "Unknown"

var placeholders = map[string]struct{}{
	"unknown":       {},
	"unknown genre": {},
	"n/a":           {},
	"none":          {},
	"misc":          {},
	"other":         {},
	"tbd":           {},
	"???":           {},
}

// toLower builds a fresh Caser per call; a Caser must not be shared between goroutines.
func toLower(s string) string {
	return cases.Lower(language.Und).String(s)
}

// Normalize canonicalizes raw into its display form. The boolean is false when raw is blank or a placeholder.
func Normalize(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}
	if _, ok := placeholders[toLower(trimmed)]; ok {
		return "", false
	}
	return titleWords(trimmed), true
}

// Ensure returns the normalized genre or [DefaultGenre].
func Ensure(raw string) string {
	if g, ok := Normalize(raw); ok {
		return g
	}
	return DefaultGenre
}

// Key returns the comparison key for a genre. Never display it.
func Key(raw string) string {
	return toLower(Ensure(raw))
}

// IsMissing reports whether raw normalizes to nothing.
func IsMissing(raw string) bool {
	_, ok := Normalize(raw)
	return !ok
}

// Label formats a genre for naming without consulting the placeholder list; blank input becomes "Unknown".
func Label(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return unknownLabel
	}
	return titleWords(trimmed)
}

// Labels applies [Label] to each genre.
func Labels(raw []string) []string {
	out := make([]string, len(raw))
	for i, g := range raw {
		out[i] = Label(g)
	}
	return out
}

// titleWords upper-cases the first rune of each whitespace-separated word and lower-cases the rest.
func titleWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + toLower(w[size:])
	}
	return strings.Join(words, " ")
}
