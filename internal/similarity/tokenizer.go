// Package similarity ranks job listings against a reference profile using
// TF-IDF vectors and cosine similarity. Every ranking call builds its own
// vector space; nothing is cached between calls.
package similarity

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const minTokenLen = 2

// Tokenize lower-cases text and splits it into word tokens of at least two
// runes. Letters, digits and underscores form words; everything else
// separates them.
func Tokenize(text string) []string {
	text = strings.ToLower(norm.NFC.String(text))
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !isWordRune(r)
	})
	tokens := make([]string, 0, len(words))
	for _, word := range words {
		if utf8.RuneCountInString(word) < minTokenLen {
			continue
		}
		tokens = append(tokens, word)
	}
	return tokens
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}
