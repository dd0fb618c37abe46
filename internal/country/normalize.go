package country

import (
	"errors"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// ErrCountryNotRecognized indicates that no normalization rule matched the input.
var ErrCountryNotRecognized = errors.New("country: not recognized")

// Normalize maps free-form country input to a canonical 2-letter uppercase
// code. Accepted inputs include alpha-2 codes, alpha-3 codes, full names, and
// decorated variants of any of those (accents, flag emoji, stray punctuation).
//
// A bare two-letter input is returned as-is without checking it against the
// ISO list; callers relying on referential integrity get a country row
// upserted for whatever code survives this function.
func Normalize(raw string) (string, error) {
	cleaned := clean(raw)
	if cleaned == "" {
		return "", ErrCountryNotRecognized
	}

	if len(cleaned) == 2 && isLetters(cleaned) {
		return cleaned, nil
	}

	tokens := strings.Fields(cleaned)
	if len(tokens) > 1 {
		if first := tokens[0]; len(first) == 2 && isLetters(first) {
			return first, nil
		}
		if last := tokens[len(tokens)-1]; len(last) == 2 && isLetters(last) {
			return last, nil
		}
	}

	for _, token := range tokens {
		if code, ok := alpha3ToAlpha2[token]; ok {
			return code, nil
		}
	}
	if code, ok := alpha3ToAlpha2[cleaned]; ok {
		return code, nil
	}

	if code, ok := nameToAlpha2[strings.Join(tokens, " ")]; ok {
		return code, nil
	}

	return "", ErrCountryNotRecognized
}

// clean strips diacritics, drops every non-letter rune (emoji included) in
// favour of a space, collapses whitespace, and uppercases the remainder.
func clean(raw string) string {
	decomposed := norm.NFD.String(raw)
	var builder strings.Builder
	for _, r := range decomposed {
		switch {
		case unicode.Is(unicode.Mn, r):
			// combining mark left over from decomposition
		case unicode.IsLetter(r):
			builder.WriteRune(unicode.ToUpper(r))
		default:
			builder.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(builder.String()), " ")
}

func isLetters(value string) bool {
	for _, r := range value {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
