// Package slug derives URL-safe organization identifiers from display names.
package slug

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const MaxLength = 63

// Make lowercases name, strips diacritics and joins runs of letters and
// digits with single hyphens. The result is stable for a given input and may
// be empty when name carries no letters or digits.
func Make(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}

	out := b.String()
	if len(out) > MaxLength {
		out = truncate(out, MaxLength)
	}
	return strings.Trim(out, "-")
}

// Normalize canonicalizes a slug supplied by a client.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	end := 0
	for i, r := range s {
		if i+utf8.RuneLen(r) > n {
			break
		}
		end = i + utf8.RuneLen(r)
	}
	return s[:end]
}
