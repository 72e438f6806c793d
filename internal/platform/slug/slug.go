package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxLength bounds slugs used in file names.
const MaxLength = 48

var nonAlphaNum = regexp.MustCompile(`[^a-z0-9]+`)

// Make folds accents ("Kafé Ayu" becomes "kafe-ayu"), lowercases, and joins
// alphanumeric runs with single dashes. An empty result becomes fallback.
func Make(input, fallback string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), input)
	if err != nil {
		folded = input
	}
	s := nonAlphaNum.ReplaceAllString(strings.ToLower(strings.TrimSpace(folded)), "-")
	s = strings.Trim(s, "-")
	if len(s) > MaxLength {
		s = s[:MaxLength]
		if cut := strings.LastIndex(s, "-"); cut > MaxLength/2 {
			s = s[:cut]
		}
		s = strings.Trim(s, "-")
	}
	if s == "" {
		return fallback
	}
	return s
}
