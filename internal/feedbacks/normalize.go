package feedbacks

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeSearchText folds a string for accent- and case-insensitive search:
// "Réservé" and "reserve" land on the same indexed text.
func normalizeSearchText(parts ...string) string {
	joined := strings.Join(parts, " ")
	folded, _, err := transform.String(foldTransformer, joined)
	if err != nil {
		folded = joined
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}
