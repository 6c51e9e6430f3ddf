package domain

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lower-cases s, strips Vietnamese diacritics and collapses whitespace,
// so "Sữa Đặc" and "sua dac" compare equal.
func Fold(s string) string {
	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		runes.Map(foldStroke),
		norm.NFC,
	)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.Join(strings.Fields(strings.ToLower(out)), " ")
}

// đ carries a stroke, not a combining mark, so NFD leaves it intact.
func foldStroke(r rune) rune {
	switch r {
	case 'đ':
		return 'd'
	case 'Đ':
		return 'D'
	}
	return r
}

// SearchKey builds the folded text a product or customer is matched against.
func SearchKey(parts ...string) string {
	folded := make([]string, 0, len(parts))
	for _, part := range parts {
		if f := Fold(part); f != "" {
			folded = append(folded, f)
		}
	}
	return strings.Join(folded, " ")
}

func MatchesQuery(key string, query string) bool {
	q := Fold(query)
	if q == "" {
		return true
	}
	return strings.Contains(key, q)
}

func ProductSearchKey(p Product) string {
	return SearchKey(p.ProductCode, p.Name)
}
