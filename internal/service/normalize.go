package service

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9\s]`)
	whitespaceRun   = regexp.MustCompile(`\s+`)

	// short tokens that still carry meaning in pharmacy line items
	// ("20 ống/H" → "20 ong h").
	keepShortTokens = map[string]bool{"20": true, "h": true, "2": true}
)

// NormalizeQuery folds a product description to lowercase ASCII words.
// Diacritics are stripped, characters without an ASCII decomposition are
// dropped, and punctuation becomes a word break. With forEmbedding set, tokens
// of two characters or fewer are removed unless they are known to matter.
func NormalizeQuery(query string, forEmbedding bool) string {
	if query == "" {
		return ""
	}

	folded, _, err := transform.String(transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn))), query)
	if err != nil {
		folded = query
	}
	folded = strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, folded)

	folded = nonAlphanumeric.ReplaceAllString(folded, " ")
	folded = strings.TrimSpace(strings.ToLower(whitespaceRun.ReplaceAllString(folded, " ")))

	if !forEmbedding {
		return folded
	}

	tokens := strings.Fields(folded)
	kept := tokens[:0]
	for _, tok := range tokens {
		if len(tok) > 2 || keepShortTokens[tok] {
			kept = append(kept, tok)
		}
	}
	return strings.Join(kept, " ")
}

// leadingToken returns the first word of a normalized query.
func leadingToken(normalized string) string {
	if i := strings.IndexByte(normalized, ' '); i >= 0 {
		return normalized[:i]
	}
	return normalized
}
