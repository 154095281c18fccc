package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	DefaultMaxKeywords      = 10
	DefaultMaxBrandKeywords = 5
)

// stopWords are filtered out of product keyword extraction. Brand keyword
// extraction intentionally skips this filter since brand names can coincide
// with stop words.
var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "from": true,
	"this": true, "that": true, "are": true, "was": true, "has": true,
	"have": true, "been": true, "may": true, "can": true, "will": true,
	"its": true, "all": true, "any": true, "due": true, "per": true,
	"not": true, "out": true, "when": true, "which": true, "into": true,
	"also": true, "than": true, "them": true, "their": true, "these": true,
	"because": true, "about": true, "other": true, "some": true, "such": true,
	"recall": true, "recalled": true, "recalls": true, "product": true,
	"products": true,
}

// diacriticFolder strips combining marks so "Nescafé" and "Nescafe"
// normalize to the same token.
var diacriticFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize tokenizes free text into an ordered set of lowercase alphanumeric
// tokens. Identical input always yields identical output.
func Normalize(text string) []string {
	folded, _, err := transform.String(diacriticFolder, text)
	if err != nil {
		folded = text
	}

	lower := strings.ToLower(folded)
	fields := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]bool, len(fields))
	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		if field == "" || seen[field] {
			continue
		}
		seen[field] = true
		tokens = append(tokens, field)
	}

	return tokens
}

// ExtractKeywords produces up to maxCount keywords from free text, dropping
// stop words and tokens of length 2 or less, in first-seen order.
func ExtractKeywords(text string, maxCount int) []string {
	if maxCount <= 0 {
		maxCount = DefaultMaxKeywords
	}

	keywords := make([]string, 0, maxCount)
	for _, token := range Normalize(text) {
		if len(token) <= 2 || stopWords[token] {
			continue
		}
		keywords = append(keywords, token)
		if len(keywords) >= maxCount {
			break
		}
	}

	return keywords
}

// ExtractBrandKeywords splits brand text on commas and whitespace, trims,
// lowercases, drops single-character tokens and caps the result at 5 tokens.
// No stop word filtering here.
func ExtractBrandKeywords(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})

	seen := make(map[string]bool, len(fields))
	keywords := make([]string, 0, DefaultMaxBrandKeywords)
	for _, field := range fields {
		token := strings.ToLower(strings.TrimSpace(field))
		if len(token) <= 1 || seen[token] {
			continue
		}
		seen[token] = true
		keywords = append(keywords, token)
		if len(keywords) >= DefaultMaxBrandKeywords {
			break
		}
	}

	return keywords
}
