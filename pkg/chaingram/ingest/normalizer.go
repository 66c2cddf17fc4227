// Package ingest turns raw corpus text into the normalized token stream the
// transition index consumes: lowercase ASCII words, punctuation stripped,
// stopwords removed.
package ingest

import (
	"slices"
	"strings"
	"unicode"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/cognitext/chaingram/pkg/chaingram/stoplist"
)

// lineCacheSize bounds the normalized-line cache. Corpora carry a lot of
// repeated boilerplate lines (headers, license blocks, blank separators), so
// a small cache pays for itself.
const lineCacheSize = 4096

// Normalizer normalizes one line of raw text into a token sequence:
// transliterate to ASCII, strip punctuation, lowercase, rewrite " th " to
// " nth " (ordinal fix for "4 th" style tokenization), split on whitespace,
// drop stopwords. Safe for concurrent use.
type Normalizer struct {
	stops *stoplist.Set
	cache *lru.Cache[string, []string]
}

// NewNormalizer creates a Normalizer with the given stopword set. A nil set
// disables stopword filtering.
func NewNormalizer(stops *stoplist.Set) *Normalizer {
	if stops == nil {
		stops = stoplist.New(nil)
	}
	cache, _ := lru.New[string, []string](lineCacheSize)
	return &Normalizer{stops: stops, cache: cache}
}

// Normalize converts a raw line into normalized tokens.
func (n *Normalizer) Normalize(line string) []string {
	if cached, ok := n.cache.Get(line); ok {
		return slices.Clone(cached)
	}

	text := transliterate(line)
	text = stripAndLower(text)
	text = strings.ReplaceAll(text, " th ", " nth ")

	var tokens []string
	for _, word := range strings.Fields(text) {
		if n.stops.Contains(word) {
			continue
		}
		tokens = append(tokens, word)
	}

	n.cache.Add(strings.Clone(line), slices.Clone(tokens))
	return tokens
}

// transliterate reduces text to ASCII: decompose, drop combining marks, then
// drop whatever non-ASCII remains.
func transliterate(text string) string {
	if isASCII(text) {
		return text
	}

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, text)
	if err != nil {
		out = text
	}

	return strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, out)
}

func isASCII(text string) bool {
	for i := 0; i < len(text); i++ {
		if text[i] > unicode.MaxASCII {
			return false
		}
	}
	return true
}

// stripAndLower keeps word characters ([a-z0-9_]) and whitespace, lowercases
// letters, and drops everything else.
func stripAndLower(text string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		case r == ' ', r == '\t', r == '\n', r == '\r', r == '\v', r == '\f':
			return r
		default:
			return -1
		}
	}, text)
}
