// Package stoplist holds the stopword set applied during line normalization.
package stoplist

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Set is a stopword set. Lookups expect already-normalized (lowercase ASCII)
// tokens.
type Set struct {
	words map[string]struct{}
}

// New creates a Set from a word list.
func New(words []string) *Set {
	s := &Set{words: make(map[string]struct{}, len(words))}
	for _, w := range words {
		s.Add(w)
	}
	return s
}

// Add inserts a word, lowercased and with punctuation stripped the same way
// the normalizer strips document text, so list files with stray punctuation
// still match.
func (s *Set) Add(word string) {
	word = clean(word)
	if word == "" {
		return
	}
	s.words[word] = struct{}{}
}

// Contains reports whether token is a stopword.
func (s *Set) Contains(token string) bool {
	_, ok := s.words[token]
	return ok
}

// Len returns the number of stopwords.
func (s *Set) Len() int {
	return len(s.words)
}

// All returns the stopwords in no particular order.
func (s *Set) All() []string {
	out := make([]string, 0, len(s.words))
	for w := range s.words {
		out = append(out, w)
	}
	return out
}

func clean(word string) string {
	word = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return -1
		}
	}, word)
	return word
}

// yamlList is the yaml stoplist file shape: a `terms:` sequence.
type yamlList struct {
	Terms []string `yaml:"terms"`
}

// Load reads a stoplist file. Files ending in .yaml/.yml use the
// `terms:` list format; anything else is treated as whitespace-separated
// plain words.
func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		var list yamlList
		if err := yaml.Unmarshal(data, &list); err != nil {
			return nil, err
		}
		return New(list.Terms), nil
	default:
		return New(strings.Fields(string(data))), nil
	}
}
