package ingest

import (
	"reflect"
	"strings"
	"testing"

	"github.com/cognitext/chaingram/pkg/chaingram/stoplist"
)

func TestNormalizeBasic(t *testing.T) {
	n := NewNormalizer(nil)

	got := n.Normalize("The Quick, Brown Fox!")
	want := []string{"the", "quick", "brown", "fox"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Normalize = %v, want %v", got, want)
	}
}

func TestNormalizeStopwords(t *testing.T) {
	n := NewNormalizer(stoplist.New([]string{"the", "a"}))

	got := n.Normalize("the quick brown fox jumps over a lazy dog")
	for _, tok := range got {
		if tok == "the" || tok == "a" {
			t.Errorf("Stopword %q survived normalization", tok)
		}
	}
	want := []string{"quick", "brown", "fox", "jumps", "over", "lazy", "dog"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Normalize = %v, want %v", got, want)
	}
}

func TestNormalizeOrdinalRewrite(t *testing.T) {
	n := NewNormalizer(nil)

	got := n.Normalize("on the 4 th day")
	want := []string{"on", "the", "4", "nth", "day"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Normalize = %v, want %v", got, want)
	}
}

func TestNormalizeTransliteration(t *testing.T) {
	n := NewNormalizer(nil)

	cases := map[string][]string{
		"café au lait":   {"cafe", "au", "lait"},
		"naïve résumé":   {"naive", "resume"},
		"über señor":     {"uber", "senor"},
		"日本語 only here": {"only", "here"},
	}
	for in, want := range cases {
		if got := n.Normalize(in); !reflect.DeepEqual(got, want) {
			t.Errorf("Normalize(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNormalizeEmptyAndPunctuation(t *testing.T) {
	n := NewNormalizer(nil)

	if got := n.Normalize(""); len(got) != 0 {
		t.Errorf("Normalize(\"\") = %v, want empty", got)
	}
	if got := n.Normalize("!!! ... ---"); len(got) != 0 {
		t.Errorf("Punctuation-only line gave %v", got)
	}
}

func TestNormalizeCacheConsistency(t *testing.T) {
	n := NewNormalizer(stoplist.New([]string{"and"}))

	line := "pride and prejudice"
	first := n.Normalize(line)
	second := n.Normalize(line) // served from cache
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Cached result %v differs from first %v", second, first)
	}

	// Mutating a returned slice must not poison the cache.
	first[0] = "mutated"
	third := n.Normalize(line)
	if third[0] != "pride" {
		t.Errorf("Cache poisoned by caller mutation: %v", third)
	}
}

func TestExtractText(t *testing.T) {
	page := `<html><head><style>p { color: red; }</style>
<script>var x = 1;</script></head>
<body><h1>Moby Dick</h1><p>Call me <b>Ishmael</b>.</p></body></html>`

	text, err := ExtractText(strings.NewReader(page))
	if err != nil {
		t.Fatalf("ExtractText failed: %v", err)
	}
	for _, want := range []string{"Moby Dick", "Call me", "Ishmael"} {
		if !strings.Contains(text, want) {
			t.Errorf("Extracted text missing %q: %q", want, text)
		}
	}
	for _, unwanted := range []string{"color: red", "var x"} {
		if strings.Contains(text, unwanted) {
			t.Errorf("Extracted text leaked %q: %q", unwanted, text)
		}
	}
}
