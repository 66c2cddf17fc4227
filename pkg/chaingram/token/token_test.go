package token

import (
	"errors"
	"strings"
	"testing"
	"unsafe"

	"github.com/cognitext/chaingram/pkg/chaingram/internalerr"
	"github.com/cognitext/chaingram/pkg/chaingram/region"
)

var testStrs = []string{
	"",
	"t",
	"the quick",
	"the quick brown",
	"the quick brown ",
	"the quick brown fox jumps over the lazy dog",
}

func TestSize(t *testing.T) {
	if size := unsafe.Sizeof(Token{}); size != 16 {
		t.Fatalf("Token must be 16 bytes, got %d", size)
	}
}

func TestRoundTrip(t *testing.T) {
	r := region.New(0, 0)
	for _, s := range testStrs {
		tok, err := Make(s, r)
		if err != nil {
			t.Fatalf("Make(%q) failed: %v", s, err)
		}
		if got := tok.Text(r); got != s {
			t.Errorf("Round trip of %q gave %q", s, got)
		}
		if tok.Len() != len(s) {
			t.Errorf("Len of %q = %d, want %d", s, tok.Len(), len(s))
		}
	}
}

func TestRoundTripLong(t *testing.T) {
	r := region.New(0, 0)
	for n := 16; n <= 100; n += 7 {
		s := strings.Repeat("a", n-1) + "z"
		tok, err := Make(s, r)
		if err != nil {
			t.Fatalf("Make of %d-byte token failed: %v", n, err)
		}
		if tok.IsInline() {
			t.Errorf("%d-byte token should be boxed", n)
		}
		if got := tok.Text(r); got != s {
			t.Errorf("Round trip of %d-byte token gave %q", n, got)
		}
	}
}

func TestInlineRepresentation(t *testing.T) {
	r := region.New(0, 0)
	for _, s := range testStrs {
		tok, err := Make(s, r)
		if err != nil {
			t.Fatalf("Make(%q) failed: %v", s, err)
		}
		if tok.IsInline() != (len(s) <= InlineCap) {
			t.Errorf("IsInline for %q = %v", s, tok.IsInline())
		}
	}
}

// Inline construction must never touch the allocator; a nil region proves it.
func TestInlineNeverAllocates(t *testing.T) {
	for _, s := range testStrs {
		if len(s) > InlineCap {
			continue
		}
		tok, err := Make(s, nil)
		if err != nil {
			t.Fatalf("Make(%q, nil) failed: %v", s, err)
		}
		if got := tok.Text(nil); got != s {
			t.Errorf("Round trip of %q gave %q", s, got)
		}
	}
}

func TestTooLong(t *testing.T) {
	r := region.New(0, 0)
	_, err := Make(strings.Repeat("x", MaxLen+1), r)
	if !errors.Is(err, internalerr.ErrTokenTooLong) {
		t.Errorf("Expected ErrTokenTooLong, got %v", err)
	}
}

func TestAllocationFailure(t *testing.T) {
	r := region.New(16, 16)
	if _, err := Make(strings.Repeat("a", 16), r); err != nil {
		t.Fatalf("First boxed Make failed: %v", err)
	}
	_, err := Make(strings.Repeat("b", 16), r)
	if !errors.Is(err, internalerr.ErrRegionExhausted) {
		t.Errorf("Expected ErrRegionExhausted, got %v", err)
	}
}

func TestEqual(t *testing.T) {
	r := region.New(0, 0)
	for _, s := range testStrs {
		t1, _ := Make(s, r)
		t2, _ := Make(s, r)
		if !t1.Equal(t2, r, r) {
			t.Errorf("Tokens for %q compare unequal", s)
		}
		if len(s) > InlineCap && t1 != t2 {
			t.Errorf("Boxed tokens for %q are not bitwise equal despite interning", s)
		}
	}
	for i := 1; i < len(testStrs); i++ {
		t1, _ := Make(testStrs[i-1], r)
		t2, _ := Make(testStrs[i], r)
		if t1.Equal(t2, r, r) {
			t.Errorf("%q and %q compare equal", testStrs[i-1], testStrs[i])
		}
	}
}

func TestEqualAcrossRegions(t *testing.T) {
	r1 := region.New(0, 0)
	r2 := region.New(0, 0)
	s := "a-rather-long-token-indeed"

	t1, _ := Make(s, r1)
	t2, _ := Make(s, r2)
	if !t1.Equal(t2, r1, r2) {
		t.Error("Equal text in different regions must compare equal")
	}
}

func TestCloneInto(t *testing.T) {
	src := region.New(0, 0)
	dst := region.New(0, 0)

	for _, s := range append(testStrs, strings.Repeat("q", 64)) {
		orig, err := Make(s, src)
		if err != nil {
			t.Fatalf("Make(%q) failed: %v", s, err)
		}
		clone, err := orig.CloneInto(src, dst)
		if err != nil {
			t.Fatalf("CloneInto of %q failed: %v", s, err)
		}
		if got := clone.Text(dst); got != s {
			t.Errorf("Clone of %q reads back %q", s, got)
		}
	}

	// Clones must survive a reset of the source region.
	long := strings.Repeat("w", 40)
	orig, _ := Make(long, src)
	clone, err := orig.CloneInto(src, dst)
	if err != nil {
		t.Fatalf("CloneInto failed: %v", err)
	}
	src.Reset()
	if got := clone.Text(dst); got != long {
		t.Errorf("Clone reads back %q after source reset", got)
	}
}

func TestStaleTokenPanics(t *testing.T) {
	r := region.New(0, 0)
	tok, err := Make(strings.Repeat("s", 20), r)
	if err != nil {
		t.Fatalf("Make failed: %v", err)
	}
	r.Reset()

	defer func() {
		if recover() == nil {
			t.Error("Expected panic reading a token from a reset region")
		}
	}()
	_ = tok.Text(r)
}

func TestZeroTokenIsEmpty(t *testing.T) {
	var tok Token
	if !tok.IsInline() || tok.Len() != 0 || tok.Text(nil) != "" {
		t.Error("Zero Token should be the empty inline string")
	}
}
