package region

import (
	"errors"
	"testing"

	"github.com/cognitext/chaingram/pkg/chaingram/internalerr"
)

func TestAllocRoundTrip(t *testing.T) {
	r := New(64, 0)

	ref, buf, err := r.Alloc(5)
	if err != nil {
		t.Fatalf("Alloc failed: %v", err)
	}
	copy(buf, "hello")

	got := string(r.Bytes(ref, 5))
	if got != "hello" {
		t.Errorf("Expected 'hello', got %q", got)
	}
	if r.AllocatedBytes() != 5 {
		t.Errorf("Expected 5 allocated bytes, got %d", r.AllocatedBytes())
	}
}

func TestAllocSpansChunks(t *testing.T) {
	r := New(16, 0)

	// Fill most of the first chunk, then force a second one.
	if _, _, err := r.Alloc(12); err != nil {
		t.Fatalf("Alloc failed: %v", err)
	}
	ref, buf, err := r.Alloc(10)
	if err != nil {
		t.Fatalf("Alloc failed: %v", err)
	}
	copy(buf, "0123456789")

	if got := string(r.Bytes(ref, 10)); got != "0123456789" {
		t.Errorf("Expected '0123456789', got %q", got)
	}
	if r.AllocatedBytes() != 22 {
		t.Errorf("Expected 22 allocated bytes, got %d", r.AllocatedBytes())
	}
}

func TestAllocLargerThanChunk(t *testing.T) {
	r := New(8, 0)

	ref, buf, err := r.Alloc(32)
	if err != nil {
		t.Fatalf("Alloc failed: %v", err)
	}
	if len(buf) != 32 {
		t.Fatalf("Expected 32-byte slice, got %d", len(buf))
	}
	buf[31] = 'x'
	if r.Bytes(ref, 32)[31] != 'x' {
		t.Error("Oversized allocation did not round-trip")
	}
}

func TestBudgetExhaustion(t *testing.T) {
	r := New(16, 10)

	if _, _, err := r.Alloc(8); err != nil {
		t.Fatalf("Alloc within budget failed: %v", err)
	}
	_, _, err := r.Alloc(8)
	if !errors.Is(err, internalerr.ErrRegionExhausted) {
		t.Errorf("Expected ErrRegionExhausted, got %v", err)
	}

	// The failed allocation must not have consumed budget.
	if r.AllocatedBytes() != 8 {
		t.Errorf("Expected 8 allocated bytes after failed alloc, got %d", r.AllocatedBytes())
	}
}

func TestInternDeduplicates(t *testing.T) {
	r := New(64, 0)

	ref1, err := r.Intern("transition")
	if err != nil {
		t.Fatalf("Intern failed: %v", err)
	}
	ref2, err := r.Intern("transition")
	if err != nil {
		t.Fatalf("Intern failed: %v", err)
	}

	if ref1 != ref2 {
		t.Errorf("Interning the same text twice returned different refs: %v vs %v", ref1, ref2)
	}
	if r.AllocatedBytes() != len("transition") {
		t.Errorf("Second intern should not allocate, got %d bytes", r.AllocatedBytes())
	}

	ref3, err := r.Intern("different")
	if err != nil {
		t.Fatalf("Intern failed: %v", err)
	}
	if ref3 == ref1 {
		t.Error("Different text interned to the same ref")
	}
}

func TestResetReturnsToBaseline(t *testing.T) {
	r := New(16, 0)

	for i := 0; i < 10; i++ {
		if _, _, err := r.Alloc(16); err != nil {
			t.Fatalf("Alloc failed: %v", err)
		}
	}
	if _, err := r.Intern("something-long-enough"); err != nil {
		t.Fatalf("Intern failed: %v", err)
	}

	gen := r.Generation()
	r.Reset()

	if r.AllocatedBytes() != 0 {
		t.Errorf("Expected 0 allocated bytes after reset, got %d", r.AllocatedBytes())
	}
	if r.Generation() != gen+1 {
		t.Errorf("Expected generation %d after reset, got %d", gen+1, r.Generation())
	}

	// The intern table must not leak refs across generations.
	ref, err := r.Intern("something-long-enough")
	if err != nil {
		t.Fatalf("Intern after reset failed: %v", err)
	}
	if ref.Gen != r.Generation() {
		t.Errorf("Interned ref carries generation %d, region is at %d", ref.Gen, r.Generation())
	}
}

func TestStaleHandlePanics(t *testing.T) {
	r := New(64, 0)

	ref, buf, err := r.Alloc(3)
	if err != nil {
		t.Fatalf("Alloc failed: %v", err)
	}
	copy(buf, "abc")
	r.Reset()

	defer func() {
		if recover() == nil {
			t.Error("Expected panic when dereferencing a stale handle")
		}
	}()
	r.Bytes(ref, 3)
}
