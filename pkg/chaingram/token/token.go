// Package token provides a compact fixed-size word representation. A Token is
// exactly 16 bytes: text up to 15 bytes is stored inline in the value; longer
// text lives in a region and the value holds its handle. The marker byte
// carries the representation bit and the 7-bit length, so two inline tokens
// are equal exactly when the whole 16 bytes match, and the Go runtime's
// bitwise map-key comparison is a correct content comparison (boxed payloads
// are interned per region, giving equal text an identical handle).
package token

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/cognitext/chaingram/pkg/chaingram/internalerr"
	"github.com/cognitext/chaingram/pkg/chaingram/region"
)

// InlineCap is the longest text stored inside the value itself.
const InlineCap = 15

// MaxLen is the longest representable text. The marker byte keeps the length
// in 7 bits, so boxed payloads top out at 127 bytes.
const MaxLen = 127

const markerBoxed = 0x80

// Token is a 16-byte word value. The zero Token is the empty string.
type Token struct {
	data   [InlineCap]byte
	marker byte
}

// Make builds a Token for text. Text of length ≤ 15 is copied inline and r is
// not touched (it may be nil); longer text is interned into r. Allocation
// failure surfaces as a typed error, never an abort.
func Make(text string, r *region.Region) (Token, error) {
	if len(text) <= InlineCap {
		var t Token
		copy(t.data[:], text)
		t.marker = byte(len(text))
		return t, nil
	}
	if len(text) > MaxLen {
		return Token{}, fmt.Errorf("token %q is %d bytes: %w", text[:16]+"...", len(text), internalerr.ErrTokenTooLong)
	}
	ref, err := r.Intern(text)
	if err != nil {
		return Token{}, err
	}
	return boxed(ref, len(text)), nil
}

func boxed(ref region.Ref, n int) Token {
	var t Token
	binary.LittleEndian.PutUint32(t.data[0:4], ref.Chunk)
	binary.LittleEndian.PutUint32(t.data[4:8], ref.Off)
	binary.LittleEndian.PutUint32(t.data[8:12], ref.Gen)
	t.marker = markerBoxed | byte(n)
	return t
}

func (t Token) ref() region.Ref {
	return region.Ref{
		Chunk: binary.LittleEndian.Uint32(t.data[0:4]),
		Off:   binary.LittleEndian.Uint32(t.data[4:8]),
		Gen:   binary.LittleEndian.Uint32(t.data[8:12]),
	}
}

// Len reports the text length in bytes.
func (t Token) Len() int {
	return int(t.marker &^ markerBoxed)
}

// IsInline reports whether the text is stored inside the value.
func (t Token) IsInline() bool {
	return t.marker&markerBoxed == 0
}

// Bytes returns the text as a borrowed byte slice. For boxed tokens the slice
// points into r and is valid until r is reset; passing the wrong region (or a
// reset one) panics via the region's generation check.
func (t Token) Bytes(r *region.Region) []byte {
	if t.IsInline() {
		return t.data[:t.Len():t.Len()]
	}
	return r.Bytes(t.ref(), t.Len())
}

// Text returns the text as a string.
func (t Token) Text(r *region.Region) string {
	return string(t.Bytes(r))
}

// Equal reports content equality. tr and or are the regions backing t and o;
// they may be nil for inline tokens.
func (t Token) Equal(o Token, tr, or *region.Region) bool {
	if t.IsInline() && o.IsInline() {
		return t == o
	}
	if t.marker != o.marker {
		return false
	}
	if tr == or && t == o {
		return true
	}
	return bytes.Equal(t.Bytes(tr), o.Bytes(or))
}

// CloneInto copies t so the result is backed by dst: a bitwise copy for
// inline tokens, a fresh interned payload for boxed ones. src is the region
// currently backing t.
func (t Token) CloneInto(src, dst *region.Region) (Token, error) {
	if t.IsInline() {
		return t, nil
	}
	ref, err := dst.Intern(string(t.Bytes(src)))
	if err != nil {
		return Token{}, err
	}
	return boxed(ref, t.Len()), nil
}
