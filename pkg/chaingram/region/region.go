// Package region implements a chunk-based bump allocator. A Region hands out
// sub-slices of large backing chunks and reclaims everything at once on Reset,
// never per allocation. Allocations are addressed by stable Ref handles that
// carry the generation they were made in, so a handle kept across a Reset is
// detected instead of silently reading reused memory.
package region

import (
	"fmt"
	"strings"

	"github.com/cognitext/chaingram/pkg/chaingram/internalerr"
)

// DefaultChunkSize is the backing chunk size used when New is given a
// non-positive chunk size.
const DefaultChunkSize = 1 << 20 // 1 MiB

// Ref is a stable handle to bytes allocated from a Region. The zero Ref is
// not a valid allocation.
type Ref struct {
	Chunk uint32
	Off   uint32
	Gen   uint32
}

// Region is a bump allocator over a list of backing chunks. It is not safe
// for concurrent use; callers own exactly one goroutine per Region.
type Region struct {
	chunks    [][]byte
	chunkSize int
	off       int // offset into the last chunk
	allocated int // bytes handed out this generation
	budget    int // 0 means unlimited
	gen       uint32
	interned  map[string]Ref
}

// New creates a Region. budget bounds the total bytes handed out per
// generation; 0 disables the bound and allocation only fails if the process
// itself cannot grow.
func New(chunkSize, budget int) *Region {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Region{
		chunkSize: chunkSize,
		chunks:    [][]byte{make([]byte, chunkSize)},
		budget:    budget,
		interned:  make(map[string]Ref),
	}
}

// Alloc returns a Ref and a writable slice of n bytes from the region.
func (r *Region) Alloc(n int) (Ref, []byte, error) {
	if n <= 0 {
		return Ref{Gen: r.gen}, nil, nil
	}
	if r.budget > 0 && r.allocated+n > r.budget {
		return Ref{}, nil, fmt.Errorf("alloc %d bytes (%d of %d used): %w",
			n, r.allocated, r.budget, internalerr.ErrRegionExhausted)
	}

	last := len(r.chunks) - 1
	if r.off+n > len(r.chunks[last]) {
		size := r.chunkSize
		if n > size {
			size = n
		}
		r.chunks = append(r.chunks, make([]byte, size))
		last++
		r.off = 0
	}

	ref := Ref{Chunk: uint32(last), Off: uint32(r.off), Gen: r.gen}
	buf := r.chunks[last][r.off : r.off+n]
	r.off += n
	r.allocated += n
	return ref, buf, nil
}

// Intern copies text into the region once per generation: interning the same
// text again returns the Ref of the first copy. This keeps handles to equal
// text bitwise-equal, which is what allows them to serve as map key material.
func (r *Region) Intern(text string) (Ref, error) {
	if ref, ok := r.interned[text]; ok {
		return ref, nil
	}
	ref, buf, err := r.Alloc(len(text))
	if err != nil {
		return Ref{}, err
	}
	copy(buf, text)
	r.interned[strings.Clone(text)] = ref
	return ref, nil
}

// Bytes resolves a Ref made by this region into its n-byte backing slice.
// The slice is valid until the region is reset. Resolving a Ref from a
// previous generation panics: the bytes it pointed at are gone.
func (r *Region) Bytes(ref Ref, n int) []byte {
	if ref.Gen != r.gen {
		panic(fmt.Sprintf("region: stale handle (handle generation %d, region generation %d)", ref.Gen, r.gen))
	}
	if int(ref.Chunk) >= len(r.chunks) {
		panic(fmt.Sprintf("region: handle chunk %d out of range", ref.Chunk))
	}
	return r.chunks[ref.Chunk][ref.Off : int(ref.Off)+n]
}

// AllocatedBytes reports the bytes handed out in the current generation.
func (r *Region) AllocatedBytes() int {
	return r.allocated
}

// Generation reports the current generation id. It advances on every Reset.
func (r *Region) Generation() uint32 {
	return r.gen
}

// Reset reclaims every allocation in O(1): the first backing chunk is kept
// for reuse, extra chunks are released, the intern table is cleared, and the
// generation advances so outstanding handles become detectably stale.
func (r *Region) Reset() {
	r.chunks = r.chunks[:1]
	r.off = 0
	r.allocated = 0
	r.gen++
	clear(r.interned)
}
