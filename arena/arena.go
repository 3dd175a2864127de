// Package arena implements the bump-allocator that backs every
// dynamically-sized object in upb-go (spec.md §3.1/§4.1).
//
// Unlike a systems-language arena, this one cannot hand out raw pointers
// into a packed byte region for arbitrary Go values without breaking the
// garbage collector's invariants (see spec.md §9's own design note on
// replacing raw-pointer ownership with an arena+index model). Instead the
// arena is the allocator of record for two things: growable []byte blocks
// (used for unknown-field buffers, string copies, and the wire encoder's
// backward-growing output buffer) and a LIFO list of cleanup callbacks.
// Callers that need arena-scoped Go values (messages, repeated fields,
// tables) register them as indices into slices owned by the arena's owner,
// and call AddCleanup so Free still observes the required cleanup order.
package arena

import "github.com/upb-go/upb/internal/status"

// firstBlockSize is the default size of the first block when no bootstrap
// buffer is supplied, matching the C library's small initial footprint.
const firstBlockSize = 256

// maxBlockSize caps the block-doubling growth (spec.md §4.1).
const maxBlockSize = 16 * 1024

// Align is the maximum alignment the arena guarantees (spec.md §3.1).
const Align = 16

// block is one link in the arena's chain of memory.
type block struct {
	mem    []byte
	cursor int
}

func (b *block) remaining() int { return len(b.mem) - b.cursor }

// cleanup is one registered (fn, userdata) pair, run in LIFO order by Free.
type cleanup struct {
	fn func(any)
	ud any
}

// Arena is a bump allocator with linked blocks and a cleanup list. The zero
// value is not valid; use New or Init.
type Arena struct {
	blocks        []*block
	cur           *block
	nextBlockSize int
	cleanups      []cleanup
	allocated     uint64
	freed         bool
}

// New creates an Arena with no bootstrap memory.
func New() *Arena {
	a := &Arena{nextBlockSize: firstBlockSize}
	return a
}

// Init creates an Arena that uses bootstrap as its first block if it is
// large enough, borrowing a fresh block only once bootstrap is exhausted.
// This mirrors upb_Arena_Init(bootstrap_mem, n, allocator).
func Init(bootstrap []byte) *Arena {
	a := &Arena{nextBlockSize: firstBlockSize}
	if len(bootstrap) > 0 {
		b := &block{mem: bootstrap}
		a.blocks = append(a.blocks, b)
		a.cur = b
	}
	return a
}

// Malloc allocates n bytes, 16-byte aligned, growing the arena if
// necessary. Returns an error of Kind OutOfMemory only if n is negative
// or the arena has been freed; otherwise Malloc always succeeds because Go's allocator backs
// it (mirroring the spec's "null indication on OOM" contract for callers
// that want to propagate failure explicitly).
func (a *Arena) Malloc(n int) ([]byte, error) {
	if a.freed {
		return nil, status.New(status.OutOfMemory, "arena: use after free")
	}
	if n < 0 {
		return nil, status.New(status.OutOfMemory, "arena: negative allocation size %d", n)
	}
	if n == 0 {
		return nil, nil
	}
	aligned := alignUp(n, Align)
	if a.cur == nil || a.cur.remaining() < aligned {
		a.grow(aligned)
	}
	b := a.cur
	p := b.mem[b.cursor : b.cursor+n : b.cursor+aligned]
	b.cursor += aligned
	a.allocated += uint64(n)
	return p, nil
}

// Realloc allocates a new block of size newSize and copies min(oldSize,
// newSize) bytes from p into it. The arena never reclaims p in place
// (spec.md §4.1: "no in-place realloc").
func (a *Arena) Realloc(p []byte, newSize int) ([]byte, error) {
	q, err := a.Malloc(newSize)
	if err != nil {
		return nil, err
	}
	n := len(p)
	if newSize < n {
		n = newSize
	}
	copy(q, p[:n])
	return q, nil
}

// AddCleanup registers fn(ud) to run when Free is called, in LIFO order
// relative to other registered cleanups.
func (a *Arena) AddCleanup(fn func(any), ud any) error {
	if a.freed {
		return status.New(status.OutOfMemory, "arena: use after free")
	}
	a.cleanups = append(a.cleanups, cleanup{fn: fn, ud: ud})
	return nil
}

// BytesAllocated returns the total number of bytes ever served by Malloc,
// not the current live set (spec.md §4.1).
func (a *Arena) BytesAllocated() uint64 { return a.allocated }

// Free runs every registered cleanup in LIFO order, then releases the
// arena's blocks. The arena must not be used afterward.
func (a *Arena) Free() {
	if a.freed {
		return
	}
	for i := len(a.cleanups) - 1; i >= 0; i-- {
		c := a.cleanups[i]
		c.fn(c.ud)
	}
	a.cleanups = nil
	a.blocks = nil
	a.cur = nil
	a.freed = true
}

func (a *Arena) grow(minSize int) {
	size := a.nextBlockSize
	if size < minSize {
		size = minSize
	}
	b := &block{mem: make([]byte, size)}
	a.blocks = append(a.blocks, b)
	a.cur = b
	if a.nextBlockSize < maxBlockSize {
		a.nextBlockSize *= 2
		if a.nextBlockSize > maxBlockSize {
			a.nextBlockSize = maxBlockSize
		}
	}
}

func alignUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}
