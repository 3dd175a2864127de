package codec

import "github.com/upb-go/upb/arena"

// backBuffer is an arena-backed buffer filled from the end backwards
// (spec.md §4.4.2), so a submessage's length can be written after its
// body without a pre-pass. Bytes already written live at buf[pos:]; pos
// only moves left.
type backBuffer struct {
	a   *arena.Arena
	buf []byte
	pos int
}

func newBackBuffer(a *arena.Arena, hint int) *backBuffer {
	if hint < 64 {
		hint = 64
	}
	buf, _ := a.Malloc(hint)
	return &backBuffer{a: a, buf: buf, pos: len(buf)}
}

// mark returns a position snapshot; mark - bb.pos measures how much has
// been written since the mark (see written), since later writes only
// decrease pos.
func (bb *backBuffer) mark() int { return bb.pos }

// written returns the number of bytes written since a prior mark().
func (bb *backBuffer) written(mark int) int { return mark - bb.pos }

func (bb *backBuffer) ensure(n int) {
	if bb.pos >= n {
		return
	}
	live := bb.buf[bb.pos:]
	want := len(live) + n
	newSize := len(bb.buf)
	if newSize == 0 {
		newSize = 64
	}
	for newSize < want {
		newSize *= 2
	}
	nb, _ := bb.a.Malloc(newSize)
	newPos := newSize - len(live)
	copy(nb[newPos:], live)
	bb.buf = nb
	bb.pos = newPos
}

// write prepends p (in its given order) to the buffer.
func (bb *backBuffer) write(p []byte) {
	if len(p) == 0 {
		return
	}
	bb.ensure(len(p))
	bb.pos -= len(p)
	copy(bb.buf[bb.pos:], p)
}

// bytes returns the buffer's current contents, in final forward order.
func (bb *backBuffer) bytes() []byte { return bb.buf[bb.pos:] }
