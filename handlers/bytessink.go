package handlers

// BytesSink is the fixed handler table for streaming byte input
// (spec.md §3.8, §4.6). It holds three callbacks directly
// (start/putBuf/end); it has no unknown-field entry.
type BytesSink struct {
	start  func(sizeHint int) (any, bool)
	putBuf func(sub any, p []byte) (int, bool)
	end    func(sub any) bool
}

// NewBytesSink creates a BytesSink from its three callbacks. putBuf
// returns the number of bytes it consumed and whether to continue.
func NewBytesSink(
	start func(sizeHint int) (any, bool),
	putBuf func(sub any, p []byte) (int, bool),
	end func(sub any) bool,
) *BytesSink {
	return &BytesSink{start: start, putBuf: putBuf, end: end}
}

// Start begins a new byte stream, returning the sub-closure subsequent
// PutBuf/End calls are bound to.
func (bs *BytesSink) Start(sizeHint int) (any, bool) {
	if bs.start == nil {
		return nil, true
	}
	return bs.start(sizeHint)
}

// PutBuf delivers one chunk of bytes, returning how many bytes were
// consumed (spec.md §4.6 "upb_bufsrc_putbuf"). A handler that consumes
// fewer bytes than offered signals backpressure; this abstraction's only
// driver (PutAllBuf below) treats any short count as failure, since none
// of this repo's producers need partial-consumption semantics.
func (bs *BytesSink) PutBuf(sub any, p []byte) (int, bool) {
	if bs.putBuf == nil {
		return len(p), true
	}
	return bs.putBuf(sub, p)
}

// End closes the byte stream.
func (bs *BytesSink) End(sub any) bool {
	if bs.end == nil {
		return true
	}
	return bs.end(sub)
}

// PutAllBuf is upb_bufsrc_putbuf: a trivial driver that pushes one
// contiguous buffer through a bytes sink start/putBuf/end sequence
// (spec.md §4.6).
func PutAllBuf(bs *BytesSink, sizeHint int, p []byte) bool {
	sub, ok := bs.Start(sizeHint)
	if !ok {
		return false
	}
	if len(p) > 0 {
		n, ok := bs.PutBuf(sub, p)
		if !ok || n != len(p) {
			return false
		}
	}
	return bs.End(sub)
}
