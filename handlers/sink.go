package handlers

import "github.com/upb-go/upb/descriptor"

// Sink is a (Handlers, closure) pair receiving a stream of events
// (spec.md §3.8 GLOSSARY, §4.6 "Sink operations"). A missing handler is a
// no-op that reports success, matching spec.md §4.6.
type Sink struct {
	h       *Handlers
	closure any
}

// NewSink binds h to closure, mirroring upb_sink_reset.
func NewSink(h *Handlers, closure any) *Sink {
	return &Sink{h: h, closure: closure}
}

// Reset rebinds the sink to a new Handlers/closure pair, for reuse across
// messages.
func (s *Sink) Reset(h *Handlers, closure any) {
	s.h = h
	s.closure = closure
}

// Handlers returns the Handlers this sink is currently bound to.
func (s *Sink) Handlers() *Handlers { return s.h }

// Closure returns the sink's current closure value.
func (s *Sink) Closure() any { return s.closure }

// StartMessage delivers the STARTMSG event, rebinding the sink's closure
// to whatever the handler returns.
func (s *Sink) StartMessage() bool {
	if s.h.startMsg == nil {
		return true
	}
	sub, ok := s.h.startMsg(s.closure)
	if ok {
		s.closure = sub
	}
	return ok
}

// EndMessage delivers the ENDMSG event.
func (s *Sink) EndMessage() bool {
	if s.h.endMsg == nil {
		return true
	}
	return s.h.endMsg(s.closure)
}

// UnknownField delivers the UNKNOWN event with tag-and-value wire bytes.
func (s *Sink) UnknownField(tagAndValue []byte) bool {
	if s.h.unknown == nil {
		return true
	}
	return s.h.unknown(s.closure, tagAndValue)
}

// PutScalar delivers fd's scalar "put" event.
func (s *Sink) PutScalar(fd *descriptor.FieldDef, v any) bool {
	f, ok := s.h.fields[fd]
	if !ok || f.put == nil {
		return true
	}
	return f.put(s.closure, v)
}

// StartString delivers fd's EventStartStr event and returns a child Sink
// bound to the same Handlers with the returned sub-closure (strings have
// no separate handler subgraph; only the closure nests).
func (s *Sink) StartString(fd *descriptor.FieldDef, sizeHint int) (*Sink, bool) {
	f, ok := s.h.fields[fd]
	if !ok || f.startStr == nil {
		return NewSink(s.h, s.closure), true
	}
	sub, ok := f.startStr(s.closure, sizeHint)
	return NewSink(s.h, sub), ok
}

// PutStringBuf delivers one chunk of string/bytes data to sub (the Sink
// StartString returned).
func (sub *Sink) PutStringBuf(fd *descriptor.FieldDef, b []byte) bool {
	f, ok := sub.h.fields[fd]
	if !ok || f.str == nil {
		return true
	}
	return f.str(sub.closure, b)
}

// EndString delivers fd's EventEndStr event to sub.
func (sub *Sink) EndString(fd *descriptor.FieldDef) bool {
	f, ok := sub.h.fields[fd]
	if !ok || f.endStr == nil {
		return true
	}
	return f.endStr(sub.closure)
}

// StartSequence delivers fd's EventStartSeq event and returns a child
// Sink for the repeated field's elements.
func (s *Sink) StartSequence(fd *descriptor.FieldDef, sizeHint int) (*Sink, bool) {
	f, ok := s.h.fields[fd]
	if !ok || f.startSeq == nil {
		return NewSink(s.h, s.closure), true
	}
	sub, ok := f.startSeq(s.closure, sizeHint)
	return NewSink(s.h, sub), ok
}

// EndSequence delivers fd's EventEndSeq event to sub.
func (sub *Sink) EndSequence(fd *descriptor.FieldDef) bool {
	f, ok := sub.h.fields[fd]
	if !ok || f.endSeq == nil {
		return true
	}
	return f.endSeq(sub.closure)
}

// StartSubMessage delivers fd's EventStartSubmsg event and returns a
// child Sink bound to fd's child Handlers graph, ready to receive that
// submessage's own STARTMSG/field/ENDMSG events.
func (s *Sink) StartSubMessage(fd *descriptor.FieldDef) (*Sink, bool) {
	childHandlers, ok := s.h.SubHandlers(fd)
	if !ok {
		return nil, false
	}
	f := s.h.fields[fd]
	var sub any = s.closure
	ok2 := true
	if f != nil && f.startSub != nil {
		sub, ok2 = f.startSub(s.closure, 0)
	}
	return NewSink(childHandlers, sub), ok2
}

// EndSubMessage delivers fd's EventEndSubmsg event to the parent sink
// (not the child the submessage was built in).
func (s *Sink) EndSubMessage(fd *descriptor.FieldDef) bool {
	f, ok := s.h.fields[fd]
	if !ok || f.endSub == nil {
		return true
	}
	return f.endSub(s.closure)
}
