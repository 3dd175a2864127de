// Package handlers implements the streaming handler/sink abstraction
// (component I, spec.md §3.8, §4.6): per-message function tables that a
// codec drives with a stream of typed events, plus the Sink/BytesSink
// pairs that bind a Handlers graph to a particular closure.
//
// spec.md describes handler dispatch via a dense integer Selector,
// computed from a field's SelectorBase and an Event kind
// (descriptor.GetSelector). Per spec.md §9's own design note ("Selectors
// are a flattening optimization; a rewrite may replace them with
// (FieldId, EventKind) pairs... without changing externally observable
// behavior") and descriptor/selector.go's existing grounding comment,
// this package dispatches by (*descriptor.FieldDef, Event) map lookup
// rather than indexing a flat selector-numbered array: selectors remain
// computable (descriptor.GetSelector) for spec-compliance and testing,
// but are not this package's dispatch key.
//
// Grounded in spirit on
// _examples/golang-protobuf/internal/impl/codec_field.go's per-field
// function-table shape (a struct of function pointers resolved once per
// field and cached), generalized from per-type marshal/size funcs to
// per-(field,event) stream callbacks.
//
// DeclareClosureType implements spec.md §4.6's "closure typing": an
// optional, opt-in registration call that records the expected closure
// type for a shared context (message-level, or a field's string/sequence/
// submessage scope) and panics if a later declaration for the same
// context disagrees. Notably the original C library never finished this
// check itself -- _examples/original_source/upb/sink.h's C++ Sink/
// BytesSink wrappers carry it as a standing TODO ("once the Handlers know
// the expected closure type, verify that T matches") rather than an
// implemented guard -- so there is no source to copy the mechanism from;
// this package implements the rule spec.md actually states, using
// reflect.Type as the "expected type" token since Go closures are typed
// dynamically through an any parameter rather than a C void*.
package handlers

import (
	"fmt"
	"reflect"

	"github.com/upb-go/upb/descriptor"
)

// StartFunc begins a string or sequence value; it returns a new closure
// for the nested scope and whether to continue.
type StartFunc func(closure any, sizeHint int) (sub any, ok bool)

// EndFunc ends a string, sequence, or (sub)message scope.
type EndFunc func(closure any) bool

// ScalarFunc delivers one scalar/enum "put" event.
type ScalarFunc func(closure any, v any) bool

// BytesFunc delivers one chunk of string/bytes data.
type BytesFunc func(closure any, b []byte) bool

// UnknownFunc delivers raw unknown-field wire bytes (tag-framed).
type UnknownFunc func(closure any, tagAndValue []byte) bool

// ClosureScope identifies one of the shared-closure contexts spec.md §4.6's
// "closure typing" rule guards: the closure a start handler hands to the
// put/chunk/end handlers that run against it. ScopeMessage is the one
// context shared by every field of a message (startMsg/put/endMsg/unknown).
type ClosureScope int

const (
	ScopeMessage ClosureScope = iota
	ScopeString
	ScopeSequence
	ScopeSubMessage
)

func (s ClosureScope) String() string {
	switch s {
	case ScopeMessage:
		return "message"
	case ScopeString:
		return "string"
	case ScopeSequence:
		return "sequence"
	case ScopeSubMessage:
		return "submessage"
	default:
		return "unknown"
	}
}

// closureKey names one shared-closure context: fd is nil for ScopeMessage,
// which is shared across all of a Handlers' fields.
type closureKey struct {
	fd    *descriptor.FieldDef
	scope ClosureScope
}

// fieldFuncs holds every event callback a single field can register.
type fieldFuncs struct {
	put      ScalarFunc
	startStr StartFunc
	str      BytesFunc
	endStr   EndFunc
	startSeq StartFunc
	endSeq   EndFunc
	startSub StartFunc
	endSub   EndFunc
}

// Handlers is a frozen-once function table for one descriptor.MessageDef
// (spec.md §4.6: "created for one MessageDef, ... frozen once"). The zero
// value is not useful; use New.
type Handlers struct {
	def *descriptor.MessageDef

	startMsg func(closure any) (any, bool)
	endMsg   func(closure any) bool
	unknown  UnknownFunc

	fields map[*descriptor.FieldDef]*fieldFuncs
	sub    map[*descriptor.FieldDef]*Handlers

	closureTypes map[closureKey]reflect.Type

	frozen bool
}

// New creates an empty, mutable Handlers bound to def.
func New(def *descriptor.MessageDef) *Handlers {
	return &Handlers{
		def:          def,
		fields:       make(map[*descriptor.FieldDef]*fieldFuncs),
		sub:          make(map[*descriptor.FieldDef]*Handlers),
		closureTypes: make(map[closureKey]reflect.Type),
	}
}

// MessageDef returns the MessageDef this Handlers is bound to.
func (h *Handlers) MessageDef() *descriptor.MessageDef { return h.def }

func (h *Handlers) field(fd *descriptor.FieldDef) *fieldFuncs {
	f, ok := h.fields[fd]
	if !ok {
		f = &fieldFuncs{}
		h.fields[fd] = f
	}
	return f
}

func (h *Handlers) checkMutable() {
	if h.frozen {
		panic(fmt.Sprintf("handlers: %s is frozen; cannot register new handlers", h.def.FullName()))
	}
}

// DeclareClosureType records the expected closure type for a (field, scope)
// context (spec.md §4.6 "closure typing"). fd is nil for ScopeMessage. A
// context may be declared at most once per type: registering it again with
// a disagreeing type panics immediately, the same "caught at registration
// time" treatment checkMutable gives a post-freeze mutation. Leaving a
// context undeclared is always allowed -- declaring a type is optional, and
// only handlers that care about agreement need call this.
func (h *Handlers) DeclareClosureType(fd *descriptor.FieldDef, scope ClosureScope, t reflect.Type) {
	h.checkMutable()
	key := closureKey{fd: fd, scope: scope}
	if existing, ok := h.closureTypes[key]; ok && existing != t {
		name := "message"
		if fd != nil {
			name = fd.FullName()
		}
		panic(fmt.Sprintf("handlers: %s: closure type mismatch for %s in %v scope: %v vs %v",
			h.def.FullName(), name, scope, existing, t))
	}
	h.closureTypes[key] = t
}

// ClosureType returns the declared closure type for a (field, scope)
// context, if any handler has declared one.
func (h *Handlers) ClosureType(fd *descriptor.FieldDef, scope ClosureScope) (reflect.Type, bool) {
	t, ok := h.closureTypes[closureKey{fd: fd, scope: scope}]
	return t, ok
}

// Freeze marks h (and, recursively, every submessage Handlers already
// bound via BindSubHandlers) immutable. HandlerCache.Get freezes the
// graphs it builds before returning them, per spec.md §4.6.
func (h *Handlers) Freeze() {
	if h.frozen {
		return
	}
	h.frozen = true
	for _, sub := range h.sub {
		sub.Freeze()
	}
}

// SetStartMessage registers the STARTMSG handler (spec.md §3.8's global
// selector).
func (h *Handlers) SetStartMessage(fn func(closure any) (any, bool)) {
	h.checkMutable()
	h.startMsg = fn
}

// SetEndMessage registers the ENDMSG handler.
func (h *Handlers) SetEndMessage(fn func(closure any) bool) {
	h.checkMutable()
	h.endMsg = fn
}

// SetUnknownField registers the UNKNOWN handler.
func (h *Handlers) SetUnknownField(fn UnknownFunc) {
	h.checkMutable()
	h.unknown = fn
}

// SetScalar registers fd's scalar "put" handler (the EventPut selector).
func (h *Handlers) SetScalar(fd *descriptor.FieldDef, fn ScalarFunc) {
	h.checkMutable()
	h.field(fd).put = fn
}

// SetStartString registers fd's EventStartStr handler.
func (h *Handlers) SetStartString(fd *descriptor.FieldDef, fn StartFunc) {
	h.checkMutable()
	h.field(fd).startStr = fn
}

// SetStringChunk registers fd's EventString handler.
func (h *Handlers) SetStringChunk(fd *descriptor.FieldDef, fn BytesFunc) {
	h.checkMutable()
	h.field(fd).str = fn
}

// SetEndString registers fd's EventEndStr handler.
func (h *Handlers) SetEndString(fd *descriptor.FieldDef, fn EndFunc) {
	h.checkMutable()
	h.field(fd).endStr = fn
}

// SetStartSequence registers fd's EventStartSeq handler.
func (h *Handlers) SetStartSequence(fd *descriptor.FieldDef, fn StartFunc) {
	h.checkMutable()
	h.field(fd).startSeq = fn
}

// SetEndSequence registers fd's EventEndSeq handler.
func (h *Handlers) SetEndSequence(fd *descriptor.FieldDef, fn EndFunc) {
	h.checkMutable()
	h.field(fd).endSeq = fn
}

// SetStartSubMessage registers fd's EventStartSubmsg handler. Bind the
// child Handlers graph itself separately via BindSubHandlers (a
// HandlerCache does this automatically once the child graph exists).
func (h *Handlers) SetStartSubMessage(fd *descriptor.FieldDef, fn StartFunc) {
	h.checkMutable()
	h.field(fd).startSub = fn
}

// BindSubHandlers attaches fd's child Handlers graph (spec.md's "sub[]
// array binds per-submessage-field child Handlers"). This may be called
// after the Handlers has otherwise been frozen, since it wires topology
// rather than event behavior -- exactly the step Cache performs once a
// recursively-built child graph is available.
func (h *Handlers) BindSubHandlers(fd *descriptor.FieldDef, sub *Handlers) {
	h.sub[fd] = sub
}

// SetEndSubMessage registers fd's EventEndSubmsg handler.
func (h *Handlers) SetEndSubMessage(fd *descriptor.FieldDef, fn EndFunc) {
	h.checkMutable()
	h.field(fd).endSub = fn
}

// SubHandlers returns the child Handlers bound for fd's submessage field,
// if any.
func (h *Handlers) SubHandlers(fd *descriptor.FieldDef) (*Handlers, bool) {
	s, ok := h.sub[fd]
	return s, ok
}
