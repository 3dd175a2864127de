package descriptor

import "github.com/upb-go/upb/internal/status"

// Selector is a dense (fielddef, event) integer key into a handler table
// (spec.md §3.8, §4.5.3).
type Selector int

// Event is one kind of event a selector can identify.
type Event int8

const (
	EventPut       Event = iota // scalar put
	EventStartStr               // start of a string/bytes value
	EventString                 // a chunk of string/bytes data
	EventEndStr                 // end of a string/bytes value
	EventStartSeq                // start of a repeated field
	EventEndSeq                   // end of a repeated field
	EventStartSubmsg
	EventEndSubmsg
	EventLazyStartStr
	EventLazyString
	EventLazyEndStr
)

// Global selectors, fixed at the head of every message's selector space
// (spec.md §3.8).
const (
	SelectorStartMsg Selector = 0
	SelectorEndMsg   Selector = 1
	SelectorUnknown  Selector = 2
	numGlobalSelectors = 3
)

// assignSelectors computes selector_base for every field of m and the
// message's total SelectorCount, per spec.md §3.8:
//
//   - three global selectors;
//   - one slot per submessage field, occupying the selector space
//     immediately after the globals so that selector doubles as the
//     submsgs[] index;
//   - each field then reserves selector_count = 1 + 2*isseq + 2*isstring
//     + 3*lazy slots, allocated in (submessages-first, then by number)
//     order, with the message-category fields' first slot being the
//     submsg-index slot they already received.
//
// Per spec.md §9's own design note ("Selectors are a flattening
// optimization; a rewrite may replace them with (FieldId, EventKind)
// pairs... without changing externally observable behavior"), this
// bookkeeping exists for spec compliance and testability; the handlers
// package dispatches by (*FieldDef, Event) directly rather than by
// indexing a flat array with these integers.
func assignSelectors(fields []*FieldDef) (submsgCount, total int) {
	ordered := sortedForSelectors(fields)

	for _, f := range ordered {
		if CategoryOf(f.typ) == CategoryMessage {
			submsgCount++
		}
	}

	next := numGlobalSelectors + submsgCount
	submsgIdx := 0
	for _, f := range ordered {
		count := f.SelectorCount()
		if CategoryOf(f.typ) == CategoryMessage {
			f.selectorBase = numGlobalSelectors + submsgIdx
			submsgIdx++
			if count > 1 {
				next += count - 1
			}
		} else {
			f.selectorBase = next
			next += count
		}
	}
	return submsgCount, next
}

// sortedForSelectors returns fields ordered submessage-category first
// (each group ordered by field number), matching spec.md §4.5.1 step 5
// ("Assign selector bases after sorting fields (submessages first, then
// by number)").
func sortedForSelectors(fields []*FieldDef) []*FieldDef {
	out := make([]*FieldDef, len(fields))
	copy(out, fields)
	// Simple stable partition + insertion sort by number within each
	// partition; message counts here are always small enough that this
	// need not be asymptotically fancy.
	less := func(a, b *FieldDef) bool {
		am := CategoryOf(a.typ) == CategoryMessage
		bm := CategoryOf(b.typ) == CategoryMessage
		if am != bm {
			return am
		}
		return a.number < b.number
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && less(out[j], out[j-1]); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// GetSelector returns the selector for (field, event), a pure function of
// field.SelectorBase() and the event kind (spec.md §4.5.3). It rejects
// event/field combinations that cannot occur for the field's shape.
func GetSelector(field *FieldDef, event Event) (Selector, error) {
	isSeq := field.IsRepeated()
	isStr := CategoryOf(field.typ) == CategoryString
	isMsg := CategoryOf(field.typ) == CategoryMessage

	base := field.selectorBase
	switch event {
	case EventPut:
		if isStr || isMsg {
			return 0, status.New(status.InvalidInput, "field %s has no scalar put selector", field.fullName)
		}
		return Selector(base), nil
	case EventStartSubmsg:
		if !isMsg {
			return 0, status.New(status.InvalidInput, "field %s is not message-typed", field.fullName)
		}
		return Selector(base), nil
	case EventStartStr:
		if !isStr {
			return 0, status.New(status.InvalidInput, "field %s is not string-typed", field.fullName)
		}
		return Selector(base), nil
	case EventString:
		if !isStr {
			return 0, status.New(status.InvalidInput, "field %s is not string-typed", field.fullName)
		}
		return Selector(base + 1), nil
	case EventEndStr:
		if !isStr {
			return 0, status.New(status.InvalidInput, "field %s is not string-typed", field.fullName)
		}
		return Selector(base + 2), nil
	case EventStartSeq:
		if !isSeq {
			return 0, status.New(status.InvalidInput, "field %s is not repeated", field.fullName)
		}
		off := 1
		if isStr {
			off = 3
		}
		return Selector(base + off), nil
	case EventEndSeq:
		if !isSeq {
			return 0, status.New(status.InvalidInput, "field %s is not repeated", field.fullName)
		}
		off := 2
		if isStr {
			off = 4
		}
		return Selector(base + off), nil
	default:
		return 0, status.New(status.InvalidInput, "unsupported event %d for field %s", event, field.fullName)
	}
}
