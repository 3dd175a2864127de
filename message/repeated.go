package message

import "github.com/upb-go/upb/descriptor"

// RepeatedField is a dynamic array for a repeated field (spec.md §3.5:
// "{ data, len, capacity, elem_size }"). Go's slice already tracks
// len/cap and the element type is fixed per field, so elem_size has no
// separate representation here; growth is delegated to append, which
// doubles from a small capacity the same way spec.md §3.5 specifies.
type RepeatedField struct {
	fd   *descriptor.FieldDef
	elem []any
}

func newRepeatedField(fd *descriptor.FieldDef) *RepeatedField {
	return &RepeatedField{fd: fd}
}

// Len returns the number of elements.
func (r *RepeatedField) Len() int { return len(r.elem) }

// At returns the i'th element's raw value (same representation Message.Get
// uses for the field's category: a Go scalar, string, []byte, int32 enum,
// or *Message).
func (r *RepeatedField) At(i int) any { return r.elem[i] }

// Append adds v to the end of the array.
func (r *RepeatedField) Append(v any) { r.elem = append(r.elem, v) }

// Set overwrites the i'th element.
func (r *RepeatedField) Set(i int, v any) { r.elem[i] = v }

// Truncate discards elements at and after i.
func (r *RepeatedField) Truncate(i int) { r.elem = r.elem[:i] }
