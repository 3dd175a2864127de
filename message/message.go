// Package message implements the message instance runtime (spec.md §3.4):
// a mutable value bound to a layout.MessageLayout, backed by an
// arena.Arena for its byte-bearing data (string/bytes copies and the
// unknown-field buffer).
//
// spec.md's instance is a packed byte region addressed by field offset.
// Per DESIGN.md's Open Question #1, this repo instead stores field
// values in a Go slice indexed by layout.FieldLayout.SlotIndex: the slot
// plays the role of the offset, and the arena owns only what it must
// (copied bytes), not the slice itself. Presence (hasbits, oneof
// discriminators) is still modeled exactly as spec.md §3.3 describes.
package message

import (
	"github.com/upb-go/upb/arena"
	"github.com/upb-go/upb/descriptor"
	"github.com/upb-go/upb/internal/layout"
	"github.com/upb-go/upb/internal/status"
)

// Message is one mutable instance of some MessageLayout.
type Message struct {
	layout *layout.MessageLayout
	arena  *arena.Arena

	hasbits []byte // ceil(HasbitCount/8) bytes
	slots   []any  // one entry per layout.MessageLayout.SlotCount

	unknown []byte
}

// New allocates a zero-valued message for l, using a for any byte-bearing
// allocations (string/bytes copies, unknown fields).
func New(l *layout.MessageLayout, a *arena.Arena) *Message {
	return &Message{
		layout:  l,
		arena:   a,
		hasbits: make([]byte, (l.HasbitCount+7)/8),
		slots:   make([]any, l.SlotCount),
	}
}

// Layout returns the message's compiled layout.
func (m *Message) Layout() *layout.MessageLayout { return m.layout }

// Arena returns the arena backing this message's byte-bearing data.
func (m *Message) Arena() *arena.Arena { return m.arena }

func (m *Message) hasbitSet(i int) bool {
	return m.hasbits[i/8]&(1<<uint(i%8)) != 0
}

func (m *Message) setHasbit(i int) {
	m.hasbits[i/8] |= 1 << uint(i%8)
}

func (m *Message) clearHasbit(i int) {
	m.hasbits[i/8] &^= 1 << uint(i%8)
}

// Has reports whether fd is present on this message (spec.md §3.3): for
// implicit-presence proto3 scalars this is always false (the zero value
// carries no presence information), for hasbit fields it reads the bit,
// and for oneof members it compares the discriminator to the field
// number.
func (m *Message) Has(fd *descriptor.FieldDef) (bool, error) {
	fl, err := m.fieldLayout(fd)
	if err != nil {
		return false, err
	}
	switch {
	case fl.IsImplicit():
		return false, nil
	case fl.IsOneof():
		disc, _ := m.slots[fl.OneofDiscriminatorSlot()].(int32)
		return disc == fd.Number(), nil
	default:
		return m.hasbitSet(fl.HasbitIndex()), nil
	}
}

// Clear removes fd's value and presence bit (or, for a oneof member,
// clears the discriminator only if fd is the currently active member).
func (m *Message) Clear(fd *descriptor.FieldDef) error {
	fl, err := m.fieldLayout(fd)
	if err != nil {
		return err
	}
	switch {
	case fl.IsOneof():
		disc, _ := m.slots[fl.OneofDiscriminatorSlot()].(int32)
		if disc == fd.Number() {
			m.slots[fl.OneofDiscriminatorSlot()] = int32(0)
			m.slots[fl.SlotIndex] = nil
		}
	case fl.IsImplicit():
		m.slots[fl.SlotIndex] = zeroValue(fd)
	default:
		m.clearHasbit(fl.HasbitIndex())
		m.slots[fl.SlotIndex] = zeroValue(fd)
	}
	return nil
}

// Get returns fd's raw slot value, which callers interpret per fd.Type():
// a Go numeric type, bool, string, []byte, int32 (enum), *Message, or
// *RepeatedField. A field that has never been set returns its zero value.
func (m *Message) Get(fd *descriptor.FieldDef) (any, error) {
	fl, err := m.fieldLayout(fd)
	if err != nil {
		return nil, err
	}
	if fd.IsRepeated() {
		rf, _ := m.slots[fl.SlotIndex].(*RepeatedField)
		if rf == nil {
			rf = newRepeatedField(fd)
			m.slots[fl.SlotIndex] = rf
		}
		return rf, nil
	}
	if fl.IsOneof() {
		disc, _ := m.slots[fl.OneofDiscriminatorSlot()].(int32)
		if disc != fd.Number() {
			return zeroValue(fd), nil
		}
	}
	if v := m.slots[fl.SlotIndex]; v != nil {
		return v, nil
	}
	return zeroValue(fd), nil
}

// Set assigns fd's scalar/string/bytes/enum value and marks it present.
// Message-typed fields are mutated via Mutable, not Set.
func (m *Message) Set(fd *descriptor.FieldDef, v any) error {
	if descriptor.CategoryOf(fd.Type()) == descriptor.CategoryMessage {
		return status.New(status.InvalidInput, "field %s: use Mutable to set a submessage", fd.FullName())
	}
	fl, err := m.fieldLayout(fd)
	if err != nil {
		return err
	}
	if s, ok := v.(string); ok && descriptor.CategoryOf(fd.Type()) == descriptor.CategoryString {
		v = m.ownString(s)
	}
	if b, ok := v.([]byte); ok {
		v = m.ownBytes(b)
	}

	switch {
	case fl.IsOneof():
		m.slots[fl.OneofDiscriminatorSlot()] = fd.Number()
		m.slots[fl.SlotIndex] = v
	case fl.IsImplicit():
		m.slots[fl.SlotIndex] = v
	default:
		m.setHasbit(fl.HasbitIndex())
		m.slots[fl.SlotIndex] = v
	}
	return nil
}

// AppendRepeated appends a scalar/string/bytes/enum value to fd's array,
// copying string/bytes payloads into the arena, and returns the field.
func (m *Message) AppendRepeated(fd *descriptor.FieldDef, v any) (*RepeatedField, error) {
	if descriptor.CategoryOf(fd.Type()) == descriptor.CategoryMessage {
		return nil, status.New(status.InvalidInput, "field %s: use AppendRepeatedMessage", fd.FullName())
	}
	rf, err := m.Get(fd)
	if err != nil {
		return nil, err
	}
	r := rf.(*RepeatedField)
	if s, ok := v.(string); ok {
		v = m.ownString(s)
	}
	if b, ok := v.([]byte); ok {
		v = m.ownBytes(b)
	}
	r.Append(v)
	return r, nil
}

// AppendRepeatedMessage appends a new zero-valued submessage element to
// fd's array and returns it for the caller to populate.
func (m *Message) AppendRepeatedMessage(fd *descriptor.FieldDef) (*Message, error) {
	if descriptor.CategoryOf(fd.Type()) != descriptor.CategoryMessage {
		return nil, status.New(status.InvalidInput, "field %s is not message-typed", fd.FullName())
	}
	fl, err := m.fieldLayout(fd)
	if err != nil {
		return nil, err
	}
	rf, err := m.Get(fd)
	if err != nil {
		return nil, err
	}
	sub := New(m.layout.Submsgs[fl.SubmsgIndex], m.arena)
	rf.(*RepeatedField).Append(sub)
	return sub, nil
}

// Mutable returns fd's submessage, allocating and linking a zero-valued
// one (within this message's arena) on first access, and marking fd
// present the way spec.md's "get mutable" accessors do.
func (m *Message) Mutable(fd *descriptor.FieldDef) (*Message, error) {
	if descriptor.CategoryOf(fd.Type()) != descriptor.CategoryMessage {
		return nil, status.New(status.InvalidInput, "field %s is not message-typed", fd.FullName())
	}
	fl, err := m.fieldLayout(fd)
	if err != nil {
		return nil, err
	}

	var sub *Message
	if fl.IsOneof() {
		disc, _ := m.slots[fl.OneofDiscriminatorSlot()].(int32)
		if disc == fd.Number() {
			sub, _ = m.slots[fl.SlotIndex].(*Message)
		}
	} else if m.hasbitSet(fl.HasbitIndex()) {
		sub, _ = m.slots[fl.SlotIndex].(*Message)
	}
	if sub != nil {
		return sub, nil
	}

	sub = New(m.layout.Submsgs[fl.SubmsgIndex], m.arena)
	if fl.IsOneof() {
		m.slots[fl.OneofDiscriminatorSlot()] = fd.Number()
	} else {
		m.setHasbit(fl.HasbitIndex())
	}
	m.slots[fl.SlotIndex] = sub
	return sub, nil
}

// GetMessage returns fd's submessage and whether it is present, without
// allocating one if absent (spec.md's non-mutable accessor).
func (m *Message) GetMessage(fd *descriptor.FieldDef) (*Message, bool, error) {
	has, err := m.Has(fd)
	if err != nil || !has {
		return nil, false, err
	}
	fl, err := m.fieldLayout(fd)
	if err != nil {
		return nil, false, err
	}
	sub, _ := m.slots[fl.SlotIndex].(*Message)
	return sub, sub != nil, nil
}

// OneofCase returns the field currently set within oo, or false if none.
func (m *Message) OneofCase(oo *descriptor.OneofDef) (*descriptor.FieldDef, bool) {
	if len(oo.Fields()) == 0 {
		return nil, false
	}
	fl, err := m.fieldLayout(oo.Fields()[0])
	if err != nil {
		return nil, false
	}
	disc, _ := m.slots[fl.OneofDiscriminatorSlot()].(int32)
	if disc == 0 {
		return nil, false
	}
	fd, ok := oo.FieldByNumber(disc)
	return fd, ok
}

// UnknownFields returns the message's accumulated unknown-field wire
// bytes, in encounter order.
func (m *Message) UnknownFields() []byte { return m.unknown }

// AppendUnknown appends raw wire bytes (a full field: tag + value) to the
// unknown-field buffer, copying them into the arena (spec.md §3.4, §4.4.3).
func (m *Message) AppendUnknown(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	buf, err := m.arena.Malloc(len(m.unknown) + len(b))
	if err != nil {
		return err
	}
	n := copy(buf, m.unknown)
	copy(buf[n:], b)
	m.unknown = buf
	return nil
}

func (m *Message) fieldLayout(fd *descriptor.FieldDef) (*layout.FieldLayout, error) {
	fl, ok := m.layout.FieldByNumber(fd.Number())
	if !ok {
		return nil, status.New(status.SchemaViolation, "field %s: not part of this message's layout", fd.FullName())
	}
	return fl, nil
}

func (m *Message) ownString(s string) string {
	if s == "" {
		return s
	}
	b, err := m.arena.Malloc(len(s))
	if err != nil {
		return s
	}
	copy(b, s)
	return string(b)
}

func (m *Message) ownBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	cp, err := m.arena.Malloc(len(b))
	if err != nil {
		return b
	}
	copy(cp, b)
	return cp
}

func zeroValue(fd *descriptor.FieldDef) any {
	if descriptor.CategoryOf(fd.Type()) == descriptor.CategoryEnum {
		return fd.Default().Enum
	}
	switch fd.Type() {
	case descriptor.TypeBytes:
		return []byte(nil)
	case descriptor.TypeString:
		return ""
	case descriptor.TypeBool:
		return false
	case descriptor.TypeFloat:
		return float32(0)
	case descriptor.TypeDouble:
		return float64(0)
	case descriptor.TypeUint32, descriptor.TypeFixed32:
		return uint32(0)
	case descriptor.TypeUint64, descriptor.TypeFixed64:
		return uint64(0)
	case descriptor.TypeInt32, descriptor.TypeSint32, descriptor.TypeSfixed32:
		return int32(0)
	default: // Int64, Sint64, Sfixed64
		return int64(0)
	}
}
