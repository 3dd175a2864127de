package descriptor

import "github.com/upb-go/upb/internal/table"

// MessageDef describes a .proto message (spec.md §3.6).
type MessageDef struct {
	fullName string
	file     *FileDef
	parent   *MessageDef // enclosing message, for nested types; nil at top level

	fields []*FieldDef
	oneofs []*OneofDef

	// nameTable maps both field names and oneof names to their Def; a
	// name may denote a field or a oneof but never both (spec.md §3.6
	// invariant). Both tables are spec.md §3.2 tables, not plain Go
	// maps, per §2's "used pervasively" note on component C.
	nameTable   *table.StrTable
	numberTable *table.IntTable

	mapEntry bool
	wkt      WellKnownType

	submsgCount   int // number of distinct submessage fields, for selector layout
	selectorCount int
}

func (m *MessageDef) isDef() {}

// FullName returns the message's fully qualified name.
func (m *MessageDef) FullName() string { return m.fullName }

// File returns the message's declaring file.
func (m *MessageDef) File() *FileDef { return m.file }

// ContainingMessage returns the enclosing message for a nested type, or
// nil at top level.
func (m *MessageDef) ContainingMessage() *MessageDef { return m.parent }

// Fields returns the message's fields, in declaration order (not
// selector/layout order; spec.md §3.3's invariant that field lookup must
// not depend on array order applies to layout, not this accessor).
func (m *MessageDef) Fields() []*FieldDef { return m.fields }

// Oneofs returns the message's oneofs, in declaration order.
func (m *MessageDef) Oneofs() []*OneofDef { return m.oneofs }

// FieldByNumber looks up a field by its wire number.
func (m *MessageDef) FieldByNumber(number int32) (*FieldDef, bool) {
	v, ok := m.numberTable.Lookup(number)
	if !ok {
		return nil, false
	}
	return v.(*FieldDef), true
}

// FieldByName looks up a field by its bare name.
func (m *MessageDef) FieldByName(name string) (*FieldDef, bool) {
	if v, ok := m.nameTable.Lookup([]byte(name)); ok {
		if f, ok := v.(Def).(*FieldDef); ok {
			return f, true
		}
	}
	return nil, false
}

// OneofByName looks up a oneof by its bare name.
func (m *MessageDef) OneofByName(name string) (*OneofDef, bool) {
	if v, ok := m.nameTable.Lookup([]byte(name)); ok {
		if o, ok := v.(Def).(*OneofDef); ok {
			return o, true
		}
	}
	return nil, false
}

// IsMapEntry reports whether this message is the synthetic map-entry
// type for some map field (spec.md §3.6, §4.7.4).
func (m *MessageDef) IsMapEntry() bool { return m.mapEntry }

// WellKnownType returns the message's well-known-type classification.
func (m *MessageDef) WellKnownType() WellKnownType { return m.wkt }

// SubmessageCount returns the number of distinct submessage-typed
// fields, used by the handler selector space (spec.md §3.8).
func (m *MessageDef) SubmessageCount() int { return m.submsgCount }

// SelectorCount returns the total number of selector slots this message
// needs, including the globals (STARTMSG/ENDMSG/UNKNOWN) and one slot per
// submessage start (spec.md §3.8).
func (m *MessageDef) SelectorCount() int { return m.selectorCount }

// MapKeyValue returns the key and value fields of a map-entry message.
// It does not check IsMapEntry: it returns m's fields numbered 1 and 2,
// with nil for either one that m lacks.
func (m *MessageDef) MapKeyValue() (key, value *FieldDef) {
	key, _ = m.FieldByNumber(1)
	value, _ = m.FieldByNumber(2)
	return key, value
}
