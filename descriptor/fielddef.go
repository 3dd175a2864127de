package descriptor

// FieldDef describes one field of a MessageDef, or a top-level/nested
// extension (spec.md §3.6).
type FieldDef struct {
	fullName string
	name     string
	jsonName string
	parent   *MessageDef // containing message; nil for a file-scope extension
	oneof    *OneofDef
	index    int // position within parent.fields

	typ    Type
	label  Label
	number int32

	selectorBase int

	isExtension  bool
	extendeeName string
	extendee     *MessageDef

	lazy   bool
	packed bool

	hasDefaultRaw bool
	defaultRaw    string
	defaultValue  DefaultValue

	typeName string // raw type_name, resolved below
	subMsg   *MessageDef
	subEnum  *EnumDef
}

func (f *FieldDef) isDef() {}

// FullName returns the field's fully qualified name.
func (f *FieldDef) FullName() string { return f.fullName }

// Name returns the field's bare name.
func (f *FieldDef) Name() string { return f.name }

// JSONName returns the field's lowerCamelCase JSON name: either the
// explicit json_name from the FileDescriptorProto, or one derived from
// Name by the canonical proto3 JSON camel-casing rule (spec.md §4.8
// "Field names: either proto field name or camelCase JSON name at cache
// construction time").
func (f *FieldDef) JSONName() string { return f.jsonName }

// Number returns the field's wire number.
func (f *FieldDef) Number() int32 { return f.number }

// Index returns the field's position within its containing message.
func (f *FieldDef) Index() int { return f.index }

// Type returns the field's descriptor type (1-18).
func (f *FieldDef) Type() Type { return f.typ }

// Label returns the field's cardinality.
func (f *FieldDef) Label() Label { return f.label }

// IsRepeated reports whether the field is repeated.
func (f *FieldDef) IsRepeated() bool { return f.label == Repeated }

// IsExtension reports whether this FieldDef describes an extension.
func (f *FieldDef) IsExtension() bool { return f.isExtension }

// IsPacked reports whether a repeated scalar field is wire-packed: true
// for proto3 repeated scalars. The packed field option is not read, so
// proto2 repeated scalars always report false.
func (f *FieldDef) IsPacked() bool { return f.packed }

// ContainingOneof returns the oneof this field belongs to, or nil.
func (f *FieldDef) ContainingOneof() *OneofDef { return f.oneof }

// ContainingMessage returns the message this field is declared in.
func (f *FieldDef) ContainingMessage() *MessageDef { return f.parent }

// Extendee returns the resolved MessageDef this extension extends, or
// nil if this is not an extension.
func (f *FieldDef) Extendee() *MessageDef { return f.extendee }

// MessageType returns the resolved MessageDef for a message/group field.
func (f *FieldDef) MessageType() *MessageDef { return f.subMsg }

// EnumType returns the resolved EnumDef for an enum field.
func (f *FieldDef) EnumType() *EnumDef { return f.subEnum }

// HasDefault reports whether an explicit default was declared.
func (f *FieldDef) HasDefault() bool { return f.hasDefaultRaw }

// Default returns the field's parsed default value.
func (f *FieldDef) Default() DefaultValue { return f.defaultValue }

// SelectorBase returns the dense selector base assigned to this field
// (spec.md §3.8).
func (f *FieldDef) SelectorBase() int { return f.selectorBase }

// SelectorCount returns the number of selector slots this field reserves:
// 1 + 2*isSeq + 2*isString + 3*lazy (spec.md §3.8).
func (f *FieldDef) SelectorCount() int {
	n := 1
	if f.IsRepeated() {
		n += 2
	}
	if CategoryOf(f.typ) == CategoryString {
		n += 2
	}
	if f.lazy {
		n += 3
	}
	return n
}
