package descriptor

// Def is the common interface satisfied by every descriptor kind stored
// in a SymTab. spec.md §3.6 describes SymTab entries as tagged pointers
// (2 low bits distinguishing MSG/ENUM/FIELD/ONEOF, since defs are never
// individually freed and C has no interface values). In Go, a plain
// interface value already carries that tag as part of its runtime type,
// so SymTab stores `Def` values directly rather than hand-rolling a
// pointer tag — the equivalent of spec.md §9's "replace raw-pointer
// ownership with an arena+index model" applied to this data structure
// too: the "tag" is the interface's type word, the "index" is the
// pointer itself (still owned, transitively, by the SymTab's arena).
type Def interface {
	FullName() string
	isDef()
}

// OneofDef describes one oneof within a MessageDef (spec.md §3.6).
type OneofDef struct {
	parent *MessageDef
	name   string
	index  int

	byName   map[string]*FieldDef
	byNumber map[int32]*FieldDef
	fields   []*FieldDef
}

func (o *OneofDef) isDef() {}

// FullName returns "package.parent.oneof_name".
func (o *OneofDef) FullName() string { return o.parent.FullName() + "." + o.name }

// Name returns the oneof's bare name.
func (o *OneofDef) Name() string { return o.name }

// Index returns the oneof's position within its MessageDef.
func (o *OneofDef) Index() int { return o.index }

// ContainingMessage returns the MessageDef this oneof belongs to.
func (o *OneofDef) ContainingMessage() *MessageDef { return o.parent }

// Fields returns the oneof's member fields, in declaration order.
func (o *OneofDef) Fields() []*FieldDef { return o.fields }

// FieldByName looks up a member field by its bare name.
func (o *OneofDef) FieldByName(name string) (*FieldDef, bool) {
	f, ok := o.byName[name]
	return f, ok
}

// FieldByNumber looks up a member field by its number.
func (o *OneofDef) FieldByNumber(number int32) (*FieldDef, bool) {
	f, ok := o.byNumber[number]
	return f, ok
}
