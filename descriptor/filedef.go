package descriptor

// FileDef describes one compiled .proto file (spec.md §3.6).
type FileDef struct {
	name    string
	pkg     string
	syntax  Syntax
	deps    []*FileDef

	messages   []*MessageDef // top-level only; nested types are found by full name in the SymTab.
	enums      []*EnumDef    // top-level only
	extensions []*FieldDef   // file-scope extensions
}

// Name returns the file's path, as declared in FileDescriptorProto.name.
func (f *FileDef) Name() string { return f.name }

// Package returns the file's declared package, or "" if none.
func (f *FileDef) Package() string { return f.pkg }

// Syntax returns the file's declared syntax.
func (f *FileDef) Syntax() Syntax { return f.syntax }

// Dependencies returns the FileDefs this file depends on, in declaration
// order.
func (f *FileDef) Dependencies() []*FileDef { return f.deps }

// Messages returns the file's top-level messages.
func (f *FileDef) Messages() []*MessageDef { return f.messages }

// Enums returns the file's top-level enums.
func (f *FileDef) Enums() []*EnumDef { return f.enums }

// Extensions returns the file's top-level extension fields.
func (f *FileDef) Extensions() []*FieldDef { return f.extensions }
