package descriptor

import (
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/upb-go/upb/internal/status"
	"github.com/upb-go/upb/internal/table"
)

// AddFile parses and validates a FileDescriptorProto (as raw wire bytes)
// and adds its declarations to s, returning the new FileDef (spec.md
// §4.5.1). Adding a file whose name already exists is rejected, as is a
// file whose dependency list names a file not already present in s.
//
// Every field/message validation failure found while walking the file is
// accumulated via github.com/hashicorp/go-multierror into a single
// returned error, but commit is all-or-nothing: on any failure, s is left
// exactly as it was before the call (spec.md §4.5.1 step 8, §8's testable
// property that double-adding or an invalid file never leaves partial
// state visible).
func (s *SymTab) AddFile(raw []byte) (*FileDef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rf, err := decodeFile(raw)
	if err != nil {
		return nil, status.Wrap(err, "descriptor: malformed FileDescriptorProto")
	}

	if rf.name == "" {
		return nil, status.New(status.SchemaViolation, "FileDescriptorProto missing name")
	}
	if s.byFileName.Has([]byte(rf.name)) {
		return nil, status.New(status.SchemaViolation, "file %q already added", rf.name)
	}
	if rf.pkg != "" && !validPackageName(rf.pkg) {
		return nil, status.New(status.SchemaViolation, "invalid package name %q", rf.pkg)
	}

	var syntax Syntax
	switch rf.syntax {
	case "", "proto2":
		syntax = Proto2
	case "proto3":
		syntax = Proto3
	default:
		return nil, status.New(status.SchemaViolation, "invalid syntax %q", rf.syntax)
	}

	fd := &FileDef{name: rf.name, pkg: rf.pkg, syntax: syntax}
	for _, depName := range rf.dependency {
		v, ok := s.byFileName.Lookup([]byte(depName))
		if !ok {
			return nil, status.New(status.SchemaViolation, "unresolved dependency %q (add it to the symtab first)", depName)
		}
		fd.deps = append(fd.deps, v.(*FileDef))
	}

	b := &builder{
		symtab:  s,
		file:    fd,
		pending: make(map[string]Def),
	}

	var errs *multierror.Error

	for i := range rf.messages {
		md := b.buildMessageSkeleton(&rf.messages[i], fd.pkg, nil, &errs)
		fd.messages = append(fd.messages, md)
	}
	for i := range rf.enums {
		ed := b.buildEnum(&rf.enums[i], fd.pkg, &errs)
		fd.enums = append(fd.enums, ed)
	}
	for i := range rf.extensions {
		xd := b.buildExtensionSkeleton(&rf.extensions[i], fd.pkg, &errs)
		fd.extensions = append(fd.extensions, xd)
	}

	if errs.ErrorOrNil() != nil {
		return nil, status.New(status.SchemaViolation, "%s", errs.Error())
	}

	// Second pass: resolve type_name/extendee references and defaults,
	// now that every declaration in this file (and, transitively, its
	// dependencies) is visible by full name.
	for _, f := range b.allFields {
		b.resolveField(f, syntax, &errs)
	}
	if errs.ErrorOrNil() != nil {
		return nil, status.New(status.SchemaViolation, "%s", errs.Error())
	}

	// Third pass: now that every field's category is fully known,
	// compute selector layout per message (spec.md §3.8, §4.5.3).
	for _, m := range b.allMessages {
		m.submsgCount, m.selectorCount = assignSelectors(m.fields)
	}

	// Commit: splice every new declaration into s atomically.
	for name, d := range b.pending {
		s.byFullName.Insert([]byte(name), d)
	}
	s.byFileName.Insert([]byte(fd.name), fd)

	if rf.pkg == "" {
		logger.Debugw("file has no package", "file", fd.name)
	}

	return fd, nil
}

// builder accumulates the defs produced while processing one AddFile
// call, before they are committed to the SymTab.
type builder struct {
	symtab  *SymTab
	file    *FileDef
	pending map[string]Def

	allFields   []*FieldDef
	allMessages []*MessageDef
}

func (b *builder) lookup(name string) (Def, bool) {
	if d, ok := b.pending[name]; ok {
		return d, true
	}
	return b.symtab.lookupLocked(name)
}

func (s *SymTab) lookupLocked(name string) (Def, bool) {
	v, ok := s.byFullName.Lookup([]byte(name))
	if !ok {
		return nil, false
	}
	return v.(Def), true
}

func join(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}

func (b *builder) buildMessageSkeleton(rm *rawMessage, scope string, parent *MessageDef, errs **multierror.Error) *MessageDef {
	if !validIdent(rm.name) {
		*errs = multierror.Append(*errs, status.New(status.SchemaViolation, "invalid message name %q", rm.name))
	}
	full := join(scope, rm.name)
	m := &MessageDef{
		fullName:    full,
		file:        b.file,
		parent:      parent,
		mapEntry:    rm.mapEntry,
		wkt:         wellKnownByName[full],
		nameTable:   table.NewStrTable(len(rm.fields) + len(rm.oneofs)),
		numberTable: table.NewIntTable(len(rm.fields)),
	}

	for i := range rm.oneofs {
		oo := &OneofDef{parent: m, name: rm.oneofs[i].name, index: i,
			byName: make(map[string]*FieldDef), byNumber: make(map[int32]*FieldDef)}
		if m.nameTable.Has([]byte(oo.name)) {
			*errs = multierror.Append(*errs, status.New(status.SchemaViolation, "duplicate name %q in message %s", oo.name, full))
		}
		m.oneofs = append(m.oneofs, oo)
		m.nameTable.Insert([]byte(oo.name), Def(oo))
	}

	for i := range rm.fields {
		rf := &rm.fields[i]
		f := b.buildFieldSkeleton(rf, m, i, errs)
		m.fields = append(m.fields, f)
		b.allFields = append(b.allFields, f)

		if m.nameTable.Has([]byte(f.name)) {
			*errs = multierror.Append(*errs, status.New(status.SchemaViolation, "duplicate field name %q in message %s", f.name, full))
		} else {
			m.nameTable.Insert([]byte(f.name), Def(f))
		}
		if m.numberTable.Has(f.number) {
			*errs = multierror.Append(*errs, status.New(status.SchemaViolation, "duplicate field number %d in message %s", f.number, full))
		} else {
			m.numberTable.Insert(f.number, f)
		}

		if rf.hasOneof {
			if int(rf.oneofIndex) < 0 || int(rf.oneofIndex) >= len(m.oneofs) {
				*errs = multierror.Append(*errs, status.New(status.SchemaViolation, "field %s has invalid oneof_index", f.fullName))
			} else {
				oo := m.oneofs[rf.oneofIndex]
				if f.label != Optional {
					*errs = multierror.Append(*errs, status.New(status.SchemaViolation, "oneof field %s must have label OPTIONAL", f.fullName))
				}
				f.oneof = oo
				oo.fields = append(oo.fields, f)
				oo.byName[f.name] = f
				oo.byNumber[f.number] = f
			}
		} else if f.label != Required && f.label != Repeated && b.file.syntax == Proto3 {
			// Implicit-presence scalar field in proto3; fine.
		}

		if b.file.syntax == Proto3 {
			if f.label == Required {
				*errs = multierror.Append(*errs, status.New(status.SchemaViolation, "field %s: required is forbidden in proto3", f.fullName))
			}
			if rf.hasDefault {
				*errs = multierror.Append(*errs, status.New(status.SchemaViolation, "field %s: explicit default is forbidden in proto3", f.fullName))
			}
		}
		if rf.hasDefault && CategoryOf(f.typ) == CategoryMessage {
			*errs = multierror.Append(*errs, status.New(status.SchemaViolation, "field %s: message-typed fields cannot have an explicit default", f.fullName))
		}
	}

	b.pending[full] = m
	b.allMessages = append(b.allMessages, m)

	for i := range rm.nested {
		b.buildMessageSkeleton(&rm.nested[i], full, m, errs)
	}
	for i := range rm.enums {
		b.buildEnum(&rm.enums[i], full, errs)
	}
	for i := range rm.extensions {
		b.buildExtensionSkeleton(&rm.extensions[i], full, errs)
	}

	return m
}

func (b *builder) buildFieldSkeleton(rf *rawField, parent *MessageDef, index int, errs **multierror.Error) *FieldDef {
	if !validIdent(rf.name) {
		*errs = multierror.Append(*errs, status.New(status.SchemaViolation, "invalid field name %q", rf.name))
	}
	if rf.number <= 0 || rf.number >= (1<<29) {
		*errs = multierror.Append(*errs, status.New(status.RangeError, "field %s.%s: number %d out of range", parent.fullName, rf.name, rf.number))
	}
	label := Label(rf.label)
	if label != Optional && label != Required && label != Repeated {
		label = Optional
	}
	jsonName := rf.jsonName
	if jsonName == "" {
		jsonName = toLowerCamelCase(rf.name)
	}
	f := &FieldDef{
		fullName: join(parent.fullName, rf.name),
		name:     rf.name,
		jsonName: jsonName,
		parent:   parent,
		index:    index,
		typ:      Type(rf.typ),
		label:    label,
		number:   rf.number,
		typeName: rf.typeName,
		hasDefaultRaw: rf.hasDefault,
		defaultRaw:    rf.defaultValue,
	}
	f.packed = label == Repeated && CategoryOf(f.typ) != CategoryString && CategoryOf(f.typ) != CategoryMessage &&
		(b.file.syntax == Proto3 || false)
	return f
}

func (b *builder) buildExtensionSkeleton(rf *rawField, scope string, errs **multierror.Error) *FieldDef {
	if !validIdent(rf.name) {
		*errs = multierror.Append(*errs, status.New(status.SchemaViolation, "invalid extension name %q", rf.name))
	}
	full := join(scope, rf.name)
	jsonName := rf.jsonName
	if jsonName == "" {
		jsonName = toLowerCamelCase(rf.name)
	}
	f := &FieldDef{
		fullName:     full,
		name:         rf.name,
		jsonName:     jsonName,
		isExtension:  true,
		extendeeName: rf.extendee,
		typ:          Type(rf.typ),
		label:        Label(rf.label),
		number:       rf.number,
		typeName:     rf.typeName,
		hasDefaultRaw: rf.hasDefault,
		defaultRaw:    rf.defaultValue,
	}
	if f.label == 0 {
		f.label = Optional
	}
	b.pending[full] = f
	b.allFields = append(b.allFields, f)
	return f
}

func (b *builder) buildEnum(re *rawEnum, scope string, errs **multierror.Error) *EnumDef {
	if !validIdent(re.name) {
		*errs = multierror.Append(*errs, status.New(status.SchemaViolation, "invalid enum name %q", re.name))
	}
	full := join(scope, re.name)
	e := &EnumDef{
		fullName: full,
		file:     b.file,
		byName:   table.NewStrTable(len(re.values)),
		byNumber: table.NewIntTable(len(re.values)),
	}
	for _, v := range re.values {
		e.valueNames = append(e.valueNames, v.name)
		e.valueNumbers = append(e.valueNumbers, v.number)
		if e.byName.Has([]byte(v.name)) {
			*errs = multierror.Append(*errs, status.New(status.SchemaViolation, "duplicate enum value name %q in %s", v.name, full))
		} else {
			e.byName.Insert([]byte(v.name), v.number)
		}
		if !e.byNumber.Has(v.number) {
			e.byNumber.Insert(v.number, v.name)
		}
	}
	if len(e.valueNames) > 0 {
		e.defaultValue = e.valueNumbers[0]
		if b.file.syntax == Proto3 && e.valueNumbers[0] != 0 {
			*errs = multierror.Append(*errs, status.New(status.SchemaViolation, "proto3 enum %s: first value must be 0", full))
		}
	}
	b.pending[full] = e
	return e
}

func (b *builder) resolveField(f *FieldDef, syntax Syntax, errs **multierror.Error) {
	if f.isExtension {
		d, ok := b.lookup(resolveScopeName(f.extendeeName))
		if !ok {
			*errs = multierror.Append(*errs, status.New(status.SchemaViolation, "extension %s: unresolved extendee %q", f.fullName, f.extendeeName))
		} else if m, ok := d.(*MessageDef); ok {
			f.extendee = m
		} else {
			*errs = multierror.Append(*errs, status.New(status.SchemaViolation, "extension %s: extendee %q is not a message", f.fullName, f.extendeeName))
		}
	}

	if CategoryOf(f.typ) == CategoryMessage || CategoryOf(f.typ) == CategoryEnum {
		scope := ""
		if f.parent != nil {
			scope = f.parent.fullName
		}
		d, ok := b.resolveRelative(scope, f.typeName)
		if !ok {
			*errs = multierror.Append(*errs, status.New(status.SchemaViolation, "field %s: unresolved type %q", f.fullName, f.typeName))
			return
		}
		switch v := d.(type) {
		case *MessageDef:
			if CategoryOf(f.typ) != CategoryMessage {
				*errs = multierror.Append(*errs, status.New(status.SchemaViolation, "field %s: %q is a message, not an enum", f.fullName, f.typeName))
				return
			}
			f.subMsg = v
		case *EnumDef:
			if CategoryOf(f.typ) != CategoryEnum {
				*errs = multierror.Append(*errs, status.New(status.SchemaViolation, "field %s: %q is an enum, not a message", f.fullName, f.typeName))
				return
			}
			f.subEnum = v
		default:
			*errs = multierror.Append(*errs, status.New(status.SchemaViolation, "field %s: %q does not resolve to a type", f.fullName, f.typeName))
			return
		}
	}

	if f.hasDefaultRaw {
		dv, err := parseDefault(f.defaultRaw, f.typ, f.subEnum)
		if err != nil {
			*errs = multierror.Append(*errs, status.Wrap(err, "field %s", f.fullName))
			return
		}
		f.defaultValue = dv
	} else if f.subEnum != nil && CategoryOf(f.typ) == CategoryEnum {
		f.defaultValue = DefaultValue{Kind: DefaultEnum, Enum: f.subEnum.DefaultValue()}
	}

	if f.label == Repeated && CategoryOf(f.typ) != CategoryString && CategoryOf(f.typ) != CategoryMessage {
		// The packed field option is not modeled: this repo treats
		// proto3 repeated scalars as packed and proto2 ones as unpacked.
		f.packed = syntax == Proto3
	}
}

func resolveScopeName(name string) string {
	return strings.TrimPrefix(name, ".")
}

// resolveRelative implements spec.md §4.5.1 step 7's scope search: an
// absolute name (leading '.') is looked up directly; a relative name is
// tried against the given scope and each of its enclosing scopes in turn,
// finally against the bare name.
func (b *builder) resolveRelative(scope, name string) (Def, bool) {
	if strings.HasPrefix(name, ".") {
		return b.lookup(name[1:])
	}
	for {
		candidate := name
		if scope != "" {
			candidate = scope + "." + name
		}
		if d, ok := b.lookup(candidate); ok {
			return d, true
		}
		if scope == "" {
			return nil, false
		}
		if idx := strings.LastIndexByte(scope, '.'); idx >= 0 {
			scope = scope[:idx]
		} else {
			scope = ""
		}
	}
}

func validIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		isAlpha := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
		isDigit := c >= '0' && c <= '9'
		if i == 0 {
			if !isAlpha {
				return false
			}
		} else if !isAlpha && !isDigit {
			return false
		}
	}
	return true
}

// toLowerCamelCase derives a field's default JSON name from its proto name,
// implementing protoc's own ToJsonName algorithm directly (descriptor.proto's
// documented rule): drop each underscore and capitalize the following
// letter.
func toLowerCamelCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	upperNext := false
	for _, c := range s {
		switch {
		case c == '_':
			upperNext = true
		case upperNext:
			b.WriteRune(toUpperASCII(c))
			upperNext = false
		default:
			b.WriteRune(c)
		}
	}
	return b.String()
}

func toUpperASCII(c rune) rune {
	if c >= 'a' && c <= 'z' {
		return c - ('a' - 'A')
	}
	return c
}

func validPackageName(s string) bool {
	if s == "" {
		return false
	}
	for _, seg := range strings.Split(s, ".") {
		if !validIdent(seg) {
			return false
		}
	}
	return true
}
