package descriptor

import "github.com/upb-go/upb/internal/table"

// EnumDef describes a .proto enum (spec.md §3.6).
type EnumDef struct {
	fullName string
	file     *FileDef

	valueNames   []string
	valueNumbers []int32

	byName   *table.StrTable // name -> int32
	byNumber *table.IntTable // number -> string, first name wins on aliases

	defaultValue int32
}

func (e *EnumDef) isDef() {}

// FullName returns the enum's fully qualified name.
func (e *EnumDef) FullName() string { return e.fullName }

// File returns the enum's declaring file.
func (e *EnumDef) File() *FileDef { return e.file }

// Len returns the number of declared values.
func (e *EnumDef) Len() int { return len(e.valueNames) }

// ValueName returns the i'th declared value's name.
func (e *EnumDef) ValueName(i int) string { return e.valueNames[i] }

// ValueNumber returns the i'th declared value's number.
func (e *EnumDef) ValueNumber(i int) int32 { return e.valueNumbers[i] }

// NumberByName resolves a symbolic enum value to its number.
func (e *EnumDef) NumberByName(name string) (int32, bool) {
	v, ok := e.byName.Lookup([]byte(name))
	if !ok {
		return 0, false
	}
	return v.(int32), true
}

// NameByNumber resolves a numeric enum value to its (first-declared)
// symbolic name.
func (e *EnumDef) NameByNumber(number int32) (string, bool) {
	v, ok := e.byNumber.Lookup(number)
	if !ok {
		return "", false
	}
	return v.(string), true
}

// DefaultValue returns the enum's default value: the first declared
// value (required to be 0 in proto3, per spec.md §3.6).
func (e *EnumDef) DefaultValue() int32 { return e.defaultValue }
