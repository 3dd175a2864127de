package descriptor

import (
	"sync"

	"go.uber.org/zap"

	"github.com/upb-go/upb/internal/table"
)

// SymTab is the arena-lifetime symbol table owning every Def produced by
// AddFile (spec.md §3.6, §4.5). There is no arena.Arena field here: Go's
// garbage collector already gives every Def the symtab's lifetime once
// it is reachable from SymTab.byFullName, which is the property the C
// library uses an arena to get explicitly (spec.md §9design note).
//
// byFullName/byFileName are spec.md §3.2 string tables rather than plain
// Go maps, per §2's "used pervasively" note on component C.
type SymTab struct {
	mu sync.RWMutex

	byFullName *table.StrTable
	byFileName *table.StrTable
}

// NewSymTab creates an empty symbol table.
func NewSymTab() *SymTab {
	return &SymTab{
		byFullName: table.NewStrTable(16),
		byFileName: table.NewStrTable(4),
	}
}

// logger is the package-level zap logger used for non-fatal descriptor
// build warnings (SPEC_FULL.md §1.1). Overridable for embedding
// applications that want build warnings routed to their own sink.
var logger = zap.NewNop().Sugar()

// SetLogger overrides the logger used for descriptor-build warnings.
func SetLogger(l *zap.SugaredLogger) {
	if l != nil {
		logger = l
	}
}

// LookupMessage resolves a full name to a MessageDef.
func (s *SymTab) LookupMessage(fullName string) (*MessageDef, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.byFullName.Lookup([]byte(fullName))
	if !ok {
		return nil, false
	}
	m, ok := v.(*MessageDef)
	return m, ok
}

// LookupEnum resolves a full name to an EnumDef.
func (s *SymTab) LookupEnum(fullName string) (*EnumDef, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.byFullName.Lookup([]byte(fullName))
	if !ok {
		return nil, false
	}
	e, ok := v.(*EnumDef)
	return e, ok
}

// LookupField resolves a full name to a FieldDef (for top-level
// extensions; message fields are normally looked up via MessageDef).
func (s *SymTab) LookupField(fullName string) (*FieldDef, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.byFullName.Lookup([]byte(fullName))
	if !ok {
		return nil, false
	}
	f, ok := v.(*FieldDef)
	return f, ok
}

// LookupFile resolves a file path to its FileDef.
func (s *SymTab) LookupFile(name string) (*FileDef, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.byFileName.Lookup([]byte(name))
	if !ok {
		return nil, false
	}
	f, _ := v.(*FileDef)
	return f, f != nil
}

// Files returns every file added so far, in AddFile order is not
// guaranteed (spec.md §4.2 "Determinism" leaves table iteration order
// unspecified); callers that need stable output should sort. Used by
// cmd/upb describe.
func (s *SymTab) Files() []*FileDef {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*FileDef, 0, s.byFileName.Len())
	s.byFileName.Range(func(_ []byte, v any) bool {
		out = append(out, v.(*FileDef))
		return true
	})
	return out
}
