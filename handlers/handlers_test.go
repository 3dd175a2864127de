package handlers

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/upb-go/upb/descriptor"
)

func TestScalarDispatchAndDefaultNoOp(t *testing.T) {
	raw := buildFile("t.proto", "p", "proto3", [][]byte{
		buildMessage("M", [][]byte{
			buildField("x", 1, descriptor.TypeInt32, descriptor.Optional, ""),
			buildField("y", 2, descriptor.TypeInt32, descriptor.Optional, ""),
		}),
	})
	s := mustSymTab(t, raw)
	md, ok := s.LookupMessage("p.M")
	require.True(t, ok)
	xFd, _ := md.FieldByName("x")
	yFd, _ := md.FieldByName("y")

	h := New(md)
	var got int32
	h.SetScalar(xFd, func(closure any, v any) bool {
		got = v.(int32)
		return true
	})
	h.Freeze()

	sink := NewSink(h, nil)
	require.True(t, sink.PutScalar(xFd, int32(7)))
	require.Equal(t, int32(7), got)

	// y has no registered handler: PutScalar is a no-op that reports success.
	require.True(t, sink.PutScalar(yFd, int32(99)))
}

func TestFreezePanicsOnMutationAfterFreeze(t *testing.T) {
	raw := buildFile("t.proto", "p", "proto3", [][]byte{
		buildMessage("M", [][]byte{buildField("x", 1, descriptor.TypeInt32, descriptor.Optional, "")}),
	})
	s := mustSymTab(t, raw)
	md, _ := s.LookupMessage("p.M")
	xFd, _ := md.FieldByName("x")

	h := New(md)
	h.Freeze()
	require.Panics(t, func() {
		h.SetScalar(xFd, func(closure any, v any) bool { return true })
	})
}

func TestBindSubHandlersAllowedAfterFreeze(t *testing.T) {
	raw := buildFile("t.proto", "p", "proto3", [][]byte{
		buildMessage("Inner", [][]byte{buildField("x", 1, descriptor.TypeInt32, descriptor.Optional, "")}),
		buildMessage("Outer", [][]byte{buildField("inner", 1, descriptor.TypeMessage, descriptor.Optional, ".p.Inner")}),
	})
	s := mustSymTab(t, raw)
	outerMD, _ := s.LookupMessage("p.Outer")
	innerMD, _ := s.LookupMessage("p.Inner")
	innerFd, _ := outerMD.FieldByName("inner")

	outer := New(outerMD)
	outer.Freeze()
	inner := New(innerMD)
	inner.Freeze()

	outer.BindSubHandlers(innerFd, inner)
	sub, ok := outer.SubHandlers(innerFd)
	require.True(t, ok)
	require.Same(t, inner, sub)
}

func TestStartSubMessageRoutesToChildHandlers(t *testing.T) {
	raw := buildFile("t.proto", "p", "proto3", [][]byte{
		buildMessage("Inner", [][]byte{buildField("x", 1, descriptor.TypeInt32, descriptor.Optional, "")}),
		buildMessage("Outer", [][]byte{buildField("inner", 1, descriptor.TypeMessage, descriptor.Optional, ".p.Inner")}),
	})
	s := mustSymTab(t, raw)
	outerMD, _ := s.LookupMessage("p.Outer")
	innerMD, _ := s.LookupMessage("p.Inner")
	innerFd, _ := outerMD.FieldByName("inner")
	xFd, _ := innerMD.FieldByName("x")

	innerH := New(innerMD)
	var gotX int32
	innerH.SetScalar(xFd, func(closure any, v any) bool {
		gotX = v.(int32)
		return true
	})

	outerH := New(outerMD)
	outerH.BindSubHandlers(innerFd, innerH)
	outerH.Freeze()

	sink := NewSink(outerH, "outer-closure")
	child, ok := sink.StartSubMessage(innerFd)
	require.True(t, ok)
	require.True(t, child.PutScalar(xFd, int32(5)))
	require.Equal(t, int32(5), gotX)
	require.True(t, sink.EndSubMessage(innerFd))
}

func TestStartSubMessageFailsWithoutBoundChild(t *testing.T) {
	raw := buildFile("t.proto", "p", "proto3", [][]byte{
		buildMessage("Inner", [][]byte{buildField("x", 1, descriptor.TypeInt32, descriptor.Optional, "")}),
		buildMessage("Outer", [][]byte{buildField("inner", 1, descriptor.TypeMessage, descriptor.Optional, ".p.Inner")}),
	})
	s := mustSymTab(t, raw)
	outerMD, _ := s.LookupMessage("p.Outer")
	innerFd, _ := outerMD.FieldByName("inner")

	outerH := New(outerMD)
	outerH.Freeze()

	sink := NewSink(outerH, nil)
	_, ok := sink.StartSubMessage(innerFd)
	require.False(t, ok)
}

func TestCacheMemoizesAndBreaksRecursiveCycles(t *testing.T) {
	raw := buildFile("t.proto", "p", "proto3", [][]byte{
		buildMessage("Node", [][]byte{
			buildField("value", 1, descriptor.TypeInt32, descriptor.Optional, ""),
			buildField("next", 2, descriptor.TypeMessage, descriptor.Optional, ".p.Node"),
		}),
	})
	s := mustSymTab(t, raw)
	nodeMD, _ := s.LookupMessage("p.Node")
	nextFd, _ := nodeMD.FieldByName("next")

	var registerCount int
	cache := NewCache(func(def *descriptor.MessageDef, h *Handlers) {
		registerCount++
	})

	h1 := cache.Get(nodeMD)
	h2 := cache.Get(nodeMD)
	require.Same(t, h1, h2)
	require.Equal(t, 1, registerCount, "a self-recursive MessageDef is registered exactly once")

	sub, ok := h1.SubHandlers(nextFd)
	require.True(t, ok)
	require.Same(t, h1, sub, "the cycle resolves back to the same cached Handlers")
}

func TestDeclareClosureTypeAllowsAgreementAndUnspecified(t *testing.T) {
	raw := buildFile("t.proto", "p", "proto3", [][]byte{
		buildMessage("M", [][]byte{buildField("x", 1, descriptor.TypeInt32, descriptor.Optional, "")}),
	})
	s := mustSymTab(t, raw)
	md, _ := s.LookupMessage("p.M")
	xFd, _ := md.FieldByName("x")

	h := New(md)
	strType := reflect.TypeOf("")
	h.DeclareClosureType(xFd, ScopeString, strType)
	// A second, agreeing declaration for the same context is fine.
	h.DeclareClosureType(xFd, ScopeString, strType)

	got, ok := h.ClosureType(xFd, ScopeString)
	require.True(t, ok)
	require.Equal(t, strType, got)

	// A context nobody declared a type for stays unspecified.
	_, ok = h.ClosureType(xFd, ScopeSequence)
	require.False(t, ok)
}

func TestDeclareClosureTypeDetectsMismatchAtRegistration(t *testing.T) {
	raw := buildFile("t.proto", "p", "proto3", [][]byte{
		buildMessage("M", [][]byte{buildField("x", 1, descriptor.TypeInt32, descriptor.Optional, "")}),
	})
	s := mustSymTab(t, raw)
	md, _ := s.LookupMessage("p.M")
	xFd, _ := md.FieldByName("x")

	h := New(md)
	h.DeclareClosureType(xFd, ScopeString, reflect.TypeOf(""))
	require.Panics(t, func() {
		h.DeclareClosureType(xFd, ScopeString, reflect.TypeOf(0))
	})
}

func TestDeclareClosureTypePanicsAfterFreeze(t *testing.T) {
	raw := buildFile("t.proto", "p", "proto3", [][]byte{
		buildMessage("M", [][]byte{buildField("x", 1, descriptor.TypeInt32, descriptor.Optional, "")}),
	})
	s := mustSymTab(t, raw)
	md, _ := s.LookupMessage("p.M")

	h := New(md)
	h.Freeze()
	require.Panics(t, func() {
		h.DeclareClosureType(nil, ScopeMessage, reflect.TypeOf(0))
	})
}

func TestBytesSinkPutAllBuf(t *testing.T) {
	var out []byte
	bs := NewBytesSink(
		func(sizeHint int) (any, bool) { return &out, true },
		func(sub any, p []byte) (int, bool) {
			buf := sub.(*[]byte)
			*buf = append(*buf, p...)
			return len(p), true
		},
		func(sub any) bool { return true },
	)
	require.True(t, PutAllBuf(bs, 0, []byte("hello")))
	require.Equal(t, "hello", string(out))
}

func TestBytesSinkDefaultNoOp(t *testing.T) {
	bs := NewBytesSink(nil, nil, nil)
	require.True(t, PutAllBuf(bs, 0, []byte("anything")))
}
