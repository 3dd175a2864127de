package protojson

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/upb-go/upb/arena"
	"github.com/upb-go/upb/descriptor"
	"github.com/upb-go/upb/message"
)

func TestRoundtripScalarFields(t *testing.T) {
	fields := [][]byte{
		buildField(fieldSpec{name: "name", number: 1, typ: descriptor.TypeString, label: descriptor.Optional}),
		buildField(fieldSpec{name: "count", number: 2, typ: descriptor.TypeInt32, label: descriptor.Optional}),
		buildField(fieldSpec{name: "big", number: 3, typ: descriptor.TypeInt64, label: descriptor.Optional}),
		buildField(fieldSpec{name: "ok", number: 4, typ: descriptor.TypeBool, label: descriptor.Optional}),
		buildField(fieldSpec{name: "ratio", number: 5, typ: descriptor.TypeDouble, label: descriptor.Optional}),
	}
	raw := buildFile("t.proto", "p", "proto3", [][]byte{buildMessage(messageSpec{name: "M", fields: fields})}, nil)
	_, _, l := mustLayout(t, raw, "p.M")

	m := message.New(l, arena.New())

	nameFd, _ := l.Def.FieldByName("name")
	countFd, _ := l.Def.FieldByName("count")
	bigFd, _ := l.Def.FieldByName("big")
	okFd, _ := l.Def.FieldByName("ok")
	ratioFd, _ := l.Def.FieldByName("ratio")

	require.NoError(t, m.Set(nameFd, "hello"))
	require.NoError(t, m.Set(countFd, int32(7)))
	require.NoError(t, m.Set(bigFd, int64(9223372036854775807)))
	require.NoError(t, m.Set(okFd, true))
	require.NoError(t, m.Set(ratioFd, 1.5))

	out, err := Marshal(m)
	require.NoError(t, err)
	require.JSONEq(t, `{"name":"hello","count":7,"big":"9223372036854775807","ok":true,"ratio":1.5}`, string(out))

	m2 := message.New(l, arena.New())
	require.NoError(t, Unmarshal(out, m2))
	v, err := m2.Get(nameFd)
	require.NoError(t, err)
	require.Equal(t, "hello", v)
	v, err = m2.Get(bigFd)
	require.NoError(t, err)
	require.Equal(t, int64(9223372036854775807), v)
}

func TestRoundtripNestedMessageAndRepeated(t *testing.T) {
	innerFields := [][]byte{
		buildField(fieldSpec{name: "x", number: 1, typ: descriptor.TypeInt32, label: descriptor.Optional}),
	}
	inner := buildMessage(messageSpec{name: "Inner", fields: innerFields})
	outerFields := [][]byte{
		buildField(fieldSpec{name: "inner", number: 1, typ: descriptor.TypeMessage, label: descriptor.Optional, typeName: ".p.Inner"}),
		buildField(fieldSpec{name: "tags", number: 2, typ: descriptor.TypeString, label: descriptor.Repeated}),
	}
	outer := buildMessage(messageSpec{name: "Outer", fields: outerFields})
	raw := buildFile("t.proto", "p", "proto3", [][]byte{inner, outer}, nil)
	s, f, l := mustLayout(t, raw, "p.Outer")

	innerMD, ok := s.LookupMessage("p.Inner")
	require.True(t, ok)
	innerLayout, err := f.Layout(innerMD)
	require.NoError(t, err)

	m := message.New(l, arena.New())
	innerFd, _ := l.Def.FieldByName("inner")
	tagsFd, _ := l.Def.FieldByName("tags")

	sub, err := m.Mutable(innerFd)
	require.NoError(t, err)
	require.Equal(t, innerLayout.Def.FullName(), sub.Layout().Def.FullName())
	xFd, _ := sub.Layout().Def.FieldByName("x")
	require.NoError(t, sub.Set(xFd, int32(42)))

	_, err = m.AppendRepeated(tagsFd, "a")
	require.NoError(t, err)
	_, err = m.AppendRepeated(tagsFd, "b")
	require.NoError(t, err)

	out, err := Marshal(m)
	require.NoError(t, err)
	require.JSONEq(t, `{"inner":{"x":42},"tags":["a","b"]}`, string(out))

	m2 := message.New(l, arena.New())
	require.NoError(t, Unmarshal(out, m2))
	sub2, has, err := m2.GetMessage(innerFd)
	require.NoError(t, err)
	require.True(t, has)
	v, err := sub2.Get(xFd)
	require.NoError(t, err)
	require.Equal(t, int32(42), v)
}

func TestRoundtripEnumByNameAndMap(t *testing.T) {
	colorEnum := buildEnum("Color", map[string]int32{"RED": 0, "BLUE": 1}, []string{"RED", "BLUE"})
	entryFields := [][]byte{
		buildField(fieldSpec{name: "key", number: 1, typ: descriptor.TypeString, label: descriptor.Optional}),
		buildField(fieldSpec{name: "value", number: 2, typ: descriptor.TypeInt32, label: descriptor.Optional}),
	}
	entry := buildMessage(messageSpec{name: "ScoresEntry", fields: entryFields, mapEntry: true})
	msgFields := [][]byte{
		buildField(fieldSpec{name: "color", number: 1, typ: descriptor.TypeEnum, label: descriptor.Optional, typeName: ".p.Color"}),
		buildField(fieldSpec{name: "scores", number: 2, typ: descriptor.TypeMessage, label: descriptor.Repeated, typeName: ".p.M.ScoresEntry"}),
	}
	msg := buildMessage(messageSpec{name: "M", fields: msgFields, nested: [][]byte{entry}})
	raw := buildFile("t.proto", "p", "proto3", [][]byte{msg}, [][]byte{colorEnum})
	_, _, l := mustLayout(t, raw, "p.M")

	m := message.New(l, arena.New())
	colorFd, _ := l.Def.FieldByName("color")
	scoresFd, _ := l.Def.FieldByName("scores")

	require.NoError(t, m.Set(colorFd, int32(1)))

	entryMsg, err := m.AppendRepeatedMessage(scoresFd)
	require.NoError(t, err)
	keyFd, _ := entryMsg.Layout().Def.FieldByName("key")
	valFd, _ := entryMsg.Layout().Def.FieldByName("value")
	require.NoError(t, entryMsg.Set(keyFd, "alice"))
	require.NoError(t, entryMsg.Set(valFd, int32(10)))

	out, err := Marshal(m)
	require.NoError(t, err)
	require.JSONEq(t, `{"color":"BLUE","scores":{"alice":10}}`, string(out))

	m2 := message.New(l, arena.New())
	require.NoError(t, Unmarshal(out, m2))
	v, err := m2.Get(colorFd)
	require.NoError(t, err)
	require.Equal(t, int32(1), v)
}

func TestRoundtripDurationWellKnownType(t *testing.T) {
	durFields := [][]byte{
		buildField(fieldSpec{name: "seconds", number: 1, typ: descriptor.TypeInt64, label: descriptor.Optional}),
		buildField(fieldSpec{name: "nanos", number: 2, typ: descriptor.TypeInt32, label: descriptor.Optional}),
	}
	dur := buildMessage(messageSpec{name: "Duration", fields: durFields})
	raw := buildFile("duration.proto", "google.protobuf", "proto3", [][]byte{dur}, nil)
	_, _, l := mustLayout(t, raw, "google.protobuf.Duration")
	require.Equal(t, descriptor.WKTDuration, l.Def.WellKnownType())

	m := message.New(l, arena.New())
	secondsFd, _ := l.Def.FieldByName("seconds")
	nanosFd, _ := l.Def.FieldByName("nanos")
	require.NoError(t, m.Set(secondsFd, int64(5)))
	require.NoError(t, m.Set(nanosFd, int32(500000000)))

	out, err := Marshal(m)
	require.NoError(t, err)
	require.Equal(t, `"5.5s"`, string(out))

	m2 := message.New(l, arena.New())
	require.NoError(t, Unmarshal(out, m2))
	v, err := m2.Get(secondsFd)
	require.NoError(t, err)
	require.Equal(t, int64(5), v)
}

func TestUnmarshalRejectsUnknownFieldByDefault(t *testing.T) {
	fields := [][]byte{
		buildField(fieldSpec{name: "name", number: 1, typ: descriptor.TypeString, label: descriptor.Optional}),
	}
	raw := buildFile("t.proto", "p", "proto3", [][]byte{buildMessage(messageSpec{name: "M", fields: fields})}, nil)
	_, _, l := mustLayout(t, raw, "p.M")

	m := message.New(l, arena.New())
	err := Unmarshal([]byte(`{"name":"x","bogus":1}`), m)
	require.Error(t, err)

	m2 := message.New(l, arena.New())
	err = UnmarshalOptions{DiscardUnknown: true}.Unmarshal([]byte(`{"name":"x","bogus":1}`), m2)
	require.NoError(t, err)
}
