package protojson

import (
	"go.uber.org/zap"

	"github.com/upb-go/upb/descriptor"
	"github.com/upb-go/upb/internal/layout"
	"github.com/upb-go/upb/message"
)

// logger is the package-level zap logger (SPEC_FULL.md §4.9, mirroring
// descriptor.SetLogger). The parser and printer make no log calls
// through it.
var logger = zap.NewNop().Sugar()

// SetLogger overrides the package-level logger.
func SetLogger(l *zap.SugaredLogger) {
	if l != nil {
		logger = l
	}
}

// UnmarshalOptions configures Unmarshal (spec.md §6.3's `ignore_json_unknown`
// plus the resolver/layout-factory wiring Any (§4.7.6) needs).
type UnmarshalOptions struct {
	// DiscardUnknown drops unrecognized JSON members instead of failing
	// (the `ignore_json_unknown` flag).
	DiscardUnknown bool

	// Resolver resolves an Any's "@type" URL to a MessageDef. Required
	// only if the message being parsed can contain an Any.
	Resolver *descriptor.SymTab

	// Factory builds MessageLayouts for Any payload types. Required
	// alongside Resolver.
	Factory *layout.Factory
}

// Unmarshal parses JSON-encoded data into msg, merging into any existing
// field values the way codec.Decode does for binary wire bytes.
func Unmarshal(data []byte, msg *message.Message) error {
	return UnmarshalOptions{}.Unmarshal(data, msg)
}

// Unmarshal parses data per o's flags.
func (o UnmarshalOptions) Unmarshal(data []byte, msg *message.Message) error {
	cache := newMsgHandlersCache()
	sink := cache.newMessageSink(msg)
	pc := &parseCtx{opts: o, cache: cache}

	dec := newDecoder(data)
	if err := parseValueForMessage(dec, sink, msg.Layout().Def, pc, 0); err != nil {
		return err
	}
	if !dec.atEOF() {
		return dec.errorf("trailing data after JSON value")
	}
	return nil
}

// MarshalOptions configures Marshal (spec.md §6.3's
// `preserve_proto_fieldnames` plus the resolver Any printing needs).
type MarshalOptions struct {
	// UseProtoNames prints underscored proto field names instead of
	// lowerCamelCase JSON names (`preserve_proto_fieldnames`).
	UseProtoNames bool

	// Indent, if non-empty, is repeated per nesting level to pretty-print
	// the output. An empty Indent (the default) prints compact JSON.
	Indent string

	// Resolver resolves an Any's "type_url" to a MessageDef so its
	// payload can be decoded and printed. Required only if the message
	// being printed can contain an Any.
	Resolver *descriptor.SymTab

	// Factory builds MessageLayouts for Any payload types. Required
	// alongside Resolver.
	Factory *layout.Factory
}

// Marshal prints msg as canonical proto3 JSON.
func Marshal(msg *message.Message) ([]byte, error) {
	return MarshalOptions{}.Marshal(msg)
}

// Marshal prints msg per o's flags.
func (o MarshalOptions) Marshal(msg *message.Message) ([]byte, error) {
	p := &printer{opts: o}
	if err := p.printMessageValue(msg); err != nil {
		return nil, err
	}
	return []byte(p.buf.String()), nil
}
