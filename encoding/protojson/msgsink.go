package protojson

import (
	"reflect"

	"github.com/upb-go/upb/descriptor"
	"github.com/upb-go/upb/handlers"
	"github.com/upb-go/upb/message"
)

var messageClosureType = reflect.TypeOf((*message.Message)(nil))

// msgHandlersCache builds and memoizes the "message-builder" Handlers
// graph the JSON parser drives: component I auto-generated from a
// MessageDef (component G), per spec.md §2's data-flow description.
// Every closure in this graph is a *message.Message; events mutate it
// directly via the message package's own accessors.
type msgHandlersCache struct {
	cache *handlers.Cache
}

func newMsgHandlersCache() *msgHandlersCache {
	c := &msgHandlersCache{}
	c.cache = handlers.NewCache(c.register)
	return c
}

func (c *msgHandlersCache) get(def *descriptor.MessageDef) *handlers.Handlers {
	return c.cache.Get(def)
}

func (c *msgHandlersCache) register(def *descriptor.MessageDef, h *handlers.Handlers) {
	h.DeclareClosureType(nil, handlers.ScopeMessage, messageClosureType)
	for _, fd := range def.Fields() {
		fd := fd
		if descriptor.CategoryOf(fd.Type()) == descriptor.CategoryMessage {
			h.DeclareClosureType(fd, handlers.ScopeSubMessage, messageClosureType)
			h.SetStartSubMessage(fd, func(closure any, _ int) (any, bool) {
				msg := closure.(*message.Message)
				if fd.IsRepeated() {
					sub, err := msg.AppendRepeatedMessage(fd)
					if err != nil {
						return nil, false
					}
					return sub, true
				}
				sub, err := msg.Mutable(fd)
				if err != nil {
					return nil, false
				}
				return sub, true
			})
			continue
		}
		h.SetScalar(fd, func(closure any, v any) bool {
			msg := closure.(*message.Message)
			if fd.IsRepeated() {
				_, err := msg.AppendRepeated(fd, v)
				return err == nil
			}
			return msg.Set(fd, v) == nil
		})
	}
	h.SetUnknownField(func(closure any, tagAndValue []byte) bool {
		msg := closure.(*message.Message)
		return msg.AppendUnknown(tagAndValue) == nil
	})
}

// newMessageSink creates a Sink bound to msg's own message-builder
// Handlers, ready to receive field events for msg.
func (c *msgHandlersCache) newMessageSink(msg *message.Message) *handlers.Sink {
	h := c.get(msg.Layout().Def)
	return handlers.NewSink(h, msg)
}
