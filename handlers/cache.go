package handlers

import (
	"sync"

	"github.com/upb-go/upb/descriptor"
)

// RegisterFunc is the user-provided callback a HandlerCache invokes once
// per distinct MessageDef reachable from the cache's roots, so it can set
// that message's own handlers before submessage children are bound.
type RegisterFunc func(def *descriptor.MessageDef, h *Handlers)

// Cache lazily builds a Handlers graph for a whole message-type subtree
// (spec.md §4.6 "HandlerCache... invoking a user-provided registration
// callback per MessageDef and recursively binding submessage handlers").
// Handlers are memoized per MessageDef, with a placeholder inserted before
// recursing into submessage fields, exactly as layout.Factory does for
// MessageLayouts -- the same technique breaks the same kind of mutually
// recursive message type cycle here.
type Cache struct {
	mu       sync.Mutex
	register RegisterFunc
	built    map[*descriptor.MessageDef]*Handlers
}

// NewCache creates a HandlerCache that invokes register to populate each
// newly built Handlers.
func NewCache(register RegisterFunc) *Cache {
	return &Cache{register: register, built: make(map[*descriptor.MessageDef]*Handlers)}
}

// Get returns the (frozen) Handlers for def, building the whole reachable
// subtree on first request and memoizing every node.
func (c *Cache) Get(def *descriptor.MessageDef) *Handlers {
	c.mu.Lock()
	defer c.mu.Unlock()
	h := c.getLocked(def)
	h.Freeze()
	return h
}

func (c *Cache) getLocked(def *descriptor.MessageDef) *Handlers {
	if h, ok := c.built[def]; ok {
		return h
	}
	h := New(def)
	c.built[def] = h // placeholder before recursing, breaks recursive-type cycles

	c.register(def, h)

	for _, fd := range def.Fields() {
		if descriptor.CategoryOf(fd.Type()) != descriptor.CategoryMessage {
			continue
		}
		sub := fd.MessageType()
		if sub == nil {
			continue
		}
		h.BindSubHandlers(fd, c.getLocked(sub))
	}

	return h
}
