// Package wstest provides an in-memory ws.Conn for tests.
package wstest

import (
	"encoding/json"
	"sync"
)

// Conn records every frame sent to it.
type Conn struct {
	id string

	mu     sync.Mutex
	frames [][]byte
	closed bool
	full   bool
}

func NewConn(id string) *Conn {
	return &Conn{id: id}
}

func (c *Conn) ID() string { return c.id }

func (c *Conn) Send(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.full {
		return false
	}
	c.frames = append(c.frames, payload)
	return true
}

func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// SetFull makes Send refuse frames, like a client with a saturated buffer.
func (c *Conn) SetFull(full bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.full = full
}

// Events decodes every recorded frame.
func (c *Conn) Events() []map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]map[string]any, 0, len(c.frames))
	for _, f := range c.frames {
		var m map[string]any
		if err := json.Unmarshal(f, &m); err == nil {
			out = append(out, m)
		}
	}
	return out
}

// Types lists the "type" of every recorded frame in order.
func (c *Conn) Types() []string {
	var types []string
	for _, e := range c.Events() {
		t, _ := e["type"].(string)
		types = append(types, t)
	}
	return types
}

// Last returns the most recent frame, or nil.
func (c *Conn) Last() map[string]any {
	events := c.Events()
	if len(events) == 0 {
		return nil
	}
	return events[len(events)-1]
}

func (c *Conn) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = nil
}
