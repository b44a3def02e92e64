package responder

import "sync"

// DefaultContextSize is the number of turns kept for the model.
const DefaultContextSize = 100

// Context is the rolling conversation sent along with each request.
type Context struct {
	mu    sync.Mutex
	size  int
	turns []Turn
}

// NewContext creates a context keeping at most size turns.
func NewContext(size int) *Context {
	if size <= 0 {
		size = DefaultContextSize
	}
	return &Context{size: size}
}

// Add appends a turn and drops the oldest past capacity.
func (c *Context) Add(role, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = append(c.turns, Turn{Role: role, Content: content})
	if over := len(c.turns) - c.size; over > 0 {
		c.turns = append(c.turns[:0:0], c.turns[over:]...)
	}
}

// Turns returns a copy of the turns, oldest first.
func (c *Context) Turns() []Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Turn(nil), c.turns...)
}

// Len returns the number of turns.
func (c *Context) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.turns)
}
