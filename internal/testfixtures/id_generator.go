package testfixtures

import (
	"strconv"
	"sync"
)

// IDGenerator hands out predictable recurrence group ids such as "group-1".
type IDGenerator struct {
	mu     sync.Mutex
	prefix string
	issued int
}

// NewIDGenerator returns a generator whose ids start with prefix, or "group"
// when prefix is empty.
func NewIDGenerator(prefix string) *IDGenerator {
	if prefix == "" {
		prefix = "group"
	}
	return &IDGenerator{prefix: prefix}
}

func (g *IDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.issued++
	return g.prefix + "-" + strconv.Itoa(g.issued)
}

// Issued reports how many ids have been handed out.
func (g *IDGenerator) Issued() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.issued
}

// Func adapts the generator to application.WithGroupIDGenerator.
func (g *IDGenerator) Func() func() string {
	return g.Next
}
