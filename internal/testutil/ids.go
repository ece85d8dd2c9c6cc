package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDGenerator hands out notification IDs "<prefix>-0001",
// "<prefix>-0002", ... so golden traces stay byte-identical across runs.
//
// Implements store.IDGenerator.
type SequentialIDGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialIDGenerator creates a generator. An empty prefix uses "n".
func NewSequentialIDGenerator(prefix string) *SequentialIDGenerator {
	if prefix == "" {
		prefix = "n"
	}
	return &SequentialIDGenerator{prefix: prefix}
}

// NewID returns the next ID.
func (g *SequentialIDGenerator) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}
