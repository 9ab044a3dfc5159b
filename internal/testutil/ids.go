package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDs generates call ids "<prefix>-0001", "<prefix>-0002", ...
//
// This enables deterministic test execution and golden trace comparison:
// event ids hash the call id, so fixed call ids give byte-identical traces.
//
// Thread-safety: SequentialIDs is safe for concurrent use via internal mutex.
type SequentialIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialIDs creates a generator. An empty prefix uses "call".
func NewSequentialIDs(prefix string) *SequentialIDs {
	if prefix == "" {
		prefix = "call"
	}
	return &SequentialIDs{prefix: prefix}
}

// Generate returns the next id.
func (g *SequentialIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}

// Reset restarts numbering at 1.
func (g *SequentialIDs) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
