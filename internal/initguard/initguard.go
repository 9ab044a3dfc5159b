// Package initguard implements the one-shot initialization state machine that
// lets resources be deployed as clones without constructors.
//
//	Uninitialized --Initialize--> Initializing --(fn ok)--> Initialized
//	                                   |
//	                                   +--(fn error)--> Uninitialized
//
// Initialized is terminal. Sub-initializers call OnlyInitializing and can
// therefore run only inside the outermost Initialize call.
package initguard

import (
	"github.com/roach88/editions/internal/faults"
)

// State is the initialization state of one instance.
type State int

const (
	// Uninitialized is the state of a freshly deployed instance.
	Uninitialized State = iota
	// Initializing is the state while the top-level initializer runs.
	Initializing
	// Initialized is the terminal state.
	Initialized
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initializing:
		return "initializing"
	case Initialized:
		return "initialized"
	default:
		return "unknown"
	}
}

var (
	// ErrAlreadyInitialized is returned by a second top-level Initialize.
	ErrAlreadyInitialized = faults.New(faults.CodeAlreadyInitialized, "instance is already initialized")

	// ErrNotInitializing is returned by sub-initializers outside the init window.
	ErrNotInitializing = faults.New(faults.CodeNotInitializing, "instance is not initializing")

	// ErrNotInitialized is returned by operations on an uninitialized instance.
	ErrNotInitialized = faults.New(faults.CodeNotInitialized, "instance is not initialized")
)

// Guard is the per-instance initialization state. The zero value is
// Uninitialized and ready to use. Not safe for concurrent use.
type Guard struct {
	state State
}

// Initialize runs fn as the top-level initializer.
// A nested call while fn is running fails like any second call.
// If fn fails the guard returns to Uninitialized; the caller is expected to
// discard the instance.
func (g *Guard) Initialize(fn func() error) error {
	if g.state != Uninitialized {
		return ErrAlreadyInitialized
	}
	g.state = Initializing
	if err := fn(); err != nil {
		g.state = Uninitialized
		return err
	}
	g.state = Initialized
	return nil
}

// OnlyInitializing fails unless the top-level initializer is running.
func (g *Guard) OnlyInitializing() error {
	if g.state != Initializing {
		return ErrNotInitializing
	}
	return nil
}

// RequireInitialized fails unless initialization has completed.
func (g *Guard) RequireInitialized() error {
	if g.state != Initialized {
		return ErrNotInitialized
	}
	return nil
}

// State returns the current state.
func (g *Guard) State() State {
	return g.state
}

// Initialized reports whether initialization has completed.
func (g *Guard) Initialized() bool {
	return g.state == Initialized
}
