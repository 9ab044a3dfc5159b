package opfilter

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/roach88/editions/internal/faults"
	"github.com/roach88/editions/internal/ident"
)

// Registry answers allow/deny queries for operators under a registrant's list.
type Registry interface {
	IsAllowed(ctx context.Context, registrant, operator ident.Address) (bool, error)
}

// Subscriber is implemented by registries that let a registrant follow
// another registrant's curated list. Once registrant follows source,
// IsAllowed(registrant, op) answers from source's list. Implementations that
// only learn at call time that the backend cannot subscribe return
// ErrSubscriptionsUnsupported.
type Subscriber interface {
	Subscribe(ctx context.Context, registrant, source ident.Address) error
}

// ErrSubscriptionsUnsupported reports that a Subscriber's backend does not
// support subscriptions. Callers treat it like a registry without Subscribe.
var ErrSubscriptionsUnsupported = errors.New("registry does not support subscriptions")

// ErrRegistryUnavailable is returned when the registry cannot answer.
var ErrRegistryUnavailable = faults.New(faults.CodeRegistryUnavailable, "operator registry unavailable")

// Noop allows every operator.
type Noop struct{}

// IsAllowed always reports true.
func (Noop) IsAllowed(context.Context, ident.Address, ident.Address) (bool, error) {
	return true, nil
}

// Memory is an in-process registry: registrant -> blocked operators, plus
// subscriptions. A subscribed registrant is answered from its source's list.
type Memory struct {
	mu      sync.RWMutex
	blocked map[ident.Address]map[ident.Address]struct{}
	subs    map[ident.Address]ident.Address
}

// NewMemory creates an empty registry.
func NewMemory() *Memory {
	return &Memory{
		blocked: make(map[ident.Address]map[ident.Address]struct{}),
		subs:    make(map[ident.Address]ident.Address),
	}
}

// Block adds operators to registrant's list.
func (m *Memory) Block(registrant ident.Address, operators ...ident.Address) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.blocked[registrant]
	if !ok {
		set = make(map[ident.Address]struct{})
		m.blocked[registrant] = set
	}
	for _, op := range operators {
		set[op] = struct{}{}
	}
}

// Unblock removes operators from registrant's list.
func (m *Memory) Unblock(registrant ident.Address, operators ...ident.Address) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set := m.blocked[registrant]
	for _, op := range operators {
		delete(set, op)
	}
}

// Blocked returns registrant's own list in byte order.
func (m *Memory) Blocked(registrant ident.Address) []ident.Address {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ident.Address, 0, len(m.blocked[registrant]))
	for op := range m.blocked[registrant] {
		out = append(out, op)
	}
	slices.SortFunc(out, func(a, b ident.Address) int {
		return slices.Compare(a[:], b[:])
	})
	return out
}

// Subscribe makes registrant follow source's list.
func (m *Memory) Subscribe(_ context.Context, registrant, source ident.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if registrant == source {
		delete(m.subs, registrant)
		return nil
	}
	m.subs[registrant] = source
	return nil
}

// SubscriptionOf returns the registrant registrant follows, if any.
func (m *Memory) SubscriptionOf(registrant ident.Address) (ident.Address, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	src, ok := m.subs[registrant]
	return src, ok
}

// IsAllowed reports whether operator is absent from registrant's list, or
// from the list registrant is subscribed to.
func (m *Memory) IsAllowed(_ context.Context, registrant, operator ident.Address) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if src, ok := m.subs[registrant]; ok {
		registrant = src
	}
	_, blocked := m.blocked[registrant][operator]
	return !blocked, nil
}
