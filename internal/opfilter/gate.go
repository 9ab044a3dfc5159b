package opfilter

import (
	"context"
	"errors"
	"log/slog"

	"github.com/roach88/editions/internal/faults"
	"github.com/roach88/editions/internal/ident"
	"github.com/roach88/editions/internal/initguard"
	"github.com/roach88/editions/internal/ir"
	"github.com/roach88/editions/internal/ledger"
	"github.com/roach88/editions/internal/ownable"
)

// CanonicalFilter is the well-known shared filter list.
var CanonicalFilter = ident.MustParse("0x3cc6CddA760b79bAfa08dF41ECFA224f810dCeB6")

// ErrOperatorNotAllowed is returned when the registry denies an operator.
var ErrOperatorNotAllowed = faults.New(faults.CodeOperatorNotAllowed, "operator is not allowed")

// Policy resolves the cases the registry does not decide.
type Policy struct {
	// FailOpen allows the call when the registry is unset or errors.
	FailOpen bool

	// OwnerBypass allows the resource owner as operator without a registry query.
	OwnerBypass bool
}

// DefaultPolicy fails closed and lets the owner through.
func DefaultPolicy() Policy {
	return Policy{FailOpen: false, OwnerBypass: true}
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithLogger sets the gate's logger.
func WithLogger(l *slog.Logger) GateOption {
	return func(g *Gate) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithPolicy overrides DefaultPolicy.
func WithPolicy(p Policy) GateOption {
	return func(g *Gate) {
		g.policy = p
	}
}

// Gate is the per-resource operator filter.
type Gate struct {
	source   ident.Address
	auth     *ownable.Ownable
	registry Registry
	policy   Policy
	events   ledger.Emitter
	logger   *slog.Logger

	filter ident.Address

	// subscribed is set once the registry accepted source as a follower of
	// CanonicalFilter. Canonical queries are then made under source.
	subscribed bool
}

// NewGate creates a gate for the resource at source. auth decides who may
// reconfigure it. A nil registry is treated as unreachable.
func NewGate(source ident.Address, auth *ownable.Ownable, registry Registry, events ledger.Emitter, opts ...GateOption) *Gate {
	g := &Gate{
		source:   source,
		auth:     auth,
		registry: registry,
		policy:   DefaultPolicy(),
		events:   events,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Init sets the initial filter. Only valid inside the resource's
// initialization window. Starting on the canonical filter subscribes the
// resource like EnableDefaultOperatorFilter does.
func (g *Gate) Init(ctx context.Context, guard *initguard.Guard, filter ident.Address) error {
	if err := guard.OnlyInitializing(); err != nil {
		return err
	}
	if filter == CanonicalFilter {
		if err := g.subscribe(ctx); err != nil {
			return err
		}
	}
	g.filter = filter
	if !filter.IsZero() {
		g.emit()
	}
	return nil
}

// Filter returns the active filter; zero means disabled.
func (g *Gate) Filter() ident.Address {
	return g.filter
}

// Enabled reports whether a filter is active.
func (g *Gate) Enabled() bool {
	return !g.filter.IsZero()
}

// Policy returns the gate's failure policy.
func (g *Gate) Policy() Policy {
	return g.policy
}

// SetOperatorFilter replaces the active filter. Owner only.
func (g *Gate) SetOperatorFilter(caller, filter ident.Address) error {
	if err := g.auth.OnlyOwner(caller); err != nil {
		return err
	}
	g.set(filter)
	return nil
}

// EnableDefaultOperatorFilter switches to CanonicalFilter and, when the
// registry supports it, subscribes the resource to the canonical list.
// Owner only.
func (g *Gate) EnableDefaultOperatorFilter(ctx context.Context, caller ident.Address) error {
	if err := g.auth.OnlyOwner(caller); err != nil {
		return err
	}
	if err := g.subscribe(ctx); err != nil {
		return err
	}
	g.set(CanonicalFilter)
	return nil
}

// DisableOperatorFilter sets the disabled sentinel. Owner only.
func (g *Gate) DisableOperatorFilter(caller ident.Address) error {
	if err := g.auth.OnlyOwner(caller); err != nil {
		return err
	}
	g.set(ident.Zero)
	return nil
}

// Subscribed reports whether the registry accepted the resource as a
// follower of the canonical list.
func (g *Gate) Subscribed() bool {
	return g.subscribed
}

// Check is the precondition of every transfer-enabling call. It returns nil
// when operator may proceed.
//
// On the canonical filter a subscribed resource is queried under its own
// identity, so registries that index by resource answer from the list the
// resource follows.
func (g *Gate) Check(ctx context.Context, operator ident.Address) error {
	if g.filter.IsZero() {
		return nil
	}
	if g.policy.OwnerBypass && !operator.IsZero() && operator == g.auth.Owner() {
		return nil
	}
	if g.registry == nil {
		return g.unavailable(operator, faults.New(faults.CodeRegistryUnavailable, "no registry configured"))
	}

	allowed, err := g.registry.IsAllowed(ctx, g.registrant(), operator)
	if err != nil {
		return g.unavailable(operator, err)
	}
	if !allowed {
		g.logger.Debug("operator denied",
			"edition", g.source.Hex(),
			"filter", g.filter.Hex(),
			"operator", operator.Hex(),
		)
		return ErrOperatorNotAllowed.
			With("filter", g.filter.Hex()).
			With("operator", operator.Hex())
	}
	return nil
}

func (g *Gate) unavailable(operator ident.Address, cause error) error {
	if !faults.Is(cause, faults.CodeRegistryUnavailable) {
		cause = faults.Wrap(faults.CodeRegistryUnavailable, ErrRegistryUnavailable.Message, cause)
	}
	if g.policy.FailOpen {
		g.logger.Warn("operator registry failed, allowing",
			"edition", g.source.Hex(),
			"operator", operator.Hex(),
			"error", cause,
		)
		return nil
	}
	return faults.Wrap(faults.CodeOperatorNotAllowed, "operator registry unavailable", cause).
		With("filter", g.filter.Hex()).
		With("operator", operator.Hex())
}

func (g *Gate) registrant() ident.Address {
	if g.subscribed && g.filter == CanonicalFilter {
		return g.source
	}
	return g.filter
}

func (g *Gate) subscribe(ctx context.Context) error {
	sub, ok := g.registry.(Subscriber)
	if !ok {
		return nil
	}
	err := sub.Subscribe(ctx, g.source, CanonicalFilter)
	switch {
	case err == nil:
		g.subscribed = true
		return nil
	case errors.Is(err, ErrSubscriptionsUnsupported):
		g.logger.Debug("registry does not support subscriptions", "edition", g.source.Hex())
		return nil
	case faults.Is(err, faults.CodeRegistryUnavailable):
		return err
	default:
		return faults.Wrap(faults.CodeRegistryUnavailable, "subscribe to canonical filter", err)
	}
}

func (g *Gate) set(filter ident.Address) {
	g.filter = filter
	g.emit()
}

func (g *Gate) emit() {
	if g.events == nil {
		return
	}
	g.events.Emit(g.source, ledger.KindOperatorFilterChanged, ir.IRObject{
		"filter": ir.Addr(g.filter),
	})
}
