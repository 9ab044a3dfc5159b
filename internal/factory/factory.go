// Package factory creates edition instances at deterministic addresses.
//
// The address of an edition is derived from the factory identity, the
// implementation template and a salt computed from the edition name, so at
// most one live edition exists per name. A create that hits an existing
// address fails with ALREADY_EXISTS; a create whose initialization fails
// leaves nothing registered and no events behind.
package factory

import (
	"context"
	"log/slog"
	"slices"

	"github.com/roach88/editions/internal/edition"
	"github.com/roach88/editions/internal/faults"
	"github.com/roach88/editions/internal/ident"
	"github.com/roach88/editions/internal/ir"
	"github.com/roach88/editions/internal/ledger"
)

// Journal records events and supports rolling back a failed creation.
type Journal interface {
	ledger.Emitter
	Mark() int
	RollbackTo(mark int)
}

// Options configure a Factory.
type Options struct {
	// Address is the factory's own identity.
	Address ident.Address

	// Template is the implementation every edition clones.
	Template ident.Address

	// Deps are handed to every created edition. Deps.Events is replaced by
	// the factory journal.
	Deps edition.Deps

	Journal Journal
	Logger  *slog.Logger
}

// Factory owns the arena of created editions.
type Factory struct {
	addr     ident.Address
	template ident.Address
	deps     edition.Deps
	journal  Journal
	logger   *slog.Logger

	editions map[ident.Address]*edition.Edition
	order    []ident.Address
}

// New creates an empty factory.
func New(opts Options) *Factory {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	deps := opts.Deps
	deps.Events = opts.Journal
	if deps.Logger == nil {
		deps.Logger = logger
	}
	return &Factory{
		addr:     opts.Address,
		template: opts.Template,
		deps:     deps,
		journal:  opts.Journal,
		logger:   logger,
		editions: make(map[ident.Address]*edition.Edition),
	}
}

// Address returns the factory identity.
func (f *Factory) Address() ident.Address { return f.addr }

// Template returns the template identity clones are derived from.
func (f *Factory) Template() ident.Address { return f.template }

// Predict returns the address Create would use for name.
func (f *Factory) Predict(name string) ident.Address {
	return DeriveAddress(f.addr, f.template, Salt(name))
}

// Create deploys and initializes the edition for name. cfg.Name is set to
// name. The edition is registered only if initialization succeeds.
func (f *Factory) Create(ctx context.Context, caller ident.Address, name string, cfg edition.Config) (ident.Address, error) {
	if name == "" {
		return ident.Zero, faults.New(faults.CodeInitializationFailed, "name is required")
	}
	addr := f.Predict(name)
	if _, exists := f.editions[addr]; exists {
		return ident.Zero, faults.New(faults.CodeAlreadyExists, "edition already exists").
			With("name", name).
			With("address", addr.Hex())
	}

	mark := f.mark()
	ed := edition.New(addr, f.deps)
	cfg.Name = name
	if err := ed.Initialize(ctx, cfg); err != nil {
		f.rollback(mark)
		f.logger.Debug("edition initialization failed", "name", name, "error", err)
		return ident.Zero, faults.Wrap(faults.CodeInitializationFailed, "initialize edition", err).
			With("name", name)
	}

	f.editions[addr] = ed
	f.order = append(f.order, addr)
	if f.journal != nil {
		f.journal.Emit(f.addr, ledger.KindEditionCreated, ir.IRObject{
			"name":    ir.IRString(name),
			"address": ir.Addr(addr),
			"creator": ir.Addr(caller),
			"owner":   ir.Addr(cfg.Owner),
		})
	}
	f.logger.Info("edition created", "name", name, "edition", addr.Hex())
	return addr, nil
}

// Get returns the edition at addr.
func (f *Factory) Get(addr ident.Address) (*edition.Edition, bool) {
	ed, ok := f.editions[addr]
	return ed, ok
}

// Lookup returns the edition created for name.
func (f *Factory) Lookup(name string) (*edition.Edition, bool) {
	return f.Get(f.Predict(name))
}

// Editions returns edition addresses in creation order.
func (f *Factory) Editions() []ident.Address {
	return slices.Clone(f.order)
}

// Count returns the number of live editions.
func (f *Factory) Count() int {
	return len(f.order)
}

func (f *Factory) mark() int {
	if f.journal == nil {
		return 0
	}
	return f.journal.Mark()
}

func (f *Factory) rollback(mark int) {
	if f.journal != nil {
		f.journal.RollbackTo(mark)
	}
}
