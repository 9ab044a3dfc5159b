package edition

import (
	"context"
	"log/slog"
	"maps"
	"strconv"
	"time"

	"github.com/roach88/editions/internal/faults"
	"github.com/roach88/editions/internal/ident"
	"github.com/roach88/editions/internal/initguard"
	"github.com/roach88/editions/internal/ir"
	"github.com/roach88/editions/internal/ledger"
	"github.com/roach88/editions/internal/opfilter"
	"github.com/roach88/editions/internal/ownable"
)

// ErrTokenNotFound is returned for unminted token ids.
var ErrTokenNotFound = faults.New(faults.CodeTokenNotFound, "token does not exist")

// Edition is one resource instance.
type Edition struct {
	addr   ident.Address
	guard  initguard.Guard
	auth   ownable.Ownable
	gate   *opfilter.Gate
	deps   Deps
	logger *slog.Logger

	name            string
	symbol          string
	metadata        map[string]string
	royaltyBPS      int64
	maxSupply       int64
	endOfMintPeriod int64 // unix seconds, 0 = open-ended

	totalSupply       int64
	owners            map[int64]ident.Address
	balances          map[ident.Address]int64
	tokenApprovals    map[int64]ident.Address
	operatorApprovals map[ident.Address]map[ident.Address]bool
	minters           map[ident.Address]bool
}

// New creates an uninitialized edition at addr.
func New(addr ident.Address, deps Deps) *Edition {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	e := &Edition{
		addr:              addr,
		deps:              deps,
		logger:            deps.Logger.With("edition", addr.Hex()),
		owners:            make(map[int64]ident.Address),
		balances:          make(map[ident.Address]int64),
		tokenApprovals:    make(map[int64]ident.Address),
		operatorApprovals: make(map[ident.Address]map[ident.Address]bool),
		minters:           make(map[ident.Address]bool),
	}
	opts := []opfilter.GateOption{opfilter.WithLogger(deps.Logger)}
	if deps.Policy != nil {
		opts = append(opts, opfilter.WithPolicy(*deps.Policy))
	}
	e.gate = opfilter.NewGate(addr, &e.auth, deps.Registry, deps.Events, opts...)
	return e
}

// Initialize runs the one-shot initializer. A second call fails with
// ALREADY_INITIALIZED.
func (e *Edition) Initialize(ctx context.Context, cfg Config) error {
	return e.guard.Initialize(func() error {
		if err := cfg.validate(); err != nil {
			return err
		}
		if err := e.auth.Init(&e.guard, e.addr, cfg.Owner, e.deps.Events); err != nil {
			return err
		}
		if err := e.gate.Init(ctx, &e.guard, cfg.OperatorFilter); err != nil {
			return err
		}

		e.name = cfg.Name
		e.symbol = cfg.Symbol
		e.metadata = maps.Clone(cfg.Metadata)
		if e.metadata == nil {
			e.metadata = map[string]string{}
		}
		e.royaltyBPS = cfg.RoyaltyBPS
		e.maxSupply = cfg.MaxSupply
		if cfg.MintPeriod > 0 {
			e.endOfMintPeriod = e.deps.Now().Add(cfg.MintPeriod).Unix()
		}
		e.logger.Debug("edition initialized", "name", cfg.Name, "owner", cfg.Owner.Hex())
		return nil
	})
}

// SetApprovalForAll grants or revokes operator over all of caller's units.
// Granting is transfer-enabling and passes through the operator filter.
func (e *Edition) SetApprovalForAll(ctx context.Context, caller, operator ident.Address, approved bool) error {
	if err := e.guard.RequireInitialized(); err != nil {
		return err
	}
	if approved {
		if err := e.gate.Check(ctx, operator); err != nil {
			return err
		}
	}
	if operator == caller {
		return faults.New(faults.CodeInvalidArgument, "cannot approve self as operator")
	}

	set, ok := e.operatorApprovals[caller]
	if !ok {
		set = make(map[ident.Address]bool)
		e.operatorApprovals[caller] = set
	}
	if approved {
		set[operator] = true
	} else {
		delete(set, operator)
	}
	e.emit(ledger.KindApprovalForAll, ir.IRObject{
		"owner":    ir.Addr(caller),
		"operator": ir.Addr(operator),
		"approved": ir.IRBool(approved),
	})
	return nil
}

// Approve sets the single-unit approval for tokenID. The zero operator
// clears it.
func (e *Edition) Approve(ctx context.Context, caller, operator ident.Address, tokenID int64) error {
	if err := e.guard.RequireInitialized(); err != nil {
		return err
	}
	if !operator.IsZero() {
		if err := e.gate.Check(ctx, operator); err != nil {
			return err
		}
	}
	holder, err := e.OwnerOf(tokenID)
	if err != nil {
		return err
	}
	if caller != holder && !e.IsApprovedForAll(holder, caller) {
		return faults.New(faults.CodeUnauthorized, "caller is not token owner or approved for all").
			With("caller", caller.Hex())
	}
	if operator == holder {
		return faults.New(faults.CodeInvalidArgument, "approval to current owner")
	}

	if operator.IsZero() {
		delete(e.tokenApprovals, tokenID)
	} else {
		e.tokenApprovals[tokenID] = operator
	}
	e.emit(ledger.KindApproval, ir.IRObject{
		"owner":    ir.Addr(holder),
		"approved": ir.Addr(operator),
		"token_id": ir.IRInt(tokenID),
	})
	return nil
}

// TransferFrom moves tokenID from from to to. When the caller is not the
// holder it acts as an operator and must pass the operator filter.
func (e *Edition) TransferFrom(ctx context.Context, caller, from, to ident.Address, tokenID int64) error {
	if err := e.guard.RequireInitialized(); err != nil {
		return err
	}
	if caller != from {
		if err := e.gate.Check(ctx, caller); err != nil {
			return err
		}
	}
	holder, err := e.OwnerOf(tokenID)
	if err != nil {
		return err
	}
	if holder != from {
		return faults.New(faults.CodeInvalidArgument, "transfer from incorrect owner").
			With("from", from.Hex())
	}
	if to.IsZero() {
		return faults.New(faults.CodeInvalidArgument, "transfer to the zero identity")
	}
	if caller != from && e.tokenApprovals[tokenID] != caller && !e.IsApprovedForAll(from, caller) {
		return faults.New(faults.CodeUnauthorized, "caller is not token owner or approved").
			With("caller", caller.Hex())
	}

	delete(e.tokenApprovals, tokenID)
	e.balances[from]--
	e.balances[to]++
	e.owners[tokenID] = to
	e.emit(ledger.KindTransfer, ir.IRObject{
		"from":     ir.Addr(from),
		"to":       ir.Addr(to),
		"token_id": ir.IRInt(tokenID),
	})
	return nil
}

// SetOperatorFilter replaces the active filter. Owner only.
func (e *Edition) SetOperatorFilter(caller, filter ident.Address) error {
	if err := e.guard.RequireInitialized(); err != nil {
		return err
	}
	return e.gate.SetOperatorFilter(caller, filter)
}

// EnableDefaultOperatorFilter switches to the canonical filter. Owner only.
func (e *Edition) EnableDefaultOperatorFilter(ctx context.Context, caller ident.Address) error {
	if err := e.guard.RequireInitialized(); err != nil {
		return err
	}
	return e.gate.EnableDefaultOperatorFilter(ctx, caller)
}

// DisableOperatorFilter turns filtering off. Owner only.
func (e *Edition) DisableOperatorFilter(caller ident.Address) error {
	if err := e.guard.RequireInitialized(); err != nil {
		return err
	}
	return e.gate.DisableOperatorFilter(caller)
}

// TransferOwnership hands the edition to newOwner. Owner only. The zero
// identity is accepted and leaves the edition without an owner.
func (e *Edition) TransferOwnership(caller, newOwner ident.Address) error {
	if err := e.guard.RequireInitialized(); err != nil {
		return err
	}
	return e.auth.TransferOwnership(caller, newOwner)
}

// SetApprovedMinter grants or revokes minting rights. Owner only.
func (e *Edition) SetApprovedMinter(caller, minter ident.Address, allowed bool) error {
	if err := e.guard.RequireInitialized(); err != nil {
		return err
	}
	if err := e.auth.OnlyOwner(caller); err != nil {
		return err
	}
	if minter.IsZero() {
		return faults.New(faults.CodeInvalidArgument, "minter must not be the zero identity")
	}
	if allowed {
		e.minters[minter] = true
	} else {
		delete(e.minters, minter)
	}
	e.emit(ledger.KindApprovedMinterChanged, ir.IRObject{
		"minter":  ir.Addr(minter),
		"allowed": ir.IRBool(allowed),
	})
	return nil
}

func (e *Edition) emit(kind ledger.Kind, data ir.IRObject) {
	if e.deps.Events != nil {
		e.deps.Events.Emit(e.addr, kind, data)
	}
}

func formatInt(n int64) string {
	return strconv.FormatInt(n, 10)
}
