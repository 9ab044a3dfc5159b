// Package ownable provides single-owner authorization for edition resources.
//
// The owner is set exactly once by Init, which only runs inside the
// resource's initialization window, and afterwards changes only through
// TransferOwnership by the current owner.
//
// There is no zero-address check: transferring to ident.Zero is allowed and
// leaves the resource permanently ownerless. Callers that want protection
// must check before calling.
package ownable

import (
	"github.com/roach88/editions/internal/faults"
	"github.com/roach88/editions/internal/ident"
	"github.com/roach88/editions/internal/initguard"
	"github.com/roach88/editions/internal/ir"
	"github.com/roach88/editions/internal/ledger"
)

// ErrUnauthorized is returned when a non-owner calls an owner-only action.
var ErrUnauthorized = faults.New(faults.CodeUnauthorized, "caller is not the owner")

// Ownable holds the owner of one resource. Not safe for concurrent use.
type Ownable struct {
	source ident.Address
	owner  ident.Address
	events ledger.Emitter
}

// Init sets the initial owner. Must run while guard is initializing.
// Emits OwnershipTransferred with previous_owner = 0x0.
func (o *Ownable) Init(guard *initguard.Guard, source, owner ident.Address, events ledger.Emitter) error {
	if err := guard.OnlyInitializing(); err != nil {
		return err
	}
	o.source = source
	o.events = events
	o.set(owner)
	return nil
}

// Owner returns the current owner.
func (o *Ownable) Owner() ident.Address {
	return o.owner
}

// OnlyOwner fails with ErrUnauthorized unless caller is the owner.
// The null identity never passes, even on an ownerless resource.
func (o *Ownable) OnlyOwner(caller ident.Address) error {
	if caller.IsZero() || caller != o.owner {
		return ErrUnauthorized.With("caller", caller.Hex())
	}
	return nil
}

// TransferOwnership replaces the owner. Only the current owner may call it.
func (o *Ownable) TransferOwnership(caller, newOwner ident.Address) error {
	if err := o.OnlyOwner(caller); err != nil {
		return err
	}
	o.set(newOwner)
	return nil
}

func (o *Ownable) set(newOwner ident.Address) {
	previous := o.owner
	o.owner = newOwner
	if o.events != nil {
		o.events.Emit(o.source, ledger.KindOwnershipTransferred, ir.IRObject{
			"previous_owner": ir.Addr(previous),
			"new_owner":      ir.Addr(newOwner),
		})
	}
}
