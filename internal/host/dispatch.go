package host

import (
	"context"
	"encoding/hex"
	"strings"
	"time"

	"github.com/roach88/editions/internal/blobstore"
	"github.com/roach88/editions/internal/edition"
	"github.com/roach88/editions/internal/faults"
	"github.com/roach88/editions/internal/ident"
	"github.com/roach88/editions/internal/ir"
	"github.com/roach88/editions/internal/ledger"
)

// Blocker is implemented by registries whose lists can be edited through
// registry.block and registry.unblock calls.
type Blocker interface {
	Block(registrant ident.Address, operators ...ident.Address)
	Unblock(registrant ident.Address, operators ...ident.Address)
}

func (h *Host) dispatch(ctx context.Context, call ledger.Call) (ir.IRObject, error) {
	if call.Caller.IsZero() {
		return nil, faults.New(faults.CodeInvalidArgument, "caller must not be the zero identity")
	}

	switch call.Method {
	case MethodFactoryCreate:
		return h.create(ctx, call)
	case MethodBlobWrite:
		return h.writeBlob(ctx, call)
	case MethodRegistryBlock, MethodRegistryUnblock:
		return h.updateRegistry(call)
	}

	if !strings.HasPrefix(call.Method, "edition.") {
		return nil, faults.New(faults.CodeInvalidArgument, "unknown method").With("method", call.Method)
	}
	ed, ok := h.factory.Get(call.Target)
	if !ok {
		return nil, unknownEdition(call.Target)
	}
	return h.dispatchEdition(ctx, ed, call)
}

func (h *Host) dispatchEdition(ctx context.Context, ed *edition.Edition, call ledger.Call) (ir.IRObject, error) {
	a := args{obj: call.Args}
	caller := call.Caller

	switch call.Method {
	case MethodMintBatch:
		raw := a.str("pointer")
		if err := a.err(); err != nil {
			return nil, err
		}
		ptr, err := blobstore.ParsePointer(raw)
		if err != nil {
			return nil, faults.Wrap(faults.CodeBatchMintFailed, "invalid recipient pointer", err)
		}
		n, err := ed.MintBatch(ctx, caller, ptr)
		if err != nil {
			return nil, err
		}
		return ir.IRObject{"count": ir.IRInt(int64(n))}, nil

	case MethodMint:
		to := a.addr("to")
		if err := a.err(); err != nil {
			return nil, err
		}
		id, err := ed.Mint(ctx, caller, to)
		if err != nil {
			return nil, err
		}
		return ir.IRObject{"token_id": ir.IRInt(id)}, nil

	case MethodSetApprovalForAll:
		operator := a.addr("operator")
		approved := a.boolOr("approved", true)
		if err := a.err(); err != nil {
			return nil, err
		}
		return nil, ed.SetApprovalForAll(ctx, caller, operator, approved)

	case MethodApprove:
		operator := a.addr("operator")
		tokenID := a.int("token_id")
		if err := a.err(); err != nil {
			return nil, err
		}
		return nil, ed.Approve(ctx, caller, operator, tokenID)

	case MethodTransferFrom:
		from := a.addrOr("from", caller)
		to := a.addr("to")
		tokenID := a.int("token_id")
		if err := a.err(); err != nil {
			return nil, err
		}
		return nil, ed.TransferFrom(ctx, caller, from, to, tokenID)

	case MethodSetOperatorFilter:
		filter := a.addr("filter")
		if err := a.err(); err != nil {
			return nil, err
		}
		return nil, ed.SetOperatorFilter(caller, filter)

	case MethodEnableDefaultOperatorFilter:
		if err := ed.EnableDefaultOperatorFilter(ctx, caller); err != nil {
			return nil, err
		}
		return ir.IRObject{"filter": ir.Addr(ed.ActiveFilter())}, nil

	case MethodDisableOperatorFilter:
		return nil, ed.DisableOperatorFilter(caller)

	case MethodTransferOwnership:
		newOwner := a.addr("new_owner")
		if err := a.err(); err != nil {
			return nil, err
		}
		return nil, ed.TransferOwnership(caller, newOwner)

	case MethodSetApprovedMinter:
		minter := a.addr("minter")
		allowed := a.boolOr("allowed", true)
		if err := a.err(); err != nil {
			return nil, err
		}
		return nil, ed.SetApprovedMinter(caller, minter, allowed)
	}

	return nil, faults.New(faults.CodeInvalidArgument, "unknown method").With("method", call.Method)
}

func (h *Host) create(ctx context.Context, call ledger.Call) (ir.IRObject, error) {
	a := args{obj: call.Args}
	name := a.strOr("name", "")
	cfg := edition.Config{
		Symbol:         a.strOr("symbol", ""),
		Owner:          a.addrOr("owner", call.Caller),
		Metadata:       a.strings("metadata"),
		RoyaltyBPS:     a.intOr("royalty_bps", 0),
		MaxSupply:      a.intOr("max_supply", 0),
		MintPeriod:     time.Duration(a.intOr("mint_period", 0)) * time.Second,
		OperatorFilter: a.addrOr("operator_filter", h.defaultFilter),
	}
	if err := a.err(); err != nil {
		return nil, err
	}

	addr, err := h.factory.Create(ctx, call.Caller, name, cfg)
	if err != nil {
		return nil, err
	}
	return ir.IRObject{
		"address": ir.Addr(addr),
		"name":    ir.IRString(name),
	}, nil
}

func (h *Host) writeBlob(ctx context.Context, call ledger.Call) (ir.IRObject, error) {
	a := args{obj: call.Args}
	var data []byte
	if _, ok := call.Args["addresses"]; ok {
		data = blobstore.EncodeAddresses(a.addrs("addresses"))
	} else {
		data = a.hexBytes("data")
	}
	if err := a.err(); err != nil {
		return nil, err
	}

	ptr, err := h.blobs.Write(ctx, call.Caller, data)
	if err != nil {
		return nil, err
	}
	h.journal.Emit(call.Caller, ledger.KindBlobWritten, ir.IRObject{
		"pointer": ir.IRString(ptr.String()),
		"writer":  ir.Addr(call.Caller),
		"size":    ir.IRInt(int64(len(data))),
	})
	return ir.IRObject{
		"pointer": ir.IRString(ptr.String()),
		"size":    ir.IRInt(int64(len(data))),
	}, nil
}

// updateRegistry edits the list registered under the call target. Only the
// registrant itself may edit its list.
func (h *Host) updateRegistry(call ledger.Call) (ir.IRObject, error) {
	blocker, ok := h.registry.(Blocker)
	if !ok {
		return nil, faults.New(faults.CodeInvalidArgument, "registry does not accept list updates")
	}
	if call.Caller != call.Target {
		return nil, faults.New(faults.CodeUnauthorized, "only the registrant may edit its list").
			With("caller", call.Caller.Hex())
	}
	a := args{obj: call.Args}
	operators := a.addrs("operators")
	if err := a.err(); err != nil {
		return nil, err
	}

	if call.Method == MethodRegistryBlock {
		blocker.Block(call.Target, operators...)
	} else {
		blocker.Unblock(call.Target, operators...)
	}
	return ir.IRObject{
		"registrant": ir.Addr(call.Target),
		"operators":  ir.IRInt(int64(len(operators))),
	}, nil
}

// DecodeHex parses optionally 0x-prefixed hex.
func DecodeHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	return hex.DecodeString(s)
}
