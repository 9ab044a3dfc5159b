package edition

import (
	"context"
	"strconv"

	"github.com/ipfs/go-cid"

	"github.com/roach88/editions/internal/blobstore"
	"github.com/roach88/editions/internal/faults"
	"github.com/roach88/editions/internal/ident"
	"github.com/roach88/editions/internal/ir"
	"github.com/roach88/editions/internal/ledger"
)

// sliceSize is the number of recipients decoded per blob range read.
const sliceSize = 64

// MintBatch mints one unit to every recipient in the address list at ptr, in
// list order. The batch is all-or-nothing: any violation fails the whole
// call with BATCH_MINT_FAILED before anything is minted.
func (e *Edition) MintBatch(ctx context.Context, caller ident.Address, ptr cid.Cid) (int, error) {
	if err := e.guard.RequireInitialized(); err != nil {
		return 0, err
	}
	if err := e.onlyMinter(caller); err != nil {
		return 0, err
	}

	recipients, err := e.readRecipients(ctx, ptr)
	if err != nil {
		return 0, err
	}
	if err := e.checkMintable(int64(len(recipients))); err != nil {
		return 0, faults.Wrap(faults.CodeBatchMintFailed, "batch violates mint limits", err).
			With("pointer", ptr.String())
	}

	for _, to := range recipients {
		e.mint(to)
	}
	e.emit(ledger.KindBatchMintCompleted, ir.IRObject{
		"pointer": ir.IRString(ptr.String()),
		"count":   ir.IRInt(int64(len(recipients))),
	})
	e.logger.Info("batch minted", "pointer", ptr.String(), "count", len(recipients))
	return len(recipients), nil
}

// Mint mints a single unit to to and returns its token id.
func (e *Edition) Mint(ctx context.Context, caller, to ident.Address) (int64, error) {
	if err := e.guard.RequireInitialized(); err != nil {
		return 0, err
	}
	if err := e.onlyMinter(caller); err != nil {
		return 0, err
	}
	if to.IsZero() {
		return 0, faults.New(faults.CodeMintFailed, "mint to the zero identity")
	}
	if err := e.checkMintable(1); err != nil {
		return 0, faults.Wrap(faults.CodeMintFailed, "mint violates mint limits", err)
	}
	return e.mint(to), nil
}

func (e *Edition) readRecipients(ctx context.Context, ptr cid.Cid) ([]ident.Address, error) {
	fail := func(msg string, cause error) *faults.Error {
		return faults.Wrap(faults.CodeBatchMintFailed, msg, cause).With("pointer", ptr.String())
	}
	if e.deps.Blobs == nil {
		return nil, fail("no blob store configured", nil)
	}

	n, err := blobstore.Count(ctx, e.deps.Blobs, ptr)
	if err != nil {
		return nil, fail("read recipient list", err)
	}
	if n == 0 {
		return nil, fail("recipient list is empty", nil)
	}

	recipients := make([]ident.Address, 0, n)
	for start := 0; start < n; start += sliceSize {
		part, err := blobstore.ReadSlice(ctx, e.deps.Blobs, ptr, start, min(sliceSize, n-start))
		if err != nil {
			return nil, fail("read recipient list", err)
		}
		for i, to := range part {
			if to.IsZero() {
				return nil, fail("recipient is the zero identity", nil).
					With("index", strconv.Itoa(start+i))
			}
		}
		recipients = append(recipients, part...)
	}
	return recipients, nil
}

// checkMintable reports whether n more units may be minted now.
func (e *Edition) checkMintable(n int64) error {
	if e.IsMintingEnded() {
		return faults.New(faults.CodeInvalidArgument, "mint period has ended").
			With("end_of_mint_period", formatInt(e.endOfMintPeriod))
	}
	if e.maxSupply > 0 && e.totalSupply+n > e.maxSupply {
		return faults.New(faults.CodeInvalidArgument, "exceeds max supply").
			With("max_supply", formatInt(e.maxSupply)).
			With("requested", formatInt(n)).
			With("total_supply", formatInt(e.totalSupply))
	}
	return nil
}

func (e *Edition) onlyMinter(caller ident.Address) error {
	if !caller.IsZero() && (caller == e.auth.Owner() || e.minters[caller]) {
		return nil
	}
	return faults.New(faults.CodeUnauthorized, "caller is not the owner or an approved minter").
		With("caller", caller.Hex())
}

func (e *Edition) mint(to ident.Address) int64 {
	e.totalSupply++
	id := e.totalSupply
	e.owners[id] = to
	e.balances[to]++
	e.emit(ledger.KindTransfer, ir.IRObject{
		"from":     ir.Addr(ident.Zero),
		"to":       ir.Addr(to),
		"token_id": ir.IRInt(id),
	})
	return id
}
