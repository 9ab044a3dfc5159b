package edition

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/editions/internal/blobstore"
	"github.com/roach88/editions/internal/faults"
	"github.com/roach88/editions/internal/ident"
	"github.com/roach88/editions/internal/ir"
	"github.com/roach88/editions/internal/ledger"
)

func TestMintBatch_AlphaScenario(t *testing.T) {
	f := newInitialized(t, alphaConfig())
	ctx := context.Background()
	list := recipients(500)
	ptr := f.writeRecipients(t, list)

	n, err := f.ed.MintBatch(ctx, ownerA, ptr)
	require.NoError(t, err)
	assert.Equal(t, 500, n)
	assert.Equal(t, int64(500), f.ed.TotalSupply())

	for i, to := range list {
		holder, err := f.ed.OwnerOf(int64(i + 1))
		require.NoError(t, err)
		assert.Equal(t, to, holder)
		assert.Equal(t, int64(1), f.ed.BalanceOf(to))
	}

	events := f.commit(t)
	require.Len(t, events, 501)
	for i, ev := range events[:500] {
		assert.Equal(t, ledger.KindTransfer, ev.Kind)
		assert.Equal(t, ir.IRInt(int64(i+1)), ev.Data["token_id"])
	}
	last := events[500]
	assert.Equal(t, ledger.KindBatchMintCompleted, last.Kind)
	assert.Equal(t, ir.IRInt(500), last.Data["count"])
	assert.Equal(t, ir.IRString(ptr.String()), last.Data["pointer"])
}

func TestMintBatch_AllOrNothing(t *testing.T) {
	ctx := context.Background()

	t.Run("exceeds supply cap", func(t *testing.T) {
		cfg := alphaConfig()
		cfg.MaxSupply = 10
		f := newInitialized(t, cfg)
		ptr := f.writeRecipients(t, recipients(11))

		_, err := f.ed.MintBatch(ctx, ownerA, ptr)
		assertCode(t, err, faults.CodeBatchMintFailed)
		assert.Equal(t, int64(0), f.ed.TotalSupply())
		assert.Empty(t, f.journal.Pending())
	})

	t.Run("zero recipient", func(t *testing.T) {
		f := newInitialized(t, alphaConfig())
		list := recipients(100)
		list[77] = ident.Zero
		ptr := f.writeRecipients(t, list)

		_, err := f.ed.MintBatch(ctx, ownerA, ptr)
		assertCode(t, err, faults.CodeBatchMintFailed)
		assert.Equal(t, int64(0), f.ed.TotalSupply())
		assert.Equal(t, int64(0), f.ed.BalanceOf(list[0]))
		assert.Empty(t, f.journal.Pending())
	})

	t.Run("mint period ended", func(t *testing.T) {
		f := newInitialized(t, alphaConfig())
		ptr := f.writeRecipients(t, recipients(3))
		f.advance(24 * time.Hour)
		require.True(t, f.ed.IsMintingEnded())

		_, err := f.ed.MintBatch(ctx, ownerA, ptr)
		assertCode(t, err, faults.CodeBatchMintFailed)
		assert.Equal(t, int64(0), f.ed.TotalSupply())
	})

	t.Run("missing blob", func(t *testing.T) {
		f := newInitialized(t, alphaConfig())
		ptr, err := blobstore.Pointer(ownerA, []byte("never written"))
		require.NoError(t, err)

		_, err = f.ed.MintBatch(ctx, ownerA, ptr)
		assertCode(t, err, faults.CodeBatchMintFailed)
		assertCode(t, err, faults.CodeInvalidPointer)
	})

	t.Run("ragged blob", func(t *testing.T) {
		f := newInitialized(t, alphaConfig())
		ptr, err := f.blobs.Write(ctx, ownerA, make([]byte, 30))
		require.NoError(t, err)

		_, err = f.ed.MintBatch(ctx, ownerA, ptr)
		assertCode(t, err, faults.CodeBatchMintFailed)
	})

	t.Run("cap reached exactly", func(t *testing.T) {
		cfg := alphaConfig()
		cfg.MaxSupply = 10
		f := newInitialized(t, cfg)

		n, err := f.ed.MintBatch(ctx, ownerA, f.writeRecipients(t, recipients(10)))
		require.NoError(t, err)
		assert.Equal(t, 10, n)
	})
}

func TestMintBatch_Authorization(t *testing.T) {
	f := newInitialized(t, alphaConfig())
	ctx := context.Background()
	ptr := f.writeRecipients(t, recipients(2))
	minter := ident.Labeled("minter")

	_, err := f.ed.MintBatch(ctx, minter, ptr)
	assertCode(t, err, faults.CodeUnauthorized)

	assertCode(t, f.ed.SetApprovedMinter(stranger, minter, true), faults.CodeUnauthorized)
	require.NoError(t, f.ed.SetApprovedMinter(ownerA, minter, true))
	assert.True(t, f.ed.IsApprovedMinter(minter))

	n, err := f.ed.MintBatch(ctx, minter, ptr)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, f.ed.SetApprovedMinter(ownerA, minter, false))
	_, err = f.ed.MintBatch(ctx, minter, ptr)
	assertCode(t, err, faults.CodeUnauthorized)
}

func TestMint_Sequential(t *testing.T) {
	cfg := alphaConfig()
	cfg.MaxSupply = 2
	cfg.MintPeriod = 0
	f := newInitialized(t, cfg)
	ctx := context.Background()

	id, err := f.ed.Mint(ctx, ownerA, stranger)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	id, err = f.ed.Mint(ctx, ownerA, stranger)
	require.NoError(t, err)
	assert.Equal(t, int64(2), id)
	assert.Equal(t, int64(2), f.ed.BalanceOf(stranger))

	_, err = f.ed.Mint(ctx, ownerA, stranger)
	assertCode(t, err, faults.CodeMintFailed)

	_, err = f.ed.Mint(ctx, ownerA, ident.Zero)
	assertCode(t, err, faults.CodeMintFailed)

	// No mint period means minting never ends.
	f.advance(365 * 24 * time.Hour)
	assert.False(t, f.ed.IsMintingEnded())
}
