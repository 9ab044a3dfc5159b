package host

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/roach88/editions/internal/blobstore"
	"github.com/roach88/editions/internal/edition"
	"github.com/roach88/editions/internal/faults"
	"github.com/roach88/editions/internal/ident"
	"github.com/roach88/editions/internal/ir"
	"github.com/roach88/editions/internal/ledger"
	"github.com/roach88/editions/internal/opfilter"
	"github.com/roach88/editions/internal/store"
	"github.com/roach88/editions/internal/testutil"
)

var (
	factoryAddr  = ident.Labeled("factory")
	templateAddr = ident.Labeled("template")
	ownerA       = ident.Labeled("owner-a")
	stranger     = ident.Labeled("stranger")
	operatorX    = ident.Labeled("operator-x")
	operatorY    = ident.Labeled("operator-y")
	filterF      = ident.Labeled("filter-f")
)

type testHost struct {
	*Host
	clock    *testutil.ManualClock
	registry *opfilter.Memory
	spans    *tracetest.SpanRecorder
}

func hostOptions(st *store.Store, registry *opfilter.Memory, clock *testutil.ManualClock, spans *tracetest.SpanRecorder) Options {
	opts := Options{
		Store:    st,
		Registry: registry,
		Policy:   opfilter.DefaultPolicy(),
		Factory:  factoryAddr,
		Template: templateAddr,
		IDs:      testutil.NewSequentialIDs("call"),
		Now:      clock.Now,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	if st != nil {
		opts.Blobs = blobstore.NewSQLite(st)
	}
	if spans != nil {
		opts.Tracer = sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans)).Tracer("test")
	}
	return opts
}

func newTestHost(t *testing.T) *testHost {
	t.Helper()
	th := &testHost{
		clock:    testutil.NewManualClock(time.Time{}),
		registry: opfilter.NewMemory(),
		spans:    tracetest.NewSpanRecorder(),
	}
	th.Host = New(hostOptions(nil, th.registry, th.clock, th.spans))
	return th
}

func (th *testHost) submit(t *testing.T, caller ident.Address, method string, target ident.Address, args ir.IRObject) Outcome {
	t.Helper()
	out, err := th.Submit(context.Background(), caller, method, target, args)
	require.NoError(t, err)
	return out
}

func (th *testHost) mustOK(t *testing.T, caller ident.Address, method string, target ident.Address, args ir.IRObject) Outcome {
	t.Helper()
	out := th.submit(t, caller, method, target, args)
	require.True(t, out.OK(), "%s failed: %v", method, out.Err)
	return out
}

func (th *testHost) createAlpha(t *testing.T, extra ir.IRObject) ident.Address {
	t.Helper()
	args := ir.IRObject{
		"name":        ir.IRString("alpha"),
		"symbol":      ir.IRString("ALPHA"),
		"royalty_bps": ir.IRInt(250),
		"max_supply":  ir.IRInt(1000),
		"mint_period": ir.IRInt(86400),
		"metadata":    ir.IRObject{"description": ir.IRString("first edition")},
	}
	for k, v := range extra {
		args[k] = v
	}
	out := th.mustOK(t, ownerA, MethodFactoryCreate, factoryAddr, args)
	addr, err := out.Receipt.Result.Address("address")
	require.NoError(t, err)
	return addr
}

func addressArgs(addrs []ident.Address) ir.IRArray {
	arr := make(ir.IRArray, len(addrs))
	for i, a := range addrs {
		arr[i] = ir.Addr(a)
	}
	return arr
}

func recipients(n int) []ident.Address {
	out := make([]ident.Address, n)
	for i := range out {
		out[i] = ident.Labeled(fmt.Sprintf("recipient-%03d", i))
	}
	return out
}

func assertFailed(t *testing.T, out Outcome, code faults.Code) {
	t.Helper()
	require.False(t, out.OK(), "expected %s, call succeeded", code)
	assert.Equal(t, string(code), out.Receipt.ErrorCode, "error: %v", out.Err)
	assert.Empty(t, out.Events)
}

func kinds(events []ledger.Event) []ledger.Kind {
	out := make([]ledger.Kind, len(events))
	for i, ev := range events {
		out[i] = ev.Kind
	}
	return out
}

func TestCreate_RegistersEdition(t *testing.T) {
	th := newTestHost(t)

	addr := th.createAlpha(t, nil)
	assert.Equal(t, th.Predict("alpha"), addr)

	info, ok := th.Edition(addr)
	require.True(t, ok)
	assert.Equal(t, "alpha", info.Name)
	assert.Equal(t, ownerA, info.Owner)

	events := th.Events(ident.Zero, "")
	assert.Equal(t, []ledger.Kind{ledger.KindOwnershipTransferred, ledger.KindEditionCreated}, kinds(events))
	assert.Len(t, th.Editions(), 1)
}

func TestCreate_MintPeriodUsesCallTime(t *testing.T) {
	th := newTestHost(t)
	addr := th.createAlpha(t, nil)

	info, ok := th.Edition(addr)
	require.True(t, ok)
	assert.Equal(t, testutil.DefaultEpoch.Unix()+86400, info.EndOfMintPeriod)
}

func TestCreate_DuplicateNameFails(t *testing.T) {
	th := newTestHost(t)
	th.createAlpha(t, nil)

	out := th.submit(t, stranger, MethodFactoryCreate, factoryAddr, ir.IRObject{"name": ir.IRString("alpha")})
	assertFailed(t, out, faults.CodeAlreadyExists)
}

func TestCreate_InvalidConfigLeavesNothing(t *testing.T) {
	th := newTestHost(t)

	out := th.submit(t, ownerA, MethodFactoryCreate, factoryAddr, ir.IRObject{
		"name":        ir.IRString("alpha"),
		"royalty_bps": ir.IRInt(10001),
	})
	assertFailed(t, out, faults.CodeInitializationFailed)
	assert.Empty(t, th.Editions())
	assert.Empty(t, th.Events(ident.Zero, ""))
}

func TestSubmit_ZeroCallerRejected(t *testing.T) {
	th := newTestHost(t)

	out := th.submit(t, ident.Zero, MethodFactoryCreate, factoryAddr, ir.IRObject{"name": ir.IRString("alpha")})
	assertFailed(t, out, faults.CodeInvalidArgument)
}

func TestSubmit_UnknownMethodAndEdition(t *testing.T) {
	th := newTestHost(t)

	out := th.submit(t, ownerA, "edition.burn", ident.Labeled("nowhere"), nil)
	assertFailed(t, out, faults.CodeInvalidArgument)

	out = th.submit(t, ownerA, "factory.destroy", factoryAddr, nil)
	assertFailed(t, out, faults.CodeInvalidArgument)
}

func TestSubmit_BadArgumentType(t *testing.T) {
	th := newTestHost(t)
	addr := th.createAlpha(t, nil)

	out := th.submit(t, ownerA, MethodMint, addr, ir.IRObject{"to": ir.IRInt(7)})
	assertFailed(t, out, faults.CodeInvalidArgument)
}

func TestSubmit_SeqSharedByCallsAndEvents(t *testing.T) {
	th := newTestHost(t)

	out := th.mustOK(t, ownerA, MethodFactoryCreate, factoryAddr, ir.IRObject{"name": ir.IRString("alpha")})
	assert.Equal(t, int64(1), out.Call.Seq)
	require.Len(t, out.Events, 2)
	assert.Equal(t, int64(2), out.Events[0].Seq)
	assert.Equal(t, int64(3), out.Events[1].Seq)
	assert.Equal(t, int64(3), th.Seq())

	failed := th.submit(t, ownerA, MethodFactoryCreate, factoryAddr, ir.IRObject{"name": ir.IRString("alpha")})
	assert.Equal(t, int64(4), failed.Call.Seq)
	assert.Equal(t, int64(4), th.Seq())
}

func TestAlphaScenario_BatchMint(t *testing.T) {
	th := newTestHost(t)
	addr := th.createAlpha(t, nil)
	list := recipients(500)

	blob := th.mustOK(t, ownerA, MethodBlobWrite, ident.Zero, ir.IRObject{"addresses": addressArgs(list)})
	assert.Equal(t, int64(500*ident.Size), int64(blob.Receipt.Result["size"].(ir.IRInt)))
	require.Len(t, blob.Events, 1)
	assert.Equal(t, ledger.KindBlobWritten, blob.Events[0].Kind)
	assert.Equal(t, ownerA, blob.Events[0].Source)

	ptr, err := blob.Receipt.Result.String("pointer")
	require.NoError(t, err)

	out := th.mustOK(t, ownerA, MethodMintBatch, addr, ir.IRObject{"pointer": ir.IRString(ptr)})
	assert.Equal(t, ir.IRInt(500), out.Receipt.Result["count"])
	require.Len(t, out.Events, 501)
	assert.Equal(t, ledger.KindBatchMintCompleted, out.Events[500].Kind)

	err = th.View(addr, func(ed *edition.Edition) error {
		assert.Equal(t, int64(500), ed.TotalSupply())
		for i, to := range list {
			holder, err := ed.OwnerOf(int64(i + 1))
			require.NoError(t, err)
			assert.Equal(t, to, holder)
		}
		return nil
	})
	require.NoError(t, err)
}

func TestBatchMint_BadPointer(t *testing.T) {
	th := newTestHost(t)
	addr := th.createAlpha(t, nil)

	out := th.submit(t, ownerA, MethodMintBatch, addr, ir.IRObject{"pointer": ir.IRString("not-a-cid")})
	assertFailed(t, out, faults.CodeBatchMintFailed)
}

func TestBatchMint_AfterMintPeriod(t *testing.T) {
	th := newTestHost(t)
	addr := th.createAlpha(t, nil)
	blob := th.mustOK(t, ownerA, MethodBlobWrite, ident.Zero, ir.IRObject{"addresses": addressArgs(recipients(3))})

	th.clock.Advance(24 * time.Hour)

	out := th.submit(t, ownerA, MethodMintBatch, addr, ir.IRObject{"pointer": blob.Receipt.Result["pointer"]})
	assertFailed(t, out, faults.CodeBatchMintFailed)
}

func TestBlobWrite_HexData(t *testing.T) {
	th := newTestHost(t)

	out := th.mustOK(t, ownerA, MethodBlobWrite, ident.Zero, ir.IRObject{"data": ir.IRString("0xdeadbeef")})
	assert.Equal(t, ir.IRInt(4), out.Receipt.Result["size"])

	bad := th.submit(t, ownerA, MethodBlobWrite, ident.Zero, ir.IRObject{"data": ir.IRString("zz")})
	assertFailed(t, bad, faults.CodeInvalidArgument)

	empty := th.submit(t, ownerA, MethodBlobWrite, ident.Zero, ir.IRObject{"data": ir.IRString("")})
	assertFailed(t, empty, faults.CodeWriteFailed)
}

func TestGateScenario_DenyThenAllow(t *testing.T) {
	th := newTestHost(t)
	addr := th.createAlpha(t, ir.IRObject{"operator_filter": ir.Addr(filterF)})

	th.mustOK(t, filterF, MethodRegistryBlock, filterF, ir.IRObject{"operators": addressArgs([]ident.Address{operatorX})})

	denied := th.submit(t, ownerA, MethodSetApprovalForAll, addr, ir.IRObject{"operator": ir.Addr(operatorX)})
	assertFailed(t, denied, faults.CodeOperatorNotAllowed)

	allowed := th.mustOK(t, ownerA, MethodSetApprovalForAll, addr, ir.IRObject{"operator": ir.Addr(operatorY)})
	require.Len(t, allowed.Events, 1)
	assert.Equal(t, ledger.KindApprovalForAll, allowed.Events[0].Kind)

	th.mustOK(t, ownerA, MethodDisableOperatorFilter, addr, nil)
	th.mustOK(t, ownerA, MethodSetApprovalForAll, addr, ir.IRObject{"operator": ir.Addr(operatorX)})
}

func TestRegistry_OnlyRegistrantEdits(t *testing.T) {
	th := newTestHost(t)

	out := th.submit(t, stranger, MethodRegistryBlock, filterF, ir.IRObject{"operators": addressArgs([]ident.Address{operatorX})})
	assertFailed(t, out, faults.CodeUnauthorized)
	assert.Empty(t, th.registry.Blocked(filterF))

	th.mustOK(t, filterF, MethodRegistryBlock, filterF, ir.IRObject{"operators": addressArgs([]ident.Address{operatorX})})
	assert.Equal(t, []ident.Address{operatorX}, th.registry.Blocked(filterF))

	th.mustOK(t, filterF, MethodRegistryUnblock, filterF, ir.IRObject{"operators": addressArgs([]ident.Address{operatorX})})
	assert.Empty(t, th.registry.Blocked(filterF))
}

func TestTransferFlow(t *testing.T) {
	th := newTestHost(t)
	addr := th.createAlpha(t, nil)

	minted := th.mustOK(t, ownerA, MethodMint, addr, ir.IRObject{"to": ir.Addr(ownerA)})
	assert.Equal(t, ir.IRInt(1), minted.Receipt.Result["token_id"])

	th.mustOK(t, ownerA, MethodApprove, addr, ir.IRObject{"operator": ir.Addr(operatorX), "token_id": ir.IRInt(1)})
	th.mustOK(t, operatorX, MethodTransferFrom, addr, ir.IRObject{
		"from":     ir.Addr(ownerA),
		"to":       ir.Addr(stranger),
		"token_id": ir.IRInt(1),
	})

	// From defaults to the caller.
	th.mustOK(t, stranger, MethodTransferFrom, addr, ir.IRObject{"to": ir.Addr(ownerA), "token_id": ir.IRInt(1)})

	err := th.View(addr, func(ed *edition.Edition) error {
		holder, err := ed.OwnerOf(1)
		require.NoError(t, err)
		assert.Equal(t, ownerA, holder)
		return nil
	})
	require.NoError(t, err)
}

func TestOwnerMethods(t *testing.T) {
	th := newTestHost(t)
	addr := th.createAlpha(t, nil)

	out := th.submit(t, stranger, MethodSetApprovedMinter, addr, ir.IRObject{"minter": ir.Addr(stranger)})
	assertFailed(t, out, faults.CodeUnauthorized)

	th.mustOK(t, ownerA, MethodSetApprovedMinter, addr, ir.IRObject{"minter": ir.Addr(stranger)})
	th.mustOK(t, stranger, MethodMint, addr, ir.IRObject{"to": ir.Addr(stranger)})

	enabled := th.mustOK(t, ownerA, MethodEnableDefaultOperatorFilter, addr, nil)
	assert.Equal(t, ir.Addr(opfilter.CanonicalFilter), enabled.Receipt.Result["filter"])
	src, ok := th.registry.SubscriptionOf(addr)
	require.True(t, ok)
	assert.Equal(t, opfilter.CanonicalFilter, src)

	th.mustOK(t, ownerA, MethodSetOperatorFilter, addr, ir.IRObject{"filter": ir.Addr(filterF)})
	th.mustOK(t, ownerA, MethodTransferOwnership, addr, ir.IRObject{"new_owner": ir.Addr(stranger)})

	info, _ := th.Edition(addr)
	assert.Equal(t, stranger, info.Owner)
	assert.Equal(t, filterF, info.ActiveFilter)
}

func TestExecute_RecordsSpans(t *testing.T) {
	th := newTestHost(t)
	th.createAlpha(t, nil)
	th.submit(t, stranger, MethodFactoryCreate, factoryAddr, ir.IRObject{"name": ir.IRString("alpha")})

	spans := th.spans.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, MethodFactoryCreate, spans[0].Name())
	assert.Equal(t, "Ok", spans[0].Status().Code.String())
	assert.Equal(t, "Error", spans[1].Status().Code.String())
	assert.Equal(t, string(faults.CodeAlreadyExists), spans[1].Status().Description)

	var callID string
	for _, kv := range spans[0].Attributes() {
		if kv.Key == "editions.call_id" {
			callID = kv.Value.AsString()
		}
	}
	assert.Equal(t, "call-0001", callID)
}

func openStore(t *testing.T, path string) *store.Store {
	t.Helper()
	st, err := store.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestPersistence_ReopenReplays(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")
	clock := testutil.NewManualClock(time.Time{})

	st := openStore(t, path)
	h, err := Open(ctx, hostOptions(st, opfilter.NewMemory(), clock, nil))
	require.NoError(t, err)
	th := &testHost{Host: h, clock: clock}

	addr := th.createAlpha(t, ir.IRObject{"operator_filter": ir.Addr(filterF)})
	th.mustOK(t, filterF, MethodRegistryBlock, filterF, ir.IRObject{"operators": addressArgs([]ident.Address{operatorX})})
	blob := th.mustOK(t, ownerA, MethodBlobWrite, ident.Zero, ir.IRObject{"addresses": addressArgs(recipients(10))})
	clock.Advance(time.Hour)
	th.mustOK(t, ownerA, MethodMintBatch, addr, ir.IRObject{"pointer": blob.Receipt.Result["pointer"]})
	th.submit(t, ownerA, MethodSetApprovalForAll, addr, ir.IRObject{"operator": ir.Addr(operatorX)})
	seq := th.Seq()
	events := th.Events(ident.Zero, "")

	n, err := st.CountCalls(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	// Reopen against a fresh registry: replaying registry.block restores the list.
	registry := opfilter.NewMemory()
	reopened, err := Open(ctx, hostOptions(st, registry, testutil.NewManualClock(time.Time{}), nil))
	require.NoError(t, err)

	assert.Equal(t, seq, reopened.Seq())
	assert.Equal(t, events, reopened.Events(ident.Zero, ""))
	assert.Equal(t, []ident.Address{operatorX}, registry.Blocked(filterF))

	info, ok := reopened.Edition(addr)
	require.True(t, ok)
	assert.Equal(t, int64(10), info.TotalSupply)

	// New calls continue the sequence.
	out, err := reopened.Submit(ctx, ownerA, MethodMint, addr, ir.IRObject{"to": ir.Addr(ownerA)})
	require.NoError(t, err)
	assert.Equal(t, seq+1, out.Call.Seq)
}

func TestSubmit_HaltsAfterFailedWrite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")
	clock := testutil.NewManualClock(time.Time{})

	st := openStore(t, path)
	opts := hostOptions(st, opfilter.NewMemory(), clock, nil)
	opts.Blobs = blobstore.NewMemory()
	h, err := Open(ctx, opts)
	require.NoError(t, err)
	th := &testHost{Host: h, clock: clock}

	addr := th.createAlpha(t, nil)
	require.NoError(t, st.Close())

	_, err = h.Submit(ctx, ownerA, MethodMint, addr, ir.IRObject{"to": ir.Addr(ownerA)})
	require.Error(t, err)

	_, err = h.Submit(ctx, ownerA, MethodMint, addr, ir.IRObject{"to": ir.Addr(ownerA)})
	assert.ErrorIs(t, err, ErrHalted)
	assert.True(t, faults.Is(err, faults.CodeInternal))

	// The unrecorded mint is gone after reopening.
	reopened, err := Open(ctx, hostOptions(openStore(t, path), opfilter.NewMemory(), testutil.NewManualClock(time.Time{}), nil))
	require.NoError(t, err)
	info, ok := reopened.Edition(addr)
	require.True(t, ok)
	assert.Equal(t, int64(0), info.TotalSupply)
}

func TestReplay_ReportsDivergence(t *testing.T) {
	ctx := context.Background()
	st := openStore(t, filepath.Join(t.TempDir(), "ledger.db"))
	clock := testutil.NewManualClock(time.Time{})

	h, err := Open(ctx, hostOptions(st, opfilter.NewMemory(), clock, nil))
	require.NoError(t, err)
	th := &testHost{Host: h, clock: clock}
	addr := th.createAlpha(t, ir.IRObject{"operator_filter": ir.Addr(filterF)})
	th.mustOK(t, filterF, MethodRegistryBlock, filterF, ir.IRObject{"operators": addressArgs([]ident.Address{operatorY})})
	th.mustOK(t, ownerA, MethodSetApprovalForAll, addr, ir.IRObject{"operator": ir.Addr(operatorX)})

	// Pre-blocking operator-x makes the recorded approval fail on re-execution.
	registry := opfilter.NewMemory()
	registry.Block(filterF, operatorX)

	_, report, err := Replay(ctx, hostOptions(st, registry, testutil.NewManualClock(time.Time{}), nil))
	require.NoError(t, err)
	assert.Equal(t, 3, report.Calls)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Mismatches, 1)
	assert.Equal(t, int64(6), report.Mismatches[0].Seq)
	assert.Contains(t, report.Mismatches[0].Reason, "status failed")
	assert.False(t, report.OK())

	_, err = Open(ctx, hostOptions(st, registry, testutil.NewManualClock(time.Time{}), nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "replay diverged")
}

func TestReplay_RequiresStore(t *testing.T) {
	_, _, err := Replay(context.Background(), Options{})
	require.Error(t, err)
}
