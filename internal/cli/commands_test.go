package cli

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/editions/internal/ident"
	"github.com/roach88/editions/internal/opfilter"
	"github.com/roach88/editions/internal/opfilter/grpcregistry"
)

type callData struct {
	CallID string         `json:"call_id"`
	Seq    int64          `json:"seq"`
	Method string         `json:"method"`
	Result map[string]any `json:"result"`
	Events []struct {
		Kind   string         `json:"kind"`
		Source string         `json:"source"`
		Data   map[string]any `json:"data"`
	} `json:"events"`
}

type infoData struct {
	Address      string `json:"address"`
	Name         string `json:"name"`
	Symbol       string `json:"symbol"`
	Owner        string `json:"owner"`
	ActiveFilter string `json:"active_filter"`
	TotalSupply  int64  `json:"total_supply"`
	Holder       string `json:"holder"`
	Balance      *int64 `json:"balance"`
}

// ledgerFixture is a database with one edition on the canonical filter.
type ledgerFixture struct {
	db      string
	edition string
}

func newLedgerFixture(t *testing.T) ledgerFixture {
	t.Helper()

	db := tempDB(t)
	resp, err := runJSON(t, "create", "alpha", "--db", db, "--as", "@artist",
		"--symbol", "ALPHA", "--filter", "canonical", "--royalty-bps", "500", "--meta", "image=ipfs://alpha")
	require.NoError(t, err)
	created := decode[callData](t, resp)
	require.Equal(t, "factory.create", created.Method)
	return ledgerFixture{db: db, edition: created.Result["address"].(string)}
}

func (f ledgerFixture) call(t *testing.T, as string, args ...string) (response, error) {
	t.Helper()
	return runJSON(t, append(args, "--db", f.db, "--as", as)...)
}

func TestCreate_MatchesPredict(t *testing.T) {
	f := newLedgerFixture(t)

	resp, err := runJSON(t, "predict", "alpha")
	require.NoError(t, err)
	predicted := decode[predictView](t, resp)
	assert.Equal(t, f.edition, predicted.Address)

	resp, err = runJSON(t, "show", f.edition, "--db", f.db)
	require.NoError(t, err)
	info := decode[infoData](t, resp)
	assert.Equal(t, "alpha", info.Name)
	assert.Equal(t, "ALPHA", info.Symbol)
	assert.Equal(t, ident.Labeled("artist").Hex(), info.Owner)
	assert.Equal(t, opfilter.CanonicalFilter.Hex(), info.ActiveFilter)
}

func TestCreate_DuplicateNameFails(t *testing.T) {
	f := newLedgerFixture(t)

	resp, err := f.call(t, "@artist", "create", "alpha")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.True(t, IsReported(err))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "ALREADY_EXISTS", resp.Error.Code)
}

func TestCreate_InvalidMeta(t *testing.T) {
	_, err := run(t, "create", "alpha", "--db", tempDB(t), "--as", "@artist", "--meta", "novalue")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestBatchMintAndOperatorFilter(t *testing.T) {
	f := newLedgerFixture(t)

	resp, err := f.call(t, "@artist", "blob", "write", "--addresses", "@r1,@r2,@r3")
	require.NoError(t, err)
	blob := decode[callData](t, resp)
	pointer := blob.Result["pointer"].(string)
	assert.EqualValues(t, 3*ident.Size, blob.Result["size"])

	resp, err = f.call(t, "@artist", "mint-batch", f.edition, pointer)
	require.NoError(t, err)
	minted := decode[callData](t, resp)
	assert.EqualValues(t, 3, minted.Result["count"])
	require.Len(t, minted.Events, 4)
	assert.Equal(t, "BatchMintCompleted", minted.Events[3].Kind)

	// The canonical filter registrant blocks operator X.
	resp, err = f.call(t, opfilter.CanonicalFilter.Hex(), "registry", "block", "@operator-x")
	require.NoError(t, err)
	decode[callData](t, resp)

	resp, err = f.call(t, "@r1", "approve-all", f.edition, "@operator-x")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "OPERATOR_NOT_ALLOWED", resp.Error.Code)

	resp, err = f.call(t, "@r1", "approve-all", f.edition, "@operator-y")
	require.NoError(t, err)
	approved := decode[callData](t, resp)
	require.Len(t, approved.Events, 1)
	assert.Equal(t, "ApprovalForAll", approved.Events[0].Kind)

	// Revoking skips the filter.
	resp, err = f.call(t, "@r1", "approve-all", f.edition, "@operator-x", "--revoke")
	require.NoError(t, err)
	decode[callData](t, resp)

	resp, err = runJSON(t, "show", f.edition, "--db", f.db, "--holder", "@r1")
	require.NoError(t, err)
	info := decode[infoData](t, resp)
	assert.EqualValues(t, 3, info.TotalSupply)
	require.NotNil(t, info.Balance)
	assert.EqualValues(t, 1, *info.Balance)

	resp, err = runJSON(t, "events", "--db", f.db, "--source", f.edition, "--kind", "Transfer")
	require.NoError(t, err)
	events := decode[eventsView](t, resp)
	require.Len(t, events.Events, 3)
	for i, ev := range events.Events {
		assert.EqualValues(t, i+1, ev.Data["token_id"])
	}

	resp, err = runJSON(t, "registry", "check", "canonical", "@operator-x", "--db", f.db)
	require.NoError(t, err)
	check := decode[checkView](t, resp)
	assert.False(t, check.Allowed)
}

func TestRegistryBlock_EditsCallersList(t *testing.T) {
	f := newLedgerFixture(t)

	// Block edits the caller's own list, so another caller cannot touch the
	// canonical list; its own list is independent.
	resp, err := f.call(t, "@stranger", "registry", "block", "@operator-x")
	require.NoError(t, err)
	data := decode[callData](t, resp)
	assert.Equal(t, ident.Labeled("stranger").Hex(), data.Result["registrant"])

	resp, err = runJSON(t, "registry", "check", "canonical", "@operator-x", "--db", f.db)
	require.NoError(t, err)
	assert.True(t, decode[checkView](t, resp).Allowed)
}

func TestOwnerCommands(t *testing.T) {
	f := newLedgerFixture(t)

	resp, err := f.call(t, "@stranger", "filter", "disable", f.edition)
	require.Error(t, err)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "UNAUTHORIZED", resp.Error.Code)

	resp, err = f.call(t, "@artist", "minter", f.edition, "@helper")
	require.NoError(t, err)
	decode[callData](t, resp)

	resp, err = f.call(t, "@helper", "mint", f.edition, "@r1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, decode[callData](t, resp).Result["token_id"])

	resp, err = f.call(t, "@r1", "transfer", f.edition, "@r2", "1")
	require.NoError(t, err)
	decode[callData](t, resp)

	resp, err = f.call(t, "@artist", "filter", "disable", f.edition)
	require.NoError(t, err)
	decode[callData](t, resp)

	resp, err = f.call(t, "@artist", "transfer-ownership", f.edition, "@heir")
	require.NoError(t, err)
	transferred := decode[callData](t, resp)
	require.Len(t, transferred.Events, 1)
	assert.Equal(t, "OwnershipTransferred", transferred.Events[0].Kind)

	resp, err = runJSON(t, "show", f.edition, "--db", f.db, "--holder", "@r2")
	require.NoError(t, err)
	info := decode[infoData](t, resp)
	assert.Equal(t, ident.Labeled("heir").Hex(), info.Owner)
	assert.Equal(t, ident.Zero.Hex(), info.ActiveFilter)
	assert.EqualValues(t, 1, *info.Balance)
}

func TestTokenArgValidation(t *testing.T) {
	f := newLedgerFixture(t)

	_, err := run(t, "transfer", f.edition, "@r2", "12abc", "--db", f.db, "--as", "@r1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestBlobReadRanges(t *testing.T) {
	f := newLedgerFixture(t)

	resp, err := f.call(t, "@artist", "blob", "write", "--addresses", "@r1,@r2")
	require.NoError(t, err)
	pointer := decode[callData](t, resp).Result["pointer"].(string)

	resp, err = runJSON(t, "blob", "read", pointer, "--db", f.db, "--addresses")
	require.NoError(t, err)
	full := decode[blobView](t, resp)
	assert.Equal(t, 2*ident.Size, full.Size)
	assert.Equal(t, []string{ident.Labeled("r1").Hex(), ident.Labeled("r2").Hex()}, full.Addresses)

	resp, err = runJSON(t, "blob", "read", pointer, "--db", f.db, "--addresses",
		"--offset", "20", "--length", "20")
	require.NoError(t, err)
	assert.Equal(t, []string{ident.Labeled("r2").Hex()}, decode[blobView](t, resp).Addresses)

	resp, err = runJSON(t, "blob", "read", pointer, "--db", f.db, "--offset", "30", "--length", "20")
	require.Error(t, err)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "READ_OUT_OF_BOUNDS", resp.Error.Code)

	resp, err = runJSON(t, "blob", "read", "not-a-cid", "--db", f.db)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Equal(t, "INVALID_POINTER", resp.Error.Code)
}

func TestBlobWrite_FromFiles(t *testing.T) {
	f := newLedgerFixture(t)
	dir := t.TempDir()

	list := filepath.Join(dir, "recipients.txt")
	require.NoError(t, os.WriteFile(list, []byte("# drop list\n@r1\n\n@r2\n"), 0o644))
	resp, err := f.call(t, "@artist", "blob", "write", "--addresses-file", list)
	require.NoError(t, err)
	assert.EqualValues(t, 2*ident.Size, decode[callData](t, resp).Result["size"])

	raw := filepath.Join(dir, "raw.bin")
	require.NoError(t, os.WriteFile(raw, []byte("hello"), 0o644))
	resp, err = f.call(t, "@artist", "blob", "write", "--file", raw)
	require.NoError(t, err)
	assert.EqualValues(t, 5, decode[callData](t, resp).Result["size"])

	_, err = run(t, "blob", "write", "--hex", "00", "--file", raw, "--db", f.db, "--as", "@artist")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestShow_ListsEditions(t *testing.T) {
	f := newLedgerFixture(t)
	_, err := f.call(t, "@artist", "create", "beta", "--max-supply", "10")
	require.NoError(t, err)

	out, err := run(t, "show", "--db", f.db)
	require.NoError(t, err)
	assert.Contains(t, out, "alpha")
	assert.Contains(t, out, "beta")
	assert.Contains(t, out, "0/10")
	assert.Contains(t, out, "0/unlimited")
}

func TestEvents_TextOutput(t *testing.T) {
	f := newLedgerFixture(t)

	out, err := run(t, "events", "--db", f.db)
	require.NoError(t, err)
	assert.Contains(t, out, "EditionCreated")
	assert.Contains(t, out, "OperatorFilterChanged")

	out, err = run(t, "events", "--db", f.db, "--kind", "Transfer")
	require.NoError(t, err)
	assert.Equal(t, "No events.\n", out)
}

type replayData struct {
	Calls      int   `json:"calls"`
	Failed     int   `json:"failed"`
	Seq        int64 `json:"seq"`
	Mismatches []any `json:"mismatches"`
}

func TestReplay_VerifiesLedger(t *testing.T) {
	f := newLedgerFixture(t)
	_, err := f.call(t, "@artist", "mint", f.edition, "@r1")
	require.NoError(t, err)
	_, err = f.call(t, "@stranger", "mint", f.edition, "@r1")
	require.Error(t, err)

	resp, err := runJSON(t, "replay", "--db", f.db)
	require.NoError(t, err)
	report := decode[replayData](t, resp)
	assert.Equal(t, 3, report.Calls)
	assert.Equal(t, 1, report.Failed)
	assert.Empty(t, report.Mismatches)

	out, err := run(t, "replay", "--db", f.db)
	require.NoError(t, err)
	assert.Contains(t, out, "All outcomes match the ledger.")
}

func TestTestCommand_RunsScenarios(t *testing.T) {
	scenarios := filepath.Join("..", "harness", "testdata", "scenarios")
	golden := filepath.Join("..", "harness", "testdata", "golden")

	resp, err := runJSON(t, "test", scenarios, "--golden", golden)
	require.NoError(t, err)
	result := decode[TestResult](t, resp)
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 3, result.Passed)
}

func TestTestCommand_UpdateThenCompare(t *testing.T) {
	scenarios := filepath.Join("..", "harness", "testdata", "scenarios")
	golden := filepath.Join(t.TempDir(), "golden")

	out, err := run(t, "test", scenarios, "--filter", "gate*", "--golden", golden, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "PASS gate_filter")
	assert.FileExists(t, filepath.Join(golden, "gate_filter.golden"))

	out, err = run(t, "test", scenarios, "--filter", "gate*", "--golden", golden)
	require.NoError(t, err)
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")

	require.NoError(t, os.WriteFile(filepath.Join(golden, "gate_filter.golden"), []byte("{}\n"), 0o644))
	out, err = run(t, "test", scenarios, "--filter", "gate*", "--golden", golden)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "FAIL gate_filter")
}

func TestTestCommand_Errors(t *testing.T) {
	_, err := run(t, "test", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	out, err := run(t, "test", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")

	_, err = run(t, "test", t.TempDir(), "--update")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--update requires --golden")
}

func TestServeRegistry_OverGRPC(t *testing.T) {
	registry := opfilter.NewMemory()
	registry.Block(opfilter.CanonicalFilter, ident.Labeled("operator-x"))

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serveRegistry(ctx, lis, registry) }()

	client, err := grpcregistry.Dial(lis.Addr().String(), 5*time.Second)
	require.NoError(t, err)
	defer client.Close()

	allowed, err := client.IsAllowed(context.Background(), opfilter.CanonicalFilter, ident.Labeled("operator-x"))
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, err = client.IsAllowed(context.Background(), opfilter.CanonicalFilter, ident.Labeled("operator-y"))
	require.NoError(t, err)
	assert.True(t, allowed)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestCallView_Text(t *testing.T) {
	v := callView{
		CallID: "call-0001",
		Seq:    4,
		Method: "edition.mint",
		Events: []eventView{{Seq: 4, Kind: "Transfer", Source: "0xed"}},
	}
	text := v.String()
	assert.True(t, strings.HasPrefix(text, "edition.mint ok (seq 4, call call-0001)"))
	assert.Contains(t, text, "Transfer")
}

type receiptData struct {
	Call struct {
		Method string `json:"method"`
	} `json:"call"`
	Receipt struct {
		Status    string `json:"status"`
		ErrorCode string `json:"error_code"`
	} `json:"receipt"`
	Events []eventView `json:"events"`
}

func TestReceipt_ShowsFailedCall(t *testing.T) {
	f := newLedgerFixture(t)

	resp, err := f.call(t, "@stranger", "mint", f.edition, "@r1")
	require.Error(t, err)
	callID := resp.Error.Details.(map[string]any)["call_id"].(string)

	resp, err = runJSON(t, "receipt", callID, "--db", f.db)
	require.NoError(t, err)
	receipt := decode[receiptData](t, resp)
	assert.Equal(t, "edition.mint", receipt.Call.Method)
	assert.Equal(t, "failed", receipt.Receipt.Status)
	assert.Equal(t, "UNAUTHORIZED", receipt.Receipt.ErrorCode)
	assert.Empty(t, receipt.Events)

	resp, err = runJSON(t, "receipt", "missing", "--db", f.db)
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
}

func TestStatus_CountsCalls(t *testing.T) {
	f := newLedgerFixture(t)
	_, err := f.call(t, "@artist", "mint", f.edition, "@r1")
	require.NoError(t, err)
	_, err = f.call(t, "@artist", "mint", f.edition, "@r2")
	require.NoError(t, err)

	resp, err := runJSON(t, "status", "--db", f.db)
	require.NoError(t, err)
	status := decode[statusView](t, resp)
	assert.Equal(t, 3, status.Calls)
	assert.Equal(t, 1, status.Editions)
	assert.Equal(t, map[string]int{"factory.create": 1, "edition.mint": 2}, status.Methods)
	assert.Greater(t, status.LastSeq, int64(3))
}
