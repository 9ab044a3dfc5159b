package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/editions/internal/ident"
	"github.com/roach88/editions/internal/ir"
	"github.com/roach88/editions/internal/ledger"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestCall creates a call with minimal required fields.
func createTestCall(id, method string, seq int64) ledger.Call {
	return ledger.Call{
		ID:            id,
		Seq:           seq,
		Caller:        ident.Labeled("alice"),
		Method:        method,
		Target:        ident.Labeled("factory"),
		Args:          ir.IRObject{},
		At:            1700000000,
		Digest:        "test-digest",
		EngineVersion: "0.1.0",
		IRVersion:     "1",
	}
}

func okReceipt(callID string) ledger.Receipt {
	return ledger.Receipt{CallID: callID, Status: ledger.StatusOK, Result: ir.IRObject{}}
}
