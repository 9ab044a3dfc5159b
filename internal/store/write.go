package store

import (
	"context"
	"fmt"

	"github.com/roach88/editions/internal/ledger"
)

// WriteCall atomically records a call, its receipt and the events it committed.
//
// Uses ON CONFLICT(id) DO NOTHING on the call so a retried write of the same
// call is a no-op; the receipt and events follow the same rule. Any other
// failure rolls back all three.
func (s *Store) WriteCall(ctx context.Context, call ledger.Call, receipt ledger.Receipt, events []ledger.Event) error {
	argsJSON, err := marshalObject("args", call.Args)
	if err != nil {
		return fmt.Errorf("write call: %w", err)
	}
	resultJSON, err := marshalObject("result", receipt.Result)
	if err != nil {
		return fmt.Errorf("write call: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write call: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO calls
		(id, seq, caller, method, target, args, at, digest, engine_version, ir_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		call.ID,
		call.Seq,
		call.Caller.Hex(),
		call.Method,
		call.Target.Hex(),
		argsJSON,
		call.At,
		call.Digest,
		call.EngineVersion,
		call.IRVersion,
	)
	if err != nil {
		return fmt.Errorf("write call: insert call: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO receipts
		(call_id, status, error_code, error_message, result)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(call_id) DO NOTHING
	`,
		call.ID,
		string(receipt.Status),
		receipt.ErrorCode,
		receipt.ErrorMessage,
		resultJSON,
	)
	if err != nil {
		return fmt.Errorf("write call: insert receipt: %w", err)
	}

	for _, ev := range events {
		dataJSON, err := marshalObject("event data", ev.Data)
		if err != nil {
			return fmt.Errorf("write call: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO events
			(id, seq, call_id, source, kind, data)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING
		`,
			ev.ID,
			ev.Seq,
			call.ID,
			ev.Source.Hex(),
			string(ev.Kind),
			dataJSON,
		)
		if err != nil {
			return fmt.Errorf("write call: insert event %s: %w", ev.Kind, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write call: commit: %w", err)
	}
	return nil
}
