package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/roach88/editions/internal/ident"
	"github.com/roach88/editions/internal/ledger"
)

// ReadHistory returns every call with its receipt, ordered by seq ASC.
// Used by replay. Returns an empty slice (not nil) for an empty ledger.
func (s *Store) ReadHistory(ctx context.Context) ([]ledger.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.seq, c.caller, c.method, c.target, c.args, c.at, c.digest,
		       c.engine_version, c.ir_version,
		       r.status, r.error_code, r.error_message, r.result
		FROM calls c
		JOIN receipts r ON r.call_id = c.id
		ORDER BY c.seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	entries := []ledger.Entry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return entries, nil
}

// ReadEntry returns one call and its receipt.
// Returns sql.ErrNoRows if the call does not exist.
func (s *Store) ReadEntry(ctx context.Context, callID string) (ledger.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.seq, c.caller, c.method, c.target, c.args, c.at, c.digest,
		       c.engine_version, c.ir_version,
		       r.status, r.error_code, r.error_message, r.result
		FROM calls c
		JOIN receipts r ON r.call_id = c.id
		WHERE c.id = ?
	`, callID)
	if err != nil {
		return ledger.Entry{}, fmt.Errorf("query entry: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return ledger.Entry{}, fmt.Errorf("query entry: %w", err)
		}
		return ledger.Entry{}, sql.ErrNoRows
	}
	return scanEntry(rows)
}

func scanEntry(rows *sql.Rows) (ledger.Entry, error) {
	var (
		e                        ledger.Entry
		caller, target, argsJSON string
		status, resultJSON       string
	)
	if err := rows.Scan(
		&e.Call.ID, &e.Call.Seq, &caller, &e.Call.Method, &target, &argsJSON, &e.Call.At,
		&e.Call.Digest, &e.Call.EngineVersion, &e.Call.IRVersion,
		&status, &e.Receipt.ErrorCode, &e.Receipt.ErrorMessage, &resultJSON,
	); err != nil {
		return ledger.Entry{}, fmt.Errorf("scan entry: %w", err)
	}

	var err error
	if e.Call.Caller, err = ident.Parse(caller); err != nil {
		return ledger.Entry{}, fmt.Errorf("scan entry caller: %w", err)
	}
	if e.Call.Target, err = ident.Parse(target); err != nil {
		return ledger.Entry{}, fmt.Errorf("scan entry target: %w", err)
	}
	if e.Call.Args, err = unmarshalObject("args", argsJSON); err != nil {
		return ledger.Entry{}, err
	}
	if e.Receipt.Result, err = unmarshalObject("result", resultJSON); err != nil {
		return ledger.Entry{}, err
	}
	e.Receipt.CallID = e.Call.ID
	e.Receipt.Status = ledger.Status(status)
	return e, nil
}

// EventFilter narrows ReadEvents. Zero fields match everything.
type EventFilter struct {
	Source   ident.Address
	Kind     ledger.Kind
	CallID   string
	AfterSeq int64
	Limit    int
}

// ReadEvents returns committed events matching filter, ordered by seq ASC.
func (s *Store) ReadEvents(ctx context.Context, filter EventFilter) ([]ledger.Event, error) {
	var (
		where []string
		args  []any
	)
	if !filter.Source.IsZero() {
		where = append(where, "source = ?")
		args = append(args, filter.Source.Hex())
	}
	if filter.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(filter.Kind))
	}
	if filter.CallID != "" {
		where = append(where, "call_id = ?")
		args = append(args, filter.CallID)
	}
	if filter.AfterSeq > 0 {
		where = append(where, "seq > ?")
		args = append(args, filter.AfterSeq)
	}

	query := `SELECT id, seq, call_id, source, kind, data FROM events`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []ledger.Event{}
	for rows.Next() {
		var (
			ev           ledger.Event
			source, kind string
			dataJSON     string
		)
		if err := rows.Scan(&ev.ID, &ev.Seq, &ev.CallID, &source, &kind, &dataJSON); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if ev.Source, err = ident.Parse(source); err != nil {
			return nil, fmt.Errorf("scan event source: %w", err)
		}
		ev.Kind = ledger.Kind(kind)
		if ev.Data, err = unmarshalObject("event data", dataJSON); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// CountCalls returns the number of recorded calls, optionally for one method.
func (s *Store) CountCalls(ctx context.Context, method string) (int, error) {
	var n int
	var err error
	if method == "" {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM calls`).Scan(&n)
	} else {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM calls WHERE method = ?`, method).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("count calls: %w", err)
	}
	return n, nil
}
