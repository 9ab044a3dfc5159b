package store

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var (
	// ErrBlobNotFound is returned when no blob exists at a pointer.
	ErrBlobNotFound = errors.New("store: blob not found")

	// ErrBlobImmutable is returned when a pointer is rewritten with different bytes.
	ErrBlobImmutable = errors.New("store: blob content mismatch")
)

// WriteBlob stores data at pointer. Writing identical bytes again is a no-op
// (inserted=false); different bytes at an existing pointer fail with
// ErrBlobImmutable.
func (s *Store) WriteBlob(ctx context.Context, pointer, writer string, data []byte) (inserted bool, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("write blob: begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO blobs (pointer, writer, size, data)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(pointer) DO NOTHING
	`, pointer, writer, len(data), data)
	if err != nil {
		return false, fmt.Errorf("write blob: insert: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("write blob: rows affected: %w", err)
	}

	if rowsAffected == 0 {
		var existing []byte
		if err := tx.QueryRowContext(ctx, `SELECT data FROM blobs WHERE pointer = ?`, pointer).Scan(&existing); err != nil {
			return false, fmt.Errorf("write blob: select existing: %w", err)
		}
		if !bytes.Equal(existing, data) {
			return false, ErrBlobImmutable
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("write blob: commit: %w", err)
	}
	return rowsAffected > 0, nil
}

// ReadBlob returns the writer and full content at pointer.
func (s *Store) ReadBlob(ctx context.Context, pointer string) (writer string, data []byte, err error) {
	err = s.db.QueryRowContext(ctx, `SELECT writer, data FROM blobs WHERE pointer = ?`, pointer).Scan(&writer, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil, ErrBlobNotFound
	}
	if err != nil {
		return "", nil, fmt.Errorf("read blob: %w", err)
	}
	return writer, data, nil
}

// ReadBlobRange returns length bytes starting at offset (0-based) together
// with the blob's total size. Only the requested range is read from the row.
// Out-of-range requests return a short or empty slice; bounds are the
// caller's responsibility.
func (s *Store) ReadBlobRange(ctx context.Context, pointer string, offset, length int) (size int, data []byte, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT size, substr(data, ?, ?) FROM blobs WHERE pointer = ?
	`, offset+1, length, pointer).Scan(&size, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil, ErrBlobNotFound
	}
	if err != nil {
		return 0, nil, fmt.Errorf("read blob range: %w", err)
	}
	return size, data, nil
}

// BlobSize returns the size of the blob at pointer.
func (s *Store) BlobSize(ctx context.Context, pointer string) (int, error) {
	var size int
	err := s.db.QueryRowContext(ctx, `SELECT size FROM blobs WHERE pointer = ?`, pointer).Scan(&size)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrBlobNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("blob size: %w", err)
	}
	return size, nil
}

// HasBlob reports whether a blob exists at pointer.
func (s *Store) HasBlob(ctx context.Context, pointer string) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM blobs WHERE pointer = ?`, pointer).Scan(&n); err != nil {
		return false, fmt.Errorf("has blob: %w", err)
	}
	return n > 0, nil
}
