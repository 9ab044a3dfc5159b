package blobstore

import (
	"context"
	"errors"

	"github.com/ipfs/go-cid"

	"github.com/roach88/editions/internal/faults"
	"github.com/roach88/editions/internal/ident"
	"github.com/roach88/editions/internal/store"
)

// SQLite is a Store persisted in the ledger database's blobs table.
// Range reads are served by substr() so only the requested bytes leave
// SQLite.
type SQLite struct {
	db *store.Store
}

// NewSQLite wraps an open ledger store.
func NewSQLite(db *store.Store) *SQLite {
	return &SQLite{db: db}
}

// Write stores data in the blobs table and returns its pointer.
func (s *SQLite) Write(ctx context.Context, writer ident.Address, data []byte) (cid.Cid, error) {
	if len(data) == 0 {
		return cid.Undef, ErrEmpty
	}
	ptr, err := Pointer(writer, data)
	if err != nil {
		return cid.Undef, faults.Wrap(faults.CodeWriteFailed, "derive pointer", err)
	}
	if _, err := s.db.WriteBlob(ctx, ptr.String(), writer.Hex(), data); err != nil {
		if errors.Is(err, store.ErrBlobImmutable) {
			return cid.Undef, faults.New(faults.CodeWriteFailed, "pointer already holds different content").With("pointer", ptr.String())
		}
		return cid.Undef, faults.Wrap(faults.CodeWriteFailed, "persist blob", err)
	}
	return ptr, nil
}

// Read returns the content behind ptr.
func (s *SQLite) Read(ctx context.Context, ptr cid.Cid) ([]byte, error) {
	if err := checkPointer(ptr); err != nil {
		return nil, err
	}
	writerHex, data, err := s.db.ReadBlob(ctx, ptr.String())
	if err != nil {
		return nil, s.mapErr(ptr, err)
	}
	writer, err := ident.Parse(writerHex)
	if err != nil {
		return nil, faults.Wrap(faults.CodeInvalidPointer, "stored writer is malformed", err)
	}
	if err := verify(ptr, writer, data); err != nil {
		return nil, err
	}
	return data, nil
}

// ReadRange reads a slice of ptr's content in SQL.
func (s *SQLite) ReadRange(ctx context.Context, ptr cid.Cid, offset, length int) ([]byte, error) {
	if err := checkPointer(ptr); err != nil {
		return nil, err
	}
	if offset < 0 || length < 0 {
		return nil, checkRange(offset, length, 0)
	}
	size, data, err := s.db.ReadBlobRange(ctx, ptr.String(), offset, length)
	if err != nil {
		return nil, s.mapErr(ptr, err)
	}
	if err := checkRange(offset, length, size); err != nil {
		return nil, err
	}
	if data == nil {
		data = []byte{}
	}
	return data, nil
}

// Size returns the content length behind ptr.
func (s *SQLite) Size(ctx context.Context, ptr cid.Cid) (int, error) {
	if err := checkPointer(ptr); err != nil {
		return 0, err
	}
	size, err := s.db.BlobSize(ctx, ptr.String())
	if err != nil {
		return 0, s.mapErr(ptr, err)
	}
	return size, nil
}

func (s *SQLite) mapErr(ptr cid.Cid, err error) error {
	if errors.Is(err, store.ErrBlobNotFound) {
		return notFound(ptr)
	}
	return faults.Wrap(faults.CodeInternal, "blob store", err)
}
