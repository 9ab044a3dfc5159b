package blobstore

import (
	"context"
	"strconv"

	"github.com/ipfs/go-cid"

	"github.com/roach88/editions/internal/faults"
	"github.com/roach88/editions/internal/ident"
)

// Store is write-once content-addressed byte storage.
//
// Contract:
//   - Write fails with WRITE_FAILED on empty content and is idempotent for
//     the same (writer, content).
//   - Read returns exactly the bytes written, or INVALID_POINTER.
//   - ReadRange returns a contiguous sub-range without reading the rest of
//     the blob, or READ_OUT_OF_BOUNDS when the range exceeds the content.
//
// Implementations are safe for concurrent use.
type Store interface {
	Write(ctx context.Context, writer ident.Address, data []byte) (cid.Cid, error)
	Read(ctx context.Context, ptr cid.Cid) ([]byte, error)
	ReadRange(ctx context.Context, ptr cid.Cid, offset, length int) ([]byte, error)
	Size(ctx context.Context, ptr cid.Cid) (int, error)
}

var (
	// ErrEmpty is returned when writing zero bytes.
	ErrEmpty = faults.New(faults.CodeWriteFailed, "blob content is empty")

	// ErrNotFound is returned when no blob exists at a pointer.
	ErrNotFound = faults.New(faults.CodeInvalidPointer, "no blob at pointer")

	// ErrOutOfBounds is returned when a range read exceeds the content.
	ErrOutOfBounds = faults.New(faults.CodeReadOutOfBounds, "range exceeds blob content")
)

func notFound(ptr cid.Cid) error {
	return ErrNotFound.With("pointer", ptr.String())
}

func checkRange(offset, length, size int) error {
	if offset < 0 || length < 0 || offset > size || length > size-offset {
		return ErrOutOfBounds.
			With("offset", strconv.Itoa(offset)).
			With("length", strconv.Itoa(length)).
			With("size", strconv.Itoa(size))
	}
	return nil
}
