package blobstore

import (
	"bytes"
	"context"
	"sync"

	"github.com/ipfs/go-cid"

	"github.com/roach88/editions/internal/faults"
	"github.com/roach88/editions/internal/ident"
)

type memBlob struct {
	writer ident.Address
	data   []byte
}

// Memory is an in-process Store backed by a map.
type Memory struct {
	mu    sync.RWMutex
	blobs map[string]memBlob
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{blobs: make(map[string]memBlob)}
}

// Write stores data for writer and returns its pointer.
func (m *Memory) Write(ctx context.Context, writer ident.Address, data []byte) (cid.Cid, error) {
	if len(data) == 0 {
		return cid.Undef, ErrEmpty
	}
	ptr, err := Pointer(writer, data)
	if err != nil {
		return cid.Undef, faults.Wrap(faults.CodeWriteFailed, "derive pointer", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := ptr.KeyString()
	if existing, ok := m.blobs[key]; ok {
		if existing.writer != writer || !bytes.Equal(existing.data, data) {
			return cid.Undef, faults.New(faults.CodeWriteFailed, "pointer already holds different content").With("pointer", ptr.String())
		}
		return ptr, nil
	}
	m.blobs[key] = memBlob{writer: writer, data: bytes.Clone(data)}
	return ptr, nil
}

// Read returns the content behind ptr.
func (m *Memory) Read(ctx context.Context, ptr cid.Cid) ([]byte, error) {
	b, err := m.get(ptr)
	if err != nil {
		return nil, err
	}
	if err := verify(ptr, b.writer, b.data); err != nil {
		return nil, err
	}
	return bytes.Clone(b.data), nil
}

// ReadRange returns length bytes of ptr's content starting at offset.
func (m *Memory) ReadRange(ctx context.Context, ptr cid.Cid, offset, length int) ([]byte, error) {
	b, err := m.get(ptr)
	if err != nil {
		return nil, err
	}
	if err := checkRange(offset, length, len(b.data)); err != nil {
		return nil, err
	}
	return bytes.Clone(b.data[offset : offset+length]), nil
}

// Size returns the content length behind ptr.
func (m *Memory) Size(ctx context.Context, ptr cid.Cid) (int, error) {
	b, err := m.get(ptr)
	if err != nil {
		return 0, err
	}
	return len(b.data), nil
}

// Len returns the number of stored blobs.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blobs)
}

func (m *Memory) get(ptr cid.Cid) (memBlob, error) {
	if err := checkPointer(ptr); err != nil {
		return memBlob{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.blobs[ptr.KeyString()]
	if !ok {
		return memBlob{}, notFound(ptr)
	}
	return b, nil
}
