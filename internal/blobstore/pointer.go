package blobstore

import (
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"

	"github.com/roach88/editions/internal/faults"
	"github.com/roach88/editions/internal/ident"
)

// Pointer derives the content pointer for data written by writer.
func Pointer(writer ident.Address, data []byte) (cid.Cid, error) {
	frame := make([]byte, 0, ident.Size+len(data))
	frame = append(frame, writer.Bytes()...)
	frame = append(frame, data...)
	sum, err := multihash.Sum(frame, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}

// ParsePointer decodes a pointer string. Anything that is not a raw
// sha2-256 CIDv1 fails with INVALID_POINTER.
func ParsePointer(s string) (cid.Cid, error) {
	id, err := cid.Decode(s)
	if err != nil {
		return cid.Undef, faults.Wrap(faults.CodeInvalidPointer, "malformed pointer", err).With("pointer", s)
	}
	if err := checkPointer(id); err != nil {
		return cid.Undef, err
	}
	return id, nil
}

func checkPointer(ptr cid.Cid) error {
	if !ptr.Defined() {
		return faults.New(faults.CodeInvalidPointer, "pointer is undefined")
	}
	prefix := ptr.Prefix()
	if prefix.Version != 1 || prefix.Codec != cid.Raw || prefix.MhType != multihash.SHA2_256 {
		return faults.New(faults.CodeInvalidPointer, "unsupported pointer format").With("pointer", ptr.String())
	}
	return nil
}

// verify recomputes the pointer for a stored frame.
func verify(ptr cid.Cid, writer ident.Address, data []byte) error {
	got, err := Pointer(writer, data)
	if err != nil {
		return err
	}
	if !got.Equals(ptr) {
		return faults.New(faults.CodeInvalidPointer, "stored content does not match pointer").With("pointer", ptr.String())
	}
	return nil
}
