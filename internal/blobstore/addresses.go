package blobstore

import (
	"context"
	"strconv"

	"github.com/ipfs/go-cid"

	"github.com/roach88/editions/internal/faults"
	"github.com/roach88/editions/internal/ident"
)

// AddressWidth is the encoded size of one list element.
const AddressWidth = ident.Size

// EncodeAddresses packs addresses back to back.
func EncodeAddresses(addrs []ident.Address) []byte {
	out := make([]byte, 0, len(addrs)*AddressWidth)
	for _, a := range addrs {
		out = append(out, a.Bytes()...)
	}
	return out
}

// DecodeAddresses unpacks a list produced by EncodeAddresses.
func DecodeAddresses(data []byte) ([]ident.Address, error) {
	if len(data)%AddressWidth != 0 {
		return nil, faults.New(faults.CodeInvalidPointer, "blob is not an address list").
			With("size", strconv.Itoa(len(data)))
	}
	out := make([]ident.Address, len(data)/AddressWidth)
	for i := range out {
		copy(out[i][:], data[i*AddressWidth:(i+1)*AddressWidth])
	}
	return out, nil
}

// WriteAddresses encodes and stores a recipient list.
func WriteAddresses(ctx context.Context, s Store, writer ident.Address, addrs []ident.Address) (cid.Cid, error) {
	return s.Write(ctx, writer, EncodeAddresses(addrs))
}

// Count returns the number of addresses in the list at ptr.
func Count(ctx context.Context, s Store, ptr cid.Cid) (int, error) {
	size, err := s.Size(ctx, ptr)
	if err != nil {
		return 0, err
	}
	if size%AddressWidth != 0 {
		return 0, faults.New(faults.CodeInvalidPointer, "blob is not an address list").
			With("pointer", ptr.String()).
			With("size", strconv.Itoa(size))
	}
	return size / AddressWidth, nil
}

// ReadSlice decodes count addresses starting at element start.
func ReadSlice(ctx context.Context, s Store, ptr cid.Cid, start, count int) ([]ident.Address, error) {
	if start < 0 || count < 0 {
		return nil, ErrOutOfBounds.
			With("start", strconv.Itoa(start)).
			With("count", strconv.Itoa(count))
	}
	data, err := s.ReadRange(ctx, ptr, start*AddressWidth, count*AddressWidth)
	if err != nil {
		return nil, err
	}
	return DecodeAddresses(data)
}
