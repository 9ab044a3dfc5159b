// Package ident provides 20-byte identities and the Keccak-256 hashing used to
// derive them.
//
// An Address identifies every participant: owners, operators, registrants,
// filters, resources and the factory itself. The zero Address is the null
// identity (previous owner on creation, disabled filter sentinel).
package ident

import (
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Size is the length of an Address in bytes.
const Size = 20

// Address is a 20-byte identity.
type Address [Size]byte

// Zero is the null identity.
var Zero Address

// IsZero reports whether a is the null identity.
func (a Address) IsZero() bool {
	return a == Zero
}

// Hex returns the 0x-prefixed lowercase hex encoding.
func (a Address) Hex() string {
	return "0x" + hex.EncodeToString(a[:])
}

// String implements fmt.Stringer.
func (a Address) String() string {
	return a.Hex()
}

// Bytes returns a copy of the address bytes.
func (a Address) Bytes() []byte {
	b := make([]byte, Size)
	copy(b, a[:])
	return b
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.Hex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Parse decodes a 0x-prefixed (or bare) 40-character hex string.
func Parse(s string) (Address, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s) != Size*2 {
		return Zero, fmt.Errorf("ident: address must be %d hex characters, got %d", Size*2, len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return Zero, fmt.Errorf("ident: invalid hex address: %w", err)
	}
	var a Address
	copy(a[:], b)
	return a, nil
}

// MustParse is like Parse but panics on error.
// Use only for constants and tests.
func MustParse(s string) Address {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// FromBytes returns the address formed by the last 20 bytes of b.
// Shorter inputs are left-padded with zeros.
func FromBytes(b []byte) Address {
	var a Address
	if len(b) > Size {
		b = b[len(b)-Size:]
	}
	copy(a[Size-len(b):], b)
	return a
}

// Keccak256 returns the legacy Keccak-256 digest of the concatenated inputs.
func Keccak256(data ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	return h.Sum(nil)
}

// Labeled derives a stable address from a human label.
// Used by scenarios and tests to name accounts ("alice", "marketplace").
func Labeled(label string) Address {
	return FromBytes(Keccak256([]byte("editions/label/v1"), []byte{0x00}, []byte(label)))
}
