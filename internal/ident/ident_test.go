package ident

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_RoundTrip(t *testing.T) {
	a, err := Parse("0x3cc6CddA760b79bAfa08dF41ECFA224f810dCeB6")
	require.NoError(t, err)
	assert.Equal(t, "0x3cc6cdda760b79bafa08df41ecfa224f810dceb6", a.Hex())

	b, err := Parse(a.Hex())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestParse_BarePrefix(t *testing.T) {
	a, err := Parse("0000000000000000000000000000000000000001")
	require.NoError(t, err)
	assert.Equal(t, byte(1), a[Size-1])
}

func TestParse_Rejects(t *testing.T) {
	cases := []string{"", "0x", "0x1234", "0xzz6cdda760b79bafa08df41ecfa224f810dceb6"}
	for _, c := range cases {
		_, err := Parse(c)
		assert.Error(t, err, "input %q", c)
	}
}

func TestZero(t *testing.T) {
	assert.True(t, Zero.IsZero())
	assert.False(t, Labeled("alice").IsZero())
	assert.Equal(t, "0x0000000000000000000000000000000000000000", Zero.String())
}

func TestKeccak256_KnownVector(t *testing.T) {
	// keccak256("") from the Ethereum yellow paper.
	got := hex.EncodeToString(Keccak256())
	assert.Equal(t, "c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470", got)
}

func TestFromBytes(t *testing.T) {
	long := make([]byte, 32)
	long[31] = 0xaa
	long[0] = 0xff
	a := FromBytes(long)
	assert.Equal(t, byte(0xaa), a[Size-1])
	assert.Equal(t, byte(0x00), a[0])

	short := FromBytes([]byte{0x01, 0x02})
	assert.Equal(t, byte(0x01), short[Size-2])
	assert.Equal(t, byte(0x02), short[Size-1])
}

func TestLabeled_Stable(t *testing.T) {
	assert.Equal(t, Labeled("alice"), Labeled("alice"))
	assert.NotEqual(t, Labeled("alice"), Labeled("bob"))
}

func TestText_RoundTrip(t *testing.T) {
	a := Labeled("carol")
	text, err := a.MarshalText()
	require.NoError(t, err)

	var b Address
	require.NoError(t, b.UnmarshalText(text))
	assert.Equal(t, a, b)
}
