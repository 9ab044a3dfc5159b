package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventID_Deterministic(t *testing.T) {
	data := IRObject{"count": IRInt(500)}
	a, err := EventID("call-1", 3, "0x01", "BatchMintCompleted", data)
	require.NoError(t, err)
	b, err := EventID("call-1", 3, "0x01", "BatchMintCompleted", IRObject{"count": IRInt(500)})
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestEventID_SensitiveToEveryField(t *testing.T) {
	base, err := EventID("call-1", 3, "0x01", "K", IRObject{})
	require.NoError(t, err)

	variants := []struct {
		name string
		id   func() (string, error)
	}{
		{"call", func() (string, error) { return EventID("call-2", 3, "0x01", "K", IRObject{}) }},
		{"seq", func() (string, error) { return EventID("call-1", 4, "0x01", "K", IRObject{}) }},
		{"source", func() (string, error) { return EventID("call-1", 3, "0x02", "K", IRObject{}) }},
		{"kind", func() (string, error) { return EventID("call-1", 3, "0x01", "J", IRObject{}) }},
		{"data", func() (string, error) { return EventID("call-1", 3, "0x01", "K", IRObject{"x": IRInt(1)}) }},
	}
	for _, v := range variants {
		t.Run(v.name, func(t *testing.T) {
			id, err := v.id()
			require.NoError(t, err)
			assert.NotEqual(t, base, id)
		})
	}
}

func TestCallDigest_DomainSeparated(t *testing.T) {
	d, err := CallDigest("0x01", "edition.mint", "0x02", IRObject{}, 0)
	require.NoError(t, err)
	e, err := EventID("0x01", 0, "0x02", "edition.mint", IRObject{})
	require.NoError(t, err)
	assert.NotEqual(t, d, e)
}
