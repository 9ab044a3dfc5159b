package initguard

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/editions/internal/faults"
)

func TestInitialize_Once(t *testing.T) {
	var g Guard
	assert.Equal(t, Uninitialized, g.State())

	calls := 0
	require.NoError(t, g.Initialize(func() error {
		calls++
		assert.Equal(t, Initializing, g.State())
		return nil
	}))
	assert.True(t, g.Initialized())

	err := g.Initialize(func() error {
		calls++
		return nil
	})
	require.ErrorIs(t, err, ErrAlreadyInitialized)
	assert.Equal(t, faults.CodeAlreadyInitialized, faults.CodeOf(err))
	assert.Equal(t, 1, calls)
}

func TestInitialize_SecondCallAlwaysFails(t *testing.T) {
	var g Guard
	require.NoError(t, g.Initialize(func() error { return nil }))
	for i := 0; i < 5; i++ {
		assert.ErrorIs(t, g.Initialize(func() error { return nil }), ErrAlreadyInitialized)
	}
	assert.Equal(t, Initialized, g.State())
}

func TestInitialize_NestedCallRejected(t *testing.T) {
	var g Guard
	var nested error
	require.NoError(t, g.Initialize(func() error {
		nested = g.Initialize(func() error { return nil })
		return nil
	}))
	assert.ErrorIs(t, nested, ErrAlreadyInitialized)
}

func TestInitialize_FailureRestoresUninitialized(t *testing.T) {
	var g Guard
	boom := errors.New("boom")
	err := g.Initialize(func() error { return boom })
	require.ErrorIs(t, err, boom)
	assert.Equal(t, Uninitialized, g.State())
	assert.ErrorIs(t, g.RequireInitialized(), ErrNotInitialized)
}

func TestOnlyInitializing(t *testing.T) {
	var g Guard
	assert.ErrorIs(t, g.OnlyInitializing(), ErrNotInitializing)

	var inside error
	require.NoError(t, g.Initialize(func() error {
		inside = g.OnlyInitializing()
		return nil
	}))
	assert.NoError(t, inside)

	// After the window closes, sub-initializers are locked out for good.
	assert.ErrorIs(t, g.OnlyInitializing(), ErrNotInitializing)
}

func TestRequireInitialized(t *testing.T) {
	var g Guard
	assert.ErrorIs(t, g.RequireInitialized(), ErrNotInitialized)

	var during error
	require.NoError(t, g.Initialize(func() error {
		during = g.RequireInitialized()
		return nil
	}))
	assert.ErrorIs(t, during, ErrNotInitialized)
	assert.NoError(t, g.RequireInitialized())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "uninitialized", Uninitialized.String())
	assert.Equal(t, "initializing", Initializing.String())
	assert.Equal(t, "initialized", Initialized.String())
	assert.Equal(t, "unknown", State(9).String())
}
