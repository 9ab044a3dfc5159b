package opfilter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/editions/internal/faults"
	"github.com/roach88/editions/internal/ident"
)

func TestNoop_AllowsEverything(t *testing.T) {
	ok, err := Noop{}.IsAllowed(context.Background(), custom, opX)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemory_BlockUnblock(t *testing.T) {
	ctx := context.Background()
	reg := NewMemory()

	reg.Block(custom, opY, opX)
	assert.ElementsMatch(t, []ident.Address{opX, opY}, reg.Blocked(custom))

	ok, err := reg.IsAllowed(ctx, custom, opX)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = reg.IsAllowed(ctx, ident.Labeled("other-list"), opX)
	require.NoError(t, err)
	assert.True(t, ok, "lists are per registrant")

	reg.Unblock(custom, opX)
	ok, err = reg.IsAllowed(ctx, custom, opX)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemory_Subscription(t *testing.T) {
	ctx := context.Background()
	reg := NewMemory()
	reg.Block(CanonicalFilter, opX)

	require.NoError(t, reg.Subscribe(ctx, custom, CanonicalFilter))
	ok, err := reg.IsAllowed(ctx, custom, opX)
	require.NoError(t, err)
	assert.False(t, ok)

	// Subscribing to itself clears the subscription.
	require.NoError(t, reg.Subscribe(ctx, custom, custom))
	_, subscribed := reg.SubscriptionOf(custom)
	assert.False(t, subscribed)
	ok, err = reg.IsAllowed(ctx, custom, opX)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestExpr_DefaultExpression(t *testing.T) {
	ctx := context.Background()
	reg, err := NewExpr("", []ident.Address{opX})
	require.NoError(t, err)

	ok, err := reg.IsAllowed(ctx, custom, opX)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = reg.IsAllowed(ctx, custom, opY)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestExpr_CustomExpression(t *testing.T) {
	ctx := context.Background()
	expression := `registrant != "` + custom.Hex() + `" || operator == "` + opY.Hex() + `"`
	reg, err := NewExpr(expression, nil)
	require.NoError(t, err)
	assert.Equal(t, expression, reg.Expression())

	ok, err := reg.IsAllowed(ctx, custom, opX)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = reg.IsAllowed(ctx, custom, opY)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = reg.IsAllowed(ctx, CanonicalFilter, opX)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestExpr_CompileErrors(t *testing.T) {
	_, err := NewExpr("operator +", nil)
	assert.True(t, faults.Is(err, faults.CodeInvalidArgument), "got %v", err)

	_, err = NewExpr(`operator`, nil)
	assert.Error(t, err, "non-bool expressions are rejected")
}

func TestCanonicalFilter(t *testing.T) {
	assert.Equal(t, "0x3cc6cdda760b79bafa08df41ecfa224f810dceb6", CanonicalFilter.Hex())
}
