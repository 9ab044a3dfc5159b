package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManualClock_StartsAtEpoch(t *testing.T) {
	clock := NewManualClock(time.Time{})
	assert.Equal(t, DefaultEpoch, clock.Now())

	start := time.Unix(1_700_000_000, 0)
	assert.Equal(t, start, NewManualClock(start).Now())
}

func TestManualClock_OnlyMovesWhenAdvanced(t *testing.T) {
	clock := NewManualClock(time.Time{})

	assert.Equal(t, clock.Now(), clock.Now())

	got := clock.Advance(90 * time.Second)
	assert.Equal(t, DefaultEpoch.Add(90*time.Second), got)
	assert.Equal(t, got, clock.Now())
}

func TestManualClock_SetAndReset(t *testing.T) {
	clock := NewManualClock(time.Time{})
	later := DefaultEpoch.Add(24 * time.Hour)

	clock.Set(later)
	assert.Equal(t, later, clock.Now())

	clock.Reset()
	assert.Equal(t, DefaultEpoch, clock.Now())
}

func TestManualClock_ConcurrentAdvance(t *testing.T) {
	clock := NewManualClock(time.Time{})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			clock.Advance(time.Second)
		}()
	}
	wg.Wait()

	assert.Equal(t, DefaultEpoch.Add(50*time.Second), clock.Now())
}
