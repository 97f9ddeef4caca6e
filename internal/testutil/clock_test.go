package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFixedClock_ZeroUsesDefault(t *testing.T) {
	clock := NewFixedClock(time.Time{})
	assert.Equal(t, DefaultTime, clock.Now())
}

func TestFixedClock_Frozen(t *testing.T) {
	at := time.Date(2024, time.March, 5, 12, 30, 0, 0, time.UTC)
	clock := NewFixedClock(at)

	assert.Equal(t, at, clock.Now())
	assert.Equal(t, at, clock.Now())
}

func TestFixedClock_NormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	clock := NewFixedClock(time.Date(2024, time.March, 5, 14, 0, 0, 0, loc))

	assert.Equal(t, time.UTC, clock.Now().Location())
	assert.Equal(t, 12, clock.Now().Hour())
}

func TestFixedClock_AdvanceAndSet(t *testing.T) {
	clock := NewFixedClock(DefaultTime)

	clock.Advance(90 * time.Second)
	assert.Equal(t, DefaultTime.Add(90*time.Second), clock.Now())

	later := DefaultTime.Add(24 * time.Hour)
	clock.Set(later)
	assert.Equal(t, later, clock.Now())
}

func TestFixedClock_ThreadSafe(t *testing.T) {
	clock := NewFixedClock(DefaultTime)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			clock.Advance(time.Millisecond)
			_ = clock.Now()
		}()
	}
	wg.Wait()

	assert.Equal(t, DefaultTime.Add(50*time.Millisecond), clock.Now())
}
