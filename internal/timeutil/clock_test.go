package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRealClock(t *testing.T) {
	clock := RealClock{}
	before := time.Now()
	now := clock.Now()
	assert.False(t, now.Before(before))

	past := time.Now().Add(-time.Second)
	assert.GreaterOrEqual(t, clock.Since(past), time.Second)

	start := time.Now()
	clock.Sleep(time.Millisecond)
	assert.GreaterOrEqual(t, time.Since(start), time.Millisecond)
}

func TestMockClock(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	clock := NewMockClock(start)
	assert.Equal(t, start, clock.Now())

	clock.Advance(time.Minute)
	assert.Equal(t, time.Minute, clock.Since(start))

	clock.Sleep(10 * time.Millisecond)
	clock.Sleep(20 * time.Millisecond)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, clock.Sleeps())
	assert.Equal(t, time.Minute+30*time.Millisecond, clock.Since(start))

	clock.Set(start)
	assert.Equal(t, start, clock.Now())
}
