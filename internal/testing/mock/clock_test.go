package mock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRealClock_Now(t *testing.T) {
	before := time.Now()
	got := RealClock{}.Now()
	after := time.Now()

	assert.False(t, got.Before(before))
	assert.False(t, got.After(after))
}

func TestMockClock(t *testing.T) {
	start := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	clock := NewMockClock(start)
	assert.Equal(t, start, clock.Now())

	clock.Advance(90 * time.Minute)
	assert.Equal(t, start.Add(90*time.Minute), clock.Now())

	clock.AdvanceDate(1000, 0, 0)
	assert.Equal(t, 3024, clock.Now().Year())

	later := time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC)
	clock.Set(later)
	assert.Equal(t, later, clock.Now())
}

func TestNewMockClock_ZeroUsesNow(t *testing.T) {
	clock := NewMockClock(time.Time{})
	assert.WithinDuration(t, time.Now(), clock.Now(), time.Second)
}
