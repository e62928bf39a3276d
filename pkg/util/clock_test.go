package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	c, err := ParseClock("09:30")
	require.NoError(t, err)
	assert.Equal(t, ClockTime{Hour: 9, Minute: 30}, c)
	assert.Equal(t, 570, c.Minutes())
	assert.Equal(t, "09:30", c.String())

	for _, bad := range []string{"", "930", "24:00", "09:60", "ab:cd"} {
		_, err := ParseClock(bad)
		assert.Error(t, err, bad)
	}
}

func TestMustClockPanicsOnBadInput(t *testing.T) {
	assert.Panics(t, func() { MustClock("not a time") })
	assert.NotPanics(t, func() { MustClock("16:00") })
}

func TestSessionProgress(t *testing.T) {
	open := MustClock("09:30")
	close := MustClock("16:00")

	at := func(h, m int) time.Time { return time.Date(2025, 6, 2, h, m, 0, 0, time.UTC) }

	assert.InDelta(t, 0.0, SessionProgress(at(9, 0), open, close), 1e-9)
	assert.InDelta(t, 0.0, SessionProgress(at(9, 30), open, close), 1e-9)
	assert.InDelta(t, 0.5, SessionProgress(at(12, 45), open, close), 1e-9)
	assert.InDelta(t, 1.0, SessionProgress(at(16, 0), open, close), 1e-9)
	assert.InDelta(t, 1.0, SessionProgress(at(17, 0), open, close), 1e-9)

	// Degenerate session collapses to done.
	assert.InDelta(t, 1.0, SessionProgress(at(12, 0), open, open), 1e-9)
}

func TestSessionDate(t *testing.T) {
	assert.Equal(t, "2025-06-02", SessionDate(time.Date(2025, 6, 2, 23, 59, 0, 0, time.UTC)))
}
