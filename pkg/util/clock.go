package util

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ClockTime is a wall-clock time of day, used for session boundaries.
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClock parses "HH:MM".
func ParseClock(s string) (ClockTime, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return ClockTime{}, fmt.Errorf("invalid clock time %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return ClockTime{}, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return ClockTime{}, fmt.Errorf("invalid minute in %q", s)
	}
	return ClockTime{Hour: h, Minute: m}, nil
}

// MustClock parses "HH:MM" and panics on malformed input. For defaults only.
func MustClock(s string) ClockTime {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Minutes is the minute-of-day representation.
func (c ClockTime) Minutes() int { return c.Hour*60 + c.Minute }

// String renders "HH:MM".
func (c ClockTime) String() string { return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute) }

// MinutesOfDay is the minute-of-day of a timestamp's clock component.
func MinutesOfDay(t time.Time) int { return t.Hour()*60 + t.Minute() }

// SessionDate is the calendar-day key used for daily resets.
func SessionDate(t time.Time) string { return t.Format("2006-01-02") }

// SessionProgress maps a timestamp to [0,1] across the trading session,
// clamped at the boundaries.
func SessionProgress(t time.Time, open, close ClockTime) float64 {
	total := close.Minutes() - open.Minutes()
	if total <= 0 {
		return 1
	}
	elapsed := MinutesOfDay(t) - open.Minutes()
	if elapsed <= 0 {
		return 0
	}
	if elapsed >= total {
		return 1
	}
	return float64(elapsed) / float64(total)
}
