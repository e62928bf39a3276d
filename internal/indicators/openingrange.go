package indicators

import (
	"time"

	"T0Pilot/internal/domain/models"
)

// BreakoutDirection is the side of an opening-range breakout.
type BreakoutDirection uint8

const (
	BreakoutNone BreakoutDirection = iota
	BreakoutUp
	BreakoutDown
)

func (d BreakoutDirection) String() string {
	switch d {
	case BreakoutUp:
		return "up"
	case BreakoutDown:
		return "down"
	}
	return "none"
}

type orWindow struct {
	minutes  int
	high     *float64
	low      *float64
	complete bool
}

func (w *orWindow) update(minutesSinceOpen int, high, low float64) {
	if w.complete {
		return
	}
	if minutesSinceOpen < w.minutes {
		if w.high == nil || high > *w.high {
			h := high
			w.high = &h
		}
		if w.low == nil || low < *w.low {
			l := low
			w.low = &l
		}
		return
	}
	// First bar at or past the boundary seals the window for the session.
	w.complete = true
}

func (w *orWindow) reset() {
	w.high = nil
	w.low = nil
	w.complete = false
}

// OpeningRange tracks the high/low of the first 5 and 15 minutes after the
// open. Each window is irreversible once complete; pre-market updates are
// ignored. Resets itself on session date change.
type OpeningRange struct {
	symbol      string
	openHour    int
	openMinute  int
	or5         orWindow
	or15        orWindow
	sessionDate string
}

// NewOpeningRange creates a tracker with the given market-open clock time.
func NewOpeningRange(symbol string, openHour, openMinute int) *OpeningRange {
	return &OpeningRange{
		symbol:     symbol,
		openHour:   openHour,
		openMinute: openMinute,
		or5:        orWindow{minutes: 5},
		or15:       orWindow{minutes: 15},
	}
}

// Update widens the still-open windows with a bar's high/low.
func (o *OpeningRange) Update(ts time.Time, high, low float64) {
	date := ts.Format("2006-01-02")
	if o.sessionDate != date {
		o.Reset(date)
	}

	mins := o.minutesSinceOpen(ts)
	if mins < 0 {
		return
	}
	o.or5.update(mins, high, low)
	o.or15.update(mins, high, low)
}

func (o *OpeningRange) minutesSinceOpen(ts time.Time) int {
	return (ts.Hour()*60 + ts.Minute()) - (o.openHour*60 + o.openMinute)
}

// Reset clears both windows for a new session.
func (o *OpeningRange) Reset(sessionDate string) {
	o.or5.reset()
	o.or15.reset()
	o.sessionDate = sessionDate
}

func (o *OpeningRange) OR5High() *float64  { return o.or5.high }
func (o *OpeningRange) OR5Low() *float64   { return o.or5.low }
func (o *OpeningRange) OR5Complete() bool  { return o.or5.complete }
func (o *OpeningRange) OR15High() *float64 { return o.or15.high }
func (o *OpeningRange) OR15Low() *float64  { return o.or15.low }
func (o *OpeningRange) OR15Complete() bool { return o.or15.complete }

// OR5Width is high-low of the 5-minute window, nil until both bounds exist.
func (o *OpeningRange) OR5Width() *float64 {
	if o.or5.high == nil || o.or5.low == nil {
		return nil
	}
	w := *o.or5.high - *o.or5.low
	return &w
}

// OR15Width is high-low of the 15-minute window, nil until both bounds exist.
func (o *OpeningRange) OR15Width() *float64 {
	if o.or15.high == nil || o.or15.low == nil {
		return nil
	}
	w := *o.or15.high - *o.or15.low
	return &w
}

// CheckBreakout reports the breakout side against the OR15 bounds.
// Undefined (none) until OR15 is complete.
func (o *OpeningRange) CheckBreakout(price float64) BreakoutDirection {
	if !o.or15.complete {
		return BreakoutNone
	}
	if o.or15.high != nil && price > *o.or15.high {
		return BreakoutUp
	}
	if o.or15.low != nil && price < *o.or15.low {
		return BreakoutDown
	}
	return BreakoutNone
}

// OpeningRangeOf computes the OR high/low of a bar series over the first
// orMinutes after the open. Returns nils when no bar falls in the window.
func OpeningRangeOf(bars []models.Bar, orMinutes, openHour, openMinute int) (*float64, *float64) {
	var high, low *float64
	cutoff := openHour*60 + openMinute + orMinutes
	for _, b := range bars {
		mins := b.Timestamp.Hour()*60 + b.Timestamp.Minute()
		if mins >= cutoff {
			continue
		}
		if high == nil || b.High > *high {
			h := b.High
			high = &h
		}
		if low == nil || b.Low < *low {
			l := b.Low
			low = &l
		}
	}
	return high, low
}

// CountORBreakouts counts distinct excursions of the close beyond the OR
// bounds. Re-entering the band arms the counter again.
func CountORBreakouts(bars []models.Bar, orHigh, orLow float64) (up, down int) {
	const (
		inside = iota
		above
		below
	)
	state := inside
	for _, b := range bars {
		switch {
		case b.Close > orHigh:
			if state != above {
				up++
			}
			state = above
		case b.Close < orLow:
			if state != below {
				down++
			}
			state = below
		default:
			state = inside
		}
	}
	return up, down
}
