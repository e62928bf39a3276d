package marketdata

import (
	"time"

	"T0Pilot/internal/domain/models"
)

// BarCallback observes completed bars.
type BarCallback func(symbol string, bar models.Bar)

// BarAggregator rolls sub-interval bars up into fixed-interval bars. Not
// safe for concurrent use; the poller owns one per symbol.
type BarAggregator struct {
	symbol   string
	interval time.Duration

	current   *models.Bar
	completed []models.Bar
	callbacks []BarCallback
}

func NewBarAggregator(symbol string, interval time.Duration) *BarAggregator {
	if interval <= 0 {
		interval = time.Minute
	}
	return &BarAggregator{symbol: symbol, interval: interval}
}

// AddCallback registers a completion observer.
func (a *BarAggregator) AddCallback(cb BarCallback) {
	a.callbacks = append(a.callbacks, cb)
}

// OnBar folds one sub-bar into the aggregation window. When the sub-bar
// opens a new window the previous bar is completed, recorded, handed to the
// callbacks, and returned; otherwise nil.
func (a *BarAggregator) OnBar(sub models.Bar) *models.Bar {
	start := sub.Timestamp.Truncate(a.interval)

	var done *models.Bar
	switch {
	case a.current == nil:
		a.current = a.newWindow(start, sub)
	case !a.current.Timestamp.Equal(start):
		finished := *a.current
		a.completed = append(a.completed, finished)
		for _, cb := range a.callbacks {
			cb(a.symbol, finished)
		}
		done = &finished
		a.current = a.newWindow(start, sub)
	default:
		if sub.High > a.current.High {
			a.current.High = sub.High
		}
		if sub.Low < a.current.Low {
			a.current.Low = sub.Low
		}
		a.current.Close = sub.Close
		a.current.Volume += sub.Volume
		a.current.Count++
		if sub.VWAP > 0 {
			a.current.VWAP = sub.VWAP
		}
	}
	return done
}

func (a *BarAggregator) newWindow(start time.Time, sub models.Bar) *models.Bar {
	return &models.Bar{
		Timestamp: start,
		Open:      sub.Open,
		High:      sub.High,
		Low:       sub.Low,
		Close:     sub.Close,
		Volume:    sub.Volume,
		VWAP:      sub.VWAP,
		Count:     1,
	}
}

// CurrentBar returns a copy of the in-progress bar, false when none.
func (a *BarAggregator) CurrentBar() (models.Bar, bool) {
	if a.current == nil {
		return models.Bar{}, false
	}
	return *a.current, true
}

// CompletedBars returns a copy of every finished bar this session.
func (a *BarAggregator) CompletedBars() []models.Bar {
	out := make([]models.Bar, len(a.completed))
	copy(out, a.completed)
	return out
}

// Bars returns completed bars, optionally with the in-progress bar appended.
func (a *BarAggregator) Bars(includeCurrent bool) []models.Bar {
	out := a.CompletedBars()
	if includeCurrent && a.current != nil {
		out = append(out, *a.current)
	}
	return out
}

// Reset clears all state for a new session.
func (a *BarAggregator) Reset() {
	a.current = nil
	a.completed = a.completed[:0]
}
