package indicators

import (
	"time"

	"T0Pilot/internal/domain/models"
)

// VWAP is a session-scoped volume-weighted average price accumulator.
// It resets itself when the date derived from an update's timestamp differs
// from the stored session date.
type VWAP struct {
	symbol      string
	cumPV       float64
	cumVolume   float64
	current     float64
	sessionDate string
}

// NewVWAP creates an accumulator for one symbol.
func NewVWAP(symbol string) *VWAP {
	return &VWAP{symbol: symbol}
}

// Update folds one observation into the session accumulator and returns the
// current VWAP. Volume <= 0 is a silent no-op.
func (v *VWAP) Update(ts time.Time, typicalPrice, volume float64) float64 {
	date := ts.Format("2006-01-02")
	if v.sessionDate != date {
		v.Reset(date)
	}
	if volume <= 0 {
		return v.current
	}
	v.cumPV += typicalPrice * volume
	v.cumVolume += volume
	if v.cumVolume > 0 {
		v.current = v.cumPV / v.cumVolume
	}
	return v.current
}

// UpdateFromBar derives the typical price (H+L+C)/3 from a bar.
func (v *VWAP) UpdateFromBar(bar models.Bar) float64 {
	return v.Update(bar.Timestamp, bar.TypicalPrice(), bar.Volume)
}

// Reset clears the accumulator for a new session.
func (v *VWAP) Reset(sessionDate string) {
	v.cumPV = 0
	v.cumVolume = 0
	v.current = 0
	v.sessionDate = sessionDate
}

// Value is the current session VWAP, 0 before the first volume.
func (v *VWAP) Value() float64 { return v.current }

// CumulativeVolume is the volume accumulated this session.
func (v *VWAP) CumulativeVolume() float64 { return v.cumVolume }

// SeriesVWAP computes the running VWAP for a bar series.
// Entries before any volume has traded are 0.
func SeriesVWAP(bars []models.Bar) []float64 {
	out := make([]float64, len(bars))
	var cumPV, cumVol float64
	for i, b := range bars {
		cumPV += b.TypicalPrice() * b.Volume
		cumVol += b.Volume
		if cumVol > 0 {
			out[i] = cumPV / cumVol
		}
	}
	return out
}

// CountVWAPCrosses counts sign changes of close-vs-VWAP. The first observed
// transition establishes the side and is not counted.
func CountVWAPCrosses(bars []models.Bar, vwap []float64) int {
	if len(bars) < 2 || len(vwap) != len(bars) {
		return 0
	}
	crosses := 0
	prevAbove := bars[0].Close > vwap[0]
	for i := 1; i < len(bars); i++ {
		above := bars[i].Close > vwap[i]
		if above != prevAbove {
			crosses++
		}
		prevAbove = above
	}
	return crosses
}

// PctTimeAboveVWAP is the fraction of bars whose close sits above VWAP.
func PctTimeAboveVWAP(bars []models.Bar, vwap []float64) float64 {
	if len(bars) == 0 || len(vwap) != len(bars) {
		return 0
	}
	above := 0
	for i, b := range bars {
		if b.Close > vwap[i] {
			above++
		}
	}
	return float64(above) / float64(len(bars))
}
