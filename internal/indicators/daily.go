package indicators

import (
	"math"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"

	"T0Pilot/internal/domain/models"
)

// TrueRanges computes the true-range series of a daily bar sequence.
// The first element uses high-low only since there is no prior close.
func TrueRanges(bars []models.Bar) []float64 {
	out := make([]float64, 0, len(bars))
	for i, b := range bars {
		tr := b.High - b.Low
		if i > 0 {
			prevClose := bars[i-1].Close
			tr = math.Max(tr, math.Abs(b.High-prevClose))
			tr = math.Max(tr, math.Abs(b.Low-prevClose))
		}
		out = append(out, tr)
	}
	return out
}

// ATR returns the latest exponentially smoothed average true range, or nil
// when fewer than period+1 daily bars are available.
func ATR(bars []models.Bar, period int) *float64 {
	if len(bars) < period+1 {
		return nil
	}
	ema := trend.NewEmaWithPeriod[float64](period)
	smoothed := helper.ChanToSlice(ema.Compute(helper.SliceToChan(TrueRanges(bars))))
	if len(smoothed) == 0 {
		return nil
	}
	v := smoothed[len(smoothed)-1]
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

// MA returns the latest simple moving average of daily closes, or nil when
// fewer than period bars are available.
func MA(bars []models.Bar, period int) *float64 {
	if len(bars) < period {
		return nil
	}
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	sma := trend.NewSmaWithPeriod[float64](period)
	out := helper.ChanToSlice(sma.Compute(helper.SliceToChan(closes)))
	if len(out) == 0 {
		return nil
	}
	v := out[len(out)-1]
	return &v
}

// RollingStddev is the sample standard deviation of the trailing window.
// Returns 0 when fewer than two values are in the window.
func RollingStddev(values []float64, window int) float64 {
	if window > len(values) {
		window = len(values)
	}
	if window < 2 {
		return 0
	}
	var sum, sum2 float64
	for i := len(values) - window; i < len(values); i++ {
		sum += values[i]
		sum2 += values[i] * values[i]
	}
	n := float64(window)
	mean := sum / n
	variance := (sum2 - n*mean*mean) / (n - 1)
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance)
}
