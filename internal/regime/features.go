package regime

import (
	"T0Pilot/internal/domain/models"
	"T0Pilot/internal/indicators"
)

// Extractor turns a day's bars into a flat feature snapshot for the
// classifier. It is stateless; Extract is a pure function of its inputs.
type Extractor struct {
	openHour   int
	openMinute int
}

// NewExtractor creates an extractor anchored at the given market-open time.
func NewExtractor(openHour, openMinute int) *Extractor {
	return &Extractor{openHour: openHour, openMinute: openMinute}
}

// Extract derives classification features from intraday 1-minute bars, an
// optional daily series, and an optional previous close. Missing inputs
// degrade to zero/nil fields; Extract never fails.
func (e *Extractor) Extract(symbol, date string, intraday, daily []models.Bar, prevClose *float64) models.RegimeFeatures {
	f := models.RegimeFeatures{Symbol: symbol, Date: date}
	if len(intraday) == 0 {
		return f
	}

	f.OpenPrice = intraday[0].Open
	f.ClosePrice = intraday[len(intraday)-1].Close

	var hi, lo float64
	for i, b := range intraday {
		if i == 0 || b.High > hi {
			hi = b.High
		}
		if i == 0 || b.Low < lo {
			lo = b.Low
		}
	}
	f.IntradayRange = hi - lo
	if f.OpenPrice > 0 {
		f.IntradayRangePct = f.IntradayRange / f.OpenPrice
		f.DayReturn = (f.ClosePrice - f.OpenPrice) / f.OpenPrice
	}

	if prevClose != nil && *prevClose > 0 {
		f.GapPct = (f.OpenPrice - *prevClose) / *prevClose
	}

	vwap := indicators.SeriesVWAP(intraday)
	f.VWAPCrossCount = indicators.CountVWAPCrosses(intraday, vwap)
	f.PctTimeAboveVWAP = indicators.PctTimeAboveVWAP(intraday, vwap)
	f.PctTimeBelowVWAP = 1 - f.PctTimeAboveVWAP

	or5High, or5Low := indicators.OpeningRangeOf(intraday, 5, e.openHour, e.openMinute)
	if or5High != nil && or5Low != nil {
		w := *or5High - *or5Low
		f.OR5Width = &w
	}

	or15High, or15Low := indicators.OpeningRangeOf(intraday, 15, e.openHour, e.openMinute)
	if or15High != nil && or15Low != nil {
		w := *or15High - *or15Low
		f.OR15Width = &w

		// Breakouts only count once the OR window itself has passed.
		afterOR := e.barsAtOrAfter(intraday, 15)
		if len(afterOR) > 0 {
			up, down := indicators.CountORBreakouts(afterOR, *or15High, *or15Low)
			f.ORUpBreakoutCount = up
			f.ORDownBreakoutCount = down
			f.ORFalseBreakoutCount = min(up, down)
		}
	}

	for _, b := range intraday {
		f.TotalVolume += b.Volume
	}
	for _, b := range e.barsBefore(intraday, 30) {
		f.EarlyVolume += b.Volume
	}
	if f.TotalVolume > 0 {
		f.EarlyVolumeRatio = f.EarlyVolume / f.TotalVolume
	}

	if len(daily) > 0 {
		f.ATR20 = indicators.ATR(daily, 20)
		if f.ATR20 != nil && *f.ATR20 > 0 {
			r := f.IntradayRange / *f.ATR20
			f.RangeATRRatio = &r
		}
		if len(daily) >= 20 {
			var sum float64
			for _, b := range daily[len(daily)-20:] {
				sum += b.Volume
			}
			avg := sum / 20
			f.AvgDailyVolume = &avg
			if avg > 0 {
				vr := f.TotalVolume / avg
				f.VolumeRatio = &vr
			}
		}
	}

	return f
}

func (e *Extractor) barsAtOrAfter(bars []models.Bar, minutes int) []models.Bar {
	cutoff := e.openHour*60 + e.openMinute + minutes
	out := bars[:0:0]
	for _, b := range bars {
		if b.Timestamp.Hour()*60+b.Timestamp.Minute() >= cutoff {
			out = append(out, b)
		}
	}
	return out
}

func (e *Extractor) barsBefore(bars []models.Bar, minutes int) []models.Bar {
	cutoff := e.openHour*60 + e.openMinute + minutes
	out := bars[:0:0]
	for _, b := range bars {
		if b.Timestamp.Hour()*60+b.Timestamp.Minute() < cutoff {
			out = append(out, b)
		}
	}
	return out
}
