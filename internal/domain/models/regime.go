package models

import "fmt"

// Regime classifies a trading day's price behavior. It is a closed enum so
// every dispatch site can be checked for exhaustiveness.
type Regime uint8

const (
	RegimeUnknown Regime = iota
	RegimeTrendUp
	RegimeTrendDown
	RegimeRange
	RegimeEvent
)

func (r Regime) String() string {
	switch r {
	case RegimeTrendUp:
		return "trend_up"
	case RegimeTrendDown:
		return "trend_down"
	case RegimeRange:
		return "range"
	case RegimeEvent:
		return "event"
	case RegimeUnknown:
		return "unknown"
	}
	return fmt.Sprintf("regime(%d)", uint8(r))
}

func (r Regime) MarshalJSON() ([]byte, error) {
	return []byte(`"` + r.String() + `"`), nil
}

// ParseRegime maps the wire form back to the enum; anything unrecognized is
// RegimeUnknown.
func ParseRegime(s string) Regime {
	switch s {
	case "trend_up":
		return RegimeTrendUp
	case "trend_down":
		return RegimeTrendDown
	case "range":
		return RegimeRange
	case "event":
		return RegimeEvent
	}
	return RegimeUnknown
}

// RegimeFeatures is an immutable per (symbol, date) feature snapshot consumed
// by the classifier. Pointer fields are nil when the underlying data was not
// available; the classifier treats absent features as neutral evidence.
type RegimeFeatures struct {
	Symbol string `json:"symbol"`
	Date   string `json:"date"`

	VWAPCrossCount   int     `json:"vwap_cross_count"`
	PctTimeAboveVWAP float64 `json:"pct_time_above_vwap"`
	PctTimeBelowVWAP float64 `json:"pct_time_below_vwap"`

	OR5Width             *float64 `json:"or5_width"`
	OR15Width            *float64 `json:"or15_width"`
	ORUpBreakoutCount    int      `json:"or_up_breakout_count"`
	ORDownBreakoutCount  int      `json:"or_down_breakout_count"`
	ORFalseBreakoutCount int      `json:"or_false_breakout_count"`

	IntradayRange    float64  `json:"intraday_range"`
	IntradayRangePct float64  `json:"intraday_range_pct"`
	ATR20            *float64 `json:"atr20"`
	RangeATRRatio    *float64 `json:"range_atr_ratio"`

	TotalVolume      float64  `json:"total_volume"`
	EarlyVolume      float64  `json:"early_volume"`
	EarlyVolumeRatio float64  `json:"early_volume_ratio"`
	AvgDailyVolume   *float64 `json:"avg_daily_volume"`
	VolumeRatio      *float64 `json:"volume_ratio"`

	GapPct float64 `json:"gap_pct"`

	OpenPrice  float64 `json:"open_price"`
	ClosePrice float64 `json:"close_price"`
	DayReturn  float64 `json:"day_return"`
}

// ClassificationResult is the classifier's output, consumed read-only
// downstream.
type ClassificationResult struct {
	Regime     Regime         `json:"regime"`
	Confidence float64        `json:"confidence"`
	Reasons    []string       `json:"reasons"`
	Features   RegimeFeatures `json:"features"`
}
