package models

import "math"

// MarketSnapshot is the per-update view of a symbol the signal generator
// works from. The caller owns its lifecycle; the engine never mutates it.
type MarketSnapshot struct {
	Price  float64
	VWAP   float64
	High   float64
	Low    float64
	Open   float64
	Volume int64

	ORHigh     float64
	ORLow      float64
	ORComplete bool

	IntradayVol float64 // rolling stddev of recent closes
	VWAPSlope   float64
}

// DevFromVWAP is the raw price deviation from VWAP.
func (m MarketSnapshot) DevFromVWAP() float64 {
	return m.Price - m.VWAP
}

// DevNormalized is the VWAP deviation in units of intraday volatility.
// Zero when no volatility estimate is available yet.
func (m MarketSnapshot) DevNormalized() float64 {
	if m.IntradayVol <= 0 {
		return 0
	}
	return m.DevFromVWAP() / m.IntradayVol
}

// IsNearORHigh reports whether price sits within bandPct of the OR high.
func (m MarketSnapshot) IsNearORHigh(bandPct float64) bool {
	if m.ORHigh <= 0 {
		return false
	}
	return math.Abs(m.Price-m.ORHigh)/m.ORHigh <= bandPct
}

// IsNearORLow reports whether price sits within bandPct of the OR low.
func (m MarketSnapshot) IsNearORLow(bandPct float64) bool {
	if m.ORLow <= 0 {
		return false
	}
	return math.Abs(m.Price-m.ORLow)/m.ORLow <= bandPct
}

// MarketData carries the liquidity view used by the optional spread and depth
// gate checks.
type MarketData struct {
	Price     float64
	Bid       float64
	Ask       float64
	Spread    float64
	SpreadPct float64
	BidSize   int64
	AskSize   int64
	Volume    int64
}

// LiquidityView derives gate-check inputs from a cached quote.
func LiquidityView(q Quote) MarketData {
	return MarketData{
		Price:     q.Price,
		Bid:       q.Bid,
		Ask:       q.Ask,
		Spread:    q.Ask - q.Bid,
		SpreadPct: q.SpreadPct(),
		BidSize:   q.BidSize,
		AskSize:   q.AskSize,
		Volume:    q.Volume,
	}
}
