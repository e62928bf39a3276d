package models

import "time"

// Bar is an immutable OHLCV record, either received from the market-data
// collaborator or aggregated from sub-bars.
type Bar struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	VWAP      float64
	Count     int
}

// TypicalPrice returns (H+L+C)/3, the price used for VWAP accumulation.
func (b Bar) TypicalPrice() float64 {
	return (b.High + b.Low + b.Close) / 3
}

// Tick is a partial quote update from the feed. Nil fields were not present
// in the update and must not overwrite previously known values.
type Tick struct {
	Symbol    string
	Price     *float64
	Bid       *float64
	Ask       *float64
	High      *float64
	Low       *float64
	Open      *float64
	PrevClose *float64
	VWAP      *float64
	Volume    *int64
	BidSize   *int64
	AskSize   *int64
}

// Quote is the cached last-known state of a symbol, owned by the market-data
// cache and read-only for everyone else.
type Quote struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Bid       float64   `json:"bid"`
	Ask       float64   `json:"ask"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Open      float64   `json:"open"`
	PrevClose float64   `json:"prev_close"`
	Volume    int64     `json:"volume"`
	VWAP      float64   `json:"vwap"`
	BidSize   int64     `json:"bid_size"`
	AskSize   int64     `json:"ask_size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SpreadPct returns the bid/ask spread relative to the mid price, 0 when the
// book is not known yet.
func (q Quote) SpreadPct() float64 {
	mid := (q.Bid + q.Ask) / 2
	if q.Bid <= 0 || q.Ask <= 0 || mid <= 0 {
		return 0
	}
	return (q.Ask - q.Bid) / mid
}
