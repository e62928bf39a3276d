package models

import (
	"fmt"
	"time"
)

// SignalType is the action an update resolved to.
type SignalType uint8

const (
	SignalHold SignalType = iota
	SignalBuy
	SignalSell
)

func (s SignalType) String() string {
	switch s {
	case SignalBuy:
		return "buy"
	case SignalSell:
		return "sell"
	case SignalHold:
		return "hold"
	}
	return fmt.Sprintf("signal(%d)", uint8(s))
}

func (s SignalType) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// TradingSignal is the immutable output of one engine update.
type TradingSignal struct {
	Type        SignalType `json:"type"`
	Shares      int        `json:"shares"`
	Reason      string     `json:"reason"`
	Confidence  float64    `json:"confidence"`
	PriceTarget *float64   `json:"price_target"`
	StopLoss    *float64   `json:"stop_loss"`
}

// Actionable reports whether the engine should route the signal to the
// order executor.
func (s TradingSignal) Actionable() bool {
	return s.Type != SignalHold && s.Shares > 0
}

// TradeDirection is the side of a recorded tactical trade.
type TradeDirection uint8

const (
	DirectionBuy TradeDirection = iota
	DirectionSell
)

func (d TradeDirection) String() string {
	if d == DirectionSell {
		return "sell"
	}
	return "buy"
}

func (d TradeDirection) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// TradeRecord is one entry of the per-symbol append-only trade log.
type TradeRecord struct {
	Symbol    string         `json:"symbol"`
	Direction TradeDirection `json:"direction"`
	Shares    int            `json:"shares"`
	Price     float64        `json:"price"`
	Timestamp time.Time      `json:"timestamp"`
	Reason    string         `json:"reason"`
}

// Value is the notional amount of the trade.
func (t TradeRecord) Value() float64 {
	return float64(t.Shares) * t.Price
}

// RiskCheckResult is the outcome of one gate check, or of the whole cascade.
// A failed check is normal control flow, not an error.
type RiskCheckResult struct {
	Passed  bool           `json:"passed"`
	Check   string         `json:"check,omitempty"`
	Reason  string         `json:"reason"`
	Details map[string]any `json:"details,omitempty"`
}

// PositionSnapshot is a read-only view of core plus tactical exposure.
type PositionSnapshot struct {
	Symbol       string  `json:"symbol"`
	CoreShares   int     `json:"core_shares"`
	TInventory   int     `json:"t_inventory"`
	CurrentPrice float64 `json:"current_price"`
}

// TotalShares is the combined core and tactical position.
func (p PositionSnapshot) TotalShares() int {
	return p.CoreShares + p.TInventory
}
