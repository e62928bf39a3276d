package models

import "time"

// EventKind tags engine events published to observers.
type EventKind string

const (
	EventSignal       EventKind = "signal"
	EventTrade        EventKind = "trade"
	EventRegimeChange EventKind = "regime_change"
)

// EngineEvent is the envelope the engine publishes to its observers
// (Kafka sink, notifier, persistence, dashboard). Exactly one payload field
// is set, matching Kind.
type EngineEvent struct {
	Kind      EventKind      `json:"kind"`
	Symbol    string         `json:"symbol"`
	At        time.Time      `json:"at"`
	Signal    *TradingSignal `json:"signal,omitempty"`
	Trade     *TradeRecord   `json:"trade,omitempty"`
	OldRegime Regime         `json:"old_regime,omitempty"`
	NewRegime Regime         `json:"new_regime,omitempty"`
}
