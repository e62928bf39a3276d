package engine

import (
	"time"

	"T0Pilot/internal/domain/models"
)

// TradingState is the per-symbol position ledger: the signed tactical
// inventory layered on a fixed core position, round-trip matching, and
// realized daily PnL. It is exclusively owned by the engine and must only be
// mutated through RecordBuy/RecordSell/ResetDaily.
type TradingState struct {
	Symbol string

	CoreShares  int
	TMaxShares  int
	TStepShares int

	TInventory     int
	RoundTripsDone int
	DailyPnL       float64
	LastTradeTime  *time.Time

	// Round-trip matching accumulators. A round trip completes in either
	// buy-then-sell or sell-then-buy order.
	pendingBuyShares    int
	pendingSellShares   int
	pendingBuyCost      float64
	pendingSellProceeds float64

	Trades []models.TradeRecord
}

// NewTradingState creates a ledger with the configured sizing bounds.
func NewTradingState(symbol string, coreShares, tMaxShares, tStepShares int) *TradingState {
	return &TradingState{
		Symbol:      symbol,
		CoreShares:  coreShares,
		TMaxShares:  tMaxShares,
		TStepShares: tStepShares,
	}
}

// ResetDaily zeroes all per-day fields and clears the trade log.
func (s *TradingState) ResetDaily() {
	s.TInventory = 0
	s.RoundTripsDone = 0
	s.DailyPnL = 0
	s.LastTradeTime = nil
	s.pendingBuyShares = 0
	s.pendingSellShares = 0
	s.pendingBuyCost = 0
	s.pendingSellProceeds = 0
	s.Trades = nil
}

// RecordBuy appends a buy to the trade log, adjusts tactical inventory, and
// runs round-trip matching.
func (s *TradingState) RecordBuy(shares int, price float64, reason string, now time.Time) models.TradeRecord {
	rec := models.TradeRecord{
		Symbol:    s.Symbol,
		Direction: models.DirectionBuy,
		Shares:    shares,
		Price:     price,
		Timestamp: now,
		Reason:    reason,
	}
	s.Trades = append(s.Trades, rec)
	s.TInventory += shares
	s.LastTradeTime = &now

	s.pendingBuyShares += shares
	s.pendingBuyCost += float64(shares) * price
	s.matchRoundTrip()

	return rec
}

// RecordSell is the sell-side mirror of RecordBuy.
func (s *TradingState) RecordSell(shares int, price float64, reason string, now time.Time) models.TradeRecord {
	rec := models.TradeRecord{
		Symbol:    s.Symbol,
		Direction: models.DirectionSell,
		Shares:    shares,
		Price:     price,
		Timestamp: now,
		Reason:    reason,
	}
	s.Trades = append(s.Trades, rec)
	s.TInventory -= shares
	s.LastTradeTime = &now

	s.pendingSellShares += shares
	s.pendingSellProceeds += float64(shares) * price
	s.matchRoundTrip()

	return rec
}

// matchRoundTrip pairs pending buys against pending sells. Matched shares
// realize PnL at the difference of the average fill prices; the cost and
// proceeds accumulators shrink proportionally so later matches still use the
// correct averages.
func (s *TradingState) matchRoundTrip() {
	matched := min(s.pendingBuyShares, s.pendingSellShares)
	if matched <= 0 {
		return
	}

	avgBuy := s.pendingBuyCost / float64(s.pendingBuyShares)
	avgSell := s.pendingSellProceeds / float64(s.pendingSellShares)
	s.DailyPnL += float64(matched) * (avgSell - avgBuy)

	s.pendingBuyShares -= matched
	s.pendingSellShares -= matched

	if s.pendingBuyShares == 0 {
		s.pendingBuyCost = 0
	} else {
		s.pendingBuyCost *= 1 - float64(matched)/float64(matched+s.pendingBuyShares)
	}
	if s.pendingSellShares == 0 {
		s.pendingSellProceeds = 0
	} else {
		s.pendingSellProceeds *= 1 - float64(matched)/float64(matched+s.pendingSellShares)
	}

	s.RoundTripsDone++
}

// AvailableBuyShares is how many shares the next buy may take: cover a short
// tactical position first, otherwise step up to the inventory cap.
func (s *TradingState) AvailableBuyShares() int {
	if s.TInventory < 0 {
		return min(s.TStepShares, -s.TInventory)
	}
	return min(s.TStepShares, s.TMaxShares-s.TInventory)
}

// AvailableSellShares mirrors AvailableBuyShares on the sell side.
func (s *TradingState) AvailableSellShares() int {
	if s.TInventory > 0 {
		return min(s.TStepShares, s.TInventory)
	}
	return min(s.TStepShares, s.TMaxShares+s.TInventory)
}

// CanBuy reports whether a buy of at least one share is permitted.
func (s *TradingState) CanBuy() bool { return s.AvailableBuyShares() > 0 }

// CanSell reports whether a sell of at least one share is permitted.
func (s *TradingState) CanSell() bool { return s.AvailableSellShares() > 0 }

// Snapshot returns the read-only position view at the given price.
func (s *TradingState) Snapshot(currentPrice float64) models.PositionSnapshot {
	return models.PositionSnapshot{
		Symbol:       s.Symbol,
		CoreShares:   s.CoreShares,
		TInventory:   s.TInventory,
		CurrentPrice: currentPrice,
	}
}
