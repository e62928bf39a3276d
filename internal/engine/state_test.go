package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"T0Pilot/internal/domain/models"
)

func TestRoundTripBuyThenSell(t *testing.T) {
	s := NewTradingState("AAPL", 100, 50, 25)
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

	s.RecordBuy(25, 100, "entry", now)
	assert.Equal(t, 25, s.TInventory)
	assert.Equal(t, 0, s.RoundTripsDone)
	assert.Zero(t, s.DailyPnL)

	s.RecordSell(25, 102, "exit", now.Add(20*time.Minute))
	assert.Equal(t, 0, s.TInventory)
	assert.Equal(t, 1, s.RoundTripsDone)
	assert.InDelta(t, 50.0, s.DailyPnL, 1e-9)
}

func TestRoundTripSellFirst(t *testing.T) {
	s := NewTradingState("AAPL", 100, 50, 25)
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

	s.RecordSell(25, 102, "short against core", now)
	assert.Equal(t, -25, s.TInventory)
	assert.Equal(t, 0, s.RoundTripsDone)

	s.RecordBuy(25, 100, "cover", now.Add(20*time.Minute))
	assert.Equal(t, 0, s.TInventory)
	assert.Equal(t, 1, s.RoundTripsDone)
	assert.InDelta(t, 50.0, s.DailyPnL, 1e-9)
}

func TestPartialMatchUsesAverageFills(t *testing.T) {
	s := NewTradingState("AAPL", 100, 50, 25)
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

	s.RecordBuy(25, 100, "entry 1", now)
	s.RecordBuy(25, 102, "entry 2", now.Add(16*time.Minute))
	s.RecordSell(25, 104, "partial exit", now.Add(40*time.Minute))

	// 25 matched at avg buy 101 vs sell 104
	assert.InDelta(t, 75.0, s.DailyPnL, 1e-9)
	assert.Equal(t, 1, s.RoundTripsDone)
	assert.Equal(t, 25, s.TInventory)

	// The remaining buy cost must still reflect the 101 average.
	s.RecordSell(25, 104, "exit", now.Add(60*time.Minute))
	assert.InDelta(t, 150.0, s.DailyPnL, 1e-9)
	assert.Equal(t, 2, s.RoundTripsDone)
	assert.Equal(t, 0, s.TInventory)
}

func TestAvailableBuySharesCoversShortFirst(t *testing.T) {
	s := NewTradingState("AAPL", 100, 50, 25)

	assert.Equal(t, 25, s.AvailableBuyShares())

	s.TInventory = -10
	assert.Equal(t, 10, s.AvailableBuyShares())

	s.TInventory = 40
	assert.Equal(t, 10, s.AvailableBuyShares()) // cap at TMax 50

	s.TInventory = 50
	assert.Equal(t, 0, s.AvailableBuyShares())
	assert.False(t, s.CanBuy())
}

func TestAvailableSellSharesMirrors(t *testing.T) {
	s := NewTradingState("AAPL", 100, 50, 25)

	assert.Equal(t, 25, s.AvailableSellShares())

	s.TInventory = 10
	assert.Equal(t, 10, s.AvailableSellShares())

	s.TInventory = -40
	assert.Equal(t, 10, s.AvailableSellShares())

	s.TInventory = -50
	assert.Equal(t, 0, s.AvailableSellShares())
	assert.False(t, s.CanSell())
}

func TestResetDaily(t *testing.T) {
	s := NewTradingState("AAPL", 100, 50, 25)
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	s.RecordBuy(25, 100, "entry", now)
	s.RecordSell(25, 99, "stop", now.Add(time.Minute))

	s.ResetDaily()
	assert.Zero(t, s.TInventory)
	assert.Zero(t, s.RoundTripsDone)
	assert.Zero(t, s.DailyPnL)
	assert.Nil(t, s.LastTradeTime)
	assert.Empty(t, s.Trades)
}

func TestSnapshot(t *testing.T) {
	s := NewTradingState("AAPL", 100, 50, 25)
	s.TInventory = 25

	snap := s.Snapshot(101.5)
	assert.Equal(t, models.PositionSnapshot{
		Symbol:       "AAPL",
		CoreShares:   100,
		TInventory:   25,
		CurrentPrice: 101.5,
	}, snap)
	assert.Equal(t, 125, snap.TotalShares())
}
