package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"T0Pilot/internal/domain/models"
)

// 11:00, well past the open buffer and before the close-only window.
func midSession() time.Time {
	return time.Date(2025, 6, 2, 11, 0, 0, 0, time.UTC)
}

func TestGatePassesCleanState(t *testing.T) {
	g := NewRiskGate(DefaultRiskGateConfig())
	s := NewTradingState("AAPL", 100, 50, 25)

	res := g.CheckAll(s, midSession(), models.RegimeRange, nil)
	assert.True(t, res.Passed)
}

func TestGateDailyLossBeforeEverything(t *testing.T) {
	g := NewRiskGate(DefaultRiskGateConfig())
	s := NewTradingState("AAPL", 100, 50, 25)
	s.DailyPnL = -100
	// Also inside cooldown; daily loss must win the ordering.
	recent := midSession().Add(-5 * time.Minute)
	s.LastTradeTime = &recent

	res := g.CheckAll(s, midSession(), models.RegimeRange, nil)
	assert.False(t, res.Passed)
	assert.Equal(t, "daily_loss", res.Check)
}

func TestGateOpenBuffer(t *testing.T) {
	g := NewRiskGate(DefaultRiskGateConfig())
	s := NewTradingState("AAPL", 100, 50, 25)

	at := time.Date(2025, 6, 2, 9, 45, 0, 0, time.UTC)
	res := g.CheckAll(s, at, models.RegimeRange, nil)
	assert.False(t, res.Passed)
	assert.Equal(t, "open_buffer", res.Check)

	// 10:00 clears the regular 30-minute buffer.
	at = time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	assert.True(t, g.CheckAll(s, at, models.RegimeRange, nil).Passed)

	// Event regime stretches the buffer to 60 minutes.
	res = g.CheckAll(s, at, models.RegimeEvent, nil)
	assert.False(t, res.Passed)
	assert.Equal(t, "open_buffer", res.Check)
	assert.True(t, g.CheckAll(s, at.Add(30*time.Minute), models.RegimeEvent, nil).Passed)
}

func TestGateCooldown(t *testing.T) {
	g := NewRiskGate(DefaultRiskGateConfig())
	s := NewTradingState("AAPL", 100, 50, 25)
	last := midSession().Add(-10 * time.Minute)
	s.LastTradeTime = &last

	res := g.CheckAll(s, midSession(), models.RegimeRange, nil)
	assert.False(t, res.Passed)
	assert.Equal(t, "cooldown", res.Check)

	assert.True(t, g.CheckAll(s, midSession().Add(6*time.Minute), models.RegimeRange, nil).Passed)
}

func TestGateRoundTripCap(t *testing.T) {
	g := NewRiskGate(DefaultRiskGateConfig())
	s := NewTradingState("AAPL", 100, 50, 25)
	s.RoundTripsDone = 2

	res := g.CheckAll(s, midSession(), models.RegimeRange, nil)
	assert.False(t, res.Passed)
	assert.Equal(t, "round_trips", res.Check)
}

func TestGateCloseOnlyWindow(t *testing.T) {
	g := NewRiskGate(DefaultRiskGateConfig())
	s := NewTradingState("AAPL", 100, 50, 25)

	at := time.Date(2025, 6, 2, 15, 45, 0, 0, time.UTC)
	res := g.CheckAll(s, at, models.RegimeRange, nil)
	assert.False(t, res.Passed)
	assert.Equal(t, "close_only", res.Check)
}

func TestGateSpreadAndDepthNeedQuoteData(t *testing.T) {
	g := NewRiskGate(DefaultRiskGateConfig())
	s := NewTradingState("AAPL", 100, 50, 25)

	// Without market data the liquidity checks are skipped entirely.
	assert.True(t, g.CheckAll(s, midSession(), models.RegimeRange, nil).Passed)

	wide := &models.MarketData{SpreadPct: 0.01, BidSize: 500, AskSize: 500}
	res := g.CheckAll(s, midSession(), models.RegimeRange, wide)
	assert.False(t, res.Passed)
	assert.Equal(t, "spread", res.Check)

	thin := &models.MarketData{SpreadPct: 0.001, BidSize: 500, AskSize: 50}
	res = g.CheckAll(s, midSession(), models.RegimeRange, thin)
	assert.False(t, res.Passed)
	assert.Equal(t, "depth", res.Check)

	good := &models.MarketData{SpreadPct: 0.001, BidSize: 500, AskSize: 500}
	assert.True(t, g.CheckAll(s, midSession(), models.RegimeRange, good).Passed)
}

func TestIsTradingHours(t *testing.T) {
	g := NewRiskGate(DefaultRiskGateConfig())

	assert.True(t, g.IsTradingHours(time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)))
	assert.True(t, g.IsTradingHours(time.Date(2025, 6, 2, 16, 0, 0, 0, time.UTC)))
	assert.False(t, g.IsTradingHours(time.Date(2025, 6, 2, 9, 29, 0, 0, time.UTC)))
	assert.False(t, g.IsTradingHours(time.Date(2025, 6, 2, 16, 1, 0, 0, time.UTC)))
}
