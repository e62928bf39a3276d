package engine

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"T0Pilot/internal/domain/models"
	"T0Pilot/internal/regime"
	"T0Pilot/pkg/logger"
)

type fakeExecutor struct {
	fail   bool
	orders []string
}

func (f *fakeExecutor) PlaceLimitBuy(symbol string, shares int, price, improvePct float64) (string, error) {
	if f.fail {
		return "", errors.New("broker down")
	}
	id := fmt.Sprintf("BUY-%d", len(f.orders)+1)
	f.orders = append(f.orders, id)
	return id, nil
}

func (f *fakeExecutor) PlaceLimitSell(symbol string, shares int, price, improvePct float64) (string, error) {
	if f.fail {
		return "", errors.New("broker down")
	}
	id := fmt.Sprintf("SELL-%d", len(f.orders)+1)
	f.orders = append(f.orders, id)
	return id, nil
}

type fakeMetrics struct {
	rejections []string
	trades     int
	signals    int
	errors     []string
}

func (m *fakeMetrics) RecordSignal(signalType, regime string)  { m.signals++ }
func (m *fakeMetrics) RecordTrade(symbol, direction string)    { m.trades++ }
func (m *fakeMetrics) RecordGateRejection(reason string)       { m.rejections = append(m.rejections, reason) }
func (m *fakeMetrics) RecordLastPrice(symbol string, p float64) {}
func (m *fakeMetrics) RecordDailyPnL(symbol string, p float64)  {}
func (m *fakeMetrics) RecordRoundTrips(symbol string, n int)    {}
func (m *fakeMetrics) RecordLatency(op string, s float64)       {}
func (m *fakeMetrics) RecordError(kind string)                  { m.errors = append(m.errors, kind) }

type fakeSink struct {
	events []models.EngineEvent
}

func (s *fakeSink) Publish(ev models.EngineEvent) { s.events = append(s.events, ev) }

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(&logger.Config{Level: "error", Format: "console", Output: "stderr"})
	require.NoError(t, err)
	return l
}

func newTestEngine(t *testing.T, cfg Config) (*Engine, *fakeExecutor, *fakeMetrics, *fakeSink) {
	t.Helper()
	exec := &fakeExecutor{}
	metrics := &fakeMetrics{}
	sink := &fakeSink{}
	e := New(cfg,
		regime.NewClassifier(regime.DefaultClassifierConfig()),
		NewRiskGate(DefaultRiskGateConfig()),
		NewSignalGenerator(DefaultSignalGeneratorConfig()),
		exec, metrics, testLogger(t))
	e.AddSink(sink)
	return e, exec, metrics, sink
}

func chopBuySnapshot() models.MarketSnapshot {
	return models.MarketSnapshot{
		Price:       99.5,
		VWAP:        100,
		ORHigh:      101,
		ORLow:       99,
		ORComplete:  true,
		IntradayVol: 0.5,
	}
}

func TestOnMarketUpdateSimulationRecordsFill(t *testing.T) {
	e, exec, metrics, sink := newTestEngine(t, DefaultConfig())
	e.AddSymbol("AAPL")
	e.SetRegime("AAPL", models.RegimeRange)
	now := time.Date(2025, 6, 2, 11, 0, 0, 0, time.UTC)

	sig := e.OnMarketUpdate("AAPL", chopBuySnapshot(), now, nil, nil)
	require.Equal(t, models.SignalBuy, sig.Type)
	assert.Len(t, exec.orders, 1)

	state := e.State("AAPL")
	require.NotNil(t, state)
	assert.Equal(t, 25, state.TInventory)
	assert.Len(t, state.Trades, 1)
	assert.Equal(t, 1, metrics.trades)

	kinds := make([]models.EventKind, 0, len(sink.events))
	for _, ev := range sink.events {
		kinds = append(kinds, ev.Kind)
	}
	assert.Contains(t, kinds, models.EventSignal)
	assert.Contains(t, kinds, models.EventTrade)
}

func TestOnMarketUpdateLiveModeDoesNotTouchLedger(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SimulationMode = false
	e, exec, metrics, _ := newTestEngine(t, cfg)
	e.AddSymbol("AAPL")
	e.SetRegime("AAPL", models.RegimeRange)
	now := time.Date(2025, 6, 2, 11, 0, 0, 0, time.UTC)

	sig := e.OnMarketUpdate("AAPL", chopBuySnapshot(), now, nil, nil)
	require.Equal(t, models.SignalBuy, sig.Type)
	assert.Len(t, exec.orders, 1)

	// Order placed but no fill confirmation: the ledger must stay empty.
	state := e.State("AAPL")
	assert.Zero(t, state.TInventory)
	assert.Empty(t, state.Trades)
	assert.Zero(t, metrics.trades)
}

func TestOnMarketUpdatePlacementFailureNotRecorded(t *testing.T) {
	e, exec, metrics, _ := newTestEngine(t, DefaultConfig())
	exec.fail = true
	e.AddSymbol("AAPL")
	e.SetRegime("AAPL", models.RegimeRange)
	now := time.Date(2025, 6, 2, 11, 0, 0, 0, time.UTC)

	sig := e.OnMarketUpdate("AAPL", chopBuySnapshot(), now, nil, nil)
	require.Equal(t, models.SignalBuy, sig.Type)

	state := e.State("AAPL")
	assert.Zero(t, state.TInventory)
	assert.Empty(t, state.Trades)
	assert.Contains(t, metrics.errors, "order_placement")
}

func TestOnMarketUpdateGateRejectionHolds(t *testing.T) {
	e, _, metrics, _ := newTestEngine(t, DefaultConfig())
	e.AddSymbol("AAPL")
	e.SetRegime("AAPL", models.RegimeRange)

	// Inside the 30-minute open buffer.
	at := time.Date(2025, 6, 2, 9, 45, 0, 0, time.UTC)
	sig := e.OnMarketUpdate("AAPL", chopBuySnapshot(), at, nil, nil)

	assert.Equal(t, models.SignalHold, sig.Type)
	assert.Contains(t, sig.Reason, "risk gate")
	assert.Equal(t, []string{"open_buffer"}, metrics.rejections)

	last, ok := e.LastSignal("AAPL")
	require.True(t, ok)
	assert.Equal(t, models.SignalHold, last.Type)
}

func TestOnMarketUpdateClassifiesUnknownRegime(t *testing.T) {
	e, _, _, _ := newTestEngine(t, DefaultConfig())
	e.AddSymbol("AAPL")
	now := time.Date(2025, 6, 2, 11, 0, 0, 0, time.UTC)

	features := &models.RegimeFeatures{
		Symbol:           "AAPL",
		Date:             "2025-06-02",
		PctTimeAboveVWAP: 0.85,
		PctTimeBelowVWAP: 0.15,
		VWAPCrossCount:   1,
	}
	e.OnMarketUpdate("AAPL", chopBuySnapshot(), now, nil, features)
	assert.Equal(t, models.RegimeTrendUp, e.Regime("AAPL"))
}

func TestDateRolloverResetsEverything(t *testing.T) {
	e, _, _, sink := newTestEngine(t, DefaultConfig())
	e.AddSymbol("AAPL")
	e.SetRegime("AAPL", models.RegimeRange)
	day1 := time.Date(2025, 6, 2, 11, 0, 0, 0, time.UTC)

	e.OnMarketUpdate("AAPL", chopBuySnapshot(), day1, nil, nil)
	require.Equal(t, 25, e.State("AAPL").TInventory)

	day2 := time.Date(2025, 6, 3, 11, 0, 0, 0, time.UTC)
	e.OnMarketUpdate("AAPL", models.MarketSnapshot{Price: 100, VWAP: 100}, day2, nil, nil)

	assert.Zero(t, e.State("AAPL").TInventory)
	assert.Empty(t, e.State("AAPL").Trades)
	assert.Equal(t, models.RegimeUnknown, e.Regime("AAPL"))
	_ = sink
}

func TestSetRegimePublishesChangeOnce(t *testing.T) {
	e, _, _, sink := newTestEngine(t, DefaultConfig())
	e.AddSymbol("AAPL")

	e.SetRegime("AAPL", models.RegimeRange)
	e.SetRegime("AAPL", models.RegimeRange)
	e.SetRegime("AAPL", models.RegimeTrendUp)
	e.SetRegime("TSLA", models.RegimeRange) // untracked, ignored

	changes := 0
	for _, ev := range sink.events {
		if ev.Kind == models.EventRegimeChange {
			changes++
		}
	}
	assert.Equal(t, 2, changes)
	assert.Equal(t, models.RegimeUnknown, e.Regime("TSLA"))
}

func TestSummarize(t *testing.T) {
	e, _, _, _ := newTestEngine(t, DefaultConfig())
	e.AddSymbol("AAPL")
	e.SetRegime("AAPL", models.RegimeRange)
	now := time.Date(2025, 6, 2, 11, 0, 0, 0, time.UTC)
	e.OnMarketUpdate("AAPL", chopBuySnapshot(), now, nil, nil)

	sum := e.Summarize()
	require.Len(t, sum.States, 1)
	row := sum.States[0]
	assert.Equal(t, "AAPL", row.Symbol)
	assert.Equal(t, 25, row.TInventory)
	assert.Equal(t, 1, row.TradeCount)
	assert.Equal(t, models.RegimeRange, row.Regime)
	require.NotNil(t, row.LastSignal)
	assert.Equal(t, models.SignalBuy, row.LastSignal.Type)
}
