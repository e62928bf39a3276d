package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"T0Pilot/internal/domain/models"
	"T0Pilot/pkg/logger"
)

type recordingStore struct {
	failAll bool
	trades  []models.TradeRecord
	signals []models.TradingSignal
}

func (s *recordingStore) Init(ctx context.Context) error { return nil }

func (s *recordingStore) SaveTrade(ctx context.Context, t *models.TradeRecord) error {
	if s.failAll {
		return errors.New("store down")
	}
	s.trades = append(s.trades, *t)
	return nil
}

func (s *recordingStore) SaveSignal(ctx context.Context, symbol string, sig models.TradingSignal, at time.Time) error {
	if s.failAll {
		return errors.New("store down")
	}
	s.signals = append(s.signals, sig)
	return nil
}

func (s *recordingStore) SaveClassification(ctx context.Context, res models.ClassificationResult) error {
	return nil
}

func (s *recordingStore) SaveBar(ctx context.Context, symbol string, bar models.Bar) error {
	return nil
}

func (s *recordingStore) GetIntradayBars(ctx context.Context, symbol string, day time.Time) ([]models.Bar, error) {
	return nil, nil
}

func (s *recordingStore) GetDailyBars(ctx context.Context, symbol string, n int) ([]models.Bar, error) {
	return nil, nil
}

func (s *recordingStore) Close() error { return nil }

type sinkMetrics struct {
	errors []string
}

func (m *sinkMetrics) RecordSignal(signalType, regime string)   {}
func (m *sinkMetrics) RecordTrade(symbol, direction string)     {}
func (m *sinkMetrics) RecordGateRejection(reason string)        {}
func (m *sinkMetrics) RecordLastPrice(symbol string, p float64) {}
func (m *sinkMetrics) RecordDailyPnL(symbol string, p float64)  {}
func (m *sinkMetrics) RecordRoundTrips(symbol string, n int)    {}
func (m *sinkMetrics) RecordLatency(op string, s float64)       {}
func (m *sinkMetrics) RecordError(kind string)                  { m.errors = append(m.errors, kind) }

func eventsLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(&logger.Config{Level: "error", Format: "console", Output: "stderr"})
	require.NoError(t, err)
	return l
}

func TestStoreSinkPersistsTrades(t *testing.T) {
	store := &recordingStore{}
	sink := NewStoreSink(store, &sinkMetrics{}, eventsLogger(t))

	trade := models.TradeRecord{Symbol: "AAPL", Shares: 25, Price: 100}
	sink.Publish(models.EngineEvent{Kind: models.EventTrade, Symbol: "AAPL", Trade: &trade})

	require.Len(t, store.trades, 1)
	assert.Equal(t, 25, store.trades[0].Shares)
}

func TestStoreSinkSkipsHoldSignals(t *testing.T) {
	store := &recordingStore{}
	sink := NewStoreSink(store, &sinkMetrics{}, eventsLogger(t))

	hold := models.TradingSignal{Type: models.SignalHold, Reason: "nothing to do"}
	sink.Publish(models.EngineEvent{Kind: models.EventSignal, Symbol: "AAPL", Signal: &hold})
	assert.Empty(t, store.signals)

	buy := models.TradingSignal{Type: models.SignalBuy, Shares: 25, Reason: "entry"}
	sink.Publish(models.EngineEvent{Kind: models.EventSignal, Symbol: "AAPL", At: time.Now(), Signal: &buy})
	assert.Len(t, store.signals, 1)
}

func TestStoreSinkIgnoresRegimeChanges(t *testing.T) {
	store := &recordingStore{}
	sink := NewStoreSink(store, &sinkMetrics{}, eventsLogger(t))

	sink.Publish(models.EngineEvent{
		Kind:      models.EventRegimeChange,
		Symbol:    "AAPL",
		OldRegime: models.RegimeUnknown,
		NewRegime: models.RegimeRange,
	})
	assert.Empty(t, store.trades)
	assert.Empty(t, store.signals)
}

func TestStoreSinkCountsFailures(t *testing.T) {
	store := &recordingStore{failAll: true}
	metrics := &sinkMetrics{}
	sink := NewStoreSink(store, metrics, eventsLogger(t))

	trade := models.TradeRecord{Symbol: "AAPL"}
	sink.Publish(models.EngineEvent{Kind: models.EventTrade, Symbol: "AAPL", Trade: &trade})
	assert.Equal(t, []string{"event_persist"}, metrics.errors)
}
