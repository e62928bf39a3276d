package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"T0Pilot/internal/domain/models"
	drepo "T0Pilot/internal/domain/repository"
	"T0Pilot/internal/engine"
	"T0Pilot/internal/execution"
	"T0Pilot/internal/marketdata"
	"T0Pilot/internal/regime"
	"T0Pilot/pkg/util"
)

type stubFeed struct {
	ticks chan *models.Tick
}

func (f *stubFeed) Connect(ctx context.Context) error { return nil }
func (f *stubFeed) Subscribe(symbol string) error     { return nil }
func (f *stubFeed) Unsubscribe(symbol string) error   { return nil }

func (f *stubFeed) ReadTick() (*models.Tick, error) {
	t, ok := <-f.ticks
	if !ok {
		return nil, errors.New("feed closed")
	}
	return t, nil
}

func (f *stubFeed) Close() error {
	close(f.ticks)
	return nil
}

type stubHistory struct {
	bars []models.Bar
	err  error
}

func (h *stubHistory) DailyBars(ctx context.Context, symbol string, n int) ([]models.Bar, error) {
	return h.bars, h.err
}

func newTestPoller(t *testing.T, history *stubHistory) (*Poller, *marketdata.Cache) {
	t.Helper()
	log := eventsLogger(t)
	metrics := &sinkMetrics{}

	cache := marketdata.NewCache(&stubFeed{ticks: make(chan *models.Tick, 4)}, nil, log)
	require.NoError(t, cache.Start(context.Background(), time.Second))
	t.Cleanup(cache.Stop)

	eng := engine.New(engine.DefaultConfig(),
		regime.NewClassifier(regime.DefaultClassifierConfig()),
		engine.NewRiskGate(engine.DefaultRiskGateConfig()),
		engine.NewSignalGenerator(engine.DefaultSignalGeneratorConfig()),
		nil, metrics, log)

	var hist drepo.HistorySource
	if history != nil {
		hist = history
	}
	p := NewPoller(DefaultPollerConfig(), cache, eng,
		regime.NewExtractor(9, 30),
		regime.NewClassifier(regime.DefaultClassifierConfig()),
		&recordingStore{}, hist, metrics, log)
	return p, cache
}

func TestWatchAndUnwatch(t *testing.T) {
	p, cache := newTestPoller(t, nil)

	require.NoError(t, p.Watch(context.Background(), "AAPL"))
	assert.Equal(t, []string{"AAPL"}, p.Watched())

	_, ok := cache.GetQuote("AAPL")
	assert.True(t, ok)

	require.NoError(t, p.Unwatch("AAPL"))
	assert.Empty(t, p.Watched())
	_, ok = cache.GetQuote("AAPL")
	assert.False(t, ok)
}

func TestWatchBackfillsDailyHistory(t *testing.T) {
	daily := []models.Bar{
		{Close: 100, Volume: 1e6},
		{Close: 102, Volume: 1.2e6},
	}
	p, _ := newTestPoller(t, &stubHistory{bars: daily})

	require.NoError(t, p.Watch(context.Background(), "AAPL"))

	p.mu.Lock()
	st := p.symbols["AAPL"]
	p.mu.Unlock()
	require.NotNil(t, st)
	assert.Len(t, st.dailyBars, 2)
	require.NotNil(t, st.prevClose)
	assert.InDelta(t, 102.0, *st.prevClose, 1e-9)
}

func TestWatchToleratesHistoryFailure(t *testing.T) {
	p, _ := newTestPoller(t, &stubHistory{err: errors.New("rate limited")})

	require.NoError(t, p.Watch(context.Background(), "AAPL"))

	p.mu.Lock()
	st := p.symbols["AAPL"]
	p.mu.Unlock()
	require.NotNil(t, st)
	assert.Nil(t, st.prevClose)
}

func TestStepTradesWithoutBookData(t *testing.T) {
	log := eventsLogger(t)
	metrics := &sinkMetrics{}
	feed := &stubFeed{ticks: make(chan *models.Tick, 4)}

	cache := marketdata.NewCache(feed, nil, log)
	require.NoError(t, cache.Start(context.Background(), time.Second))
	t.Cleanup(cache.Stop)

	eng := engine.New(engine.DefaultConfig(),
		regime.NewClassifier(regime.DefaultClassifierConfig()),
		engine.NewRiskGate(engine.DefaultRiskGateConfig()),
		engine.NewSignalGenerator(engine.DefaultSignalGeneratorConfig()),
		execution.NewSimulatedExecutor(log), metrics, log)

	p := NewPoller(DefaultPollerConfig(), cache, eng,
		regime.NewExtractor(9, 30),
		regime.NewClassifier(regime.DefaultClassifierConfig()),
		&recordingStore{}, nil, metrics, log)

	require.NoError(t, p.Watch(context.Background(), "AAPL"))
	eng.SetRegime("AAPL", models.RegimeRange)

	// A trade-only feed: price and volume print, the book never does.
	price, volume := 99.05, int64(5000)
	feed.ticks <- &models.Tick{Symbol: "AAPL", Price: &price, Volume: &volume}
	deadline := time.Now().Add(2 * time.Second)
	for {
		if q, ok := cache.GetQuote("AAPL"); ok && q.Price > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("tick never reached the cache")
		}
		time.Sleep(5 * time.Millisecond)
	}

	now := time.Date(2025, 3, 10, 11, 0, 0, 0, time.UTC)
	p.mu.Lock()
	st := p.symbols["AAPL"]
	p.mu.Unlock()
	require.NotNil(t, st)
	st.sessionDate = util.SessionDate(now)
	st.vwap.Update(now.Add(-time.Hour), 100, 1000)
	st.or.Update(time.Date(2025, 3, 10, 9, 31, 0, 0, time.UTC), 101, 99)
	st.or.Update(time.Date(2025, 3, 10, 9, 46, 0, 0, time.UTC), 100, 99.5)
	require.True(t, st.or.OR15Complete())

	p.stepSymbol(context.Background(), "AAPL", st, now)

	// Price at the OR low with no book data must still produce the buy,
	// not a permanent depth veto.
	sig, ok := eng.LastSignal("AAPL")
	require.True(t, ok)
	assert.Equal(t, models.SignalBuy, sig.Type, sig.Reason)
	require.NotNil(t, eng.State("AAPL"))
	assert.Equal(t, 25, eng.State("AAPL").TInventory)
}
