package usecase

import (
	"context"
	"sync"
	"time"

	"T0Pilot/internal/domain/models"
	drepo "T0Pilot/internal/domain/repository"
	"T0Pilot/internal/engine"
	"T0Pilot/internal/indicators"
	"T0Pilot/internal/marketdata"
	"T0Pilot/internal/regime"
	"T0Pilot/pkg/logger"
	"T0Pilot/pkg/util"
)

// PollerConfig tunes the update loop.
type PollerConfig struct {
	Interval         time.Duration
	BarInterval      time.Duration
	ClassifyInterval time.Duration
	VolWindow        int
	DailyBarCount    int
	MarketOpen       util.ClockTime
	MarketClose      util.ClockTime
}

// DefaultPollerConfig matches the production cadence: 5s quote polls rolled
// up into 1m bars, reclassification attempts every 5m until a regime sticks.
func DefaultPollerConfig() PollerConfig {
	return PollerConfig{
		Interval:         5 * time.Second,
		BarInterval:      time.Minute,
		ClassifyInterval: 5 * time.Minute,
		VolWindow:        20,
		DailyBarCount:    30,
		MarketOpen:       util.ClockTime{Hour: 9, Minute: 30},
		MarketClose:      util.ClockTime{Hour: 16},
	}
}

// symbolState is the per-symbol indicator pipeline the poller owns. Only the
// poll loop touches it.
type symbolState struct {
	vwap   *indicators.VWAP
	or     *indicators.OpeningRange
	agg    *marketdata.BarAggregator
	closes []float64

	dailyBars  []models.Bar
	prevClose  *float64
	lastVolume int64
	lastVWAP   float64

	lastClassify time.Time
	sessionDate  string
}

// Poller drives the engine: it polls the market-data cache on a fixed
// interval, maintains per-symbol indicators and bar aggregation, classifies
// the regime once enough of the session has printed, and hands each symbol's
// snapshot to the engine serially.
type Poller struct {
	cfg       PollerConfig
	cache     *marketdata.Cache
	eng       *engine.Engine
	extractor *regime.Extractor
	clf       *regime.Classifier
	store     drepo.TradeStore
	history   drepo.HistorySource
	metrics   drepo.Metrics
	log       *logger.Logger

	mu      sync.Mutex
	symbols map[string]*symbolState

	stopOnce sync.Once
	stopped  chan struct{}
	done     chan struct{}
}

func NewPoller(
	cfg PollerConfig,
	cache *marketdata.Cache,
	eng *engine.Engine,
	extractor *regime.Extractor,
	clf *regime.Classifier,
	store drepo.TradeStore,
	history drepo.HistorySource,
	metrics drepo.Metrics,
	log *logger.Logger,
) *Poller {
	return &Poller{
		cfg:       cfg,
		cache:     cache,
		eng:       eng,
		extractor: extractor,
		clf:       clf,
		store:     store,
		history:   history,
		metrics:   metrics,
		log:       log,
		symbols:   make(map[string]*symbolState),
		stopped:   make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Watch subscribes a symbol end to end: feed, cache, indicators, engine.
// Daily history is loaded from the trade store, falling back to the vendor
// REST API on a cold start. A missing history degrades the daily features,
// it does not block the subscription.
func (p *Poller) Watch(ctx context.Context, symbol string) error {
	if err := p.cache.Subscribe(symbol); err != nil {
		return err
	}
	p.eng.AddSymbol(symbol)

	st := &symbolState{
		vwap: indicators.NewVWAP(symbol),
		or:   indicators.NewOpeningRange(symbol, p.cfg.MarketOpen.Hour, p.cfg.MarketOpen.Minute),
		agg:  marketdata.NewBarAggregator(symbol, p.cfg.BarInterval),
	}
	daily, err := p.store.GetDailyBars(ctx, symbol, p.cfg.DailyBarCount)
	if err != nil {
		p.log.Warn("daily history unavailable",
			logger.String("symbol", symbol),
			logger.Error(err))
	}
	if len(daily) == 0 && p.history != nil {
		daily, err = p.history.DailyBars(ctx, symbol, p.cfg.DailyBarCount)
		if err != nil {
			p.log.Warn("daily history backfill failed",
				logger.String("symbol", symbol),
				logger.Error(err))
		}
	}
	if len(daily) > 0 {
		st.dailyBars = daily
		pc := daily[len(daily)-1].Close
		st.prevClose = &pc
	}

	p.mu.Lock()
	p.symbols[symbol] = st
	p.mu.Unlock()

	p.log.Info("watching symbol", logger.String("symbol", symbol))
	return nil
}

// Unwatch drops a symbol everywhere.
func (p *Poller) Unwatch(symbol string) error {
	p.mu.Lock()
	delete(p.symbols, symbol)
	p.mu.Unlock()
	p.eng.RemoveSymbol(symbol)
	return p.cache.Unsubscribe(symbol)
}

// Watched lists the symbols currently driven by the loop.
func (p *Poller) Watched() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.symbols))
	for s := range p.symbols {
		out = append(out, s)
	}
	return out
}

// Start launches the poll loop.
func (p *Poller) Start(ctx context.Context) {
	go p.run(ctx)
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.done)
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopped:
			return
		case now := <-ticker.C:
			p.step(ctx, now)
		}
	}
}

// Stop halts the loop. Safe to call more than once.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.stopped) })
	<-p.done
}

func (p *Poller) step(ctx context.Context, now time.Time) {
	p.mu.Lock()
	names := make([]string, 0, len(p.symbols))
	for s := range p.symbols {
		names = append(names, s)
	}
	p.mu.Unlock()

	for _, symbol := range names {
		p.mu.Lock()
		st, ok := p.symbols[symbol]
		p.mu.Unlock()
		if !ok {
			continue
		}
		p.stepSymbol(ctx, symbol, st, now)
	}
}

func (p *Poller) stepSymbol(ctx context.Context, symbol string, st *symbolState, now time.Time) {
	quote, ok := p.cache.GetQuote(symbol)
	if !ok || quote.Price <= 0 {
		return
	}
	p.metrics.RecordLastPrice(symbol, quote.Price)

	if date := util.SessionDate(now); st.sessionDate != date {
		st.agg.Reset()
		st.closes = st.closes[:0]
		st.lastVolume = 0
		st.lastVWAP = 0
		st.sessionDate = date
	}

	// Roll the polled quote into the bar pipeline. Volume is cumulative on
	// the wire, so each sub-bar carries the delta since the last poll.
	var dv float64
	if quote.Volume > st.lastVolume && st.lastVolume > 0 {
		dv = float64(quote.Volume - st.lastVolume)
	}
	st.lastVolume = quote.Volume

	sub := models.Bar{
		Timestamp: now,
		Open:      quote.Price,
		High:      quote.Price,
		Low:       quote.Price,
		Close:     quote.Price,
		Volume:    dv,
	}
	if done := st.agg.OnBar(sub); done != nil {
		st.vwap.UpdateFromBar(*done)
		st.or.Update(done.Timestamp, done.High, done.Low)
		st.closes = append(st.closes, done.Close)
		if len(st.closes) > p.cfg.VolWindow*4 {
			st.closes = st.closes[len(st.closes)-p.cfg.VolWindow:]
		}
		if err := p.store.SaveBar(ctx, symbol, *done); err != nil {
			p.metrics.RecordError("save_bar")
			p.log.Warn("bar persist failed",
				logger.String("symbol", symbol),
				logger.Error(err))
		}
	}

	if !p.inSession(now) {
		return
	}

	p.maybeClassify(ctx, symbol, st, now)

	vwapVal := st.vwap.Value()
	if vwapVal <= 0 {
		vwapVal = quote.VWAP
	}
	snap := models.MarketSnapshot{
		Price:       quote.Price,
		VWAP:        vwapVal,
		High:        quote.High,
		Low:         quote.Low,
		Open:        quote.Open,
		Volume:      quote.Volume,
		IntradayVol: indicators.RollingStddev(st.closes, p.cfg.VolWindow),
		VWAPSlope:   vwapVal - st.lastVWAP,
	}
	st.lastVWAP = vwapVal
	if st.or.OR15Complete() {
		snap.ORHigh = *st.or.OR15High()
		snap.ORLow = *st.or.OR15Low()
		snap.ORComplete = true
	}

	// Book sizes only exist on feeds that stream quote depth. An unknown
	// book skips the liquidity checks instead of failing them forever.
	var md *models.MarketData
	if quote.BidSize > 0 && quote.AskSize > 0 {
		view := models.LiquidityView(quote)
		md = &view
	}
	p.eng.OnMarketUpdate(symbol, snap, now, md, nil)
}

// maybeClassify retries realtime classification on the configured cadence
// until the regime resolves to something other than unknown.
func (p *Poller) maybeClassify(ctx context.Context, symbol string, st *symbolState, now time.Time) {
	if p.eng.Regime(symbol) != models.RegimeUnknown {
		return
	}
	if now.Sub(st.lastClassify) < p.cfg.ClassifyInterval {
		return
	}
	st.lastClassify = now

	bars := st.agg.Bars(true)
	if len(bars) < 5 {
		return
	}

	features := p.extractor.Extract(symbol, util.SessionDate(now), bars, st.dailyBars, st.prevClose)
	progress := util.SessionProgress(now, p.cfg.MarketOpen, p.cfg.MarketClose)
	result := p.clf.ClassifyRealtime(features, progress)

	if err := p.store.SaveClassification(ctx, result); err != nil {
		p.metrics.RecordError("save_classification")
	}
	if result.Regime == models.RegimeUnknown {
		return
	}
	p.log.Info("regime classified",
		logger.String("symbol", symbol),
		logger.String("regime", result.Regime.String()),
		logger.Float64("confidence", result.Confidence))
	p.eng.SetRegime(symbol, result.Regime)
}

func (p *Poller) inSession(now time.Time) bool {
	m := util.MinutesOfDay(now)
	return m >= p.cfg.MarketOpen.Minutes() && m < p.cfg.MarketClose.Minutes()
}
