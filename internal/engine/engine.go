package engine

import (
	"sync"
	"time"

	"T0Pilot/internal/domain/models"
	drepo "T0Pilot/internal/domain/repository"
	"T0Pilot/internal/regime"
	"T0Pilot/pkg/logger"
	"T0Pilot/pkg/util"
)

// Config is the engine's position-sizing and execution configuration.
type Config struct {
	CoreShares      int
	TMaxShares      int
	TStepShares     int
	PriceImprovePct float64
	SimulationMode  bool
}

// DefaultConfig mirrors the production parameter defaults.
func DefaultConfig() Config {
	return Config{
		CoreShares:      100,
		TMaxShares:      50,
		TStepShares:     25,
		PriceImprovePct: 0.001,
		SimulationMode:  true,
	}
}

// Engine routes each market update through classification, the risk gate,
// signal generation, and optional execution, and owns all per-symbol state.
// A single mutex serializes updates against dashboard reads; per-symbol
// update ordering is the poller's responsibility.
type Engine struct {
	mu         sync.Mutex
	cfg        Config
	classifier *regime.Classifier
	gate       *RiskGate
	generator  *SignalGenerator
	executor   drepo.OrderExecutor
	metrics    drepo.Metrics
	log        *logger.Logger

	sinks []drepo.EventSink

	states      map[string]*TradingState
	regimes     map[string]models.Regime
	lastSignals map[string]models.TradingSignal
	currentDate string
}

// New creates an engine. All collaborators are injected; there is no global
// state.
func New(
	cfg Config,
	classifier *regime.Classifier,
	gate *RiskGate,
	generator *SignalGenerator,
	executor drepo.OrderExecutor,
	metrics drepo.Metrics,
	log *logger.Logger,
) *Engine {
	return &Engine{
		cfg:         cfg,
		classifier:  classifier,
		gate:        gate,
		generator:   generator,
		executor:    executor,
		metrics:     metrics,
		log:         log,
		states:      make(map[string]*TradingState),
		regimes:     make(map[string]models.Regime),
		lastSignals: make(map[string]models.TradingSignal),
	}
}

// AddSink registers an observer for signal/trade/regime-change events.
func (e *Engine) AddSink(sink drepo.EventSink) {
	e.sinks = append(e.sinks, sink)
}

// AddSymbol registers a symbol, returning the existing state when already
// tracked.
func (e *Engine) AddSymbol(symbol string) *TradingState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.addSymbolLocked(symbol)
}

func (e *Engine) addSymbolLocked(symbol string) *TradingState {
	if s, ok := e.states[symbol]; ok {
		return s
	}
	s := NewTradingState(symbol, e.cfg.CoreShares, e.cfg.TMaxShares, e.cfg.TStepShares)
	e.states[symbol] = s
	e.regimes[symbol] = models.RegimeUnknown
	e.log.Info("symbol added to engine", logger.String("symbol", symbol))
	return s
}

// RemoveSymbol drops a symbol and all its state.
func (e *Engine) RemoveSymbol(symbol string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.states, symbol)
	delete(e.regimes, symbol)
	delete(e.lastSignals, symbol)
	e.log.Info("symbol removed from engine", logger.String("symbol", symbol))
}

// SetRegime stores a regime for a tracked symbol and publishes a change
// event only when the value actually differs.
func (e *Engine) SetRegime(symbol string, r models.Regime) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.setRegimeLocked(symbol, r)
}

func (e *Engine) setRegimeLocked(symbol string, r models.Regime) {
	old, ok := e.regimes[symbol]
	if !ok {
		return
	}
	e.regimes[symbol] = r
	if old != r {
		e.log.Info("regime changed",
			logger.String("symbol", symbol),
			logger.String("from", old.String()),
			logger.String("to", r.String()))
		e.publish(models.EngineEvent{
			Kind:      models.EventRegimeChange,
			Symbol:    symbol,
			At:        time.Now(),
			OldRegime: old,
			NewRegime: r,
		})
	}
}

// OnMarketUpdate is the main entry point, called once per symbol per
// update. It always returns a signal; gate failures surface as holds.
func (e *Engine) OnMarketUpdate(
	symbol string,
	market models.MarketSnapshot,
	now time.Time,
	md *models.MarketData,
	features *models.RegimeFeatures,
) models.TradingSignal {
	start := time.Now()
	e.mu.Lock()
	defer e.mu.Unlock()
	e.checkDateChange(now)

	state, ok := e.states[symbol]
	if !ok {
		state = e.addSymbolLocked(symbol)
	}
	reg := e.regimes[symbol]

	if features != nil && reg == models.RegimeUnknown {
		result := e.classifier.Classify(*features)
		e.setRegimeLocked(symbol, result.Regime)
		reg = result.Regime
	}

	risk := e.gate.CheckAll(state, now, reg, md)
	if !risk.Passed {
		e.metrics.RecordGateRejection(risk.Check)
		signal := models.TradingSignal{
			Type:   models.SignalHold,
			Reason: "risk gate: " + risk.Reason,
		}
		e.lastSignals[symbol] = signal
		return signal
	}

	signal := e.generator.Generate(state, market, reg)
	e.lastSignals[symbol] = signal
	e.metrics.RecordSignal(signal.Type.String(), reg.String())
	e.publish(models.EngineEvent{
		Kind:   models.EventSignal,
		Symbol: symbol,
		At:     now,
		Signal: &signal,
	})

	if signal.Actionable() {
		e.execute(symbol, signal, market.Price, now)
	}

	e.metrics.RecordLatency("market_update", time.Since(start).Seconds())
	return signal
}

// execute places the order and, in simulation mode only, records the fill
// into the ledger. When placement fails nothing is recorded: no optimistic
// accounting.
func (e *Engine) execute(symbol string, signal models.TradingSignal, price float64, now time.Time) {
	state := e.states[symbol]

	var (
		orderID string
		err     error
	)
	switch signal.Type {
	case models.SignalBuy:
		orderID, err = e.executor.PlaceLimitBuy(symbol, signal.Shares, price, e.cfg.PriceImprovePct)
	case models.SignalSell:
		orderID, err = e.executor.PlaceLimitSell(symbol, signal.Shares, price, e.cfg.PriceImprovePct)
	case models.SignalHold:
		return
	}
	if err != nil {
		e.metrics.RecordError("order_placement")
		e.log.Error("order placement failed",
			logger.String("symbol", symbol),
			logger.String("side", signal.Type.String()),
			logger.Error(err))
		return
	}

	e.log.Info("order placed",
		logger.String("symbol", symbol),
		logger.String("side", signal.Type.String()),
		logger.String("order_id", orderID),
		logger.Int("shares", signal.Shares),
		logger.Float64("price", price))

	// Placement and fill are conflated only under simulation; a live
	// executor requires a fill confirmation before the ledger is touched.
	if !e.cfg.SimulationMode {
		return
	}

	var trade models.TradeRecord
	if signal.Type == models.SignalBuy {
		trade = state.RecordBuy(signal.Shares, price, signal.Reason, now)
	} else {
		trade = state.RecordSell(signal.Shares, price, signal.Reason, now)
	}

	e.metrics.RecordTrade(symbol, trade.Direction.String())
	e.metrics.RecordDailyPnL(symbol, state.DailyPnL)
	e.metrics.RecordRoundTrips(symbol, state.RoundTripsDone)
	e.publish(models.EngineEvent{
		Kind:   models.EventTrade,
		Symbol: symbol,
		At:     now,
		Trade:  &trade,
	})
}

// checkDateChange resets every tracked symbol on date rollover: ledgers to
// zero state, regimes to unknown, and the generator's breakout counters.
func (e *Engine) checkDateChange(now time.Time) {
	date := util.SessionDate(now)
	if e.currentDate == "" {
		e.currentDate = date
		return
	}
	if date == e.currentDate {
		return
	}

	e.log.Info("date rollover, resetting daily state",
		logger.String("from", e.currentDate),
		logger.String("to", date))
	for symbol, state := range e.states {
		state.ResetDaily()
		e.regimes[symbol] = models.RegimeUnknown
	}
	e.generator.ResetDaily()
	e.currentDate = date
}

func (e *Engine) publish(ev models.EngineEvent) {
	for _, sink := range e.sinks {
		sink.Publish(ev)
	}
}

// State returns the ledger for a symbol, nil when untracked.
func (e *Engine) State(symbol string) *TradingState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.states[symbol]
}

// StateSnapshot builds a position snapshot for a symbol at the given price.
func (e *Engine) StateSnapshot(symbol string, price float64) (models.PositionSnapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.states[symbol]
	if !ok {
		return models.PositionSnapshot{}, false
	}
	return s.Snapshot(price), true
}

// Regime returns the current regime for a symbol, unknown when untracked.
func (e *Engine) Regime(symbol string) models.Regime {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.regimes[symbol]
}

// LastSignal returns the most recent signal for a symbol.
func (e *Engine) LastSignal(symbol string) (models.TradingSignal, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.lastSignals[symbol]
	return s, ok
}

// Symbols lists the tracked symbols.
func (e *Engine) Symbols() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.symbolsLocked()
}

func (e *Engine) symbolsLocked() []string {
	out := make([]string, 0, len(e.states))
	for s := range e.states {
		out = append(out, s)
	}
	return out
}

// Summary is the dashboard view of everything the engine tracks.
type Summary struct {
	Symbols []string                 `json:"symbols"`
	States  []SymbolSummary          `json:"states"`
	Regimes map[string]models.Regime `json:"regimes"`
}

// SymbolSummary is one symbol's dashboard row.
type SymbolSummary struct {
	Symbol         string                `json:"symbol"`
	CoreShares     int                   `json:"core_shares"`
	TInventory     int                   `json:"t_inventory"`
	RoundTripsDone int                   `json:"round_trips_done"`
	DailyPnL       float64               `json:"daily_pnl"`
	TradeCount     int                   `json:"trade_count"`
	Regime         models.Regime         `json:"regime"`
	LastSignal     *models.TradingSignal `json:"last_signal,omitempty"`
}

// Summarize builds the dashboard view.
func (e *Engine) Summarize() Summary {
	e.mu.Lock()
	defer e.mu.Unlock()
	sum := Summary{
		Symbols: e.symbolsLocked(),
		Regimes: make(map[string]models.Regime, len(e.regimes)),
	}
	for symbol, r := range e.regimes {
		sum.Regimes[symbol] = r
	}
	for symbol, state := range e.states {
		row := SymbolSummary{
			Symbol:         symbol,
			CoreShares:     state.CoreShares,
			TInventory:     state.TInventory,
			RoundTripsDone: state.RoundTripsDone,
			DailyPnL:       state.DailyPnL,
			TradeCount:     len(state.Trades),
			Regime:         e.regimes[symbol],
		}
		if sig, ok := e.lastSignals[symbol]; ok {
			row.LastSignal = &sig
		}
		sum.States = append(sum.States, row)
	}
	return sum
}
