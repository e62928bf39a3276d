package repository

import (
	"context"
	"time"

	"T0Pilot/internal/domain/models"
)

// OrderExecutor places tactical orders. The engine only depends on this
// interface; a simulated implementation fills immediately, a live one would
// submit to a brokerage.
type OrderExecutor interface {
	PlaceLimitBuy(symbol string, shares int, price, improvePct float64) (string, error)
	PlaceLimitSell(symbol string, shares int, price, improvePct float64) (string, error)
}

// EventSink observes engine output. Implementations must be fast or buffer
// internally; the engine calls them synchronously on its update path.
type EventSink interface {
	Publish(ev models.EngineEvent)
}

// MarketFeed is the vendor quote stream the market-data cache worker owns.
// Only the worker goroutine touches it after Connect.
type MarketFeed interface {
	Connect(ctx context.Context) error
	Subscribe(symbol string) error
	Unsubscribe(symbol string) error
	// ReadTick blocks until the next partial quote update or an error.
	ReadTick() (*models.Tick, error)
	Close() error
}

// TradeStore persists trades, signals, classifications, and aggregated bars
// for reporting. The core never reads its own decisions back; bar queries
// seed the feature extractor.
type TradeStore interface {
	Init(ctx context.Context) error
	SaveTrade(ctx context.Context, t *models.TradeRecord) error
	SaveSignal(ctx context.Context, symbol string, sig models.TradingSignal, at time.Time) error
	SaveClassification(ctx context.Context, res models.ClassificationResult) error
	SaveBar(ctx context.Context, symbol string, bar models.Bar) error
	GetIntradayBars(ctx context.Context, symbol string, day time.Time) ([]models.Bar, error)
	GetDailyBars(ctx context.Context, symbol string, n int) ([]models.Bar, error)
	Close() error
}

// HistorySource fetches vendor candle history over REST. It backfills the
// daily-bar context on a cold start, before the trade store has anything.
type HistorySource interface {
	DailyBars(ctx context.Context, symbol string, n int) ([]models.Bar, error)
}

// Metrics records operational and trading telemetry.
type Metrics interface {
	RecordSignal(signalType, regime string)
	RecordTrade(symbol, direction string)
	RecordGateRejection(reason string)
	RecordLastPrice(symbol string, price float64)
	RecordDailyPnL(symbol string, pnl float64)
	RecordRoundTrips(symbol string, n int)
	RecordLatency(op string, seconds float64)
	RecordError(kind string)
}
