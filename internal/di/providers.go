package di

import (
	"fmt"

	"T0Pilot/internal/domain/repository"
	"T0Pilot/internal/engine"
	"T0Pilot/internal/execution"
	"T0Pilot/internal/handler/api"
	mid "T0Pilot/internal/middleware"
	"T0Pilot/internal/marketdata"
	"T0Pilot/internal/notify"
	"T0Pilot/internal/regime"
	internalrepo "T0Pilot/internal/repository"
	"T0Pilot/internal/usecase"
	"T0Pilot/pkg/cache"
	pkgch "T0Pilot/pkg/clickhouse"
	"T0Pilot/pkg/config"
	xhttp "T0Pilot/pkg/http"
	pkgkafka "T0Pilot/pkg/kafka"
	"T0Pilot/pkg/logger"
	"T0Pilot/pkg/metrics"
	"T0Pilot/pkg/server"
	"T0Pilot/pkg/util"
)

// ProvideLogger creates the application logger with the recent-events buffer
// the dashboard reads.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	l, err := logger.New(&logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	l.EnableRecent(cfg.Logging.RecentCapacity)
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideTradeStore creates the ClickHouse-backed store, or a null store
// when persistence is disabled.
func ProvideTradeStore(cfg *config.Config, l *logger.Logger) (repository.TradeStore, error) {
	if !cfg.ClickHouse.Enabled {
		return internalrepo.NewNullStore(), nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return internalrepo.NewClickHouseStore(client, l), nil
}

// ProvideMarketFeed creates the vendor WebSocket feed.
func ProvideMarketFeed(cfg *config.Config) repository.MarketFeed {
	return marketdata.NewWSFeed(cfg.Feed.WebSocketURL, cfg.Feed.Token)
}

// ProvideHistorySource creates the REST candle fetcher used to backfill
// daily bars.
func ProvideHistorySource(cfg *config.Config) repository.HistorySource {
	return marketdata.NewHistoryClient(cfg.Feed.RESTURL, cfg.Feed.Token)
}

// ProvideMarketCache creates the quote cache with its validation pipeline.
func ProvideMarketCache(feed repository.MarketFeed, m repository.Metrics, l *logger.Logger) *marketdata.Cache {
	pipe := mid.NewTickPipeline(m, mid.WithMaxRPS(20))
	return marketdata.NewCache(feed, pipe, l)
}

// ProvideExecutor creates the order executor. Only simulated execution is
// supported today; a live brokerage executor plugs in here.
func ProvideExecutor(l *logger.Logger) repository.OrderExecutor {
	return execution.NewSimulatedExecutor(l)
}

// ProvideClassifier creates the regime rule classifier.
func ProvideClassifier() *regime.Classifier {
	return regime.NewClassifier(regime.DefaultClassifierConfig())
}

// ProvideExtractor creates the feature extractor anchored at market open.
func ProvideExtractor(cfg *config.Config) (*regime.Extractor, error) {
	open, err := util.ParseClock(cfg.Market.Open)
	if err != nil {
		return nil, fmt.Errorf("market.open: %w", err)
	}
	return regime.NewExtractor(open.Hour, open.Minute), nil
}

// ProvideRiskGate builds the veto cascade from config.
func ProvideRiskGate(cfg *config.Config) (*engine.RiskGate, error) {
	open, err := util.ParseClock(cfg.Market.Open)
	if err != nil {
		return nil, fmt.Errorf("market.open: %w", err)
	}
	mclose, err := util.ParseClock(cfg.Market.Close)
	if err != nil {
		return nil, fmt.Errorf("market.close: %w", err)
	}
	closeOnly, err := util.ParseClock(cfg.Risk.CloseOnlyAfter)
	if err != nil {
		return nil, fmt.Errorf("risk.close_only_after: %w", err)
	}
	return engine.NewRiskGate(engine.RiskGateConfig{
		MaxRoundTripsPerDay:    cfg.Risk.MaxRoundTrips,
		DailyLossLimit:         cfg.Risk.MaxDailyLoss,
		CooldownMinutes:        int(cfg.Risk.Cooldown.Minutes()),
		OpenBufferMinutes:      int(cfg.Risk.OpenBuffer.Minutes()),
		EventOpenBufferMinutes: int(cfg.Risk.EventOpenBuffer.Minutes()),
		MaxSpreadPct:           cfg.Risk.MaxSpreadPct,
		MinDepth:               cfg.Risk.MinDepth,
		MarketOpen:             open,
		MarketClose:            mclose,
		CloseOnlyStart:         closeOnly,
	}), nil
}

// ProvideSignalGenerator creates the generator with production thresholds.
func ProvideSignalGenerator() *engine.SignalGenerator {
	return engine.NewSignalGenerator(engine.DefaultSignalGeneratorConfig())
}

// ProvideEngine assembles the trading engine and attaches event sinks.
func ProvideEngine(
	cfg *config.Config,
	clf *regime.Classifier,
	gate *engine.RiskGate,
	gen *engine.SignalGenerator,
	exec repository.OrderExecutor,
	m repository.Metrics,
	l *logger.Logger,
	sinks []repository.EventSink,
) *engine.Engine {
	e := engine.New(engine.Config{
		CoreShares:      cfg.Engine.CoreShares,
		TMaxShares:      cfg.Engine.TMaxShares,
		TStepShares:     cfg.Engine.TStepShares,
		PriceImprovePct: cfg.Engine.PriceImprovePct,
		SimulationMode:  cfg.Engine.SimulationMode,
	}, clf, gate, gen, exec, m, l)
	for _, sink := range sinks {
		e.AddSink(sink)
	}
	return e
}

// ProvideEventSinks builds the configured observers: persistence always,
// Kafka and Telegram when enabled.
func ProvideEventSinks(
	cfg *config.Config,
	store repository.TradeStore,
	m repository.Metrics,
	l *logger.Logger,
) ([]repository.EventSink, error) {
	sinks := []repository.EventSink{usecase.NewStoreSink(store, m, l)}

	if cfg.Kafka.Enabled {
		producer, err := pkgkafka.NewProducer(
			pkgkafka.WithBrokers(cfg.Kafka.Brokers),
			pkgkafka.WithCompression(cfg.Kafka.Compression),
			pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
			pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
			pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
			pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.BatchTimeout),
			pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
			pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
			pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
			pkgkafka.WithHashByKey(true),
		)
		if err != nil {
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
		sinks = append(sinks, usecase.NewKafkaEventSink(producer, cfg.Kafka.Topic, m, l))
	}

	if cfg.Telegram.Enabled {
		notifier, err := notify.NewTelegramNotifier(cfg.Telegram.Token, cfg.Telegram.ChatID, l)
		if err != nil {
			return nil, fmt.Errorf("telegram notifier: %w", err)
		}
		sinks = append(sinks, notifier)
	}

	return sinks, nil
}

// ProvidePoller builds the update loop.
func ProvidePoller(
	cfg *config.Config,
	mc *marketdata.Cache,
	eng *engine.Engine,
	extractor *regime.Extractor,
	clf *regime.Classifier,
	store repository.TradeStore,
	history repository.HistorySource,
	m repository.Metrics,
	l *logger.Logger,
) (*usecase.Poller, error) {
	open, err := util.ParseClock(cfg.Market.Open)
	if err != nil {
		return nil, fmt.Errorf("market.open: %w", err)
	}
	mclose, err := util.ParseClock(cfg.Market.Close)
	if err != nil {
		return nil, fmt.Errorf("market.close: %w", err)
	}
	pcfg := usecase.DefaultPollerConfig()
	pcfg.Interval = cfg.Market.PollInterval
	pcfg.BarInterval = cfg.Market.BarInterval
	pcfg.ClassifyInterval = cfg.Risk.ClassifyInterval
	pcfg.DailyBarCount = cfg.Market.DailyBarCount
	pcfg.MarketOpen = open
	pcfg.MarketClose = mclose
	return usecase.NewPoller(pcfg, mc, eng, extractor, clf, store, history, m, l), nil
}

// ProvideCacheService creates the API response cache: Redis when enabled,
// in-process otherwise.
func ProvideCacheService(cfg *config.Config) (cache.Service, error) {
	if !cfg.Redis.Enabled {
		return cache.NewMemoryCache(), nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Redis.Host),
		cache.WithRedisPort(cfg.Redis.Port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, nil
}

// ProvideHandler creates the dashboard API handler.
func ProvideHandler(
	l *logger.Logger,
	eng *engine.Engine,
	poller *usecase.Poller,
	mc *marketdata.Cache,
	cs cache.Service,
) xhttp.Handler {
	return api.NewEngineHandler(l, eng, poller, mc, cs)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *logger.Logger,
	mc *marketdata.Cache,
	poller *usecase.Poller,
	store repository.TradeStore,
	sinks []repository.EventSink,
	handler xhttp.Handler,
) *server.App {
	return server.New(cfg, l, mc, poller, store, sinks, handler)
}
