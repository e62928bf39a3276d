package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"T0Pilot/internal/domain/models"
	pkgch "T0Pilot/pkg/clickhouse"
	"T0Pilot/pkg/logger"
)

// Table DDL, executed once at startup. MergeTree ordered by (symbol, ts) so
// per-symbol session scans stay cheap.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS t0_trades (
		ts        DateTime64(3),
		symbol    LowCardinality(String),
		direction LowCardinality(String),
		shares    Int32,
		price     Float64,
		reason    String
	) ENGINE = MergeTree ORDER BY (symbol, ts)`,
	`CREATE TABLE IF NOT EXISTS t0_signals (
		ts           DateTime64(3),
		symbol       LowCardinality(String),
		signal_type  LowCardinality(String),
		shares       Int32,
		confidence   Float64,
		reason       String,
		price_target Nullable(Float64),
		stop_loss    Nullable(Float64)
	) ENGINE = MergeTree ORDER BY (symbol, ts)`,
	`CREATE TABLE IF NOT EXISTS t0_classifications (
		ts         DateTime64(3),
		symbol     LowCardinality(String),
		date       Date,
		regime     LowCardinality(String),
		confidence Float64,
		features   String
	) ENGINE = MergeTree ORDER BY (symbol, date, ts)`,
	`CREATE TABLE IF NOT EXISTS t0_bars (
		ts     DateTime64(3),
		symbol LowCardinality(String),
		open   Float64,
		high   Float64,
		low    Float64,
		close  Float64,
		volume Float64,
		vwap   Float64,
		cnt    Int32
	) ENGINE = ReplacingMergeTree ORDER BY (symbol, ts)`,
	`CREATE TABLE IF NOT EXISTS t0_daily_bars (
		day    Date,
		symbol LowCardinality(String),
		open   Float64,
		high   Float64,
		low    Float64,
		close  Float64,
		volume Float64
	) ENGINE = ReplacingMergeTree ORDER BY (symbol, day)`,
}

// ClickHouseStore persists the engine's output stream and serves the bar
// history that seeds feature extraction.
type ClickHouseStore struct {
	client *pkgch.Client
	db     *sql.DB
	log    *logger.Logger
}

func NewClickHouseStore(client *pkgch.Client, log *logger.Logger) *ClickHouseStore {
	return &ClickHouseStore{client: client, db: client.DB(), log: log}
}

// Init creates the tables, idempotent.
func (s *ClickHouseStore) Init(ctx context.Context) error {
	return s.client.InitSchema(ctx, schemaStatements)
}

func (s *ClickHouseStore) SaveTrade(ctx context.Context, t *models.TradeRecord) error {
	if t == nil {
		return fmt.Errorf("trade is nil")
	}
	const q = `INSERT INTO t0_trades (ts, symbol, direction, shares, price, reason) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q,
		t.Timestamp, t.Symbol, t.Direction.String(), int32(t.Shares), t.Price, t.Reason)
	if err != nil {
		return fmt.Errorf("save trade: %w", err)
	}
	return nil
}

func (s *ClickHouseStore) SaveSignal(ctx context.Context, symbol string, sig models.TradingSignal, at time.Time) error {
	const q = `INSERT INTO t0_signals (ts, symbol, signal_type, shares, confidence, reason, price_target, stop_loss)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q,
		at, symbol, sig.Type.String(), int32(sig.Shares), sig.Confidence, sig.Reason,
		sig.PriceTarget, sig.StopLoss)
	if err != nil {
		return fmt.Errorf("save signal: %w", err)
	}
	return nil
}

func (s *ClickHouseStore) SaveClassification(ctx context.Context, res models.ClassificationResult) error {
	features, err := json.Marshal(res.Features)
	if err != nil {
		return fmt.Errorf("marshal features: %w", err)
	}
	day, err := time.Parse("2006-01-02", res.Features.Date)
	if err != nil {
		day = time.Now()
	}
	const q = `INSERT INTO t0_classifications (ts, symbol, date, regime, confidence, features)
		VALUES (?, ?, ?, ?, ?, ?)`
	_, err = s.db.ExecContext(ctx, q,
		time.Now(), res.Features.Symbol, day, res.Regime.String(), res.Confidence, string(features))
	if err != nil {
		return fmt.Errorf("save classification: %w", err)
	}
	return nil
}

func (s *ClickHouseStore) SaveBar(ctx context.Context, symbol string, bar models.Bar) error {
	const q = `INSERT INTO t0_bars (ts, symbol, open, high, low, close, volume, vwap, cnt)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q,
		bar.Timestamp, symbol, bar.Open, bar.High, bar.Low, bar.Close, bar.Volume, bar.VWAP, int32(bar.Count))
	if err != nil {
		return fmt.Errorf("save bar: %w", err)
	}
	return nil
}

// GetIntradayBars returns a session's minute bars in ascending time order.
func (s *ClickHouseStore) GetIntradayBars(ctx context.Context, symbol string, day time.Time) ([]models.Bar, error) {
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	to := from.Add(24 * time.Hour)
	const q = `SELECT ts, open, high, low, close, volume, vwap, cnt
		FROM t0_bars WHERE symbol = ? AND ts >= ? AND ts < ? ORDER BY ts ASC`
	rows, err := s.db.QueryContext(ctx, q, symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("get intraday bars: %w", err)
	}
	defer rows.Close()

	out := make([]models.Bar, 0, 512)
	for rows.Next() {
		var b models.Bar
		var cnt int32
		if err := rows.Scan(&b.Timestamp, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume, &b.VWAP, &cnt); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		b.Count = int(cnt)
		out = append(out, b)
	}
	return out, rows.Err()
}

// GetDailyBars returns the most recent n daily bars, ascending.
func (s *ClickHouseStore) GetDailyBars(ctx context.Context, symbol string, n int) ([]models.Bar, error) {
	const q = `SELECT day, open, high, low, close, volume FROM (
			SELECT day, open, high, low, close, volume
			FROM t0_daily_bars WHERE symbol = ? ORDER BY day DESC LIMIT ?
		) ORDER BY day ASC`
	rows, err := s.db.QueryContext(ctx, q, symbol, n)
	if err != nil {
		return nil, fmt.Errorf("get daily bars: %w", err)
	}
	defer rows.Close()

	out := make([]models.Bar, 0, n)
	for rows.Next() {
		var b models.Bar
		if err := rows.Scan(&b.Timestamp, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan daily bar: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *ClickHouseStore) Close() error {
	return s.client.Close()
}
