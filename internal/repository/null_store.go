package repository

import (
	"context"
	"time"

	"T0Pilot/internal/domain/models"
)

// NullStore is the TradeStore used when persistence is disabled. Writes are
// discarded and history queries come back empty, which degrades feature
// extraction gracefully.
type NullStore struct{}

func NewNullStore() *NullStore { return &NullStore{} }

func (NullStore) Init(context.Context) error                                 { return nil }
func (NullStore) SaveTrade(context.Context, *models.TradeRecord) error       { return nil }
func (NullStore) SaveClassification(context.Context, models.ClassificationResult) error {
	return nil
}
func (NullStore) SaveBar(context.Context, string, models.Bar) error { return nil }
func (NullStore) Close() error                                      { return nil }

func (NullStore) SaveSignal(context.Context, string, models.TradingSignal, time.Time) error {
	return nil
}

func (NullStore) GetIntradayBars(context.Context, string, time.Time) ([]models.Bar, error) {
	return nil, nil
}

func (NullStore) GetDailyBars(context.Context, string, int) ([]models.Bar, error) {
	return nil, nil
}
