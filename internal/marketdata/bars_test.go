package marketdata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"T0Pilot/internal/domain/models"
)

func subBar(sec int, price, volume float64) models.Bar {
	return models.Bar{
		Timestamp: time.Date(2025, 6, 2, 9, 30, sec, 0, time.UTC),
		Open:      price,
		High:      price,
		Low:       price,
		Close:     price,
		Volume:    volume,
	}
}

func TestBarAggregatorWidensCurrentWindow(t *testing.T) {
	a := NewBarAggregator("AAPL", time.Minute)

	require.Nil(t, a.OnBar(subBar(0, 100, 500)))
	require.Nil(t, a.OnBar(subBar(5, 102, 300)))
	require.Nil(t, a.OnBar(subBar(10, 99, 200)))

	cur, ok := a.CurrentBar()
	require.True(t, ok)
	assert.InDelta(t, 100.0, cur.Open, 1e-9)
	assert.InDelta(t, 102.0, cur.High, 1e-9)
	assert.InDelta(t, 99.0, cur.Low, 1e-9)
	assert.InDelta(t, 99.0, cur.Close, 1e-9)
	assert.InDelta(t, 1000.0, cur.Volume, 1e-9)
	assert.Equal(t, 3, cur.Count)
	assert.Empty(t, a.CompletedBars())
}

func TestBarAggregatorRollsWindowAndNotifies(t *testing.T) {
	a := NewBarAggregator("AAPL", time.Minute)

	var got []models.Bar
	a.AddCallback(func(symbol string, bar models.Bar) {
		assert.Equal(t, "AAPL", symbol)
		got = append(got, bar)
	})

	a.OnBar(subBar(0, 100, 500))
	a.OnBar(subBar(30, 101, 500))

	next := models.Bar{
		Timestamp: time.Date(2025, 6, 2, 9, 31, 5, 0, time.UTC),
		Open:      101, High: 101, Low: 101, Close: 101, Volume: 100,
	}
	done := a.OnBar(next)

	require.NotNil(t, done)
	assert.Equal(t, time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC), done.Timestamp)
	assert.InDelta(t, 101.0, done.Close, 1e-9)
	assert.InDelta(t, 1000.0, done.Volume, 1e-9)

	require.Len(t, got, 1)
	assert.Equal(t, *done, got[0])
	assert.Len(t, a.CompletedBars(), 1)

	cur, ok := a.CurrentBar()
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 6, 2, 9, 31, 0, 0, time.UTC), cur.Timestamp)
}

func TestBarAggregatorBarsIncludeCurrent(t *testing.T) {
	a := NewBarAggregator("AAPL", time.Minute)
	a.OnBar(subBar(0, 100, 1))

	assert.Len(t, a.Bars(false), 0)
	assert.Len(t, a.Bars(true), 1)
}

func TestBarAggregatorReset(t *testing.T) {
	a := NewBarAggregator("AAPL", time.Minute)
	a.OnBar(subBar(0, 100, 1))
	a.OnBar(models.Bar{Timestamp: time.Date(2025, 6, 2, 9, 31, 0, 0, time.UTC), Close: 101})

	a.Reset()
	assert.Empty(t, a.Bars(true))
	_, ok := a.CurrentBar()
	assert.False(t, ok)
}
