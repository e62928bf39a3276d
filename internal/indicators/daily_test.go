package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"T0Pilot/internal/domain/models"
)

func TestTrueRanges(t *testing.T) {
	bars := []models.Bar{
		{High: 102, Low: 98, Close: 100},
		{High: 101, Low: 99, Close: 100}, // plain high-low range
		{High: 108, Low: 104, Close: 107},
	}
	tr := TrueRanges(bars)
	require.Len(t, tr, 3)
	assert.InDelta(t, 4.0, tr[0], 1e-9)
	assert.InDelta(t, 2.0, tr[1], 1e-9)
	// gap day: |high - prevClose| = 8 dominates high-low = 4
	assert.InDelta(t, 8.0, tr[2], 1e-9)
}

func TestATRInsufficientHistory(t *testing.T) {
	bars := make([]models.Bar, 20)
	assert.Nil(t, ATR(bars, 20))
}

func TestATRConstantRange(t *testing.T) {
	bars := make([]models.Bar, 25)
	for i := range bars {
		bars[i] = models.Bar{High: 102, Low: 100, Close: 101}
	}
	got := ATR(bars, 20)
	require.NotNil(t, got)
	assert.InDelta(t, 2.0, *got, 1e-9)
}

func TestMA(t *testing.T) {
	bars := make([]models.Bar, 5)
	for i := range bars {
		bars[i] = models.Bar{Close: float64(10 + i)}
	}
	assert.Nil(t, MA(bars, 6))

	got := MA(bars, 5)
	require.NotNil(t, got)
	assert.InDelta(t, 12.0, *got, 1e-9)
}

func TestRollingStddev(t *testing.T) {
	assert.Zero(t, RollingStddev(nil, 20))
	assert.Zero(t, RollingStddev([]float64{5}, 20))

	// sample stddev of {2,4,4,4,5,5,7,9} = 2.138...
	vals := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	assert.InDelta(t, 2.138089935, RollingStddev(vals, 8), 1e-6)

	// window limits to trailing values
	vals = []float64{1000, 10, 10}
	assert.Zero(t, RollingStddev(vals, 2))
}
