package execution

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"T0Pilot/pkg/logger"
)

func newExecutor(t *testing.T) *SimulatedExecutor {
	t.Helper()
	l, err := logger.New(&logger.Config{Level: "error", Format: "console", Output: "stderr"})
	require.NoError(t, err)
	return NewSimulatedExecutor(l)
}

func TestOrderIDsAreMonotonicPerSide(t *testing.T) {
	e := newExecutor(t)

	id, err := e.PlaceLimitBuy("AAPL", 25, 100, 0.001)
	require.NoError(t, err)
	assert.Equal(t, "SIM-BUY-1", id)

	id, err = e.PlaceLimitSell("AAPL", 25, 100, 0.001)
	require.NoError(t, err)
	assert.Equal(t, "SIM-SELL-1", id)

	id, err = e.PlaceLimitBuy("TSLA", 10, 200, 0.001)
	require.NoError(t, err)
	assert.Equal(t, "SIM-BUY-2", id)
}

func TestRejectsNonPositiveSize(t *testing.T) {
	e := newExecutor(t)

	_, err := e.PlaceLimitBuy("AAPL", 0, 100, 0.001)
	assert.Error(t, err)
	_, err = e.PlaceLimitSell("AAPL", -5, 100, 0.001)
	assert.Error(t, err)

	// Failed placements must not consume ids.
	id, err := e.PlaceLimitBuy("AAPL", 1, 100, 0.001)
	require.NoError(t, err)
	assert.Equal(t, "SIM-BUY-1", id)
}
