package execution

import (
	"fmt"
	"sync/atomic"

	"T0Pilot/pkg/logger"
)

// SimulatedExecutor fills limit orders locally instead of routing them to a
// broker. Order ids are monotonic per side so logs and the trade store can be
// cross-referenced.
type SimulatedExecutor struct {
	log  *logger.Logger
	buys atomic.Int64
	sels atomic.Int64
}

func NewSimulatedExecutor(log *logger.Logger) *SimulatedExecutor {
	return &SimulatedExecutor{log: log}
}

// PlaceLimitBuy submits a simulated buy at price improved downward by
// improvePct. Returns the simulated order id.
func (e *SimulatedExecutor) PlaceLimitBuy(symbol string, shares int, price, improvePct float64) (string, error) {
	if shares <= 0 {
		return "", fmt.Errorf("invalid buy size %d for %s", shares, symbol)
	}
	limit := price * (1 - improvePct)
	id := fmt.Sprintf("SIM-BUY-%d", e.buys.Add(1))
	e.log.Info("simulated buy placed",
		logger.String("order_id", id),
		logger.String("symbol", symbol),
		logger.Int("shares", shares),
		logger.Float64("limit", limit),
	)
	return id, nil
}

// PlaceLimitSell submits a simulated sell at price improved upward by
// improvePct. Returns the simulated order id.
func (e *SimulatedExecutor) PlaceLimitSell(symbol string, shares int, price, improvePct float64) (string, error) {
	if shares <= 0 {
		return "", fmt.Errorf("invalid sell size %d for %s", shares, symbol)
	}
	limit := price * (1 + improvePct)
	id := fmt.Sprintf("SIM-SELL-%d", e.sels.Add(1))
	e.log.Info("simulated sell placed",
		logger.String("order_id", id),
		logger.String("symbol", symbol),
		logger.Int("shares", shares),
		logger.Float64("limit", limit),
	)
	return id, nil
}
