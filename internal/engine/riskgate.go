package engine

import (
	"fmt"
	"time"

	"T0Pilot/internal/domain/models"
	"T0Pilot/pkg/util"
)

// RiskGateConfig holds the veto-cascade parameters.
type RiskGateConfig struct {
	MaxRoundTripsPerDay    int
	DailyLossLimit         float64
	CooldownMinutes        int
	OpenBufferMinutes      int
	EventOpenBufferMinutes int

	MaxSpreadPct float64
	MinDepth     int64

	MarketOpen     util.ClockTime
	MarketClose    util.ClockTime
	CloseOnlyStart util.ClockTime
}

// DefaultRiskGateConfig mirrors the production parameter defaults.
func DefaultRiskGateConfig() RiskGateConfig {
	return RiskGateConfig{
		MaxRoundTripsPerDay:    2,
		DailyLossLimit:         100.0,
		CooldownMinutes:        15,
		OpenBufferMinutes:      30,
		EventOpenBufferMinutes: 60,
		MaxSpreadPct:           0.005,
		MinDepth:               100,
		MarketOpen:             util.MustClock("09:30"),
		MarketClose:            util.MustClock("16:00"),
		CloseOnlyStart:         util.MustClock("15:45"),
	}
}

// RiskGate is the ordered veto cascade run before any signal may act.
// Every check is a pure function of its inputs; a failed check is a normal
// outcome, not an error. Loss-limit and timing vetoes run before liquidity
// vetoes: they are cheaper and more decisive.
type RiskGate struct {
	cfg RiskGateConfig
}

// NewRiskGate creates a gate with the given limits.
func NewRiskGate(cfg RiskGateConfig) *RiskGate {
	return &RiskGate{cfg: cfg}
}

// CheckAll runs the cascade and returns the first failing check, or an
// overall pass. The spread and depth checks only run when quote data is
// supplied.
func (g *RiskGate) CheckAll(state *TradingState, now time.Time, regime models.Regime, md *models.MarketData) models.RiskCheckResult {
	checks := []models.RiskCheckResult{
		g.checkDailyLoss(state),
		g.checkOpenBuffer(now, regime),
		g.checkCooldown(state, now),
		g.checkRoundTrips(state),
		g.checkCloseOnly(now),
	}
	if md != nil {
		checks = append(checks, g.checkSpread(md), g.checkDepth(md))
	}

	for _, c := range checks {
		if !c.Passed {
			return c
		}
	}
	return models.RiskCheckResult{Passed: true, Reason: "all risk checks passed"}
}

func (g *RiskGate) checkDailyLoss(state *TradingState) models.RiskCheckResult {
	if state.DailyPnL <= -g.cfg.DailyLossLimit {
		return models.RiskCheckResult{
			Passed: false,
			Check:  "daily_loss",
			Reason: "daily loss limit reached",
			Details: map[string]any{
				"daily_pnl": state.DailyPnL,
				"limit":     -g.cfg.DailyLossLimit,
			},
		}
	}
	return models.RiskCheckResult{Passed: true}
}

func (g *RiskGate) checkOpenBuffer(now time.Time, regime models.Regime) models.RiskCheckResult {
	buffer := g.cfg.OpenBufferMinutes
	if regime == models.RegimeEvent {
		buffer = g.cfg.EventOpenBufferMinutes
	}

	earliest := g.cfg.MarketOpen.Minutes() + buffer
	if util.MinutesOfDay(now) < earliest {
		return models.RiskCheckResult{
			Passed: false,
			Check:  "open_buffer",
			Reason: fmt.Sprintf("inside %d-minute open buffer", buffer),
			Details: map[string]any{
				"current_time":   now.Format("15:04:05"),
				"earliest_trade": fmt.Sprintf("%02d:%02d", earliest/60, earliest%60),
				"regime":         regime.String(),
			},
		}
	}
	return models.RiskCheckResult{Passed: true}
}

func (g *RiskGate) checkCooldown(state *TradingState, now time.Time) models.RiskCheckResult {
	if state.LastTradeTime == nil {
		return models.RiskCheckResult{Passed: true}
	}

	elapsed := now.Sub(*state.LastTradeTime).Minutes()
	if elapsed < float64(g.cfg.CooldownMinutes) {
		return models.RiskCheckResult{
			Passed: false,
			Check:  "cooldown",
			Reason: fmt.Sprintf("trade cooldown, %.1f minutes remaining", float64(g.cfg.CooldownMinutes)-elapsed),
			Details: map[string]any{
				"last_trade":       state.LastTradeTime.Format("15:04:05"),
				"elapsed_minutes":  elapsed,
				"cooldown_minutes": g.cfg.CooldownMinutes,
			},
		}
	}
	return models.RiskCheckResult{Passed: true}
}

func (g *RiskGate) checkRoundTrips(state *TradingState) models.RiskCheckResult {
	if state.RoundTripsDone >= g.cfg.MaxRoundTripsPerDay {
		return models.RiskCheckResult{
			Passed: false,
			Check:  "round_trips",
			Reason: "daily round-trip cap reached",
			Details: map[string]any{
				"round_trips_done": state.RoundTripsDone,
				"max_round_trips":  g.cfg.MaxRoundTripsPerDay,
			},
		}
	}
	return models.RiskCheckResult{Passed: true}
}

func (g *RiskGate) checkCloseOnly(now time.Time) models.RiskCheckResult {
	if util.MinutesOfDay(now) >= g.cfg.CloseOnlyStart.Minutes() {
		return models.RiskCheckResult{
			Passed: false,
			Check:  "close_only",
			Reason: "close-only window, no new tactical entries",
			Details: map[string]any{
				"current_time":     now.Format("15:04:05"),
				"close_only_start": g.cfg.CloseOnlyStart.String(),
			},
		}
	}
	return models.RiskCheckResult{Passed: true}
}

func (g *RiskGate) checkSpread(md *models.MarketData) models.RiskCheckResult {
	if md.SpreadPct > g.cfg.MaxSpreadPct {
		return models.RiskCheckResult{
			Passed: false,
			Check:  "spread",
			Reason: "spread too wide",
			Details: map[string]any{
				"spread_pct":     md.SpreadPct,
				"max_spread_pct": g.cfg.MaxSpreadPct,
			},
		}
	}
	return models.RiskCheckResult{Passed: true}
}

func (g *RiskGate) checkDepth(md *models.MarketData) models.RiskCheckResult {
	if min(md.BidSize, md.AskSize) < g.cfg.MinDepth {
		return models.RiskCheckResult{
			Passed: false,
			Check:  "depth",
			Reason: "insufficient book depth",
			Details: map[string]any{
				"bid_size":  md.BidSize,
				"ask_size":  md.AskSize,
				"min_depth": g.cfg.MinDepth,
			},
		}
	}
	return models.RiskCheckResult{Passed: true}
}

// IsTradingHours reports whether now falls inside the regular session.
func (g *RiskGate) IsTradingHours(now time.Time) bool {
	m := util.MinutesOfDay(now)
	return m >= g.cfg.MarketOpen.Minutes() && m <= g.cfg.MarketClose.Minutes()
}
