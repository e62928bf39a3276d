package engine

import (
	"fmt"
	"math"

	"T0Pilot/internal/domain/models"
)

// SignalGeneratorConfig holds the per-regime strategy thresholds.
type SignalGeneratorConfig struct {
	// Range day: mean reversion around VWAP and the OR band.
	ChopBuyThreshold  float64
	ChopSellThreshold float64
	ORBandPct         float64
	BreakoutHoldBars  int

	// Trend day: pullback entries, extension exits.
	TrendPullbackThreshold  float64
	TrendExtensionThreshold float64
	SupportBufferPct        float64

	// Event day: wider thresholds, smaller size.
	EventBuyThreshold   float64
	EventSellThreshold  float64
	EventSizeMultiplier float64
}

// DefaultSignalGeneratorConfig mirrors the production parameter defaults.
func DefaultSignalGeneratorConfig() SignalGeneratorConfig {
	return SignalGeneratorConfig{
		ChopBuyThreshold:        -1.0,
		ChopSellThreshold:       1.0,
		ORBandPct:               0.002,
		BreakoutHoldBars:        5,
		TrendPullbackThreshold:  -0.5,
		TrendExtensionThreshold: 1.5,
		SupportBufferPct:        0.003,
		EventBuyThreshold:       -1.5,
		EventSellThreshold:      1.5,
		EventSizeMultiplier:     0.5,
	}
}

// SignalGenerator produces regime-conditioned buy/sell/hold decisions.
// It carries one piece of intraday state: consecutive-bar breakout counters
// that suppress the mean-reversion strategy when a range day may be turning
// into a trend.
type SignalGenerator struct {
	cfg SignalGeneratorConfig

	breakoutUpBars   int
	breakoutDownBars int
}

// NewSignalGenerator creates a generator with the given thresholds.
func NewSignalGenerator(cfg SignalGeneratorConfig) *SignalGenerator {
	return &SignalGenerator{cfg: cfg}
}

// Generate dispatches on regime. Unknown always holds.
func (g *SignalGenerator) Generate(state *TradingState, market models.MarketSnapshot, regime models.Regime) models.TradingSignal {
	switch regime {
	case models.RegimeRange:
		return g.generateChop(state, market)
	case models.RegimeTrendUp:
		return g.generateTrendUp(state, market)
	case models.RegimeTrendDown:
		return g.generateTrendDown(state, market)
	case models.RegimeEvent:
		return g.generateEvent(state, market)
	case models.RegimeUnknown:
	}
	return models.TradingSignal{
		Type:   models.SignalHold,
		Reason: "regime unknown, not trading",
	}
}

// ResetDaily zeroes the breakout counters. The engine calls this on every
// date rollover.
func (g *SignalGenerator) ResetDaily() {
	g.breakoutUpBars = 0
	g.breakoutDownBars = 0
}

func (g *SignalGenerator) generateChop(state *TradingState, market models.MarketSnapshot) models.TradingSignal {
	devNorm := market.DevNormalized()
	nearORHigh := market.IsNearORHigh(g.cfg.ORBandPct)
	nearORLow := market.IsNearORLow(g.cfg.ORBandPct)

	g.trackBreakout(market)
	if g.breakoutConfirmed() {
		return models.TradingSignal{
			Type:   models.SignalHold,
			Reason: "OR breakout holding, mean-reversion suspended",
		}
	}

	if (devNorm <= g.cfg.ChopBuyThreshold || nearORLow) && state.TInventory <= 0 {
		if shares := state.AvailableBuyShares(); shares > 0 {
			reason := "range-day buy at lower band:"
			if devNorm <= g.cfg.ChopBuyThreshold {
				reason += fmt.Sprintf(" VWAP deviation %.2f sigma", devNorm)
			}
			if nearORLow {
				reason += " near OR low"
			}
			target := market.VWAP
			stop := market.ORLow * 0.995
			return models.TradingSignal{
				Type:        models.SignalBuy,
				Shares:      shares,
				Reason:      reason,
				Confidence:  math.Min(0.7+math.Abs(devNorm)*0.1, 0.95),
				PriceTarget: &target,
				StopLoss:    &stop,
			}
		}
	}

	if (devNorm >= g.cfg.ChopSellThreshold || nearORHigh) && state.TInventory >= 0 {
		if shares := state.AvailableSellShares(); shares > 0 {
			reason := "range-day sell at upper band:"
			if devNorm >= g.cfg.ChopSellThreshold {
				reason += fmt.Sprintf(" VWAP deviation +%.2f sigma", devNorm)
			}
			if nearORHigh {
				reason += " near OR high"
			}
			target := market.VWAP
			stop := market.ORHigh * 1.005
			return models.TradingSignal{
				Type:        models.SignalSell,
				Shares:      shares,
				Reason:      reason,
				Confidence:  math.Min(0.7+devNorm*0.1, 0.95),
				PriceTarget: &target,
				StopLoss:    &stop,
			}
		}
	}

	return models.TradingSignal{
		Type:   models.SignalHold,
		Reason: "range day: waiting for a better entry",
	}
}

func (g *SignalGenerator) generateTrendUp(state *TradingState, market models.MarketSnapshot) models.TradingSignal {
	devNorm := market.DevNormalized()

	if devNorm <= g.cfg.TrendPullbackThreshold && state.TInventory <= 0 {
		// Only buy pullbacks that still hold above support.
		if market.Price >= market.VWAP*(1-g.cfg.SupportBufferPct) {
			if shares := state.AvailableBuyShares(); shares > 0 {
				target := market.High
				stop := market.VWAP * 0.995
				return models.TradingSignal{
					Type:        models.SignalBuy,
					Shares:      shares,
					Reason:      fmt.Sprintf("trend-day pullback buy: VWAP deviation %.2f sigma", devNorm),
					Confidence:  0.75,
					PriceTarget: &target,
					StopLoss:    &stop,
				}
			}
		}
	}

	if devNorm >= g.cfg.TrendExtensionThreshold && state.TInventory > 0 {
		if shares := state.AvailableSellShares(); shares > 0 {
			return models.TradingSignal{
				Type:       models.SignalSell,
				Shares:     shares,
				Reason:     fmt.Sprintf("trend-day extension trim: VWAP deviation +%.2f sigma", devNorm),
				Confidence: 0.7,
			}
		}
	}

	return models.TradingSignal{
		Type:   models.SignalHold,
		Reason: "trend day: waiting for pullback or extension",
	}
}

// generateTrendDown is the defensive mirror of generateTrendUp: trim on
// bounces, cover on further decline, never add net exposure.
func (g *SignalGenerator) generateTrendDown(state *TradingState, market models.MarketSnapshot) models.TradingSignal {
	devNorm := market.DevNormalized()

	if devNorm >= -g.cfg.TrendPullbackThreshold && state.TInventory > 0 {
		if shares := state.AvailableSellShares(); shares > 0 {
			return models.TradingSignal{
				Type:       models.SignalSell,
				Shares:     shares,
				Reason:     fmt.Sprintf("downtrend bounce trim: VWAP deviation %+.2f sigma", devNorm),
				Confidence: 0.7,
			}
		}
	}

	if devNorm <= -g.cfg.TrendExtensionThreshold && state.TInventory < 0 {
		if shares := state.AvailableBuyShares(); shares > 0 {
			return models.TradingSignal{
				Type:       models.SignalBuy,
				Shares:     shares,
				Reason:     fmt.Sprintf("downtrend decline cover: VWAP deviation %.2f sigma", devNorm),
				Confidence: 0.65,
			}
		}
	}

	return models.TradingSignal{
		Type:   models.SignalHold,
		Reason: "downtrend day: staying defensive",
	}
}

func (g *SignalGenerator) generateEvent(state *TradingState, market models.MarketSnapshot) models.TradingSignal {
	devNorm := market.DevNormalized()

	if devNorm <= g.cfg.EventBuyThreshold && state.TInventory <= 0 {
		shares := int(float64(state.AvailableBuyShares()) * g.cfg.EventSizeMultiplier)
		if shares > 0 {
			target := market.VWAP
			return models.TradingSignal{
				Type:        models.SignalBuy,
				Shares:      shares,
				Reason:      fmt.Sprintf("event-day buy at reduced size: VWAP deviation %.2f sigma", devNorm),
				Confidence:  0.6,
				PriceTarget: &target,
			}
		}
	}

	if devNorm >= g.cfg.EventSellThreshold && state.TInventory >= 0 {
		shares := int(float64(state.AvailableSellShares()) * g.cfg.EventSizeMultiplier)
		if shares > 0 {
			target := market.VWAP
			return models.TradingSignal{
				Type:        models.SignalSell,
				Shares:      shares,
				Reason:      fmt.Sprintf("event-day sell at reduced size: VWAP deviation +%.2f sigma", devNorm),
				Confidence:  0.6,
				PriceTarget: &target,
			}
		}
	}

	return models.TradingSignal{
		Type:   models.SignalHold,
		Reason: "event day: waiting for a larger dislocation",
	}
}

func (g *SignalGenerator) trackBreakout(market models.MarketSnapshot) {
	switch {
	case market.ORHigh > 0 && market.Price > market.ORHigh:
		g.breakoutUpBars++
		g.breakoutDownBars = 0
	case market.ORLow > 0 && market.Price < market.ORLow:
		g.breakoutDownBars++
		g.breakoutUpBars = 0
	default:
		g.breakoutUpBars = 0
		g.breakoutDownBars = 0
	}
}

func (g *SignalGenerator) breakoutConfirmed() bool {
	return g.breakoutUpBars >= g.cfg.BreakoutHoldBars || g.breakoutDownBars >= g.cfg.BreakoutHoldBars
}
