package regime

import (
	"fmt"
	"math"

	"T0Pilot/internal/domain/models"
)

// ClassifierConfig holds the rule thresholds. Zero value is not usable;
// call DefaultClassifierConfig or populate from pkg/config.
type ClassifierConfig struct {
	// Trend day
	TrendVWAPSameSidePct  float64
	TrendMinRangeATRRatio float64

	// Range day
	RangeVWAPCrossMin       int
	RangeORFalseBreakoutMin int
	RangeMaxRangeATRRatio   float64

	// Event day
	EventGapPct           float64
	EventEarlyVolumeRatio float64
	EventVolumeRatio      float64
}

// DefaultClassifierConfig mirrors the production parameter file defaults.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		TrendVWAPSameSidePct:    0.70,
		TrendMinRangeATRRatio:   1.2,
		RangeVWAPCrossMin:       4,
		RangeORFalseBreakoutMin: 2,
		RangeMaxRangeATRRatio:   0.8,
		EventGapPct:             0.015,
		EventEarlyVolumeRatio:   0.5,
		EventVolumeRatio:        2.0,
	}
}

// Classifier scores feature snapshots into a regime. Rule-based on purpose:
// every decision carries human-readable reasons.
type Classifier struct {
	cfg ClassifierConfig
}

// NewClassifier creates a classifier with the given thresholds.
func NewClassifier(cfg ClassifierConfig) *Classifier {
	return &Classifier{cfg: cfg}
}

// Classify runs the rule cascade: event evidence first (short-circuits at
// 0.7), then trend and range scores, argmax with a fixed tie-break order,
// and an unknown override when the best score stays under 0.3.
func (c *Classifier) Classify(f models.RegimeFeatures) models.ClassificationResult {
	var reasons []string

	eventScore := c.scoreEvent(f, &reasons)
	if eventScore >= 0.7 {
		return models.ClassificationResult{
			Regime:     models.RegimeEvent,
			Confidence: eventScore,
			Reasons:    reasons,
			Features:   f,
		}
	}

	upScore, downScore := c.scoreTrend(f, &reasons)
	rangeScore := c.scoreRange(f, &reasons)

	regime := models.RegimeTrendUp
	best := upScore
	if downScore > best {
		regime = models.RegimeTrendDown
		best = downScore
	}
	if rangeScore > best {
		regime = models.RegimeRange
		best = rangeScore
	}

	if best < 0.3 {
		regime = models.RegimeUnknown
		reasons = append(reasons, "all regime scores low, day type unclear")
	}

	return models.ClassificationResult{
		Regime:     regime,
		Confidence: best,
		Reasons:    reasons,
		Features:   f,
	}
}

// ClassifyRealtime is the intraday variant: below 50% session progress the
// confidence is scaled down by (progress+0.3) and a disclaimer is appended.
// The chosen regime never changes, only the confidence.
func (c *Classifier) ClassifyRealtime(f models.RegimeFeatures, timeProgress float64) models.ClassificationResult {
	res := c.Classify(f)
	if timeProgress < 0.5 {
		res.Confidence *= timeProgress + 0.3
		res.Reasons = append(res.Reasons,
			fmt.Sprintf("caution: session %.0f%% complete, classification may change", timeProgress*100))
	}
	return res
}

func (c *Classifier) scoreEvent(f models.RegimeFeatures, reasons *[]string) float64 {
	score := 0.0

	if math.Abs(f.GapPct) >= c.cfg.EventGapPct {
		score += 0.4
		*reasons = append(*reasons, fmt.Sprintf("gap %.2f%% exceeds threshold %.2f%%", f.GapPct*100, c.cfg.EventGapPct*100))
	}
	if f.EarlyVolumeRatio >= c.cfg.EventEarlyVolumeRatio {
		score += 0.3
		*reasons = append(*reasons, fmt.Sprintf("early volume share %.0f%% abnormally high", f.EarlyVolumeRatio*100))
	}
	if f.VolumeRatio != nil && *f.VolumeRatio >= c.cfg.EventVolumeRatio {
		score += 0.3
		*reasons = append(*reasons, fmt.Sprintf("volume %.1fx the daily average", *f.VolumeRatio))
	}

	return math.Min(score, 1.0)
}

func (c *Classifier) scoreTrend(f models.RegimeFeatures, reasons *[]string) (up, down float64) {
	if f.PctTimeAboveVWAP >= c.cfg.TrendVWAPSameSidePct {
		up += 0.4
		*reasons = append(*reasons, fmt.Sprintf("price above VWAP %.0f%% of the time", f.PctTimeAboveVWAP*100))
	} else if f.PctTimeBelowVWAP >= c.cfg.TrendVWAPSameSidePct {
		down += 0.4
		*reasons = append(*reasons, fmt.Sprintf("price below VWAP %.0f%% of the time", f.PctTimeBelowVWAP*100))
	}

	if f.VWAPCrossCount <= 2 {
		if f.PctTimeAboveVWAP > 0.5 {
			up += 0.2
		} else {
			down += 0.2
		}
		*reasons = append(*reasons, fmt.Sprintf("only %d VWAP crosses, directional day", f.VWAPCrossCount))
	}

	if f.ORUpBreakoutCount >= 1 && f.ORDownBreakoutCount == 0 {
		up += 0.2
		*reasons = append(*reasons, "OR breakout up held")
	} else if f.ORDownBreakoutCount >= 1 && f.ORUpBreakoutCount == 0 {
		down += 0.2
		*reasons = append(*reasons, "OR breakout down held")
	}

	if f.RangeATRRatio != nil && *f.RangeATRRatio >= c.cfg.TrendMinRangeATRRatio {
		if f.DayReturn > 0 {
			up += 0.2
		} else {
			down += 0.2
		}
		*reasons = append(*reasons, fmt.Sprintf("day range %.2fx ATR20", *f.RangeATRRatio))
	}

	return math.Min(up, 1.0), math.Min(down, 1.0)
}

func (c *Classifier) scoreRange(f models.RegimeFeatures, reasons *[]string) float64 {
	score := 0.0

	if f.VWAPCrossCount >= c.cfg.RangeVWAPCrossMin {
		score += 0.4
		*reasons = append(*reasons, fmt.Sprintf("%d VWAP crosses, choppy tape", f.VWAPCrossCount))
	}
	if f.ORFalseBreakoutCount >= c.cfg.RangeORFalseBreakoutMin {
		score += 0.3
		*reasons = append(*reasons, fmt.Sprintf("%d OR false breakouts", f.ORFalseBreakoutCount))
	}
	if f.RangeATRRatio != nil && *f.RangeATRRatio <= c.cfg.RangeMaxRangeATRRatio {
		score += 0.3
		*reasons = append(*reasons, fmt.Sprintf("day range only %.2fx ATR20", *f.RangeATRRatio))
	}

	balance := 1 - math.Abs(f.PctTimeAboveVWAP-0.5)*2
	if balance >= 0.6 {
		score += 0.2
		*reasons = append(*reasons, "time balanced on both sides of VWAP")
	}

	return math.Min(score, 1.0)
}
