package regime

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"T0Pilot/internal/domain/models"
)

func TestClassifyEventShortCircuits(t *testing.T) {
	c := NewClassifier(DefaultClassifierConfig())
	vr := 3.0
	f := models.RegimeFeatures{
		GapPct:           0.03, // 3% gap
		EarlyVolumeRatio: 0.6,
		VolumeRatio:      &vr,
		// trend evidence that must never be reached
		PctTimeAboveVWAP: 0.9,
	}

	res := c.Classify(f)
	assert.Equal(t, models.RegimeEvent, res.Regime)
	assert.InDelta(t, 1.0, res.Confidence, 1e-9)
	assert.NotEmpty(t, res.Reasons)
}

func TestClassifyTrendUp(t *testing.T) {
	c := NewClassifier(DefaultClassifierConfig())
	ratio := 1.5
	f := models.RegimeFeatures{
		PctTimeAboveVWAP:  0.85,
		PctTimeBelowVWAP:  0.15,
		VWAPCrossCount:    1,
		ORUpBreakoutCount: 1,
		RangeATRRatio:     &ratio,
		DayReturn:         0.02,
	}

	res := c.Classify(f)
	assert.Equal(t, models.RegimeTrendUp, res.Regime)
	assert.InDelta(t, 1.0, res.Confidence, 1e-9)
}

func TestClassifyTrendDown(t *testing.T) {
	c := NewClassifier(DefaultClassifierConfig())
	f := models.RegimeFeatures{
		PctTimeAboveVWAP:    0.1,
		PctTimeBelowVWAP:    0.9,
		VWAPCrossCount:      1,
		ORDownBreakoutCount: 2,
	}

	res := c.Classify(f)
	assert.Equal(t, models.RegimeTrendDown, res.Regime)
	assert.InDelta(t, 0.8, res.Confidence, 1e-9)
}

func TestClassifyRange(t *testing.T) {
	c := NewClassifier(DefaultClassifierConfig())
	ratio := 0.5
	f := models.RegimeFeatures{
		VWAPCrossCount:       6,
		ORFalseBreakoutCount: 2,
		RangeATRRatio:        &ratio,
		PctTimeAboveVWAP:     0.5,
		PctTimeBelowVWAP:     0.5,
	}

	res := c.Classify(f)
	assert.Equal(t, models.RegimeRange, res.Regime)
	assert.InDelta(t, 1.0, res.Confidence, 1e-9)
}

func TestClassifyUnknownWhenAllScoresLow(t *testing.T) {
	c := NewClassifier(DefaultClassifierConfig())
	f := models.RegimeFeatures{
		VWAPCrossCount:   3, // not choppy enough for range, not quiet enough for trend
		PctTimeAboveVWAP: 0.55,
		PctTimeBelowVWAP: 0.45,
	}

	res := c.Classify(f)
	assert.Equal(t, models.RegimeUnknown, res.Regime)
	assert.Contains(t, res.Reasons[len(res.Reasons)-1], "unclear")
}

func TestClassifyRealtimeScalesEarlyConfidence(t *testing.T) {
	c := NewClassifier(DefaultClassifierConfig())
	f := models.RegimeFeatures{
		PctTimeAboveVWAP: 0.85,
		PctTimeBelowVWAP: 0.15,
		VWAPCrossCount:   1,
	}
	full := c.Classify(f)

	early := c.ClassifyRealtime(f, 0.2)
	assert.Equal(t, full.Regime, early.Regime)
	assert.InDelta(t, full.Confidence*0.5, early.Confidence, 1e-9)
	assert.Contains(t, early.Reasons[len(early.Reasons)-1], "20%")

	late := c.ClassifyRealtime(f, 0.8)
	assert.InDelta(t, full.Confidence, late.Confidence, 1e-9)
}
