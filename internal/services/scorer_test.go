package services

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felipeoc/macrotiming-go/internal/config"
	"github.com/felipeoc/macrotiming-go/internal/models"
	"github.com/felipeoc/macrotiming-go/internal/utils"
)

func testScorerConfig() config.ScorerConfig {
	return config.ScorerConfig{
		CycleWeight:     0.40,
		ValuationWeight: 0.35,
		RiskWeight:      0.25,
		PhaseBias: map[string]float64{
			"recovery":  75,
			"expansion": 50,
			"slowdown":  -50,
			"recession": -75,
		},
		ValuationScale: 5,
		RiskScale:      100,
		Bands:          config.BandThresholds{Inner: 20, Outer: 60},
	}
}

func determinedAssessment(phase models.CyclePhase, confidence float64) models.CycleAssessment {
	return models.CycleAssessment{
		Outcome:    models.DeterminedPhase(phase),
		Confidence: confidence,
	}
}

func TestScore_MissingInputs(t *testing.T) {
	scorer := NewTimingScorer(testScorerConfig())
	assessment := determinedAssessment(models.PhaseExpansion, 1)

	tests := []struct {
		name      string
		valuation float64
		risk      float64
		field     string
	}{
		{"NaN valuation", math.NaN(), 10, "valuation_premium"},
		{"Inf valuation", math.Inf(1), 10, "valuation_premium"},
		{"NaN risk", 1.0, math.NaN(), "risk_indicator"},
		{"Inf risk", 1.0, math.Inf(-1), "risk_indicator"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := scorer.Score(assessment, tt.valuation, tt.risk)
			require.Error(t, err)

			var missing *utils.MissingInputError
			require.ErrorAs(t, err, &missing)
			assert.Equal(t, tt.field, missing.Field)
		})
	}
}

func TestScore_UndeterminedFallsBackToNeutral(t *testing.T) {
	scorer := NewTimingScorer(testScorerConfig())

	score, err := scorer.Score(models.CycleAssessment{Outcome: models.UndeterminedPhase()}, 3, 50)
	require.NoError(t, err)

	assert.Equal(t, 0.0, score.Value)
	assert.Equal(t, models.BandNeutral, score.Band)
}

// Late cycle, expensive market, elevated risk: the three components line up
// bearish and the score lands deep in the strongly bearish band.
func TestScore_SlowdownExpensiveStressedScenario(t *testing.T) {
	scorer := NewTimingScorer(testScorerConfig())
	assessment := determinedAssessment(models.PhaseSlowdown, 5.0/8.5)

	score, err := scorer.Score(assessment, -5, 70)
	require.NoError(t, err)

	// 0.4*(-50*0.588) + 0.35*(-100) + 0.25*(-70) = -64.26
	assert.InDelta(t, -64.26, score.Value, 0.1)
	assert.Equal(t, models.BandStronglyBearish, score.Band)
}

func TestScore_ConfidenceScalesCycleComponent(t *testing.T) {
	scorer := NewTimingScorer(testScorerConfig())

	full, err := scorer.Score(determinedAssessment(models.PhaseRecovery, 1), 0, 0)
	require.NoError(t, err)
	half, err := scorer.Score(determinedAssessment(models.PhaseRecovery, 0.5), 0, 0)
	require.NoError(t, err)

	assert.InDelta(t, full.Value/2, half.Value, 1e-9)
}

func TestScore_ClampsToRange(t *testing.T) {
	scorer := NewTimingScorer(testScorerConfig())

	// Valuation far beyond the scale saturates at its clamp instead of
	// blowing the score out of range.
	score, err := scorer.Score(determinedAssessment(models.PhaseRecovery, 1), 500, 0)
	require.NoError(t, err)
	assert.LessOrEqual(t, score.Value, 100.0)

	score, err = scorer.Score(determinedAssessment(models.PhaseRecession, 1), -500, 1000)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, score.Value, -100.0)
}

func TestScore_Bands(t *testing.T) {
	scorer := NewTimingScorer(testScorerConfig())

	tests := []struct {
		value float64
		want  models.TimingBand
	}{
		{-80, models.BandStronglyBearish},
		{-60, models.BandBearish}, // boundary belongs to the inner band
		{-40, models.BandBearish},
		{-20, models.BandNeutral},
		{0, models.BandNeutral},
		{20, models.BandNeutral},
		{40, models.BandBullish},
		{60, models.BandBullish},
		{80, models.BandStronglyBullish},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, scorer.band(tt.value), "value %v", tt.value)
	}
}

func TestScore_NegativeRiskClampsToZero(t *testing.T) {
	scorer := NewTimingScorer(testScorerConfig())

	withZero, err := scorer.Score(determinedAssessment(models.PhaseExpansion, 1), 0, 0)
	require.NoError(t, err)
	withNegative, err := scorer.Score(determinedAssessment(models.PhaseExpansion, 1), 0, -50)
	require.NoError(t, err)

	assert.Equal(t, withZero.Value, withNegative.Value)
}
