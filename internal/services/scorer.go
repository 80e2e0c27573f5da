package services

import (
	"math"

	"github.com/felipeoc/macrotiming-go/internal/config"
	"github.com/felipeoc/macrotiming-go/internal/models"
	"github.com/felipeoc/macrotiming-go/internal/utils"
)

// TimingScorer combines the cycle assessment with the valuation/risk
// snapshot into a single bounded market-timing score.
type TimingScorer struct {
	cfg config.ScorerConfig
}

// NewTimingScorer creates a scorer with the given policy. The policy is
// assumed validated at load time.
func NewTimingScorer(cfg config.ScorerConfig) *TimingScorer {
	return &TimingScorer{cfg: cfg}
}

// Score computes the timing score. valuationPremium is signed (positive =
// market cheap vs fair value); riskIndicator is a non-negative stress level
// on the configured scale. Non-finite inputs fail with MissingInputError;
// a default is never silently substituted. An undetermined assessment falls
// back to the neutral band.
func (s *TimingScorer) Score(assessment models.CycleAssessment, valuationPremium, riskIndicator float64) (models.TimingScore, error) {
	if math.IsNaN(valuationPremium) || math.IsInf(valuationPremium, 0) {
		return models.TimingScore{}, utils.NewMissingInputError("valuation_premium")
	}
	if math.IsNaN(riskIndicator) || math.IsInf(riskIndicator, 0) {
		return models.TimingScore{}, utils.NewMissingInputError("risk_indicator")
	}

	phase, determined := assessment.Outcome.Phase()
	if !determined {
		return models.TimingScore{Value: 0, Band: models.BandNeutral}, nil
	}

	phaseBias := s.cfg.PhaseBias[phase.String()] * assessment.Confidence
	valuation := clamp(valuationPremium/s.cfg.ValuationScale, -1, 1) * 100
	risk := clamp(riskIndicator/s.cfg.RiskScale, 0, 1) * 100

	raw := s.cfg.CycleWeight*phaseBias + s.cfg.ValuationWeight*valuation + s.cfg.RiskWeight*(-risk)
	value := clamp(raw, -100, 100)

	return models.TimingScore{Value: value, Band: s.band(value)}, nil
}

func (s *TimingScorer) band(value float64) models.TimingBand {
	switch {
	case value < -s.cfg.Bands.Outer:
		return models.BandStronglyBearish
	case value < -s.cfg.Bands.Inner:
		return models.BandBearish
	case value <= s.cfg.Bands.Inner:
		return models.BandNeutral
	case value <= s.cfg.Bands.Outer:
		return models.BandBullish
	default:
		return models.BandStronglyBullish
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
