package models

// TimingBand is the discrete recommendation band for a timing score.
type TimingBand string

const (
	BandStronglyBearish TimingBand = "strongly_bearish"
	BandBearish         TimingBand = "bearish"
	BandNeutral         TimingBand = "neutral"
	BandBullish         TimingBand = "bullish"
	BandStronglyBullish TimingBand = "strongly_bullish"
)

// TimingScore is the bounded market-timing score derived from a cycle
// assessment plus the valuation/risk snapshot.
type TimingScore struct {
	Value float64    `json:"value"` // [-100,100]
	Band  TimingBand `json:"band"`
}

// RiskPosture maps a timing band to the portfolio risk posture shown to
// users alongside the allocation.
func (b TimingBand) RiskPosture() string {
	switch b {
	case BandStronglyBullish:
		return "aggressive"
	case BandBullish:
		return "moderately aggressive"
	case BandNeutral:
		return "balanced"
	case BandBearish:
		return "moderately defensive"
	case BandStronglyBearish:
		return "defensive"
	default:
		return "balanced"
	}
}
