package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// EvaluationInput carries everything one evaluation consumes. Series,
// valuation/risk scalars and the portfolio are supplied by the caller with an
// explicit as-of timestamp; the engine performs no I/O of its own.
type EvaluationInput struct {
	AsOf             time.Time                  `json:"as_of"`
	Window           time.Duration              `json:"-"`
	Indicators       []IndicatorSeries          `json:"indicators"`
	ValuationPremium float64                    `json:"valuation_premium"`
	RiskIndicator    float64                    `json:"risk_indicator"`
	Portfolio        map[string]decimal.Decimal `json:"portfolio,omitempty"`
}

// Evaluation is the persisted result of one full pipeline run:
// normalize -> classify -> score -> recommend -> align.
type Evaluation struct {
	ID                 string               `json:"id" db:"id"`
	AsOf               time.Time            `json:"as_of" db:"as_of"`
	Assessment         CycleAssessment      `json:"assessment"`
	Timing             TimingScore          `json:"timing"`
	RiskPosture        string               `json:"risk_posture"`
	Allocation         []SectorWeight       `json:"allocation"`
	// CashAllocation is the cash / fixed income sleeve as a fraction of the
	// total portfolio; Allocation keeps summing to 1 over the equity sleeve.
	CashAllocation decimal.Decimal `json:"cash_allocation"`
	Alignment          []PortfolioAlignment `json:"alignment,omitempty"`
	ExcludedIndicators []string             `json:"excluded_indicators,omitempty"`
	UnknownSectors     []string             `json:"unknown_sectors,omitempty"`
	CreatedAt          time.Time            `json:"created_at" db:"created_at"`
}

// Alert is a user-facing notice derived from an evaluation.
type Alert struct {
	Type       string `json:"type"`
	Message    string `json:"message"`
	Importance string `json:"importance"` // "high" or "medium"
}
