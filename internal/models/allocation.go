package models

import (
	"github.com/shopspring/decimal"
)

// SectorWeight is the recommended share of investable capital for one
// sector. The set returned for a single assessment always sums to 1.
type SectorWeight struct {
	Sector string          `json:"sector_id"`
	Weight decimal.Decimal `json:"recommended_weight"`
}

// AlignmentAction is the adjustment suggested for one sector.
type AlignmentAction string

const (
	ActionIncrease AlignmentAction = "increase"
	ActionDecrease AlignmentAction = "decrease"
	ActionHold     AlignmentAction = "hold"
)

// PortfolioAlignment compares the user's current weight in a sector with the
// recommended target. Recomputed on demand, never stored on its own.
type PortfolioAlignment struct {
	Sector        string          `json:"sector_id"`
	CurrentWeight decimal.Decimal `json:"current_weight"`
	TargetWeight  decimal.Decimal `json:"target_weight"`
	Delta         decimal.Decimal `json:"delta"`
	Action        AlignmentAction `json:"action"`
}

// AlignmentReport is the full portfolio comparison: one entry per sector in
// the union of the target and the portfolio, plus any portfolio sectors that
// were excluded because they are outside the known sector universe.
type AlignmentReport struct {
	Alignments     []PortfolioAlignment `json:"alignments"`
	UnknownSectors []string             `json:"unknown_sectors,omitempty"`
}
