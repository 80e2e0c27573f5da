package services

import (
	"errors"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/felipeoc/macrotiming-go/internal/config"
	"github.com/felipeoc/macrotiming-go/internal/models"
	"github.com/felipeoc/macrotiming-go/internal/utils"
)

// weightPlaces is the rounding precision of recommended weights. The largest
// sector absorbs the rounding residual so every allocation sums to exactly 1.
const weightPlaces = 6

// AllocationRecommender maps a cycle assessment to target sector weights and
// scores how far a user's portfolio sits from that target. Tables are
// immutable after construction.
type AllocationRecommender struct {
	cfg config.AllocationConfig
}

// NewAllocationRecommender creates a recommender with the given policy. The
// policy is assumed validated at load time.
func NewAllocationRecommender(cfg config.AllocationConfig) *AllocationRecommender {
	return &AllocationRecommender{cfg: cfg}
}

// Recommend produces the target allocation for the assessment over the known
// sector universe. Low-confidence assessments blend toward the diversified
// baseline in proportion to (threshold - confidence)/threshold; the
// undetermined outcome returns the pure baseline.
func (r *AllocationRecommender) Recommend(assessment models.CycleAssessment, knownSectors []string) ([]models.SectorWeight, error) {
	if len(knownSectors) == 0 {
		return nil, utils.NewMissingInputError("known_sectors")
	}

	baseline := r.baseline(knownSectors)

	weights := baseline
	if phase, ok := assessment.Outcome.Phase(); ok {
		weights = r.phaseTarget(phase, knownSectors, baseline)
		if assessment.Confidence < r.cfg.ConfidenceThreshold {
			blend := (r.cfg.ConfidenceThreshold - assessment.Confidence) / r.cfg.ConfidenceThreshold
			for sector, w := range weights {
				weights[sector] = (1-blend)*w + blend*baseline[sector]
			}
		}
	}

	return toSectorWeights(weights), nil
}

// CashWeight sizes the cash / fixed income sleeve from the timing score
// using the configured bands: the first band whose cut point is above the
// score applies, and a score above every cut point holds no cash. The sleeve
// is a fraction of the total portfolio, alongside the sector weights.
func (r *AllocationRecommender) CashWeight(score float64) decimal.Decimal {
	for _, band := range r.cfg.CashBands {
		if score < band.Below {
			return decimal.NewFromFloat(band.Weight)
		}
	}
	return decimal.Zero
}

// Align compares a target allocation with the user's current sector weights
// over the union of both sector sets. Portfolio sectors outside the known
// universe are excluded from the report and returned as joined
// UnknownSectorErrors; the remaining alignments stay valid. The portfolio
// may sum to less than 1; the residual is implicitly cash.
func (r *AllocationRecommender) Align(target []models.SectorWeight, current map[string]decimal.Decimal, knownSectors []string) (models.AlignmentReport, error) {
	known := make(map[string]struct{}, len(knownSectors))
	for _, s := range knownSectors {
		known[s] = struct{}{}
	}

	targetBySector := make(map[string]decimal.Decimal, len(target))
	sectors := make([]string, 0, len(target)+len(current))
	for _, tw := range target {
		targetBySector[tw.Sector] = tw.Weight
		sectors = append(sectors, tw.Sector)
	}

	var report models.AlignmentReport
	var errs []error
	for sector := range current {
		if _, ok := known[sector]; !ok {
			report.UnknownSectors = append(report.UnknownSectors, sector)
			errs = append(errs, utils.NewUnknownSectorError(sector))
			continue
		}
		if _, ok := targetBySector[sector]; !ok {
			sectors = append(sectors, sector)
		}
	}
	sort.Strings(sectors)
	sort.Strings(report.UnknownSectors)

	eps := decimal.NewFromFloat(r.cfg.ActionEpsilon)
	for _, sector := range sectors {
		tw := targetBySector[sector] // zero when absent from the target
		cw := current[sector]        // zero when absent from the portfolio
		delta := tw.Sub(cw)

		action := models.ActionHold
		switch {
		case delta.GreaterThan(eps):
			action = models.ActionIncrease
		case delta.LessThan(eps.Neg()):
			action = models.ActionDecrease
		}

		report.Alignments = append(report.Alignments, models.PortfolioAlignment{
			Sector:        sector,
			CurrentWeight: cw,
			TargetWeight:  tw,
			Delta:         delta,
			Action:        action,
		})
	}

	return report, errors.Join(errs...)
}

// baseline is the diversified fallback allocation: the configured baseline
// table restricted to the known universe, or equal weights when none is
// configured.
func (r *AllocationRecommender) baseline(knownSectors []string) map[string]float64 {
	weights := make(map[string]float64, len(knownSectors))
	if len(r.cfg.Baseline) > 0 {
		var sum float64
		for _, sector := range knownSectors {
			sum += r.cfg.Baseline[sector]
		}
		if sum > 0 {
			for _, sector := range knownSectors {
				weights[sector] = r.cfg.Baseline[sector] / sum
			}
			return weights
		}
	}
	equal := 1 / float64(len(knownSectors))
	for _, sector := range knownSectors {
		weights[sector] = equal
	}
	return weights
}

// phaseTarget restricts the phase's base table to the known universe and
// renormalizes. If nothing in the table is known the baseline applies.
func (r *AllocationRecommender) phaseTarget(phase models.CyclePhase, knownSectors []string, baseline map[string]float64) map[string]float64 {
	table := r.cfg.PhaseTables[phase.String()]

	weights := make(map[string]float64, len(knownSectors))
	var sum float64
	for _, sector := range knownSectors {
		weights[sector] = table[sector]
		sum += table[sector]
	}
	if sum == 0 {
		return baseline
	}
	for sector := range weights {
		weights[sector] /= sum
	}
	return weights
}

// toSectorWeights converts to decimal, rounds, and forces an exact sum of 1
// by assigning the residual to the largest position. Output is ordered by
// descending weight, then sector id, so results are reproducible.
func toSectorWeights(weights map[string]float64) []models.SectorWeight {
	out := make([]models.SectorWeight, 0, len(weights))
	for sector, w := range weights {
		out = append(out, models.SectorWeight{
			Sector: sector,
			Weight: decimal.NewFromFloat(w).Round(weightPlaces),
		})
	}
	sortSectorWeights(out)

	rest := decimal.Zero
	for _, sw := range out[1:] {
		rest = rest.Add(sw.Weight)
	}
	out[0].Weight = decimal.NewFromInt(1).Sub(rest)

	// The residual can pull the adjusted sector below its neighbors.
	sortSectorWeights(out)

	return out
}

func sortSectorWeights(out []models.SectorWeight) {
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Weight.Equal(out[j].Weight) {
			return out[i].Weight.GreaterThan(out[j].Weight)
		}
		return out[i].Sector < out[j].Sector
	})
}
