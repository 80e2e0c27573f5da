package services

import (
	"sort"

	"github.com/felipeoc/macrotiming-go/internal/config"
	"github.com/felipeoc/macrotiming-go/internal/models"
	"github.com/felipeoc/macrotiming-go/internal/utils"
)

// compiledRule matches against an observed indicator state. Empty-string
// trend/bucket entries are produced from the "any" wildcard at compile time.
type compiledRule struct {
	trend   models.TrendDirection // "" matches any
	zBucket string                // "" matches any
	phase   models.CyclePhase
	weight  float64
}

// CycleClassifier fuses normalized indicators into a cycle phase by weighted
// voting over an externally supplied rule table. It holds only immutable
// compiled configuration, so concurrent classifications never interfere.
type CycleClassifier struct {
	rules       map[string][]compiledRule // keyed by indicator name
	zBucketLow  float64
	zBucketHigh float64
}

// NewCycleClassifier compiles the configured vote table. Table problems are
// configuration errors and surface at construction, never during Classify.
func NewCycleClassifier(cfg config.ClassifierConfig) (*CycleClassifier, error) {
	c := &CycleClassifier{
		rules:       make(map[string][]compiledRule),
		zBucketLow:  cfg.ZBucketLow,
		zBucketHigh: cfg.ZBucketHigh,
	}
	for i, rule := range cfg.Votes {
		phase, err := models.ParseCyclePhase(rule.Phase)
		if err != nil {
			return nil, utils.NewInvalidConfigurationErrorf("engine.classifier.votes", "rule %d: %v", i, err)
		}
		compiled := compiledRule{phase: phase, weight: rule.Weight}
		if rule.Trend != "any" {
			compiled.trend = models.TrendDirection(rule.Trend)
		}
		if rule.ZBucket != "any" {
			compiled.zBucket = rule.ZBucket
		}
		c.rules[rule.Indicator] = append(c.rules[rule.Indicator], compiled)
	}
	return c, nil
}

// Classify aggregates weighted phase votes across the indicator set.
// Identical inputs always yield identical assessments. When no rule fires
// (or the set is empty) it returns the undetermined outcome together with
// ErrNoSignal rather than guessing a phase.
func (c *CycleClassifier) Classify(indicators []models.NormalizedIndicator) (models.CycleAssessment, error) {
	totals := make(map[models.CyclePhase]float64, len(models.Phases))
	var contributions []models.SignalContribution

	for _, ind := range indicators {
		bucket := c.bucketFor(ind.ZScore)
		for _, rule := range c.rules[ind.Name] {
			if rule.trend != "" && rule.trend != ind.Trend {
				continue
			}
			if rule.zBucket != "" && rule.zBucket != bucket {
				continue
			}
			totals[rule.phase] += rule.weight
			contributions = append(contributions, models.SignalContribution{
				Indicator: ind.Name,
				Weight:    rule.weight,
				Vote:      rule.phase,
			})
		}
	}

	var total float64
	for _, w := range totals {
		total += w
	}
	if total == 0 {
		return models.CycleAssessment{
			Outcome:    models.UndeterminedPhase(),
			Confidence: 0,
		}, utils.ErrNoSignal
	}

	// models.Phases is ordered by tie-break priority, so a strict > keeps
	// the least alarming phase on an exact tie.
	winner := models.Phases[0]
	best := totals[winner]
	for _, phase := range models.Phases[1:] {
		if totals[phase] > best {
			winner = phase
			best = totals[phase]
		}
	}

	sort.SliceStable(contributions, func(i, j int) bool {
		if contributions[i].Weight != contributions[j].Weight {
			return contributions[i].Weight > contributions[j].Weight
		}
		if contributions[i].Indicator != contributions[j].Indicator {
			return contributions[i].Indicator < contributions[j].Indicator
		}
		return contributions[i].Vote < contributions[j].Vote
	})

	return models.CycleAssessment{
		Outcome:    models.DeterminedPhase(winner),
		Confidence: best / total,
		Signals:    contributions,
	}, nil
}

func (c *CycleClassifier) bucketFor(z float64) string {
	switch {
	case z < c.zBucketLow:
		return "low"
	case z > c.zBucketHigh:
		return "high"
	default:
		return "mid"
	}
}
