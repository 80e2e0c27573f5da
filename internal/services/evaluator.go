package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/felipeoc/macrotiming-go/internal/config"
	"github.com/felipeoc/macrotiming-go/internal/models"
	"github.com/felipeoc/macrotiming-go/internal/utils"
)

// EvaluationStore persists evaluation history.
type EvaluationStore interface {
	SaveEvaluation(ctx context.Context, eval *models.Evaluation) error
	GetLatestEvaluation(ctx context.Context) (*models.Evaluation, error)
	ListEvaluations(ctx context.Context, limit int) ([]models.Evaluation, error)
}

// EvaluationCache holds the most recent evaluation for cheap reads.
type EvaluationCache interface {
	SetLatest(ctx context.Context, eval *models.Evaluation) error
	GetLatest(ctx context.Context) (*models.Evaluation, bool)
}

// AlertSink receives alerts derived from a finished evaluation.
type AlertSink interface {
	NotifyEvaluation(ctx context.Context, eval *models.Evaluation)
}

// Evaluator runs the full pipeline: normalize -> classify -> score ->
// recommend -> align. Each call is independent and touches no shared mutable
// state, so evaluations may run concurrently without coordination.
type Evaluator struct {
	cfg         config.EngineConfig
	normalizer  *IndicatorNormalizer
	classifier  *CycleClassifier
	scorer      *TimingScorer
	recommender *AllocationRecommender
	store       EvaluationStore
	cache       EvaluationCache
	alerts      AlertSink
	logger      *logrus.Logger
}

// NewEvaluator wires the four engine stages. Store, cache and alerts may be
// nil; persistence and notification are then skipped.
func NewEvaluator(
	cfg config.EngineConfig,
	store EvaluationStore,
	cache EvaluationCache,
	alerts AlertSink,
	logger *logrus.Logger,
) (*Evaluator, error) {
	classifier, err := NewCycleClassifier(cfg.Classifier)
	if err != nil {
		return nil, err
	}
	return &Evaluator{
		cfg:         cfg,
		normalizer:  NewIndicatorNormalizer(cfg.Normalizer),
		classifier:  classifier,
		scorer:      NewTimingScorer(cfg.Scorer),
		recommender: NewAllocationRecommender(cfg.Allocation),
		store:       store,
		cache:       cache,
		alerts:      alerts,
		logger:      logger,
	}, nil
}

// Evaluate runs one evaluation over caller-supplied inputs. Indicators that
// cannot be normalized degrade (they are logged and excluded) rather than
// aborting; a missing valuation/risk input aborts with MissingInputError.
func (e *Evaluator) Evaluate(ctx context.Context, input models.EvaluationInput) (*models.Evaluation, error) {
	if input.AsOf.IsZero() {
		return nil, utils.NewMissingInputError("as_of")
	}
	window := input.Window
	if window <= 0 {
		window = e.cfg.Normalizer.Window()
	}

	normalized := make([]models.NormalizedIndicator, 0, len(input.Indicators))
	var excluded []string
	for _, series := range input.Indicators {
		ind, err := e.normalizer.Normalize(series, window)
		if err != nil {
			e.logger.WithFields(logrus.Fields{
				"indicator": series.Name,
				"error":     err,
			}).Warn("excluding indicator from evaluation")
			excluded = append(excluded, series.Name)
			continue
		}
		normalized = append(normalized, ind)
	}

	assessment, err := e.classifier.Classify(normalized)
	if err != nil {
		if !errors.Is(err, utils.ErrNoSignal) {
			return nil, err
		}
		e.logger.Warn("no classification signal, falling back to neutral stance")
	}

	timing, err := e.scorer.Score(assessment, input.ValuationPremium, input.RiskIndicator)
	if err != nil {
		return nil, err
	}

	allocation, err := e.recommender.Recommend(assessment, e.cfg.Allocation.Sectors)
	if err != nil {
		return nil, err
	}

	eval := &models.Evaluation{
		ID:                 uuid.New().String(),
		AsOf:               input.AsOf,
		Assessment:         assessment,
		Timing:             timing,
		RiskPosture:        timing.Band.RiskPosture(),
		Allocation:         allocation,
		CashAllocation:     e.recommender.CashWeight(timing.Value),
		ExcludedIndicators: excluded,
		CreatedAt:          time.Now().UTC(),
	}

	if len(input.Portfolio) > 0 {
		report, alignErr := e.recommender.Align(allocation, input.Portfolio, e.cfg.Allocation.Sectors)
		if alignErr != nil {
			// Unknown sectors are excluded and reported, not fatal.
			e.logger.WithFields(logrus.Fields{
				"unknown_sectors": report.UnknownSectors,
			}).Warn("portfolio references sectors outside the known universe")
		}
		eval.Alignment = report.Alignments
		eval.UnknownSectors = report.UnknownSectors
	}

	if e.store != nil {
		if err := e.store.SaveEvaluation(ctx, eval); err != nil {
			return nil, err
		}
	}
	if e.cache != nil {
		if err := e.cache.SetLatest(ctx, eval); err != nil {
			e.logger.WithError(err).Warn("failed to cache evaluation")
		}
	}
	if e.alerts != nil {
		e.alerts.NotifyEvaluation(ctx, eval)
	}

	return eval, nil
}

// Align exposes standalone portfolio alignment against an explicit target,
// for callers that already hold a recommendation.
func (e *Evaluator) Align(target []models.SectorWeight, current map[string]decimal.Decimal) (models.AlignmentReport, error) {
	return e.recommender.Align(target, current, e.cfg.Allocation.Sectors)
}

// KnownSectors returns the configured sector universe.
func (e *Evaluator) KnownSectors() []string {
	return e.cfg.Allocation.Sectors
}
