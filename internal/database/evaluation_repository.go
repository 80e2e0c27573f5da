package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/felipeoc/macrotiming-go/internal/models"
)

// DatabasePool is the subset of pgxpool.Pool the repository needs. It allows
// mock pools in tests.
type DatabasePool interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

// EvaluationRepository persists evaluation history. The assessment,
// allocation and alignment payloads are stored as JSONB; scalar columns
// cover everything queries filter or sort on.
type EvaluationRepository struct {
	pool DatabasePool
}

// NewEvaluationRepository creates a repository over the given pool.
func NewEvaluationRepository(pool DatabasePool) *EvaluationRepository {
	return &EvaluationRepository{pool: pool}
}

type evaluationPayload struct {
	Assessment         models.CycleAssessment      `json:"assessment"`
	Allocation         []models.SectorWeight       `json:"allocation"`
	CashAllocation     decimal.Decimal             `json:"cash_allocation"`
	Alignment          []models.PortfolioAlignment `json:"alignment,omitempty"`
	ExcludedIndicators []string                    `json:"excluded_indicators,omitempty"`
	UnknownSectors     []string                    `json:"unknown_sectors,omitempty"`
}

// SaveEvaluation inserts one evaluation.
func (r *EvaluationRepository) SaveEvaluation(ctx context.Context, eval *models.Evaluation) error {
	payload, err := json.Marshal(evaluationPayload{
		Assessment:         eval.Assessment,
		Allocation:         eval.Allocation,
		CashAllocation:     eval.CashAllocation,
		Alignment:          eval.Alignment,
		ExcludedIndicators: eval.ExcludedIndicators,
		UnknownSectors:     eval.UnknownSectors,
	})
	if err != nil {
		return fmt.Errorf("failed to encode evaluation payload: %w", err)
	}

	phase := ""
	if p, ok := eval.Assessment.Outcome.Phase(); ok {
		phase = p.String()
	}

	query := `
		INSERT INTO evaluations (id, as_of, phase, confidence, timing_score, timing_band, risk_posture, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err = r.pool.Exec(ctx, query,
		eval.ID, eval.AsOf, phase, eval.Assessment.Confidence,
		eval.Timing.Value, string(eval.Timing.Band), eval.RiskPosture,
		payload, eval.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert evaluation %s: %w", eval.ID, err)
	}
	return nil
}

// GetLatestEvaluation returns the most recent evaluation by as-of date, or
// nil when none exist.
func (r *EvaluationRepository) GetLatestEvaluation(ctx context.Context) (*models.Evaluation, error) {
	query := `
		SELECT id, as_of, timing_score, timing_band, risk_posture, payload, created_at
		FROM evaluations
		ORDER BY as_of DESC, created_at DESC
		LIMIT 1`
	eval, err := r.scanEvaluation(r.pool.QueryRow(ctx, query))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return eval, err
}

// ListEvaluations returns up to limit evaluations, most recent first.
func (r *EvaluationRepository) ListEvaluations(ctx context.Context, limit int) ([]models.Evaluation, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT id, as_of, timing_score, timing_band, risk_posture, payload, created_at
		FROM evaluations
		ORDER BY as_of DESC, created_at DESC
		LIMIT $1`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list evaluations: %w", err)
	}
	defer rows.Close()

	var evals []models.Evaluation
	for rows.Next() {
		eval, err := r.scanEvaluation(rows)
		if err != nil {
			return nil, err
		}
		evals = append(evals, *eval)
	}
	return evals, rows.Err()
}

func (r *EvaluationRepository) scanEvaluation(row pgx.Row) (*models.Evaluation, error) {
	var eval models.Evaluation
	var band string
	var payload []byte
	if err := row.Scan(&eval.ID, &eval.AsOf, &eval.Timing.Value, &band, &eval.RiskPosture, &payload, &eval.CreatedAt); err != nil {
		return nil, err
	}
	eval.Timing.Band = models.TimingBand(band)

	var p evaluationPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("failed to decode evaluation payload: %w", err)
	}
	eval.Assessment = p.Assessment
	eval.Allocation = p.Allocation
	eval.CashAllocation = p.CashAllocation
	eval.Alignment = p.Alignment
	eval.ExcludedIndicators = p.ExcludedIndicators
	eval.UnknownSectors = p.UnknownSectors

	return &eval, nil
}
