package handlers

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/felipeoc/macrotiming-go/internal/models"
	"github.com/felipeoc/macrotiming-go/internal/services"
	"github.com/felipeoc/macrotiming-go/internal/utils"
)

// EvaluationHandler serves the evaluation pipeline over HTTP.
type EvaluationHandler struct {
	evaluator *services.Evaluator
	store     services.EvaluationStore
	cache     services.EvaluationCache
	logger    *logrus.Logger
}

func NewEvaluationHandler(evaluator *services.Evaluator, store services.EvaluationStore, cache services.EvaluationCache, logger *logrus.Logger) *EvaluationHandler {
	return &EvaluationHandler{
		evaluator: evaluator,
		store:     store,
		cache:     cache,
		logger:    logger,
	}
}

// EvaluationRequest is the POST body for running an evaluation. Valuation
// premium and risk indicator are pointers so an omitted field is
// distinguishable from zero.
type EvaluationRequest struct {
	AsOf             time.Time                  `json:"as_of"`
	WindowDays       int                        `json:"window_days"`
	Indicators       []models.IndicatorSeries   `json:"indicators"`
	ValuationPremium *float64                   `json:"valuation_premium"`
	RiskIndicator    *float64                   `json:"risk_indicator"`
	Portfolio        map[string]decimal.Decimal `json:"portfolio,omitempty"`
}

type EvaluationsResponse struct {
	Evaluations []models.Evaluation `json:"evaluations"`
	Count       int                 `json:"count"`
}

// CreateEvaluation runs the full pipeline on caller-supplied inputs.
func (h *EvaluationHandler) CreateEvaluation(c *gin.Context) {
	var req EvaluationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	input := models.EvaluationInput{
		AsOf:             req.AsOf,
		Window:           time.Duration(req.WindowDays) * 24 * time.Hour,
		Indicators:       req.Indicators,
		ValuationPremium: orNaN(req.ValuationPremium),
		RiskIndicator:    orNaN(req.RiskIndicator),
		Portfolio:        req.Portfolio,
	}

	eval, err := h.evaluator.Evaluate(c.Request.Context(), input)
	if err != nil {
		var missing *utils.MissingInputError
		if errors.As(err, &missing) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "field": missing.Field})
			return
		}
		h.logger.WithError(err).Error("evaluation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "evaluation failed"})
		return
	}

	c.JSON(http.StatusOK, eval)
}

// GetLatestEvaluation returns the most recent evaluation, preferring the
// cache over the repository.
func (h *EvaluationHandler) GetLatestEvaluation(c *gin.Context) {
	ctx := c.Request.Context()

	if h.cache != nil {
		if eval, found := h.cache.GetLatest(ctx); found {
			c.JSON(http.StatusOK, eval)
			return
		}
	}

	eval, err := h.store.GetLatestEvaluation(ctx)
	if err != nil {
		h.logger.WithError(err).Error("failed to load latest evaluation")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load latest evaluation"})
		return
	}
	if eval == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no evaluations recorded yet"})
		return
	}

	c.JSON(http.StatusOK, eval)
}

// ListEvaluations returns recent evaluation history.
func (h *EvaluationHandler) ListEvaluations(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	evals, err := h.store.ListEvaluations(c.Request.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("failed to list evaluations")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list evaluations"})
		return
	}

	c.JSON(http.StatusOK, EvaluationsResponse{
		Evaluations: evals,
		Count:       len(evals),
	})
}

func orNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}
