package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/felipeoc/macrotiming-go/internal/config"
	"github.com/felipeoc/macrotiming-go/internal/models"
	"github.com/felipeoc/macrotiming-go/internal/services"
)

// AllocationHandler serves portfolio alignment and exposes the active
// strategy tables.
type AllocationHandler struct {
	evaluator *services.Evaluator
	store     services.EvaluationStore
	cache     services.EvaluationCache
	engine    config.EngineConfig
	logger    *logrus.Logger
}

func NewAllocationHandler(evaluator *services.Evaluator, store services.EvaluationStore, cache services.EvaluationCache, engine config.EngineConfig, logger *logrus.Logger) *AllocationHandler {
	return &AllocationHandler{
		evaluator: evaluator,
		store:     store,
		cache:     cache,
		engine:    engine,
		logger:    logger,
	}
}

// AlignmentRequest carries the caller's portfolio and, optionally, an
// explicit target. Without a target the latest recommended allocation is
// used.
type AlignmentRequest struct {
	Portfolio map[string]decimal.Decimal `json:"portfolio"`
	Target    []models.SectorWeight      `json:"target,omitempty"`
}

// AlignPortfolio computes per-sector deltas between the caller's portfolio
// and a target allocation. Unknown sectors are reported in the response,
// not treated as failures.
func (h *AllocationHandler) AlignPortfolio(c *gin.Context) {
	var req AlignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if len(req.Portfolio) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "portfolio is required"})
		return
	}

	target := req.Target
	if len(target) == 0 {
		latest, err := h.latestEvaluation(c)
		if err != nil {
			h.logger.WithError(err).Error("failed to load latest evaluation for alignment")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load target allocation"})
			return
		}
		if latest == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "no target allocation available; run an evaluation first or supply a target"})
			return
		}
		target = latest.Allocation
	}

	report, err := h.evaluator.Align(target, req.Portfolio)
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"unknown_sectors": report.UnknownSectors,
		}).Warn("portfolio references unknown sectors")
	}

	c.JSON(http.StatusOK, report)
}

// StrategyResponse exposes the active policy tables as plain data.
type StrategyResponse struct {
	Normalizer config.NormalizerConfig `json:"normalizer"`
	Classifier config.ClassifierConfig `json:"classifier"`
	Scorer     config.ScorerConfig     `json:"scorer"`
	Allocation config.AllocationConfig `json:"allocation"`
}

// GetStrategy returns the vote table, scorer weights and allocation tables
// currently in force.
func (h *AllocationHandler) GetStrategy(c *gin.Context) {
	c.JSON(http.StatusOK, StrategyResponse{
		Normalizer: h.engine.Normalizer,
		Classifier: h.engine.Classifier,
		Scorer:     h.engine.Scorer,
		Allocation: h.engine.Allocation,
	})
}

func (h *AllocationHandler) latestEvaluation(c *gin.Context) (*models.Evaluation, error) {
	ctx := c.Request.Context()
	if h.cache != nil {
		if eval, found := h.cache.GetLatest(ctx); found {
			return eval, nil
		}
	}
	if h.store == nil {
		return nil, nil
	}
	return h.store.GetLatestEvaluation(ctx)
}
