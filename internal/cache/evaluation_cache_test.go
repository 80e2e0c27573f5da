package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felipeoc/macrotiming-go/internal/models"
)

// setupTestRedis creates a test Redis instance using miniredis
func setupTestRedis(t *testing.T) (*redis.Client, func()) {
	s, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: s.Addr(),
	})

	cleanup := func() {
		client.Close()
		s.Close()
	}

	return client, cleanup
}

func testEvaluation() *models.Evaluation {
	return &models.Evaluation{
		ID:   "cache-test-id",
		AsOf: time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
		Assessment: models.CycleAssessment{
			Outcome:    models.DeterminedPhase(models.PhaseRecovery),
			Confidence: 0.61,
		},
		Timing:      models.TimingScore{Value: 28.5, Band: models.BandBullish},
		RiskPosture: "moderately aggressive",
		Allocation: []models.SectorWeight{
			{Sector: "financials", Weight: decimal.RequireFromString("1")},
		},
		CreatedAt: time.Date(2024, 3, 31, 6, 0, 0, 0, time.UTC),
	}
}

func TestRedisEvaluationCache_SetAndGetLatest(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	cache := NewRedisEvaluationCache(client, 5*time.Minute, logrus.New())
	ctx := context.Background()
	eval := testEvaluation()

	require.NoError(t, cache.SetLatest(ctx, eval))

	got, found := cache.GetLatest(ctx)
	require.True(t, found)
	assert.Equal(t, eval.ID, got.ID)
	assert.Equal(t, eval.Timing, got.Timing)
	assert.Equal(t, eval.RiskPosture, got.RiskPosture)

	phase, determined := got.Assessment.Outcome.Phase()
	assert.True(t, determined)
	assert.Equal(t, models.PhaseRecovery, phase)

	stats := cache.GetStats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(0), stats.Misses)
	assert.Equal(t, int64(1), stats.Sets)
}

func TestRedisEvaluationCache_GetLatest_Miss(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	cache := NewRedisEvaluationCache(client, 5*time.Minute, logrus.New())

	got, found := cache.GetLatest(context.Background())
	assert.False(t, found)
	assert.Nil(t, got)

	stats := cache.GetStats()
	assert.Equal(t, int64(1), stats.Misses)
}

func TestRedisEvaluationCache_GetLatest_CorruptedEntry(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	cache := NewRedisEvaluationCache(client, 5*time.Minute, logrus.New())
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, latestEvaluationKey, "not json", 0).Err())

	got, found := cache.GetLatest(ctx)
	assert.False(t, found)
	assert.Nil(t, got)
}

func TestRedisEvaluationCache_Invalidate(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	cache := NewRedisEvaluationCache(client, 5*time.Minute, logrus.New())
	ctx := context.Background()

	require.NoError(t, cache.SetLatest(ctx, testEvaluation()))
	require.NoError(t, cache.Invalidate(ctx))

	_, found := cache.GetLatest(ctx)
	assert.False(t, found)
}
