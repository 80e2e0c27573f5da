package config

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felipeoc/macrotiming-go/internal/utils"
)

func TestLoad_DefaultsAreValid(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 12, cfg.Engine.Normalizer.MinObservations)
	assert.Equal(t, 1095, cfg.Engine.Normalizer.WindowDays)
	assert.NotEmpty(t, cfg.Engine.Classifier.Votes)
	assert.Len(t, cfg.Engine.Allocation.Sectors, 10)
	assert.Len(t, cfg.Engine.Allocation.PhaseTables, 4)
	assert.Len(t, cfg.Engine.Allocation.CashBands, 4)
}

func TestDefaultPhaseTablesSumToOne(t *testing.T) {
	for phase, table := range defaultPhaseTables() {
		sum := 0.0
		for _, w := range table {
			sum += w
		}
		assert.InDelta(t, 1.0, sum, weightSumEpsilon, "phase %s", phase)
	}
}

func TestDefaultScorerWeightsSumToOne(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	s := cfg.Engine.Scorer
	assert.InDelta(t, 1.0, s.CycleWeight+s.ValuationWeight+s.RiskWeight, weightSumEpsilon)
}

func validEngineConfig(t *testing.T) EngineConfig {
	t.Helper()
	cfg, err := Load()
	require.NoError(t, err)
	return cfg.Engine
}

func assertInvalidConfig(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	var invalid *utils.InvalidConfigurationError
	assert.ErrorAs(t, err, &invalid)
}

func TestClassifierValidate(t *testing.T) {
	base := validEngineConfig(t).Classifier

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, base.validate())
	})

	t.Run("empty vote table", func(t *testing.T) {
		cfg := base
		cfg.Votes = nil
		assertInvalidConfig(t, cfg.validate())
	})

	t.Run("non-positive weight", func(t *testing.T) {
		cfg := base
		cfg.Votes = append([]VoteRule{}, base.Votes...)
		cfg.Votes[0].Weight = 0
		assertInvalidConfig(t, cfg.validate())
	})

	t.Run("unknown trend", func(t *testing.T) {
		cfg := base
		cfg.Votes = append([]VoteRule{}, base.Votes...)
		cfg.Votes[0].Trend = "sideways"
		assertInvalidConfig(t, cfg.validate())
	})

	t.Run("unknown phase", func(t *testing.T) {
		cfg := base
		cfg.Votes = append([]VoteRule{}, base.Votes...)
		cfg.Votes[0].Phase = "stagflation"
		assertInvalidConfig(t, cfg.validate())
	})

	t.Run("inverted z buckets", func(t *testing.T) {
		cfg := base
		cfg.ZBucketLow, cfg.ZBucketHigh = cfg.ZBucketHigh, cfg.ZBucketLow
		assertInvalidConfig(t, cfg.validate())
	})
}

func TestScorerValidate(t *testing.T) {
	base := validEngineConfig(t).Scorer

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, base.validate())
	})

	t.Run("weights not summing to one", func(t *testing.T) {
		cfg := base
		cfg.CycleWeight = 0.6
		assertInvalidConfig(t, cfg.validate())
	})

	t.Run("missing phase bias", func(t *testing.T) {
		cfg := base
		cfg.PhaseBias = map[string]float64{"expansion": 50}
		assertInvalidConfig(t, cfg.validate())
	})

	t.Run("bias out of range", func(t *testing.T) {
		cfg := base
		cfg.PhaseBias = map[string]float64{
			"expansion": 150, "recovery": 75, "slowdown": -50, "recession": -75,
		}
		assertInvalidConfig(t, cfg.validate())
	})

	t.Run("unordered bands", func(t *testing.T) {
		cfg := base
		cfg.Bands = BandThresholds{Inner: 60, Outer: 20}
		assertInvalidConfig(t, cfg.validate())
	})

	t.Run("zero valuation scale", func(t *testing.T) {
		cfg := base
		cfg.ValuationScale = 0
		assertInvalidConfig(t, cfg.validate())
	})
}

func TestAllocationValidate(t *testing.T) {
	base := validEngineConfig(t).Allocation

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, base.validate())
	})

	t.Run("table not summing to one", func(t *testing.T) {
		cfg := base
		tables := make(map[string]map[string]float64, len(base.PhaseTables))
		for phase, table := range base.PhaseTables {
			copied := make(map[string]float64, len(table))
			for k, v := range table {
				copied[k] = v
			}
			tables[phase] = copied
		}
		tables["expansion"]["technology"] += 0.1
		cfg.PhaseTables = tables
		assertInvalidConfig(t, cfg.validate())
	})

	t.Run("missing phase table", func(t *testing.T) {
		cfg := base
		tables := map[string]map[string]float64{}
		for phase, table := range base.PhaseTables {
			if phase != "recovery" {
				tables[phase] = table
			}
		}
		cfg.PhaseTables = tables
		assertInvalidConfig(t, cfg.validate())
	})

	t.Run("sector outside universe", func(t *testing.T) {
		cfg := base
		cfg.Sectors = []string{"technology"}
		assertInvalidConfig(t, cfg.validate())
	})

	t.Run("duplicate sector", func(t *testing.T) {
		cfg := base
		cfg.Sectors = append(append([]string{}, base.Sectors...), base.Sectors[0])
		assertInvalidConfig(t, cfg.validate())
	})

	t.Run("threshold out of range", func(t *testing.T) {
		cfg := base
		cfg.ConfidenceThreshold = 1.5
		assertInvalidConfig(t, cfg.validate())
	})

	t.Run("non-positive epsilon", func(t *testing.T) {
		cfg := base
		cfg.ActionEpsilon = 0
		assertInvalidConfig(t, cfg.validate())
	})

	t.Run("cash bands out of order", func(t *testing.T) {
		cfg := base
		cfg.CashBands = []CashBand{
			{Below: 20, Weight: 0.1},
			{Below: -20, Weight: 0.2},
		}
		assertInvalidConfig(t, cfg.validate())
	})

	t.Run("cash band weight out of range", func(t *testing.T) {
		cfg := base
		cfg.CashBands = []CashBand{{Below: 0, Weight: 1.2}}
		assertInvalidConfig(t, cfg.validate())
	})

	t.Run("no cash bands is allowed", func(t *testing.T) {
		cfg := base
		cfg.CashBands = nil
		assert.NoError(t, cfg.validate())
	})
}

func TestNormalizerValidate(t *testing.T) {
	base := validEngineConfig(t).Normalizer

	assert.NoError(t, base.validate())

	cfg := base
	cfg.MinObservations = 1
	assertInvalidConfig(t, cfg.validate())

	cfg = base
	cfg.WindowDays = 0
	assertInvalidConfig(t, cfg.validate())

	cfg = base
	cfg.TrendEpsilon = -1
	assertInvalidConfig(t, cfg.validate())
}

func TestConfigValidate_BadDurations(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	cfg.Cache.TTL = "soon"
	assertInvalidConfig(t, cfg.Validate())

	cfg.Cache.TTL = "1h"
	cfg.Monitor.Interval = "whenever"
	assertInvalidConfig(t, cfg.Validate())
}

func TestDefaultVoteTableWeightsPositive(t *testing.T) {
	for i, rule := range defaultVoteTable() {
		weight, ok := rule["weight"].(float64)
		require.True(t, ok, "rule %d weight type", i)
		assert.False(t, math.IsNaN(weight))
		assert.Greater(t, weight, 0.0, "rule %d", i)
	}
}
