package services

import (
	"math"
	"time"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"

	"github.com/felipeoc/macrotiming-go/internal/config"
	"github.com/felipeoc/macrotiming-go/internal/models"
	"github.com/felipeoc/macrotiming-go/internal/utils"
)

// IndicatorNormalizer converts raw indicator series into comparable
// z-scores, percentile ranks and trend directions against a trailing
// historical window. Pure: no state beyond its configuration, no side
// effects.
type IndicatorNormalizer struct {
	cfg config.NormalizerConfig
}

// NewIndicatorNormalizer creates a normalizer with the given policy.
func NewIndicatorNormalizer(cfg config.NormalizerConfig) *IndicatorNormalizer {
	return &IndicatorNormalizer{cfg: cfg}
}

// Normalize computes the normalized view of a series over the trailing
// window. It fails with InsufficientHistoryError when fewer than the
// configured minimum observations fall inside the window.
func (n *IndicatorNormalizer) Normalize(series models.IndicatorSeries, window time.Duration) (models.NormalizedIndicator, error) {
	if err := series.Validate(); err != nil {
		return models.NormalizedIndicator{}, err
	}

	points := series.Tail(window)
	if len(points) < n.cfg.MinObservations {
		return models.NormalizedIndicator{}, utils.NewInsufficientHistoryError(series.Name, len(points), n.cfg.MinObservations)
	}

	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value
	}
	latest := values[len(values)-1]

	mean, stddev := populationStats(values)

	out := models.NormalizedIndicator{
		Name:        series.Name,
		LatestValue: latest,
	}

	if stddev == 0 {
		// Flat series: defined as perfectly average, no direction.
		out.ZScore = 0
		out.PercentileRank = 50
		out.Trend = models.TrendFlat
		return out, nil
	}

	out.ZScore = (latest - mean) / stddev
	out.PercentileRank = percentileRank(values, latest)
	out.Trend = n.trendDirection(values)

	return out, nil
}

// trendDirection compares the moving average of the most recent trend_span
// observations against the moving average of the span before it.
func (n *IndicatorNormalizer) trendDirection(values []float64) models.TrendDirection {
	span := n.cfg.TrendSpan
	if len(values) < 2*span {
		return models.TrendFlat
	}

	sma := trend.NewSmaWithPeriod[float64](span)
	smoothed := helper.ChanToSlice(sma.Compute(helper.SliceToChan(values)))
	if len(smoothed) <= span {
		return models.TrendFlat
	}

	recent := smoothed[len(smoothed)-1]
	prior := smoothed[len(smoothed)-1-span]
	delta := recent - prior

	switch {
	case delta > n.cfg.TrendEpsilon:
		return models.TrendRising
	case delta < -n.cfg.TrendEpsilon:
		return models.TrendFalling
	default:
		return models.TrendFlat
	}
}

// populationStats returns the mean and population standard deviation.
// Population (not sample) keeps results deterministic regardless of how the
// caller sliced the window.
func populationStats(values []float64) (mean, stddev float64) {
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))

	return mean, math.Sqrt(variance)
}

// percentileRank is the midrank of value within the window, on a 0-100
// scale: ties contribute half their count, so an all-equal window ranks 50.
func percentileRank(values []float64, value float64) float64 {
	var less, equal float64
	for _, v := range values {
		switch {
		case v < value:
			less++
		case v == value:
			equal++
		}
	}
	return (less + equal/2) / float64(len(values)) * 100
}
