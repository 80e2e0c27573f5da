package models

import (
	"fmt"
	"time"
)

// IndicatorPoint is a single dated observation of a macro or market series.
type IndicatorPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// IndicatorSeries is a named time series of observations. Timestamps must be
// strictly increasing with no duplicates; Validate enforces the invariant
// before the series enters the pipeline.
type IndicatorSeries struct {
	Name   string           `json:"name"`
	Points []IndicatorPoint `json:"points"`
}

// Validate checks the series ordering invariant.
func (s IndicatorSeries) Validate() error {
	for i := 1; i < len(s.Points); i++ {
		if !s.Points[i].Timestamp.After(s.Points[i-1].Timestamp) {
			return fmt.Errorf("series %q: timestamps must be strictly increasing at index %d", s.Name, i)
		}
	}
	return nil
}

// Tail returns the observations that fall inside the trailing window ending
// at the most recent observation. The returned slice is a view; callers must
// not mutate it.
func (s IndicatorSeries) Tail(window time.Duration) []IndicatorPoint {
	if len(s.Points) == 0 {
		return nil
	}
	cutoff := s.Points[len(s.Points)-1].Timestamp.Add(-window)
	for i, p := range s.Points {
		if !p.Timestamp.Before(cutoff) {
			return s.Points[i:]
		}
	}
	return nil
}

// TrendDirection classifies the short-run direction of a series.
type TrendDirection string

const (
	TrendRising  TrendDirection = "rising"
	TrendFalling TrendDirection = "falling"
	TrendFlat    TrendDirection = "flat"
)

// NormalizedIndicator is the window-normalized view of a series consumed by
// the cycle classifier. Recomputed from its source series on every
// evaluation, never persisted on its own.
type NormalizedIndicator struct {
	Name           string         `json:"name"`
	LatestValue    float64        `json:"latest_value"`
	ZScore         float64        `json:"z_score"`
	PercentileRank float64        `json:"percentile_rank"` // 0-100
	Trend          TrendDirection `json:"trend"`
}
