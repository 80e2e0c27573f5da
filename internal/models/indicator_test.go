package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func seriesAt(name string, timestamps ...time.Time) IndicatorSeries {
	points := make([]IndicatorPoint, len(timestamps))
	for i, ts := range timestamps {
		points[i] = IndicatorPoint{Timestamp: ts, Value: float64(i)}
	}
	return IndicatorSeries{Name: name, Points: points}
}

func TestIndicatorSeries_Validate(t *testing.T) {
	base := time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC)

	assert.NoError(t, seriesAt("ok", base, base.AddDate(0, 1, 0), base.AddDate(0, 2, 0)).Validate())
	assert.NoError(t, IndicatorSeries{Name: "empty"}.Validate())

	assert.Error(t, seriesAt("duplicate", base, base).Validate())
	assert.Error(t, seriesAt("backwards", base.AddDate(0, 1, 0), base).Validate())
}

func TestIndicatorSeries_Tail(t *testing.T) {
	base := time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC)
	series := seriesAt("gdp_growth",
		base,
		base.AddDate(0, 1, 0),
		base.AddDate(0, 2, 0),
		base.AddDate(0, 3, 0),
	)

	// 65 days before the last point covers the last three observations.
	tail := series.Tail(65 * 24 * time.Hour)
	assert.Len(t, tail, 3)
	assert.Equal(t, 1.0, tail[0].Value)

	// A window wider than the series returns everything.
	assert.Len(t, series.Tail(10*365*24*time.Hour), 4)

	// The window always includes the most recent observation.
	assert.Len(t, series.Tail(0), 1)

	assert.Nil(t, IndicatorSeries{Name: "empty"}.Tail(time.Hour))
}
