package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felipeoc/macrotiming-go/internal/config"
	"github.com/felipeoc/macrotiming-go/internal/models"
)

func alertTypes(alerts []models.Alert) []string {
	types := make([]string, len(alerts))
	for i, a := range alerts {
		types[i] = a.Type
	}
	return types
}

func TestBuildAlerts_DeterminedPhase(t *testing.T) {
	eval := &models.Evaluation{
		AsOf: time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC),
		Assessment: models.CycleAssessment{
			Outcome:    models.DeterminedPhase(models.PhaseSlowdown),
			Confidence: 0.59,
		},
		Timing:      models.TimingScore{Value: -64.3, Band: models.BandStronglyBearish},
		RiskPosture: "defensive",
	}

	alerts := BuildAlerts(eval)
	assert.Equal(t, []string{"economic_cycle", "market_timing"}, alertTypes(alerts))
	assert.Contains(t, alerts[0].Message, "slowdown")
	assert.Contains(t, alerts[0].Message, "59%")
	assert.Contains(t, alerts[1].Message, "defensive")
	assert.Equal(t, "high", alerts[0].Importance)
}

func TestBuildAlerts_UndeterminedPhase(t *testing.T) {
	eval := &models.Evaluation{
		Assessment: models.CycleAssessment{Outcome: models.UndeterminedPhase()},
		Timing:     models.TimingScore{Band: models.BandNeutral},
	}

	alerts := BuildAlerts(eval)
	require.NotEmpty(t, alerts)
	assert.Contains(t, alerts[0].Message, "undetermined")
}

func TestBuildAlerts_YieldCurveRecessionSignal(t *testing.T) {
	eval := &models.Evaluation{
		Assessment: models.CycleAssessment{
			Outcome:    models.DeterminedPhase(models.PhaseSlowdown),
			Confidence: 0.6,
			Signals: []models.SignalContribution{
				{Indicator: "yield_curve", Weight: 1.5, Vote: models.PhaseRecession},
				{Indicator: "yield_curve", Weight: 2.5, Vote: models.PhaseSlowdown},
			},
		},
		Timing: models.TimingScore{Band: models.BandBearish},
	}

	alerts := BuildAlerts(eval)
	assert.Contains(t, alertTypes(alerts), "yield_curve")
}

func TestBuildAlerts_ExcludedIndicators(t *testing.T) {
	eval := &models.Evaluation{
		Assessment:         models.CycleAssessment{Outcome: models.UndeterminedPhase()},
		Timing:             models.TimingScore{Band: models.BandNeutral},
		ExcludedIndicators: []string{"liquidity", "risk_spread"},
	}

	alerts := BuildAlerts(eval)
	last := alerts[len(alerts)-1]
	assert.Equal(t, "data_quality", last.Type)
	assert.Contains(t, last.Message, "liquidity, risk_spread")
	assert.Equal(t, "medium", last.Importance)
}

func TestNotifyEvaluation_NoBotConfigured(t *testing.T) {
	ns := NewNotificationService(config.TelegramConfig{}, quietLogger())

	// Must be a no-op, not a panic.
	ns.NotifyEvaluation(context.Background(), &models.Evaluation{
		Assessment: models.CycleAssessment{Outcome: models.UndeterminedPhase()},
	})
}

func TestFormatAlertMessage(t *testing.T) {
	eval := &models.Evaluation{
		AsOf: time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC),
		Assessment: models.CycleAssessment{
			Outcome:    models.DeterminedPhase(models.PhaseExpansion),
			Confidence: 1,
		},
		Timing:      models.TimingScore{Value: 20, Band: models.BandNeutral},
		RiskPosture: "balanced",
	}

	msg := formatAlertMessage(eval, BuildAlerts(eval))
	assert.Contains(t, msg, "*Market Timing Update*")
	assert.Contains(t, msg, "2024-06-30")
	assert.Contains(t, msg, "expansion")
}
