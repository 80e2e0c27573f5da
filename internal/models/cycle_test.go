package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCyclePhase_StringRoundTrip(t *testing.T) {
	for _, phase := range Phases {
		parsed, err := ParseCyclePhase(phase.String())
		require.NoError(t, err)
		assert.Equal(t, phase, parsed)
	}
}

func TestParseCyclePhase_Unknown(t *testing.T) {
	_, err := ParseCyclePhase("boom")
	assert.Error(t, err)
}

func TestPhases_TieBreakOrder(t *testing.T) {
	assert.Equal(t, []CyclePhase{PhaseExpansion, PhaseRecovery, PhaseSlowdown, PhaseRecession}, Phases)
}

func TestPhaseOutcome_CommaOkAccessor(t *testing.T) {
	phase, ok := DeterminedPhase(PhaseRecession).Phase()
	assert.True(t, ok)
	assert.Equal(t, PhaseRecession, phase)

	_, ok = UndeterminedPhase().Phase()
	assert.False(t, ok)
}

func TestPhaseOutcome_JSONRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		outcome PhaseOutcome
		want    string
	}{
		{"determined", DeterminedPhase(PhaseSlowdown), `{"determined":true,"phase":"slowdown"}`},
		{"undetermined", UndeterminedPhase(), `{"determined":false}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.outcome)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))

			var decoded PhaseOutcome
			require.NoError(t, json.Unmarshal(data, &decoded))
			assert.Equal(t, tt.outcome, decoded)
		})
	}
}

func TestCyclePhase_JSONEncodesName(t *testing.T) {
	data, err := json.Marshal(SignalContribution{Indicator: "gdp_growth", Weight: 2, Vote: PhaseExpansion})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"vote":"expansion"`)
}

func TestTimingBand_RiskPosture(t *testing.T) {
	tests := []struct {
		band TimingBand
		want string
	}{
		{BandStronglyBullish, "aggressive"},
		{BandBullish, "moderately aggressive"},
		{BandNeutral, "balanced"},
		{BandBearish, "moderately defensive"},
		{BandStronglyBearish, "defensive"},
		{TimingBand("unheard_of"), "balanced"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.band.RiskPosture(), "band %s", tt.band)
	}
}
