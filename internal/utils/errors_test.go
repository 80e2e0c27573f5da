package utils

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrNoSignal_SurvivesWrapping(t *testing.T) {
	wrapped := fmt.Errorf("classify: %w", ErrNoSignal)
	assert.ErrorIs(t, wrapped, ErrNoSignal)
}

func TestInsufficientHistoryError(t *testing.T) {
	err := NewInsufficientHistoryError("gdp_growth", 5, 12)

	var insufficient *InsufficientHistoryError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, "gdp_growth", insufficient.Indicator)
	assert.Contains(t, err.Error(), "gdp_growth")
	assert.Contains(t, err.Error(), "12")
}

func TestMissingInputError(t *testing.T) {
	err := fmt.Errorf("score: %w", NewMissingInputError("valuation_premium"))

	var missing *MissingInputError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "valuation_premium", missing.Field)
}

func TestInvalidConfigurationError(t *testing.T) {
	err := NewInvalidConfigurationErrorf("engine.scorer", "weights sum to %v, want 1", 0.9)

	var invalid *InvalidConfigurationError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "engine.scorer", invalid.Field)
	assert.Contains(t, invalid.Reason, "0.9")
}

func TestUnknownSectorError_Joined(t *testing.T) {
	joined := errors.Join(
		NewUnknownSectorError("crypto"),
		NewUnknownSectorError("wine"),
	)

	var unknown *UnknownSectorError
	require.ErrorAs(t, joined, &unknown)
	assert.Contains(t, joined.Error(), "crypto")
	assert.Contains(t, joined.Error(), "wine")
}
