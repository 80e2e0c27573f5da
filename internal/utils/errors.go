package utils

import (
	"errors"
	"fmt"
)

// ErrNoSignal is returned by the classifier when no indicator casts a vote.
// Callers treat it as recoverable: the assessment degrades to the
// undetermined outcome instead of failing the evaluation.
var ErrNoSignal = errors.New("no indicator signal available for classification")

// InsufficientHistoryError indicates that an indicator series does not carry
// enough observations inside the requested window to be normalized.
type InsufficientHistoryError struct {
	Indicator    string
	Observations int
	Required     int
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("indicator %q has %d observations in window, need at least %d",
		e.Indicator, e.Observations, e.Required)
}

// NewInsufficientHistoryError creates an InsufficientHistoryError for the
// named indicator.
func NewInsufficientHistoryError(indicator string, observations, required int) error {
	return &InsufficientHistoryError{
		Indicator:    indicator,
		Observations: observations,
		Required:     required,
	}
}

// MissingInputError indicates a required scalar input was absent or not
// finite. It aborts the stage that raised it.
type MissingInputError struct {
	Field string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("required input %q is missing or not finite", e.Field)
}

// NewMissingInputError creates a MissingInputError for the named field.
func NewMissingInputError(field string) error {
	return &MissingInputError{Field: field}
}

// InvalidConfigurationError indicates a malformed configuration table. It is
// raised at load time only and is fatal for startup.
type InvalidConfigurationError struct {
	Field  string
	Reason string
}

func (e *InvalidConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration %q: %s", e.Field, e.Reason)
}

// NewInvalidConfigurationError creates an InvalidConfigurationError for the
// named field.
func NewInvalidConfigurationError(field, reason string) error {
	return &InvalidConfigurationError{Field: field, Reason: reason}
}

// NewInvalidConfigurationErrorf creates an InvalidConfigurationError with a
// formatted reason.
func NewInvalidConfigurationErrorf(field, format string, args ...interface{}) error {
	return &InvalidConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// UnknownSectorError indicates a portfolio references a sector id that is
// not part of the known sector universe. The offending sector is excluded
// from alignment; the rest of the report remains valid.
type UnknownSectorError struct {
	Sector string
}

func (e *UnknownSectorError) Error() string {
	return fmt.Sprintf("sector %q is not a known sector", e.Sector)
}

// NewUnknownSectorError creates an UnknownSectorError for the given sector id.
func NewUnknownSectorError(sector string) error {
	return &UnknownSectorError{Sector: sector}
}
