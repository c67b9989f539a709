package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is classification of the typed errors below.
var (
	// ErrConfigValidation marks a malformed configuration. Fatal before evaluation.
	ErrConfigValidation = errors.New("config validation failed")

	// ErrDataShape marks a series that does not match the evaluation window.
	// Fatal for one evaluation unit only.
	ErrDataShape = errors.New("data shape mismatch")

	// ErrInsufficientData marks a window without enough observations to score.
	ErrInsufficientData = errors.New("insufficient data")
)

// ConfigValidationError describes a configuration field that is missing or invalid.
type ConfigValidationError struct {
	ConfigID string
	Field    string
	Reason   string
	Err      error
}

// Error returns the configuration failure with its field context.
func (e *ConfigValidationError) Error() string {
	msg := "config"
	if e.ConfigID != "" {
		msg += " " + e.ConfigID
	}
	if e.Field != "" {
		msg += " field " + e.Field
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the underlying cause.
func (e *ConfigValidationError) Unwrap() error { return e.Err }

// Is matches ErrConfigValidation.
func (e *ConfigValidationError) Is(target error) bool { return target == ErrConfigValidation }

// DataShapeError describes a series that cannot be evaluated as given.
type DataShapeError struct {
	ConfigID string
	Series   string
	Reason   string
}

// Error returns the shape violation.
func (e *DataShapeError) Error() string {
	if e.Series != "" {
		return fmt.Sprintf("config %s series %s: %s", e.ConfigID, e.Series, e.Reason)
	}
	return fmt.Sprintf("config %s: %s", e.ConfigID, e.Reason)
}

// Is matches ErrDataShape.
func (e *DataShapeError) Is(target error) bool { return target == ErrDataShape }

// InsufficientDataError reports that too few days carried observations.
// Evaluators return it; the dispatcher turns it into an insufficient_data result.
type InsufficientDataError struct {
	ConfigID      string
	Series        string
	AvailableDays int
	RequiredDays  int
}

// Error returns the coverage shortfall.
func (e *InsufficientDataError) Error() string {
	name := e.Series
	if name == "" {
		name = "primary"
	}
	return fmt.Sprintf("config %s series %s: %d observed days, need %d",
		e.ConfigID, name, e.AvailableDays, e.RequiredDays)
}

// Is matches ErrInsufficientData.
func (e *InsufficientDataError) Is(target error) bool { return target == ErrInsufficientData }

// configError is a shorthand used throughout parsing.
func configError(configID, field, reason string, cause error) error {
	return &ConfigValidationError{ConfigID: configID, Field: field, Reason: reason, Err: cause}
}
