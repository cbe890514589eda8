package model

import (
	"errors"
	"fmt"
)

// ErrNoData is returned when a ticker has no usable observations
var ErrNoData = errors.New("no usable data")

// ConfigurationError means required inputs (files, columns, settings) are missing.
// It is fatal for the stage that raised it.
type ConfigurationError struct {
	Stage string
	Err   error
}

func (e *ConfigurationError) Error() string {
	return "configuration error in " + e.Stage + ": " + e.Err.Error()
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// InsufficientHistoryError marks a ticker that cannot complete indicator warm-up
type InsufficientHistoryError struct {
	Ticker string
	Bars   int
	Need   int
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("%s: insufficient history (%d bars, need %d)", e.Ticker, e.Bars, e.Need)
}

// ComputationError marks a numerically degenerate metric, reported as null
type ComputationError struct {
	Metric string
	Err    error
}

func (e *ComputationError) Error() string {
	return e.Metric + ": " + e.Err.Error()
}

func (e *ComputationError) Unwrap() error {
	return e.Err
}

// TickerError isolates a failure to one ticker; the batch continues
type TickerError struct {
	Ticker string
	Stage  string
	Err    error
}

func (e *TickerError) Error() string {
	return e.Stage + " " + e.Ticker + ": " + e.Err.Error()
}

func (e *TickerError) Unwrap() error {
	return e.Err
}

// IsConfigurationError reports whether err is fatal configuration trouble
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
