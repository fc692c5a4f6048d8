// Package indicators implements the numeric indicator formulas that
// alert expressions can reference. Each indicator reduces an ordered,
// chronological quote history to a single value.
package indicators

import (
	"errors"

	"stock-alerter/internal/models"
)

var (
	// ErrInsufficientData is returned when the history is too short for
	// the requested calculation.
	ErrInsufficientData = errors.New("insufficient data for calculation")
	// ErrInvalidPeriod is returned when the period is invalid.
	ErrInvalidPeriod = errors.New("invalid period")
)

// sum calculates the sum of a slice of float64.
func sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}

// mean calculates the arithmetic mean of a slice of float64.
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return sum(values) / float64(len(values))
}

// prices extracts the price series from a quote history.
func prices(quotes []models.Quote) []float64 {
	series := make([]float64, len(quotes))
	for i, q := range quotes {
		series[i] = q.Price
	}
	return series
}

// deltas calculates price changes between consecutive quotes.
func deltas(series []float64) []float64 {
	if len(series) < 2 {
		return nil
	}
	changes := make([]float64, len(series)-1)
	for i := 1; i < len(series); i++ {
		changes[i-1] = series[i] - series[i-1]
	}
	return changes
}
