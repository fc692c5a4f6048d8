package indicators

import (
	"fmt"

	"stock-alerter/internal/models"
)

// EMA calculates the Exponential Moving Average over a quote history.
type EMA struct {
	period int
}

// NewEMA creates a new EMA indicator.
func NewEMA(period int) *EMA {
	return &EMA{period: period}
}

func (e *EMA) Name() string {
	return fmt.Sprintf("EMA_%d", e.period)
}

func (e *EMA) Period() int {
	return e.period
}

// Calculate reduces the history to the latest EMA value. The seed is
// the simple average of the first `period` prices (or of all prices if
// fewer exist); each later price folds in with multiplier 2/(period+1).
func (e *EMA) Calculate(quotes []models.Quote) (float64, error) {
	if e.period <= 0 {
		return 0, ErrInvalidPeriod
	}
	if len(quotes) == 0 {
		return 0, ErrInsufficientData
	}

	series := prices(quotes)
	seedLen := e.period
	if len(series) < seedLen {
		seedLen = len(series)
	}

	multiplier := 2.0 / float64(e.period+1)
	ema := mean(series[:seedLen])
	for _, price := range series[seedLen:] {
		ema = price*multiplier + ema*(1-multiplier)
	}
	return ema, nil
}
