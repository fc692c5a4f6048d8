package indicators

import (
	"fmt"

	"stock-alerter/internal/models"
)

// RSI calculates the Relative Strength Index over a quote history.
type RSI struct {
	period int
}

// NewRSI creates a new RSI indicator.
func NewRSI(period int) *RSI {
	return &RSI{period: period}
}

func (r *RSI) Name() string {
	return fmt.Sprintf("RSI_%d", r.period)
}

func (r *RSI) Period() int {
	return r.period
}

// Calculate reduces the history to the latest RSI value using simple
// averages of gains and losses over the last `period` price deltas.
// At least period+1 quotes are required.
func (r *RSI) Calculate(quotes []models.Quote) (float64, error) {
	if r.period <= 0 {
		return 0, ErrInvalidPeriod
	}
	if len(quotes) < r.period+1 {
		return 0, ErrInsufficientData
	}

	changes := deltas(prices(quotes))
	window := changes[len(changes)-r.period:]

	var gains, losses float64
	for _, change := range window {
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}
	avgGain := gains / float64(r.period)
	avgLoss := losses / float64(r.period)

	switch {
	case avgLoss == 0 && avgGain == 0:
		// No price movement in the window: neutral.
		return 50, nil
	case avgLoss == 0:
		return 100, nil
	}

	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), nil
}
