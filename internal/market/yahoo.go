package market

import (
	"context"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/quote"
	"github.com/rs/zerolog"

	apperrors "stock-alerter/internal/errors"
	"stock-alerter/internal/models"
	"stock-alerter/pkg/utils"
)

// YahooProvider fetches quotes and daily price history from Yahoo
// Finance. Transient fetch failures are retried with exponential
// backoff before surfacing an error.
type YahooProvider struct {
	historyDays int
	retry       utils.RetryConfig
	logger      zerolog.Logger
}

// NewYahooProvider creates a Yahoo Finance provider. historyDays
// bounds the daily-bar window fetched for indicator calculations.
func NewYahooProvider(historyDays int, logger zerolog.Logger) *YahooProvider {
	if historyDays <= 0 {
		historyDays = 200
	}
	return &YahooProvider{
		historyDays: historyDays,
		retry:       utils.DefaultRetryConfig(),
		logger:      logger,
	}
}

// GetLatestQuote fetches the most recent quote for a symbol.
func (p *YahooProvider) GetLatestQuote(ctx context.Context, symbol string) (models.Quote, error) {
	var result models.Quote
	err := utils.Retry(ctx, p.retry, func() error {
		q, err := quote.Get(symbol)
		if err != nil {
			return err
		}
		if q == nil {
			return apperrors.ErrSymbolNotFound
		}
		result = models.Quote{
			Symbol:    symbol,
			Price:     q.RegularMarketPrice,
			Volume:    int64(q.RegularMarketVolume),
			Timestamp: time.Unix(int64(q.RegularMarketTime), 0),
		}
		return nil
	})
	if err != nil {
		p.logger.Warn().Err(err).Str("symbol", symbol).Msg("Quote lookup failed")
		return models.Quote{}, apperrors.Wrapf(err, "fetching quote for %s", symbol)
	}
	return result, nil
}

// GetHistory fetches the daily price history for a symbol,
// chronological, oldest first.
func (p *YahooProvider) GetHistory(ctx context.Context, symbol string) ([]models.Quote, error) {
	end := time.Now()
	start := end.AddDate(0, 0, -p.historyDays)

	var result []models.Quote
	err := utils.Retry(ctx, p.retry, func() error {
		params := &chart.Params{
			Symbol:   symbol,
			Start:    datetime.New(&start),
			End:      datetime.New(&end),
			Interval: datetime.OneDay,
		}

		iter := chart.Get(params)
		quotes := make([]models.Quote, 0, p.historyDays)
		for iter.Next() {
			bar := iter.Bar()
			quotes = append(quotes, models.Quote{
				Symbol:    symbol,
				Price:     bar.Close.InexactFloat64(),
				Volume:    int64(bar.Volume),
				Timestamp: time.Unix(int64(bar.Timestamp), 0),
			})
		}
		if err := iter.Err(); err != nil {
			return err
		}
		result = quotes
		return nil
	})
	if err != nil {
		p.logger.Warn().Err(err).Str("symbol", symbol).Msg("History lookup failed")
		return nil, apperrors.Wrapf(err, "fetching history for %s", symbol)
	}
	return result, nil
}
