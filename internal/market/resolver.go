package market

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	apperrors "stock-alerter/internal/errors"
	"stock-alerter/internal/expr"
	"stock-alerter/internal/indicators"
	"stock-alerter/internal/models"
)

// QuoteResolver resolves parsed operands to numeric values using a
// market-data provider. It keeps a per-run cache of quote lookups so
// that several operands referencing the same symbol share one fetch.
//
// A resolver is built fresh for each evaluation run and is not safe
// for concurrent use.
type QuoteResolver struct {
	provider Provider
	logger   zerolog.Logger

	quotes    map[string]models.Quote
	histories map[string][]models.Quote
}

// NewQuoteResolver creates a resolver bound to a provider.
func NewQuoteResolver(provider Provider, logger zerolog.Logger) *QuoteResolver {
	return &QuoteResolver{
		provider:  provider,
		logger:    logger,
		quotes:    make(map[string]models.Quote),
		histories: make(map[string][]models.Quote),
	}
}

// Resolve returns the numeric value of an operand, fetching market
// data as needed.
func (r *QuoteResolver) Resolve(ctx context.Context, op expr.Operand) (float64, error) {
	switch op.Kind {
	case expr.KindConstant:
		return op.Value, nil

	case expr.KindPrice:
		q, err := r.latestQuote(ctx, op.Symbol)
		if err != nil {
			return 0, apperrors.NewDataUnavailableError("quote", op.Symbol, "no quote for symbol", err)
		}
		return q.Price, nil

	case expr.KindVolume:
		q, err := r.latestQuote(ctx, op.Symbol)
		if err != nil {
			return 0, apperrors.NewDataUnavailableError("quote", op.Symbol, "no quote for symbol", err)
		}
		return float64(q.Volume), nil

	case expr.KindEMA:
		return r.indicatorValue(ctx, op, indicators.NewEMA(op.Period))

	case expr.KindRSI:
		return r.indicatorValue(ctx, op, indicators.NewRSI(op.Period))

	default:
		return 0, apperrors.NewEvaluationError(op.String(), "unknown operand kind", nil)
	}
}

// indicator is the subset of the indicator API the resolver needs.
type indicator interface {
	Name() string
	Calculate(quotes []models.Quote) (float64, error)
}

// indicatorValue applies an indicator to the symbol's history. A
// failed history lookup is treated as an empty history; the indicator
// then decides whether that is fatal.
func (r *QuoteResolver) indicatorValue(ctx context.Context, op expr.Operand, ind indicator) (float64, error) {
	history, err := r.history(ctx, op.Symbol)
	if err != nil {
		r.logger.Warn().Err(err).Str("symbol", op.Symbol).Msg("History unavailable, treating as empty")
		history = nil
	}

	value, err := ind.Calculate(history)
	if err != nil {
		if errors.Is(err, indicators.ErrInsufficientData) {
			return 0, apperrors.NewDataUnavailableError(ind.Name(), op.Symbol, "insufficient history", err)
		}
		return 0, apperrors.NewEvaluationError(op.String(), "indicator calculation failed", err)
	}
	return value, nil
}

func (r *QuoteResolver) latestQuote(ctx context.Context, symbol string) (models.Quote, error) {
	if q, ok := r.quotes[symbol]; ok {
		return q, nil
	}
	q, err := r.provider.GetLatestQuote(ctx, symbol)
	if err != nil {
		return models.Quote{}, err
	}
	r.quotes[symbol] = q
	return q, nil
}

func (r *QuoteResolver) history(ctx context.Context, symbol string) ([]models.Quote, error) {
	if h, ok := r.histories[symbol]; ok {
		return h, nil
	}
	h, err := r.provider.GetHistory(ctx, symbol)
	if err != nil {
		return nil, err
	}
	r.histories[symbol] = h
	return h, nil
}
