package market

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	apperrors "stock-alerter/internal/errors"
	"stock-alerter/internal/expr"
	"stock-alerter/internal/models"
)

// fakeProvider serves canned quotes and histories and counts lookups.
type fakeProvider struct {
	quotes       map[string]models.Quote
	histories    map[string][]models.Quote
	quoteCalls   int
	historyCalls int
}

func (f *fakeProvider) GetLatestQuote(_ context.Context, symbol string) (models.Quote, error) {
	f.quoteCalls++
	q, ok := f.quotes[symbol]
	if !ok {
		return models.Quote{}, apperrors.ErrSymbolNotFound
	}
	return q, nil
}

func (f *fakeProvider) GetHistory(_ context.Context, symbol string) ([]models.Quote, error) {
	f.historyCalls++
	h, ok := f.histories[symbol]
	if !ok {
		return nil, errors.New("provider unavailable")
	}
	return h, nil
}

func priceHistory(symbol string, prices ...float64) []models.Quote {
	quotes := make([]models.Quote, len(prices))
	for i, p := range prices {
		quotes[i] = models.Quote{Symbol: symbol, Price: p}
	}
	return quotes
}

func TestResolveConstant(t *testing.T) {
	r := NewQuoteResolver(&fakeProvider{}, zerolog.Nop())
	got, err := r.Resolve(context.Background(), expr.Operand{Kind: expr.KindConstant, Value: 42.5})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if got != 42.5 {
		t.Errorf("Resolve = %v, want 42.5", got)
	}
}

func TestResolvePriceAndVolume(t *testing.T) {
	provider := &fakeProvider{quotes: map[string]models.Quote{
		"AAPL": {Symbol: "AAPL", Price: 187.3, Volume: 55_000_000},
	}}
	r := NewQuoteResolver(provider, zerolog.Nop())

	price, err := r.Resolve(context.Background(), expr.Operand{Kind: expr.KindPrice, Symbol: "AAPL"})
	if err != nil {
		t.Fatalf("Resolve price returned error: %v", err)
	}
	if price != 187.3 {
		t.Errorf("price = %v, want 187.3", price)
	}

	volume, err := r.Resolve(context.Background(), expr.Operand{Kind: expr.KindVolume, Symbol: "AAPL"})
	if err != nil {
		t.Fatalf("Resolve volume returned error: %v", err)
	}
	if volume != 55_000_000 {
		t.Errorf("volume = %v, want 55000000", volume)
	}

	// Both lookups hit the same symbol: the second resolves from cache.
	if provider.quoteCalls != 1 {
		t.Errorf("quoteCalls = %d, want 1", provider.quoteCalls)
	}
}

func TestResolveUnknownSymbol(t *testing.T) {
	r := NewQuoteResolver(&fakeProvider{}, zerolog.Nop())
	_, err := r.Resolve(context.Background(), expr.Operand{Kind: expr.KindPrice, Symbol: "NOPE"})
	if !apperrors.IsDataUnavailable(err) {
		t.Fatalf("expected DataUnavailableError, got %v", err)
	}
}

func TestResolveEMA(t *testing.T) {
	provider := &fakeProvider{histories: map[string][]models.Quote{
		"AAPL": priceHistory("AAPL", 10, 11, 12, 13, 14),
	}}
	r := NewQuoteResolver(provider, zerolog.Nop())

	got, err := r.Resolve(context.Background(), expr.Operand{Kind: expr.KindEMA, Period: 3, Symbol: "AAPL"})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if got != 13 {
		t.Errorf("EMA = %v, want 13", got)
	}
}

func TestResolveRSI(t *testing.T) {
	provider := &fakeProvider{histories: map[string][]models.Quote{
		"AAPL": priceHistory("AAPL", 44, 44.5, 45, 45.5, 45),
	}}
	r := NewQuoteResolver(provider, zerolog.Nop())

	got, err := r.Resolve(context.Background(), expr.Operand{Kind: expr.KindRSI, Period: 4, Symbol: "AAPL"})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if got != 75 {
		t.Errorf("RSI = %v, want 75", got)
	}
}

func TestResolveIndicatorWithFailedHistory(t *testing.T) {
	// A failed history lookup becomes an empty history; the indicator
	// then reports insufficient data.
	r := NewQuoteResolver(&fakeProvider{}, zerolog.Nop())
	_, err := r.Resolve(context.Background(), expr.Operand{Kind: expr.KindEMA, Period: 3, Symbol: "AAPL"})
	if !apperrors.IsDataUnavailable(err) {
		t.Fatalf("expected DataUnavailableError, got %v", err)
	}
}

func TestResolveHistoryCachedAcrossOperands(t *testing.T) {
	provider := &fakeProvider{histories: map[string][]models.Quote{
		"AAPL": priceHistory("AAPL", 10, 11, 12, 13, 14, 15, 16),
	}}
	r := NewQuoteResolver(provider, zerolog.Nop())

	for _, op := range []expr.Operand{
		{Kind: expr.KindEMA, Period: 3, Symbol: "AAPL"},
		{Kind: expr.KindEMA, Period: 5, Symbol: "AAPL"},
		{Kind: expr.KindRSI, Period: 4, Symbol: "AAPL"},
	} {
		if _, err := r.Resolve(context.Background(), op); err != nil {
			t.Fatalf("Resolve(%v) returned error: %v", op, err)
		}
	}
	if provider.historyCalls != 1 {
		t.Errorf("historyCalls = %d, want 1", provider.historyCalls)
	}
}
