// Package market provides market-data access and operand resolution
// for alert evaluation.
package market

import (
	"context"

	"stock-alerter/internal/models"
)

// Provider supplies quote data for alert evaluation. GetHistory returns
// a chronological history, oldest first; implementations return an
// error (not a partial result) when the lookup fails. GetLatestQuote
// fails when the symbol is unknown or the provider is unreachable.
type Provider interface {
	GetLatestQuote(ctx context.Context, symbol string) (models.Quote, error)
	GetHistory(ctx context.Context, symbol string) ([]models.Quote, error)
}
