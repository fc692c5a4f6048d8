// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"

	"stock-alerter/internal/models"
)

// AlertStore defines the persistence interface for alerts and run
// records. GetAlerts returns alerts in creation order; with onlyActive
// set, inactive alerts are excluded by the query itself.
type AlertStore interface {
	GetAlerts(ctx context.Context, onlyActive bool) ([]models.Alert, error)
	FindByID(ctx context.Context, id string) (*models.Alert, error)
	Save(ctx context.Context, alert *models.Alert) error
	Update(ctx context.Context, alert *models.Alert) error
	Delete(ctx context.Context, id string) error

	// Run log
	LogRun(ctx context.Context, record *models.RunRecord) error
	GetRecentRuns(ctx context.Context, limit int) ([]models.RunRecord, error)

	// Lifecycle
	Close() error
}
