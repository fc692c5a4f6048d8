// Package alert implements alert management and the per-run evaluation
// orchestrator.
package alert

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	apperrors "stock-alerter/internal/errors"
	"stock-alerter/internal/expr"
	"stock-alerter/internal/logging"
	"stock-alerter/internal/market"
	"stock-alerter/internal/models"
	"stock-alerter/internal/notify"
	"stock-alerter/internal/store"
)

// Service evaluates stored alerts against market data and manages the
// alert records themselves. Runs are mutually exclusive: RunOnce
// serializes overlapping invocations, TryRunOnce skips them.
type Service struct {
	store    store.AlertStore
	provider market.Provider
	notifier notify.Notifier
	logger   zerolog.Logger

	runMu sync.Mutex
}

// NewService creates an alert service.
func NewService(alertStore store.AlertStore, provider market.Provider, notifier notify.Notifier, logger zerolog.Logger) *Service {
	return &Service{
		store:    alertStore,
		provider: provider,
		notifier: notifier,
		logger:   logger,
	}
}

// RunResult is the outcome of one evaluation run. EvalErrors and
// SendErrors are keyed by alert ID; an alert appears in EvalErrors
// when its expression failed to parse or evaluate, and in SendErrors
// when its email could not be dispatched.
type RunResult struct {
	RunID         string
	StartedAt     time.Time
	FinishedAt    time.Time
	AlertsChecked int
	Notifications []models.Notification
	EvalErrors    map[string]error
	SendErrors    map[string]error
}

// ErrorCount returns the total number of failures in the run.
func (r *RunResult) ErrorCount() int {
	return len(r.EvalErrors) + len(r.SendErrors)
}

// RunOnce performs one evaluation pass over all active alerts. A
// concurrent invocation blocks until the in-flight run finishes. The
// returned error is non-nil only when the run could not start at all
// (alerts could not be fetched); per-alert failures are reported in
// the result.
func (s *Service) RunOnce(ctx context.Context) (*RunResult, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.run(ctx)
}

// TryRunOnce performs one evaluation pass unless a run is already in
// flight, in which case it returns ErrRunInProgress. Scheduled ticks
// use this so a slow run makes the next tick skip instead of queue.
func (s *Service) TryRunOnce(ctx context.Context) (*RunResult, error) {
	if !s.runMu.TryLock() {
		return nil, apperrors.ErrRunInProgress
	}
	defer s.runMu.Unlock()
	return s.run(ctx)
}

func (s *Service) run(ctx context.Context) (*RunResult, error) {
	result := &RunResult{
		RunID:      uuid.NewString(),
		StartedAt:  time.Now(),
		EvalErrors: make(map[string]error),
		SendErrors: make(map[string]error),
	}

	alerts, err := s.store.GetAlerts(ctx, true)
	if err != nil {
		return nil, apperrors.Wrap(err, "fetching active alerts")
	}

	// Operator trees and resolved values live only for this run; the
	// resolver's quote cache is discarded with it.
	resolver := market.NewQuoteResolver(s.provider, s.logger)

	for _, alert := range alerts {
		result.AlertsChecked++

		triggered, err := s.evaluate(ctx, alert, resolver)
		if err != nil {
			// One alert's failure never aborts the run.
			result.EvalErrors[alert.ID] = err
			logging.LogAlertFailed(s.logger, alert.ID, alert.Name, err)
			continue
		}
		if !triggered {
			continue
		}

		result.Notifications = append(result.Notifications, models.Notification{
			CreationDate: time.Now(),
			Alert:        alert,
		})
		logging.LogAlertTriggered(s.logger, alert.ID, alert.Name, alert.Expression)
	}

	s.dispatchEmails(ctx, result)

	result.FinishedAt = time.Now()
	logging.LogRun(s.logger, result.RunID, result.AlertsChecked,
		len(result.Notifications), result.ErrorCount(), result.FinishedAt.Sub(result.StartedAt))

	if err := s.store.LogRun(ctx, &models.RunRecord{
		ID:            result.RunID,
		StartedAt:     result.StartedAt,
		FinishedAt:    result.FinishedAt,
		AlertsChecked: result.AlertsChecked,
		Notifications: len(result.Notifications),
		Errors:        result.ErrorCount(),
	}); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to persist run record")
	}

	return result, nil
}

// evaluate parses and evaluates a single alert expression.
func (s *Service) evaluate(ctx context.Context, alert models.Alert, resolver expr.Resolver) (bool, error) {
	tree, err := expr.Parse(alert.Expression)
	if err != nil {
		return false, err
	}
	return tree.Evaluate(ctx, resolver)
}

// dispatchEmails sends an email for every notification whose alert
// asks for one. A failing send is recorded and the remaining
// notifications still go out.
func (s *Service) dispatchEmails(ctx context.Context, result *RunResult) {
	if s.notifier == nil {
		return
	}
	for _, notification := range result.Notifications {
		alert := notification.Alert
		if !alert.SendEmail {
			continue
		}
		if err := s.notifier.Send(ctx, alert.Name, alert.Description); err != nil {
			result.SendErrors[alert.ID] = err
			s.logger.Error().Err(err).
				Str("alert_id", alert.ID).
				Str("alert", alert.Name).
				Msg("Notification dispatch failed")
		}
	}
}

// GetAlerts lists alerts, optionally restricted to active ones.
func (s *Service) GetAlerts(ctx context.Context, onlyActive bool) ([]models.Alert, error) {
	return s.store.GetAlerts(ctx, onlyActive)
}

// FindAlert retrieves one alert by ID, or nil when it does not exist.
func (s *Service) FindAlert(ctx context.Context, id string) (*models.Alert, error) {
	return s.store.FindByID(ctx, id)
}

// CreateAlert validates and persists a new alert. The expression must
// parse; storing an unparseable formula would make the alert fail on
// every run.
func (s *Service) CreateAlert(ctx context.Context, name, description, expression string, sendEmail bool) (*models.Alert, error) {
	if _, err := expr.Parse(expression); err != nil {
		return nil, err
	}

	now := time.Now()
	alert := &models.Alert{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
		Expression:  expression,
		Active:      true,
		SendEmail:   sendEmail,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Save(ctx, alert); err != nil {
		return nil, err
	}
	return alert, nil
}

// UpdateAlert validates and rewrites an existing alert.
func (s *Service) UpdateAlert(ctx context.Context, alert *models.Alert) error {
	if _, err := expr.Parse(alert.Expression); err != nil {
		return err
	}
	alert.UpdatedAt = time.Now()
	return s.store.Update(ctx, alert)
}

// SetActive toggles an alert's active flag.
func (s *Service) SetActive(ctx context.Context, id string, active bool) error {
	alert, err := s.store.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if alert == nil {
		return apperrors.ErrAlertNotFound
	}
	alert.Active = active
	alert.UpdatedAt = time.Now()
	return s.store.Update(ctx, alert)
}

// DeleteAlertByID removes an alert. Deleting an unknown ID is a no-op.
func (s *Service) DeleteAlertByID(ctx context.Context, id string) error {
	alert, err := s.store.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if alert == nil {
		return nil
	}
	return s.store.Delete(ctx, id)
}

// RecentRuns lists the most recent run records, newest first.
func (s *Service) RecentRuns(ctx context.Context, limit int) ([]models.RunRecord, error) {
	return s.store.GetRecentRuns(ctx, limit)
}
