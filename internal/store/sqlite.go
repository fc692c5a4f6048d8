package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	apperrors "stock-alerter/internal/errors"
	"stock-alerter/internal/models"
)

// SQLiteStore implements AlertStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-based alert store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Alerts table
	CREATE TABLE IF NOT EXISTS alerts (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		expression TEXT NOT NULL,
		active INTEGER DEFAULT 1,
		send_email INTEGER DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Run log table
	CREATE TABLE IF NOT EXISTS run_log (
		id TEXT PRIMARY KEY,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL,
		alerts_checked INTEGER NOT NULL,
		notifications INTEGER NOT NULL,
		errors INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_alerts_active ON alerts(active);
	CREATE INDEX IF NOT EXISTS idx_run_log_started ON run_log(started_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetAlerts retrieves alerts in creation order, optionally restricted
// to active ones.
func (s *SQLiteStore) GetAlerts(ctx context.Context, onlyActive bool) ([]models.Alert, error) {
	query := `
		SELECT id, name, description, expression, active, send_email, created_at, updated_at
		FROM alerts
	`
	if onlyActive {
		query += " WHERE active = 1"
	}
	query += " ORDER BY created_at ASC, id ASC"

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, alert)
	}
	return alerts, rows.Err()
}

// FindByID retrieves a single alert, or nil when no alert matches.
func (s *SQLiteStore) FindByID(ctx context.Context, id string) (*models.Alert, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, expression, active, send_email, created_at, updated_at
		FROM alerts WHERE id = ?
	`, id)

	alert, err := scanAlert(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan alert: %w", err)
	}
	return &alert, nil
}

// Save inserts a new alert.
func (s *SQLiteStore) Save(ctx context.Context, alert *models.Alert) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO alerts (id, name, description, expression, active, send_email, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, alert.ID, alert.Name, alert.Description, alert.Expression,
		boolToInt(alert.Active), boolToInt(alert.SendEmail), alert.CreatedAt, alert.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save alert: %w", err)
	}
	return nil
}

// Update rewrites an existing alert.
func (s *SQLiteStore) Update(ctx context.Context, alert *models.Alert) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE alerts
		SET name = ?, description = ?, expression = ?, active = ?, send_email = ?, updated_at = ?
		WHERE id = ?
	`, alert.Name, alert.Description, alert.Expression,
		boolToInt(alert.Active), boolToInt(alert.SendEmail), time.Now(), alert.ID)
	if err != nil {
		return fmt.Errorf("failed to update alert: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update alert: %w", err)
	}
	if rows == 0 {
		return apperrors.ErrAlertNotFound
	}
	return nil
}

// Delete removes an alert by ID.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM alerts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete alert: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete alert: %w", err)
	}
	if rows == 0 {
		return apperrors.ErrAlertNotFound
	}
	return nil
}

// LogRun records the outcome of one evaluation run.
func (s *SQLiteStore) LogRun(ctx context.Context, record *models.RunRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO run_log (id, started_at, finished_at, alerts_checked, notifications, errors)
		VALUES (?, ?, ?, ?, ?, ?)
	`, record.ID, record.StartedAt, record.FinishedAt,
		record.AlertsChecked, record.Notifications, record.Errors)
	if err != nil {
		return fmt.Errorf("failed to log run: %w", err)
	}
	return nil
}

// GetRecentRuns retrieves the most recent run records, newest first.
func (s *SQLiteStore) GetRecentRuns(ctx context.Context, limit int) ([]models.RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, alerts_checked, notifications, errors
		FROM run_log ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query run log: %w", err)
	}
	defer rows.Close()

	var records []models.RunRecord
	for rows.Next() {
		var r models.RunRecord
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt,
			&r.AlertsChecked, &r.Notifications, &r.Errors); err != nil {
			return nil, fmt.Errorf("failed to scan run record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// scanner is implemented by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanAlert(row scanner) (models.Alert, error) {
	var a models.Alert
	var active, sendEmail int
	err := row.Scan(&a.ID, &a.Name, &a.Description, &a.Expression,
		&active, &sendEmail, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return models.Alert{}, err
	}
	a.Active = active != 0
	a.SendEmail = sendEmail != 0
	return a, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
