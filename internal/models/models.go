// Package models provides domain models for the alerting application.
package models

import (
	"time"
)

// Quote represents a single market quote for a symbol.
type Quote struct {
	Symbol    string
	Price     float64
	Volume    int64
	Timestamp time.Time
}

// Notification records that an alert's condition held true during a run.
// Notifications are handed back to the caller of a run; the evaluation
// core never persists them.
type Notification struct {
	CreationDate time.Time
	Alert        Alert
}

// RunRecord summarizes one completed evaluation run.
type RunRecord struct {
	ID            string
	StartedAt     time.Time
	FinishedAt    time.Time
	AlertsChecked int
	Notifications int
	Errors        int
}
