package models

import "time"

// Alert represents a stored alert condition over market data.
// Expression holds the textual formula, e.g.
// "EMA(50,AAPL)>EMA(200,AAPL)&&RSI(14,AAPL)<30".
type Alert struct {
	ID          string
	Name        string
	Description string
	Expression  string
	Active      bool
	SendEmail   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
