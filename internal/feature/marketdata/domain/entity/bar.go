// Package entity defines the domain models for the marketdata feature.
package entity

import "time"

const (
	// TradeTimeLayout is the persisted text form of a bar timestamp. The
	// numeric offset keeps the provider's timezone exactly.
	TradeTimeLayout = "2006-01-02 15:04:05-0700"
	// TradeDayLayout is the persisted calendar day.
	TradeDayLayout = "2006-01-02"
)

// Bar is one per-minute OHLCV observation for a symbol.
type Bar struct {
	Symbol    string    // Ticker symbol (e.g., "AAPL", "SPY")
	TradeTime time.Time // Minute timestamp, carrying the provider's offset
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
}

// TradeDay returns the calendar day of TradeTime in its own offset.
func (b Bar) TradeDay() string {
	return b.TradeTime.Format(TradeDayLayout)
}
