// Package domain holds the marketdata sentinel errors.
package domain

import "errors"

var (
	// ErrNoData is returned when the provider has no bars for a symbol.
	ErrNoData = errors.New("no data returned for symbol")
	// ErrStorage hides a logged storage failure from callers.
	ErrStorage = errors.New("market data storage failure")
	// ErrInvalidQuery is returned when symbol or date is missing or malformed.
	ErrInvalidQuery = errors.New("invalid market data query")
)
