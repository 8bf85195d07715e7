// Package domain holds the journal sentinel errors.
package domain

import "errors"

var (
	// ErrValidation wraps a rejected submission or filter.
	ErrValidation = errors.New("validation failed")
	// ErrTradeNotFound is returned when no trade has the given id.
	ErrTradeNotFound = errors.New("trade not found")
	// ErrDuplicateTrade is returned on a (name, action_datetime) collision.
	ErrDuplicateTrade = errors.New("trade already recorded for this name and time")
	// ErrStorage hides a logged storage failure from callers.
	ErrStorage = errors.New("journal storage failure")
)
