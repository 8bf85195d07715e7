// Package entity defines the domain models for the journal feature.
package entity

import (
	"fmt"
	"strings"
	"time"
)

const (
	// ActionDateTimeLayout is the stored form of a trade's action time.
	// It sorts lexically in time order.
	ActionDateTimeLayout = "2006-01-02 15:04:05"
	// DayLayout is the calendar day used by list filters.
	DayLayout = "2006-01-02"
	// AllSymbols disables the symbol filter of a list query (case-insensitive).
	AllSymbols = "all"
)

// actionDateTimeInputs are accepted by ParseActionDateTime, in order.
var actionDateTimeInputs = []string{
	ActionDateTimeLayout,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	time.RFC3339,
}

// Trade is one manually journaled trade.
type Trade struct {
	ID             uint
	Symbol         string
	Name           string    // human label, unique together with ActionDateTime
	Action         string    // buy / sell
	ActionDateTime time.Time // wall clock as entered, held in time.UTC
	ActionPrice    float64
	Size           int64 // direction is carried by Action, not by sign
	Fee            float64
	StopLoss       *float64 // nil when not set
	ExitTarget     *float64 // nil when not set
	Reason         string
	MentalState    string
	Description    string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TradeFilter scopes a journal listing. An empty Day means yesterday.
type TradeFilter struct {
	Symbol string
	Day    string
}

// AnySymbol reports whether the filter matches every symbol.
func (f TradeFilter) AnySymbol() bool {
	s := strings.TrimSpace(f.Symbol)
	return s == "" || strings.EqualFold(s, AllSymbols)
}

// ParseActionDateTime parses a submitted action time. The wall clock is kept
// as entered; an explicit offset in RFC 3339 input is dropped.
func ParseActionDateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range actionDateTimeInputs {
		t, err := time.Parse(layout, s)
		if err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized action_datetime %q", s)
}
