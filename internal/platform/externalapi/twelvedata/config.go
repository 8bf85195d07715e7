// Package twelvedata provides a client for the Twelve Data stock market API.
package twelvedata

import (
	"fmt"
	"time"

	"market_journal/internal/platform/config"
)

// minutesPerSession は米国株の1取引日あたりの分足本数です。
const minutesPerSession = 390

// maxOutputSize is the upper bound Twelve Data accepts for outputsize.
const maxOutputSize = 5000

// Config holds configuration for the Twelve Data API client.
type Config struct {
	APIKey     string         // API key for authentication
	BaseURL    string         // Base URL for the API (e.g., "https://api.twelvedata.com")
	Timeout    time.Duration  // HTTP request timeout
	WindowDays int            // trailing window requested on every fetch
	Location   *time.Location // exchange timezone attached to returned datetimes
	RetryTimes int            // retries after the first attempt
}

// ConfigFrom converts the resolved provider settings into a client Config.
func ConfigFrom(p config.ProviderConfig, retryTimes int) (Config, error) {
	loc, err := time.LoadLocation(p.ExchangeTimezone)
	if err != nil {
		return Config{}, fmt.Errorf("load exchange timezone: %w", err)
	}
	return Config{
		APIKey:     p.APIKey,
		BaseURL:    p.BaseURL,
		Timeout:    p.Timeout,
		WindowDays: p.WindowDays,
		Location:   loc,
		RetryTimes: retryTimes,
	}, nil
}

// outputSize はウィンドウ日数分の分足本数を返します。
func (c Config) outputSize() int {
	n := c.WindowDays * minutesPerSession
	if n <= 0 {
		n = minutesPerSession
	}
	if n > maxOutputSize {
		n = maxOutputSize
	}
	return n
}

func (c Config) location() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}
