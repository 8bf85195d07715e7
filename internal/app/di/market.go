// Package di provides dependency injection factories for creating application components.
package di

import (
	"fmt"
	"time"

	"market_journal/internal/feature/marketdata/usecase"
	"market_journal/internal/platform/config"
	"market_journal/internal/platform/externalapi/finnhub"
	"market_journal/internal/platform/externalapi/twelvedata"
	infrahttp "market_journal/internal/platform/http"
)

// NewMarket creates the configured market-data provider with its HTTP client.
func NewMarket(cfg *config.Config) (usecase.MarketRepository, error) {
	httpClient := infrahttp.NewHTTPClient(cfg.Provider.Timeout)

	switch cfg.Provider.Name {
	case "finnhub":
		loc, err := time.LoadLocation(cfg.Provider.ExchangeTimezone)
		if err != nil {
			return nil, fmt.Errorf("load exchange timezone: %w", err)
		}
		return finnhub.NewMarket(finnhub.Config{
			APIKey:     cfg.Provider.APIKey,
			WindowDays: cfg.Provider.WindowDays,
			Location:   loc,
			RetryTimes: cfg.Running.RetryTimes,
		}, httpClient), nil
	case "twelvedata":
		tdCfg, err := twelvedata.ConfigFrom(cfg.Provider, cfg.Running.RetryTimes)
		if err != nil {
			return nil, err
		}
		return twelvedata.NewTwelveDataMarket(tdCfg, httpClient), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider.Name)
	}
}
