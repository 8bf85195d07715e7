// Package finnhub は Finnhub の株価キャンドルAPIを MarketRepository として提供します。
package finnhub

import (
	"context"
	"fmt"
	"net/http"
	"time"

	finnhub "github.com/Finnhub-Stock-API/finnhub-go"
	"github.com/cenkalti/backoff/v4"

	"market_journal/internal/feature/marketdata/domain/entity"
	"market_journal/internal/feature/marketdata/usecase"
	"market_journal/internal/platform/externalapi/retry"
)

const (
	providerName     = "finnhub"
	minuteResolution = "1"
	statusNoData     = "no_data"
)

// CandleFetcher は StockCandles 呼び出しのシグネチャです。
type CandleFetcher func(ctx context.Context, symbol, resolution string, from, to int64) (finnhub.StockCandles, *http.Response, error)

// Config holds configuration for the Finnhub client.
type Config struct {
	APIKey     string
	WindowDays int
	Location   *time.Location
	RetryTimes int
}

// Market は Finnhub から分足を取得する MarketRepository 実装です。
type Market struct {
	cfg    Config
	fetch  CandleFetcher
	now    func() time.Time
	policy retry.Policy
}

var _ usecase.MarketRepository = (*Market)(nil)

// NewMarket は finnhub-go の DefaultApi を使う Market を生成します。
func NewMarket(cfg Config, httpClient *http.Client) *Market {
	fc := finnhub.NewConfiguration()
	if httpClient != nil {
		fc.HTTPClient = httpClient
	}
	api := finnhub.NewAPIClient(fc).DefaultApi
	fetch := func(ctx context.Context, symbol, resolution string, from, to int64) (finnhub.StockCandles, *http.Response, error) {
		return api.StockCandles(ctx, symbol, resolution, from, to, nil)
	}
	return NewMarketWithFetcher(cfg, fetch, time.Now)
}

// NewMarketWithFetcher は取得関数と時計を差し替えた Market を生成します。
func NewMarketWithFetcher(cfg Config, fetch CandleFetcher, now func() time.Time) *Market {
	if now == nil {
		now = time.Now
	}
	return &Market{cfg: cfg, fetch: fetch, now: now, policy: retry.DefaultPolicy(cfg.RetryTimes)}
}

// WithRetryPolicy replaces the retry policy.
func (m *Market) WithRetryPolicy(p retry.Policy) *Market {
	m.policy = p
	return m
}

// GetMinuteBars は直近 WindowDays 日の1分足を返します。s == "no_data" は空の結果です。
func (m *Market) GetMinuteBars(ctx context.Context, symbol string) ([]entity.Bar, error) {
	to := m.now()
	days := m.cfg.WindowDays
	if days <= 0 {
		days = 1
	}
	from := to.AddDate(0, 0, -days)

	authCtx := context.WithValue(ctx, finnhub.ContextAPIKey, finnhub.APIKey{Key: m.cfg.APIKey})

	var result finnhub.StockCandles
	err := m.policy.Do(ctx, providerName, symbol, func() error {
		c, resp, err := m.fetch(authCtx, symbol, minuteResolution, from.Unix(), to.Unix())
		if err != nil {
			return classify(fmt.Sprintf("error while getting candles for %q", symbol), resp, err)
		}
		result = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result.S == statusNoData {
		return []entity.Bar{}, nil
	}
	return toBars(symbol, result, m.location())
}

func (m *Market) location() *time.Location {
	if m.cfg.Location == nil {
		return time.UTC
	}
	return m.cfg.Location
}

// classify はステータスコードでリトライ可否を判定します。
func classify(msg string, resp *http.Response, err error) error {
	if resp == nil {
		return fmt.Errorf("%s: %w", msg, err)
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%s: %w", msg, retry.ErrTooManyRequests)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return backoff.Permanent(fmt.Errorf("%s: finnhub http %d: %w", msg, resp.StatusCode, err))
	default:
		return fmt.Errorf("%s: finnhub http %d: %w", msg, resp.StatusCode, err)
	}
}

// toBars は列指向のレスポンスを Bar に変換します。列の長さが揃っていない場合はエラーです。
func toBars(symbol string, in finnhub.StockCandles, tz *time.Location) ([]entity.Bar, error) {
	l := len(in.T)
	switch {
	case l == 0:
		return []entity.Bar{}, nil
	case len(in.O) != l:
		return nil, fmt.Errorf("len(open) = %d, len(timestamp) = %d for stock %q", len(in.O), l, symbol)
	case len(in.H) != l:
		return nil, fmt.Errorf("len(high) = %d, len(timestamp) = %d for stock %q", len(in.H), l, symbol)
	case len(in.L) != l:
		return nil, fmt.Errorf("len(low) = %d, len(timestamp) = %d for stock %q", len(in.L), l, symbol)
	case len(in.C) != l:
		return nil, fmt.Errorf("len(close) = %d, len(timestamp) = %d for stock %q", len(in.C), l, symbol)
	case len(in.V) != l:
		return nil, fmt.Errorf("len(volume) = %d, len(timestamp) = %d for stock %q", len(in.V), l, symbol)
	}

	bars := make([]entity.Bar, l)
	for i, ts := range in.T {
		bars[i] = entity.Bar{
			Symbol:    symbol,
			TradeTime: time.Unix(ts, 0).In(tz),
			Open:      float64(in.O[i]),
			High:      float64(in.H[i]),
			Low:       float64(in.L[i]),
			Close:     float64(in.C[i]),
			Volume:    int64(in.V[i]),
		}
	}
	return bars, nil
}
