package twelvedata

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"market_journal/internal/feature/marketdata/domain/entity"
	"market_journal/internal/feature/marketdata/usecase"
	"market_journal/internal/platform/externalapi/retry"
	"market_journal/internal/platform/externalapi/twelvedata/dto"
)

const (
	providerName   = "twelvedata"
	minuteInterval = "1min"
	datetimeLayout = "2006-01-02 15:04:05"
)

// TwelveDataMarket はTwelve Data外部APIから分足データを取得するMarketRepository実装です。
type TwelveDataMarket struct {
	cfg    Config
	client *http.Client
	policy retry.Policy
}

// TwelveDataMarketがMarketRepositoryを実装していることをコンパイル時に検証します。
var _ usecase.MarketRepository = (*TwelveDataMarket)(nil)

// NewTwelveDataMarket は指定された設定とHTTPクライアントでTwelveDataMarketの新しいインスタンスを生成します。
func NewTwelveDataMarket(cfg Config, client *http.Client) *TwelveDataMarket {
	return &TwelveDataMarket{cfg: cfg, client: client, policy: retry.DefaultPolicy(cfg.RetryTimes)}
}

// WithRetryPolicy replaces the retry policy. Used by tests to shorten waits.
func (t *TwelveDataMarket) WithRetryPolicy(p retry.Policy) *TwelveDataMarket {
	t.policy = p
	return t
}

// GetMinuteBars は直近 WindowDays 日分の1分足を古い順に返します。
// 「No data」応答は空の結果として扱い、エラーにはしません。
func (t *TwelveDataMarket) GetMinuteBars(ctx context.Context, symbol string) ([]entity.Bar, error) {
	var body dto.TimeSeriesResponse
	err := t.policy.Do(ctx, providerName, symbol, func() error {
		b, err := t.fetch(ctx, symbol)
		if err != nil {
			return err
		}
		body = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	if body.Status == "error" {
		if isNoData(body.Message) {
			slog.Info("provider returned no data", "provider", providerName, "symbol", symbol)
			return []entity.Bar{}, nil
		}
		return nil, fmt.Errorf("twelvedata: %s", body.Message)
	}

	bars := make([]entity.Bar, 0, len(body.Values))
	for _, v := range body.Values {
		b, err := t.toBar(symbol, v)
		if err != nil {
			return nil, err
		}
		bars = append(bars, b)
	}
	return bars, nil
}

// fetch は time_series を1回呼び出します。リトライしても結果が変わらない失敗は Permanent で返します。
func (t *TwelveDataMarket) fetch(ctx context.Context, symbol string) (dto.TimeSeriesResponse, error) {
	var body dto.TimeSeriesResponse

	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", minuteInterval)
	q.Set("outputsize", strconv.Itoa(t.cfg.outputSize()))
	q.Set("timezone", t.cfg.location().String())
	q.Set("order", "ASC")
	q.Set("apikey", t.cfg.APIKey)

	u := fmt.Sprintf("%s/time_series?%s", t.cfg.BaseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return body, backoff.Permanent(err)
	}

	res, err := t.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return body, backoff.Permanent(err)
		}
		return body, err
	}
	defer func() {
		if err := res.Body.Close(); err != nil {
			slog.Warn("failed to close response body", "error", err)
		}
	}()

	switch {
	case res.StatusCode == http.StatusTooManyRequests:
		return body, fmt.Errorf("twelvedata http %d: %w", res.StatusCode, retry.ErrTooManyRequests)
	case res.StatusCode >= 500:
		return body, fmt.Errorf("twelvedata http %d", res.StatusCode)
	case res.StatusCode >= 400:
		return body, backoff.Permanent(fmt.Errorf("twelvedata http %d", res.StatusCode))
	}

	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return body, backoff.Permanent(fmt.Errorf("decode twelvedata response: %w", err))
	}
	// Twelve Data はレート超過も HTTP 200 + code 429 で返すことがある
	if body.Status == "error" && body.Code == http.StatusTooManyRequests {
		return body, fmt.Errorf("twelvedata: %s: %w", body.Message, retry.ErrTooManyRequests)
	}
	return body, nil
}

// toBar は文字列の値をパースしてドメインエンティティに変換します。
func (t *TwelveDataMarket) toBar(symbol string, v dto.TimeSeriesValue) (entity.Bar, error) {
	// タイムスタンプは取引所のタイムゾーンで返される
	tm, err := time.ParseInLocation(datetimeLayout, v.Datetime, t.cfg.location())
	if err != nil {
		return entity.Bar{}, fmt.Errorf("parse time %q: %w", v.Datetime, err)
	}
	o, err := strconv.ParseFloat(v.Open, 64)
	if err != nil {
		return entity.Bar{}, fmt.Errorf("parse open %q: %w", v.Open, err)
	}
	h, err := strconv.ParseFloat(v.High, 64)
	if err != nil {
		return entity.Bar{}, fmt.Errorf("parse high %q: %w", v.High, err)
	}
	l, err := strconv.ParseFloat(v.Low, 64)
	if err != nil {
		return entity.Bar{}, fmt.Errorf("parse low %q: %w", v.Low, err)
	}
	c, err := strconv.ParseFloat(v.Close, 64)
	if err != nil {
		return entity.Bar{}, fmt.Errorf("parse close %q: %w", v.Close, err)
	}
	// 指数など出来高のない銘柄は空文字で返る
	var vol int64
	if v.Volume != "" {
		vol, err = strconv.ParseInt(v.Volume, 10, 64)
		if err != nil {
			return entity.Bar{}, fmt.Errorf("parse volume %q: %w", v.Volume, err)
		}
	}

	return entity.Bar{
		Symbol:    symbol,
		TradeTime: tm,
		Open:      o,
		High:      h,
		Low:       l,
		Close:     c,
		Volume:    vol,
	}, nil
}

func isNoData(msg string) bool {
	return strings.Contains(strings.ToLower(msg), "no data")
}
