package twelvedata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"market_journal/internal/platform/config"
	"market_journal/internal/platform/externalapi/retry"
)

func newTestMarket(t *testing.T, baseURL string, client *http.Client) *TwelveDataMarket {
	t.Helper()

	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	cfg := Config{
		APIKey:     "test-key",
		BaseURL:    baseURL,
		WindowDays: 5,
		Location:   loc,
		RetryTimes: 2,
	}
	return NewTwelveDataMarket(cfg, client).WithRetryPolicy(retry.Policy{
		MaxRetries:      2,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
	})
}

func TestConfigFrom(t *testing.T) {
	t.Parallel()

	p := config.ProviderConfig{
		APIKey:           "k",
		BaseURL:          "https://api.test.com",
		Timeout:          10 * time.Second,
		WindowDays:       5,
		ExchangeTimezone: "America/New_York",
	}

	cfg, err := ConfigFrom(p, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Location.String() != "America/New_York" {
		t.Errorf("expected America/New_York, got %s", cfg.Location)
	}
	if cfg.RetryTimes != 3 {
		t.Errorf("expected retry times 3, got %d", cfg.RetryTimes)
	}

	p.ExchangeTimezone = "Mars/Olympus"
	if _, err := ConfigFrom(p, 3); err == nil {
		t.Error("expected error for unknown timezone")
	}
}

func TestConfig_OutputSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		days int
		want int
	}{
		{1, 390},
		{5, 1950},
		{30, 5000},
		{0, 390},
	}

	for _, tt := range tests {
		if got := (Config{WindowDays: tt.days}).outputSize(); got != tt.want {
			t.Errorf("window %d: expected %d, got %d", tt.days, tt.want, got)
		}
	}
}

func TestTwelveDataMarket_GetMinuteBars_Success(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("symbol") != "AAPL" {
			t.Errorf("expected symbol AAPL, got %s", q.Get("symbol"))
		}
		if q.Get("interval") != "1min" {
			t.Errorf("expected interval 1min, got %s", q.Get("interval"))
		}
		if q.Get("outputsize") != "1950" {
			t.Errorf("expected outputsize 1950, got %s", q.Get("outputsize"))
		}
		if q.Get("timezone") != "America/New_York" {
			t.Errorf("expected timezone America/New_York, got %s", q.Get("timezone"))
		}
		if q.Get("order") != "ASC" {
			t.Errorf("expected order ASC, got %s", q.Get("order"))
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{
			"meta": {"symbol": "AAPL", "interval": "1min", "exchange_timezone": "America/New_York"},
			"status": "ok",
			"values": [
				{"datetime": "2024-01-02 09:30:00", "open": "187.15", "high": "187.40", "low": "186.90", "close": "187.00", "volume": "120000"},
				{"datetime": "2024-01-02 09:31:00", "open": "187.00", "high": "187.20", "low": "186.80", "close": "187.10", "volume": "98000"}
			]
		}`))
	}))
	defer server.Close()

	market := newTestMarket(t, server.URL, server.Client())

	bars, err := market.GetMinuteBars(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(bars))
	}

	// 取引所の時刻とオフセットが保持される
	if got := bars[0].TradeTime.Format("2006-01-02 15:04:05-0700"); got != "2024-01-02 09:30:00-0500" {
		t.Errorf("expected 2024-01-02 09:30:00-0500, got %s", got)
	}
	if bars[0].Symbol != "AAPL" {
		t.Errorf("expected symbol AAPL, got %s", bars[0].Symbol)
	}
	if bars[0].Open != 187.15 || bars[0].Close != 187.00 {
		t.Errorf("unexpected prices: %+v", bars[0])
	}
	if bars[1].Volume != 98000 {
		t.Errorf("expected volume 98000, got %d", bars[1].Volume)
	}
}

func TestTwelveDataMarket_GetMinuteBars_NoData(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"code": 400, "message": "No data is available on the specified dates. Try setting different start/end dates.", "status": "error"}`))
	}))
	defer server.Close()

	market := newTestMarket(t, server.URL, server.Client())

	bars, err := market.GetMinuteBars(context.Background(), "ZZZZ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bars) != 0 {
		t.Errorf("expected 0 bars, got %d", len(bars))
	}
}

func TestTwelveDataMarket_GetMinuteBars_EmptyValues(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status": "ok", "values": []}`))
	}))
	defer server.Close()

	market := newTestMarket(t, server.URL, server.Client())

	bars, err := market.GetMinuteBars(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bars) != 0 {
		t.Errorf("expected 0 bars, got %d", len(bars))
	}
}

func TestTwelveDataMarket_GetMinuteBars_ClientErrorIsNotRetried(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		statusCode int
	}{
		{"bad request", http.StatusBadRequest},
		{"unauthorized", http.StatusUnauthorized},
		{"not found", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.statusCode)
			}))
			defer server.Close()

			market := newTestMarket(t, server.URL, server.Client())

			_, err := market.GetMinuteBars(context.Background(), "AAPL")
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), "twelvedata http") {
				t.Errorf("expected HTTP error message, got %v", err)
			}
			if calls.Load() != 1 {
				t.Errorf("expected 1 call, got %d", calls.Load())
			}
		})
	}
}

func TestTwelveDataMarket_GetMinuteBars_RetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status": "ok", "values": [
			{"datetime": "2024-01-02 09:30:00", "open": "1", "high": "1", "low": "1", "close": "1", "volume": "1"}
		]}`))
	}))
	defer server.Close()

	market := newTestMarket(t, server.URL, server.Client())

	bars, err := market.GetMinuteBars(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bars) != 1 {
		t.Errorf("expected 1 bar, got %d", len(bars))
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 calls, got %d", calls.Load())
	}
}

func TestTwelveDataMarket_GetMinuteBars_RateLimitedGivesUp(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code": 429, "message": "You have run out of API credits for the current minute.", "status": "error"}`))
	}))
	defer server.Close()

	market := newTestMarket(t, server.URL, server.Client())

	_, err := market.GetMinuteBars(context.Background(), "AAPL")
	if !errors.Is(err, retry.ErrTooManyRequests) {
		t.Fatalf("expected ErrTooManyRequests, got %v", err)
	}
	// 初回 + リトライ2回
	if calls.Load() != 3 {
		t.Errorf("expected 3 calls, got %d", calls.Load())
	}
}

func TestTwelveDataMarket_GetMinuteBars_APIError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"code": 401, "status": "error", "message": "Invalid API key"}`))
	}))
	defer server.Close()

	market := newTestMarket(t, server.URL, server.Client())

	_, err := market.GetMinuteBars(context.Background(), "AAPL")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "Invalid API key") {
		t.Errorf("expected API error message, got %v", err)
	}
}

func TestTwelveDataMarket_GetMinuteBars_InvalidJSON(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{invalid json`))
	}))
	defer server.Close()

	market := newTestMarket(t, server.URL, server.Client())

	_, err := market.GetMinuteBars(context.Background(), "AAPL")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 call, got %d", calls.Load())
	}
}

func TestTwelveDataMarket_GetMinuteBars_InvalidValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		value    string
		errField string
	}{
		{"invalid datetime", `{"datetime": "2024-01-02", "open": "1", "high": "1", "low": "1", "close": "1", "volume": "1"}`, "parse time"},
		{"invalid open", `{"datetime": "2024-01-02 09:30:00", "open": "abc", "high": "1", "low": "1", "close": "1", "volume": "1"}`, "parse open"},
		{"invalid high", `{"datetime": "2024-01-02 09:30:00", "open": "1", "high": "xyz", "low": "1", "close": "1", "volume": "1"}`, "parse high"},
		{"invalid low", `{"datetime": "2024-01-02 09:30:00", "open": "1", "high": "1", "low": "bad", "close": "1", "volume": "1"}`, "parse low"},
		{"invalid close", `{"datetime": "2024-01-02 09:30:00", "open": "1", "high": "1", "low": "1", "close": "bad", "volume": "1"}`, "parse close"},
		{"invalid volume", `{"datetime": "2024-01-02 09:30:00", "open": "1", "high": "1", "low": "1", "close": "1", "volume": "n/a"}`, "parse volume"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"status": "ok", "values": [` + tt.value + `]}`))
			}))
			defer server.Close()

			market := newTestMarket(t, server.URL, server.Client())

			_, err := market.GetMinuteBars(context.Background(), "AAPL")
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.errField) {
				t.Errorf("expected error containing %q, got %v", tt.errField, err)
			}
		})
	}
}

func TestTwelveDataMarket_GetMinuteBars_EmptyVolume(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status": "ok", "values": [
			{"datetime": "2024-01-02 09:30:00", "open": "4700", "high": "4701", "low": "4699", "close": "4700.5", "volume": ""}
		]}`))
	}))
	defer server.Close()

	market := newTestMarket(t, server.URL, server.Client())

	bars, err := market.GetMinuteBars(context.Background(), "SPX")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bars[0].Volume != 0 {
		t.Errorf("expected volume 0, got %d", bars[0].Volume)
	}
}

func TestTwelveDataMarket_GetMinuteBars_ContextCancellation(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	market := newTestMarket(t, server.URL, server.Client())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := market.GetMinuteBars(ctx, "AAPL")
	if err == nil {
		t.Fatal("expected error due to context cancellation, got nil")
	}
}
