package usecase

import (
	"context"
	"errors"
	"sync"

	"market_journal/internal/feature/marketdata/domain/entity"
)

var (
	ErrMarketAPI = errors.New("market API error")
	ErrDB        = errors.New("database error")
)

// mockBarRepository is a mock implementation of the BarRepository interface.
type mockBarRepository struct {
	mu              sync.Mutex
	UpsertBarsFunc  func(ctx context.Context, symbol string, bars []entity.Bar) (int64, error)
	QueryBarsFunc   func(ctx context.Context, symbol, day string) ([]entity.Bar, error)
	ListSymbolsFunc func(ctx context.Context) ([]string, error)
	UpsertCalls     int
}

func (m *mockBarRepository) UpsertBars(ctx context.Context, symbol string, bars []entity.Bar) (int64, error) {
	m.mu.Lock()
	m.UpsertCalls++
	m.mu.Unlock()
	if m.UpsertBarsFunc != nil {
		return m.UpsertBarsFunc(ctx, symbol, bars)
	}
	return int64(len(bars)), nil
}

func (m *mockBarRepository) QueryBars(ctx context.Context, symbol, day string) ([]entity.Bar, error) {
	if m.QueryBarsFunc != nil {
		return m.QueryBarsFunc(ctx, symbol, day)
	}
	return nil, errors.New("QueryBarsFunc is not implemented")
}

func (m *mockBarRepository) ListSymbols(ctx context.Context) ([]string, error) {
	if m.ListSymbolsFunc != nil {
		return m.ListSymbolsFunc(ctx)
	}
	return nil, errors.New("ListSymbolsFunc is not implemented")
}

// mockMarketRepository is a mock implementation of the MarketRepository interface.
type mockMarketRepository struct {
	mu                 sync.Mutex
	GetMinuteBarsFunc  func(ctx context.Context, symbol string) ([]entity.Bar, error)
	GetMinuteBarsCalls int
}

func (m *mockMarketRepository) GetMinuteBars(ctx context.Context, symbol string) ([]entity.Bar, error) {
	m.mu.Lock()
	m.GetMinuteBarsCalls++
	m.mu.Unlock()
	if m.GetMinuteBarsFunc != nil {
		return m.GetMinuteBarsFunc(ctx, symbol)
	}
	return nil, errors.New("GetMinuteBarsFunc is not implemented")
}

// mockRateLimiter returns immediately without waiting.
type mockRateLimiter struct {
	mu        sync.Mutex
	WaitCalls int
	Err       error
}

func (m *mockRateLimiter) Wait(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WaitCalls++
	return m.Err
}
