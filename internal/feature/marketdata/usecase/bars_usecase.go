// Package usecase は分足データの取り込みと参照のビジネスロジックを実装します。
package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"market_journal/internal/feature/marketdata/domain"
	"market_journal/internal/feature/marketdata/domain/entity"
)

// BarRepository は market_data テーブルへの読み書きを抽象化します。
// Goの慣例に従い、インターフェースは利用者（usecase）側で定義します。
type BarRepository interface {
	// UpsertBars は既存キー (symbol, tradetime) をスキップして挿入し、実際に書き込んだ件数を返します。
	UpsertBars(ctx context.Context, symbol string, bars []entity.Bar) (int64, error)
	// QueryBars は銘柄と取引日 (YYYY-MM-DD) が一致する分足を返します。
	QueryBars(ctx context.Context, symbol, day string) ([]entity.Bar, error)
	// ListSymbols は保存済みの銘柄一覧を返します。
	ListSymbols(ctx context.Context) ([]string, error)
}

// barsUsecase は分足データ参照のユースケースです。
type barsUsecase struct {
	bars BarRepository
}

// NewBarsUsecase はbarsUsecaseの新しいインスタンスを生成します。
func NewBarsUsecase(bars BarRepository) *barsUsecase {
	return &barsUsecase{bars: bars}
}

// GetBars は指定された銘柄・取引日の分足を返します。該当なしは空スライスでエラーではありません。
func (bu *barsUsecase) GetBars(ctx context.Context, symbol, date string) ([]entity.Bar, error) {
	symbol = strings.TrimSpace(symbol)
	date = strings.TrimSpace(date)
	if symbol == "" || date == "" {
		return nil, fmt.Errorf("%w: symbol and date are required", domain.ErrInvalidQuery)
	}
	if _, err := time.Parse(entity.TradeDayLayout, date); err != nil {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", domain.ErrInvalidQuery)
	}

	bs, err := bu.bars.QueryBars(ctx, symbol, date)
	if err != nil {
		return nil, err
	}
	return bs, nil
}

// ListSymbols は保存済みの銘柄一覧を返します。
func (bu *barsUsecase) ListSymbols(ctx context.Context) ([]string, error) {
	return bu.bars.ListSymbols(ctx)
}
