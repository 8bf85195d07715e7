// Package usecase はトレードジャーナルのビジネスロジックを実装します。
package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"market_journal/internal/feature/journal/domain"
	"market_journal/internal/feature/journal/domain/entity"
)

// TradeRepository は trades テーブルへの読み書きを抽象化します。
type TradeRepository interface {
	// Create は trade を保存して ID を設定し、影響行数を返します。
	Create(ctx context.Context, trade *entity.Trade) (int64, error)
	// Update は id の行の可変フィールドをすべて置き換えます。
	Update(ctx context.Context, id uint, trade *entity.Trade) (int64, error)
	// List は action_datetime の降順で返します。Day が空なら前日です。
	List(ctx context.Context, filter entity.TradeFilter) ([]entity.Trade, error)
	FindByID(ctx context.Context, id uint) (*entity.Trade, error)
}

// JournalUsecase はトレード記録の登録・更新・参照を扱います。
type JournalUsecase struct {
	trades TradeRepository
}

// NewJournalUsecase は新しい JournalUsecase を作成します。
func NewJournalUsecase(trades TradeRepository) *JournalUsecase {
	return &JournalUsecase{trades: trades}
}

// Create は必須項目を検証してからトレードを保存します。
func (ju *JournalUsecase) Create(ctx context.Context, trade *entity.Trade) (int64, error) {
	if err := validate(trade); err != nil {
		return 0, err
	}
	return ju.trades.Create(ctx, trade)
}

// Update は id のトレードを全置換します。存在しない場合は domain.ErrTradeNotFound です。
func (ju *JournalUsecase) Update(ctx context.Context, id uint, trade *entity.Trade) (int64, error) {
	if id == 0 {
		return 0, fmt.Errorf("%w: id is required", domain.ErrValidation)
	}
	if err := validate(trade); err != nil {
		return 0, err
	}
	return ju.trades.Update(ctx, id, trade)
}

// List は銘柄・日付で絞り込んだトレードを返します。symbol が "all" の場合は全銘柄です。
func (ju *JournalUsecase) List(ctx context.Context, symbol, date string) ([]entity.Trade, error) {
	date = strings.TrimSpace(date)
	if date != "" {
		if _, err := time.Parse(entity.DayLayout, date); err != nil {
			return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", domain.ErrValidation)
		}
	}
	return ju.trades.List(ctx, entity.TradeFilter{Symbol: strings.TrimSpace(symbol), Day: date})
}

// Get は id のトレードを返します。
func (ju *JournalUsecase) Get(ctx context.Context, id uint) (*entity.Trade, error) {
	return ju.trades.FindByID(ctx, id)
}

func validate(t *entity.Trade) error {
	if t == nil {
		return fmt.Errorf("%w: trade is required", domain.ErrValidation)
	}
	t.Symbol = strings.TrimSpace(t.Symbol)
	t.Name = strings.TrimSpace(t.Name)
	t.Action = strings.TrimSpace(t.Action)

	var missing []string
	if t.Symbol == "" {
		missing = append(missing, "symbol")
	}
	if t.Name == "" {
		missing = append(missing, "name")
	}
	if t.Action == "" {
		missing = append(missing, "action")
	}
	if t.ActionDateTime.IsZero() {
		missing = append(missing, "action_datetime")
	}
	if strings.TrimSpace(t.Reason) == "" {
		missing = append(missing, "reason")
	}
	if strings.TrimSpace(t.MentalState) == "" {
		missing = append(missing, "mental_state")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required fields: %s", domain.ErrValidation, strings.Join(missing, ", "))
	}
	if t.Size < 0 {
		return fmt.Errorf("%w: size must not be negative", domain.ErrValidation)
	}
	return nil
}
