package adapters

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"market_journal/internal/feature/marketdata/domain"
	"market_journal/internal/feature/marketdata/domain/entity"
	"market_journal/internal/feature/marketdata/usecase"
	"market_journal/internal/platform/db"
)

// insertBatchSize keeps a single INSERT under SQLite's bound-variable limit.
const insertBatchSize = 500

type barGorm struct {
	conn db.Connector
}

var _ usecase.BarRepository = (*barGorm)(nil)

func NewBarRepository(conn db.Connector) *barGorm {
	return &barGorm{conn: conn}
}

// BarModel is the market_data row (and document, for the MongoDB store).
// tradetime is stored as text so the provider's offset survives round trips
// on every backend.
type BarModel struct {
	Symbol    string `gorm:"column:symbol;primaryKey;size:32;index:idx_market_data_symbol_day,priority:1" bson:"symbol"`
	TradeTime string `gorm:"column:tradetime;primaryKey;size:32" bson:"tradetime"`
	TradeDay  string `gorm:"column:tradeday;size:10;not null;index:idx_market_data_symbol_day,priority:2" bson:"tradeday"`

	Open   float64 `gorm:"column:open;not null" bson:"open"`
	High   float64 `gorm:"column:high;not null" bson:"high"`
	Low    float64 `gorm:"column:low;not null" bson:"low"`
	Close  float64 `gorm:"column:close;not null" bson:"close"`
	Volume int64   `gorm:"column:volume;not null" bson:"volume"`
}

func (BarModel) TableName() string {
	return "market_data"
}

func toModel(symbol string, e entity.Bar) BarModel {
	return BarModel{
		Symbol:    symbol,
		TradeTime: e.TradeTime.Format(entity.TradeTimeLayout),
		TradeDay:  e.TradeDay(),
		Open:      e.Open,
		High:      e.High,
		Low:       e.Low,
		Close:     e.Close,
		Volume:    e.Volume,
	}
}

func toEntity(m BarModel) (entity.Bar, error) {
	tt, err := time.Parse(entity.TradeTimeLayout, m.TradeTime)
	if err != nil {
		return entity.Bar{}, fmt.Errorf("parse tradetime %q: %w", m.TradeTime, err)
	}
	return entity.Bar{
		Symbol:    m.Symbol,
		TradeTime: tt,
		Open:      m.Open,
		High:      m.High,
		Low:       m.Low,
		Close:     m.Close,
		Volume:    m.Volume,
	}, nil
}

// UpsertBars inserts every bar whose (symbol, tradetime) is not stored yet and
// returns the number of rows actually written. Conflicting rows are skipped
// inside the statement; any other failure rolls back the whole batch.
func (r *barGorm) UpsertBars(ctx context.Context, symbol string, bars []entity.Bar) (int64, error) {
	if len(bars) == 0 {
		return 0, nil
	}
	ms := make([]BarModel, 0, len(bars))
	for _, e := range bars {
		ms = append(ms, toModel(symbol, e))
	}

	var written int64
	err := r.conn.WithConn(ctx, func(tx *gorm.DB) error {
		return tx.Transaction(func(tx *gorm.DB) error {
			res := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "symbol"}, {Name: "tradetime"}},
				DoNothing: true,
			}).CreateInBatches(&ms, insertBatchSize)
			if res.Error != nil {
				return res.Error
			}
			written = res.RowsAffected
			return nil
		})
	})
	if err != nil {
		slog.Error("failed to upsert bars", "symbol", symbol, "rows", len(bars), "error", err)
		return 0, domain.ErrStorage
	}
	return written, nil
}

func (r *barGorm) QueryBars(ctx context.Context, symbol, day string) ([]entity.Bar, error) {
	var rows []BarModel
	err := r.conn.WithConn(ctx, func(tx *gorm.DB) error {
		return tx.Where("symbol = ? AND tradeday = ?", symbol, day).Find(&rows).Error
	})
	if err != nil {
		slog.Error("failed to query bars", "symbol", symbol, "day", day, "error", err)
		return nil, domain.ErrStorage
	}

	out := make([]entity.Bar, 0, len(rows))
	for _, m := range rows {
		b, err := toEntity(m)
		if err != nil {
			slog.Error("corrupt bar row", "symbol", symbol, "day", day, "error", err)
			return nil, domain.ErrStorage
		}
		out = append(out, b)
	}
	return out, nil
}

func (r *barGorm) ListSymbols(ctx context.Context) ([]string, error) {
	out := []string{}
	err := r.conn.WithConn(ctx, func(tx *gorm.DB) error {
		return tx.Model(&BarModel{}).Distinct("symbol").Order("symbol").Pluck("symbol", &out).Error
	})
	if err != nil {
		slog.Error("failed to list symbols", "error", err)
		return nil, domain.ErrStorage
	}
	return out, nil
}
