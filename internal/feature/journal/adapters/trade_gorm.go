package adapters

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"market_journal/internal/feature/journal/domain"
	"market_journal/internal/feature/journal/domain/entity"
	"market_journal/internal/feature/journal/usecase"
	"market_journal/internal/platform/db"
)

type tradeGorm struct {
	conn db.Connector
	now  func() time.Time
}

var _ usecase.TradeRepository = (*tradeGorm)(nil)

// NewTradeRepository returns the trades store. now is the store clock used
// for timestamps and for the "yesterday" default window; nil means time.Now.
func NewTradeRepository(conn db.Connector, now func() time.Time) *tradeGorm {
	if now == nil {
		now = time.Now
	}
	return &tradeGorm{conn: conn, now: now}
}

// TradeModel is the trades row. action_datetime is sortable text so day
// ranges and the unique key behave the same on every driver.
type TradeModel struct {
	ID             uint     `gorm:"primaryKey;autoIncrement"`
	Symbol         string   `gorm:"size:32;not null;index"`
	Name           string   `gorm:"size:128;not null;uniqueIndex:idx_trades_name_action,priority:1"`
	Action         string   `gorm:"size:16;not null"`
	ActionDateTime string   `gorm:"column:action_datetime;size:19;not null;index;uniqueIndex:idx_trades_name_action,priority:2"`
	ActionPrice    float64  `gorm:"not null"`
	Size           int64    `gorm:"not null"`
	Fee            float64  `gorm:"not null"`
	StopLoss       *float64 `gorm:"column:stop_loss"`
	ExitTarget     *float64 `gorm:"column:exit_target"`
	Reason         string   `gorm:"type:text;not null"`
	MentalState    string   `gorm:"column:mental_state;size:64;not null"`
	Description    string   `gorm:"type:text"`

	CreatedAt time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt time.Time `gorm:"autoUpdateTime:false"`
}

func (TradeModel) TableName() string {
	return "trades"
}

func toModel(t *entity.Trade) TradeModel {
	return TradeModel{
		Symbol:         t.Symbol,
		Name:           t.Name,
		Action:         t.Action,
		ActionDateTime: t.ActionDateTime.Format(entity.ActionDateTimeLayout),
		ActionPrice:    t.ActionPrice,
		Size:           t.Size,
		Fee:            t.Fee,
		StopLoss:       t.StopLoss,
		ExitTarget:     t.ExitTarget,
		Reason:         t.Reason,
		MentalState:    t.MentalState,
		Description:    t.Description,
	}
}

func toEntity(m TradeModel) (entity.Trade, error) {
	at, err := time.Parse(entity.ActionDateTimeLayout, m.ActionDateTime)
	if err != nil {
		return entity.Trade{}, fmt.Errorf("parse action_datetime %q: %w", m.ActionDateTime, err)
	}
	return entity.Trade{
		ID:             m.ID,
		Symbol:         m.Symbol,
		Name:           m.Name,
		Action:         m.Action,
		ActionDateTime: at,
		ActionPrice:    m.ActionPrice,
		Size:           m.Size,
		Fee:            m.Fee,
		StopLoss:       m.StopLoss,
		ExitTarget:     m.ExitTarget,
		Reason:         m.Reason,
		MentalState:    m.MentalState,
		Description:    m.Description,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}, nil
}

func (r *tradeGorm) Create(ctx context.Context, trade *entity.Trade) (int64, error) {
	m := toModel(trade)
	ts := r.now()
	m.CreatedAt, m.UpdatedAt = ts, ts

	var affected int64
	err := r.conn.WithConn(ctx, func(tx *gorm.DB) error {
		res := tx.Create(&m)
		affected = res.RowsAffected
		return res.Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		slog.Warn("duplicate trade rejected", "name", m.Name, "action_datetime", m.ActionDateTime)
		return 0, domain.ErrDuplicateTrade
	}
	if err != nil {
		slog.Error("failed to create trade", "symbol", m.Symbol, "name", m.Name, "error", err)
		return 0, domain.ErrStorage
	}
	if affected != 1 {
		slog.Error("unexpected rows affected on trade insert", "rows", affected)
		return 0, domain.ErrStorage
	}

	trade.ID = m.ID
	trade.CreatedAt, trade.UpdatedAt = m.CreatedAt, m.UpdatedAt
	return affected, nil
}

func (r *tradeGorm) Update(ctx context.Context, id uint, trade *entity.Trade) (int64, error) {
	m := toModel(trade)
	ts := r.now()

	var affected int64
	err := r.conn.WithConn(ctx, func(tx *gorm.DB) error {
		res := tx.Model(&TradeModel{}).Where("id = ?", id).Updates(map[string]any{
			"symbol":          m.Symbol,
			"name":            m.Name,
			"action":          m.Action,
			"action_datetime": m.ActionDateTime,
			"action_price":    m.ActionPrice,
			"size":            m.Size,
			"fee":             m.Fee,
			"stop_loss":       m.StopLoss,
			"exit_target":     m.ExitTarget,
			"reason":          m.Reason,
			"mental_state":    m.MentalState,
			"description":     m.Description,
			"updated_at":      ts,
		})
		affected = res.RowsAffected
		return res.Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return 0, domain.ErrDuplicateTrade
	}
	if err != nil {
		slog.Error("failed to update trade", "id", id, "error", err)
		return 0, domain.ErrStorage
	}
	if affected == 0 {
		return 0, domain.ErrTradeNotFound
	}

	trade.ID = id
	trade.UpdatedAt = ts
	return affected, nil
}

// List returns trades on filter.Day, or on the day before the store clock's
// today when Day is empty, newest first.
func (r *tradeGorm) List(ctx context.Context, filter entity.TradeFilter) ([]entity.Trade, error) {
	start, err := r.dayStart(filter.Day)
	if err != nil {
		return nil, err
	}
	from := start.Format(entity.ActionDateTimeLayout)
	to := start.AddDate(0, 0, 1).Format(entity.ActionDateTimeLayout)

	var rows []TradeModel
	err = r.conn.WithConn(ctx, func(tx *gorm.DB) error {
		q := tx.Where("action_datetime >= ? AND action_datetime < ?", from, to)
		if !filter.AnySymbol() {
			q = q.Where("symbol = ?", filter.Symbol)
		}
		return q.Order("action_datetime DESC").Find(&rows).Error
	})
	if err != nil {
		slog.Error("failed to list trades", "symbol", filter.Symbol, "day", filter.Day, "error", err)
		return nil, domain.ErrStorage
	}

	out := make([]entity.Trade, 0, len(rows))
	for _, m := range rows {
		t, err := toEntity(m)
		if err != nil {
			slog.Error("corrupt trade row", "id", m.ID, "error", err)
			return nil, domain.ErrStorage
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *tradeGorm) FindByID(ctx context.Context, id uint) (*entity.Trade, error) {
	var m TradeModel
	err := r.conn.WithConn(ctx, func(tx *gorm.DB) error {
		return tx.First(&m, id).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrTradeNotFound
	}
	if err != nil {
		slog.Error("failed to find trade", "id", id, "error", err)
		return nil, domain.ErrStorage
	}
	t, err := toEntity(m)
	if err != nil {
		slog.Error("corrupt trade row", "id", m.ID, "error", err)
		return nil, domain.ErrStorage
	}
	return &t, nil
}

// dayStart returns midnight of day, or of yesterday (UTC calendar) on the
// store clock. Weekends are not skipped.
func (r *tradeGorm) dayStart(day string) (time.Time, error) {
	if day == "" {
		y := r.now().UTC().AddDate(0, 0, -1)
		return time.Date(y.Year(), y.Month(), y.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	d, err := time.Parse(entity.DayLayout, day)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date must be YYYY-MM-DD", domain.ErrValidation)
	}
	return d, nil
}
