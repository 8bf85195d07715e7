// Package dto defines data transfer objects for the journal HTTP API.
package dto

import (
	"fmt"
	"time"

	"market_journal/internal/feature/journal/domain"
	"market_journal/internal/feature/journal/domain/entity"
)

// TradeRequest は登録・更新で共通のリクエストボディです。キーはフロントエンドに合わせて camelCase です。
// fee は省略時0、stopLoss / exitTarget は省略時に未設定(null)として保存されます。
type TradeRequest struct {
	Symbol         string   `json:"symbol" binding:"required"`
	Name           string   `json:"name" binding:"required"`
	Action         string   `json:"action" binding:"required"`
	ActionDateTime string   `json:"actionDateTime" binding:"required"`
	ActionPrice    *float64 `json:"actionPrice" binding:"required"`
	Size           *int64   `json:"size" binding:"required"`
	Fee            *float64 `json:"fee"`
	StopLoss       *float64 `json:"stopLoss"`
	ExitTarget     *float64 `json:"exitTarget"`
	Reason         string   `json:"reason" binding:"required"`
	MentalState    string   `json:"mentalState" binding:"required"`
	Description    string   `json:"description"`
}

// ToEntity はリクエストをドメインモデルに変換します。
func (r TradeRequest) ToEntity() (*entity.Trade, error) {
	at, err := entity.ParseActionDateTime(r.ActionDateTime)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	t := &entity.Trade{
		Symbol:         r.Symbol,
		Name:           r.Name,
		Action:         r.Action,
		ActionDateTime: at,
		StopLoss:       r.StopLoss,
		ExitTarget:     r.ExitTarget,
		Reason:         r.Reason,
		MentalState:    r.MentalState,
		Description:    r.Description,
	}
	if r.ActionPrice != nil {
		t.ActionPrice = *r.ActionPrice
	}
	if r.Size != nil {
		t.Size = *r.Size
	}
	if r.Fee != nil {
		t.Fee = *r.Fee
	}
	return t, nil
}

// TradeResponse はトレード記録のレスポンスDTOです。キーは trades テーブルの列名です。
type TradeResponse struct {
	ID             uint     `json:"id"`
	Symbol         string   `json:"symbol"`
	Name           string   `json:"name"`
	Action         string   `json:"action"`
	ActionDateTime string   `json:"action_datetime"`
	ActionPrice    float64  `json:"action_price"`
	Size           int64    `json:"size"`
	Fee            float64  `json:"fee"`
	StopLoss       *float64 `json:"stop_loss"`
	ExitTarget     *float64 `json:"exit_target"`
	Reason         string   `json:"reason"`
	MentalState    string   `json:"mental_state"`
	Description    string   `json:"description"`
	CreatedAt      string   `json:"created_at"`
	UpdatedAt      string   `json:"updated_at"`
}

// FromEntity はドメインモデルをレスポンスに変換します。
func FromEntity(t entity.Trade) TradeResponse {
	return TradeResponse{
		ID:             t.ID,
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
		CreatedAt:      t.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:      t.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}
