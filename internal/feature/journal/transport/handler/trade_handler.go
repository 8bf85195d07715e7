// Package handler はjournalフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"market_journal/internal/api"
	"market_journal/internal/feature/journal/domain"
	"market_journal/internal/feature/journal/domain/entity"
	"market_journal/internal/feature/journal/transport/http/dto"
	"market_journal/internal/platform/http/middleware"
)

// JournalUsecase はトレードジャーナルのユースケースインターフェースです。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type JournalUsecase interface {
	Create(ctx context.Context, trade *entity.Trade) (int64, error)
	Update(ctx context.Context, id uint, trade *entity.Trade) (int64, error)
	List(ctx context.Context, symbol, date string) ([]entity.Trade, error)
}

// TradeHandler はトレード記録のHTTPリクエストを処理します。
type TradeHandler struct {
	uc JournalUsecase
}

// NewTradeHandler は新しい TradeHandler を作成します。
func NewTradeHandler(uc JournalUsecase) *TradeHandler {
	return &TradeHandler{uc: uc}
}

// List はトレード記録の一覧を返します。date 省略時は前日分です。
//
// エンドポイント例:
// GET /api/trades?symbol=all&date=2024-01-02
func (h *TradeHandler) List(c *gin.Context) {
	trades, err := h.uc.List(c.Request.Context(), c.Query("symbol"), c.Query("date"))
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]dto.TradeResponse, 0, len(trades))
	for _, t := range trades {
		out = append(out, dto.FromEntity(t))
	}
	c.JSON(http.StatusOK, out)
}

// Create はトレード記録を登録します。
func (h *TradeHandler) Create(c *gin.Context) {
	trade, ok := bindTrade(c)
	if !ok {
		return
	}
	if _, err := h.uc.Create(c.Request.Context(), trade); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.MessageResponse{Message: "Trade saved successfully"})
}

// Update はトレード記録を全置換します。id はパスまたはクエリで受け付けます。
//
// エンドポイント例:
// PUT /api/trades/12
// PUT /api/trades?id=12
func (h *TradeHandler) Update(c *gin.Context) {
	raw := c.Param("id")
	if raw == "" {
		raw = c.Query("id")
	}
	if raw == "" {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Trade id is required"})
		return
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Trade id must be a positive integer"})
		return
	}

	trade, ok := bindTrade(c)
	if !ok {
		return
	}
	if _, err := h.uc.Update(c.Request.Context(), uint(id), trade); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.MessageResponse{Message: "Trade updated successfully"})
}

func bindTrade(c *gin.Context) (*entity.Trade, bool) {
	var req dto.TradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return nil, false
	}
	trade, err := req.ToEntity()
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return nil, false
	}
	return trade, true
}

// writeError はドメインエラーをHTTPステータスに変換します。
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrTradeNotFound):
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrDuplicateTrade):
		c.JSON(http.StatusConflict, api.ErrorResponse{Error: err.Error()})
	default:
		middleware.Logger(c.Request.Context()).Error("journal request failed", "method", c.Request.Method, "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: err.Error()})
	}
}
