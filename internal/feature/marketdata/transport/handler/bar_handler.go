// Package handler はmarketdataフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"market_journal/internal/api"
	"market_journal/internal/feature/marketdata/domain"
	"market_journal/internal/feature/marketdata/domain/entity"
	"market_journal/internal/feature/marketdata/transport/http/dto"
	"market_journal/internal/platform/http/middleware"
)

// BarsUsecase は分足参照のユースケースインターフェースです。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type BarsUsecase interface {
	GetBars(ctx context.Context, symbol, date string) ([]entity.Bar, error)
	ListSymbols(ctx context.Context) ([]string, error)
}

// Ingester は1銘柄分の取り込みを行います。
type Ingester interface {
	Ingest(ctx context.Context, symbol string) (int64, error)
}

// BarHandler は分足データのHTTPリクエストを処理します。
type BarHandler struct {
	bars       BarsUsecase
	ingest     Ingester
	windowDays int
}

// NewBarHandler は新しい BarHandler を作成します。windowDays は応答メッセージにのみ使われます。
func NewBarHandler(bars BarsUsecase, ingest Ingester, windowDays int) *BarHandler {
	return &BarHandler{bars: bars, ingest: ingest, windowDays: windowDays}
}

// FetchMarketData はプロバイダから直近ウィンドウを取り込みます。
//
// エンドポイント例:
// POST /api/fetch-market-data {"symbol":"AAPL"}
func (h *BarHandler) FetchMarketData(c *gin.Context) {
	var req dto.FetchRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Symbol) == "" {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Symbol is required"})
		return
	}
	symbol := strings.TrimSpace(req.Symbol)

	n, err := h.ingest.Ingest(c.Request.Context(), symbol)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNoData):
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: fmt.Sprintf("No data available for %s", symbol)})
		case errors.Is(err, domain.ErrInvalidQuery):
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		case errors.Is(err, domain.ErrStorage):
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to save market data"})
		default:
			middleware.Logger(c.Request.Context()).Error("provider fetch failed", "symbol", symbol, "error", err)
			c.JSON(http.StatusBadGateway, api.ErrorResponse{Error: err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, dto.FetchResponse{
		Message: fmt.Sprintf("Successfully fetched %s data for past %d days", symbol, h.windowDays),
		Rows:    n,
	})
}

// GetStockData は銘柄・取引日の分足を返します。
//
// エンドポイント例:
// GET /api/stock-data?symbol=AAPL&date=2024-01-02
func (h *BarHandler) GetStockData(c *gin.Context) {
	symbol, date := c.Query("symbol"), c.Query("date")
	if symbol == "" || date == "" {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Symbol and date are required"})
		return
	}

	bars, err := h.bars.GetBars(c.Request.Context(), symbol, date)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidQuery) {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
			return
		}
		middleware.Logger(c.Request.Context()).Error("failed to load market data", "symbol", symbol, "date", date, "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to load market data"})
		return
	}

	// データをフォーマット
	out := make([]dto.BarResponse, 0, len(bars))
	for _, b := range bars {
		out = append(out, dto.BarResponse{
			Symbol:    b.Symbol,
			TradeTime: b.TradeTime.Format(entity.TradeTimeLayout),
			TradeDay:  b.TradeDay(),
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,
		})
	}
	c.JSON(http.StatusOK, out)
}

// ListSymbols は保存済み銘柄の一覧を返します。
func (h *BarHandler) ListSymbols(c *gin.Context) {
	symbols, err := h.bars.ListSymbols(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: err.Error()})
		return
	}
	out := make([]dto.SymbolItem, 0, len(symbols))
	for _, s := range symbols {
		out = append(out, dto.SymbolItem{Code: s})
	}
	c.JSON(http.StatusOK, out)
}
