// Package router はHTTPルーティングを組み立てます。
package router

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	journalhandler "market_journal/internal/feature/journal/transport/handler"
	marketdatahandler "market_journal/internal/feature/marketdata/transport/handler"
	"market_journal/internal/platform/http/handler"
	"market_journal/internal/platform/http/middleware"
)

// Options はルーターの外部依存でない設定です。
type Options struct {
	StaticDir    string
	AllowOrigins []string
	Health       handler.CheckFunc
}

func NewRouter(bars *marketdatahandler.BarHandler, trades *journalhandler.TradeHandler, opts Options) *gin.Engine {
	r := gin.Default()
	r.Use(middleware.RequestID())
	r.Use(corsMiddleware(opts.AllowOrigins))

	// 導通確認用
	health := handler.Health(opts.Health)
	r.GET("/healthz", health)
	r.HEAD("/healthz", health)

	api := r.Group("/api")
	{
		// 分足
		api.POST("/fetch-market-data", bars.FetchMarketData)
		api.GET("/stock-data", bars.GetStockData)
		api.GET("/symbols", bars.ListSymbols)

		// トレードジャーナル
		api.GET("/trades", trades.List)
		api.POST("/trades", trades.Create)
		api.PUT("/trades", trades.Update)
		api.PUT("/trades/:id", trades.Update)
	}

	// それ以外はフロントエンド
	r.NoRoute(handler.Static(opts.StaticDir))

	return r
}

// corsMiddleware は origins が空なら全オリジンを許可します。
func corsMiddleware(origins []string) gin.HandlerFunc {
	if len(origins) == 0 {
		return cors.Default()
	}
	cfg := cors.DefaultConfig()
	cfg.AllowOrigins = origins
	cfg.AllowHeaders = append(cfg.AllowHeaders, middleware.HeaderRequestID)
	cfg.ExposeHeaders = []string{middleware.HeaderRequestID}
	return cors.New(cfg)
}
