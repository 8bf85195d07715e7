package di

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	journaladapters "market_journal/internal/feature/journal/adapters"
	journalhandler "market_journal/internal/feature/journal/transport/handler"
	journalusecase "market_journal/internal/feature/journal/usecase"
	marketdatahandler "market_journal/internal/feature/marketdata/transport/handler"
	"market_journal/internal/feature/marketdata/usecase"
	"market_journal/internal/platform/config"
	"market_journal/internal/platform/db"
	"market_journal/internal/shared/ratelimiter"
)

// App holds the wired components shared by the server and the CLI.
type App struct {
	Config  *config.Config
	Conn    db.Connector
	Redis   *redisv9.Client
	Bars    marketdatahandler.BarsUsecase
	Ingest  *usecase.IngestUsecase
	Journal *journalusecase.JournalUsecase
}

// NewApp wires storage, cache, provider and usecases from cfg and creates
// the schema. market may be nil, in which case the configured provider is used.
func NewApp(ctx context.Context, cfg *config.Config, market usecase.MarketRepository) (*App, error) {
	conn, err := db.NewConnector(cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := MigrateSchema(ctx, conn, cfg); err != nil {
		return nil, err
	}

	if market == nil {
		market, err = NewMarket(cfg)
		if err != nil {
			return nil, fmt.Errorf("create market provider: %w", err)
		}
	}

	rdb := NewRedis(ctx, cfg.Redis)
	bars := NewBarRepository(conn, rdb, cfg)
	limiter := ratelimiter.NewRateLimiter(cfg.Provider.RateLimit, time.Minute)

	return &App{
		Config:  cfg,
		Conn:    conn,
		Redis:   rdb,
		Bars:    usecase.NewBarsUsecase(bars),
		Ingest:  usecase.NewIngestUsecase(market, bars, limiter, cfg.Running.Workers),
		Journal: journalusecase.NewJournalUsecase(journaladapters.NewTradeRepository(conn, time.Now)),
	}, nil
}

// BarHandler builds the marketdata HTTP handler.
func (a *App) BarHandler() *marketdatahandler.BarHandler {
	return marketdatahandler.NewBarHandler(a.Bars, a.Ingest, a.Config.Provider.WindowDays)
}

// TradeHandler builds the journal HTTP handler.
func (a *App) TradeHandler() *journalhandler.TradeHandler {
	return journalhandler.NewTradeHandler(a.Journal)
}

// Ping checks that the database accepts connections.
func (a *App) Ping(ctx context.Context) error {
	return db.Ping(ctx, a.Conn)
}

// Close releases the Redis client. Database connections are per call.
func (a *App) Close() {
	if a.Redis == nil {
		return
	}
	if err := a.Redis.Close(); err != nil {
		slog.Error("Failed to close Redis client", "error", err)
	}
}
