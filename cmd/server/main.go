package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"market_journal/internal/app/di"
	"market_journal/internal/app/router"
	"market_journal/internal/platform/config"
	"market_journal/internal/platform/db"
	"market_journal/internal/platform/logging"
)

func main() {
	configPath := flag.String("config", os.Getenv("MARKET_JOURNAL_CONFIG"), "settings YAML file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.Server.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// db
	if err := db.WaitReady(cfg.Database, 30*time.Second); err != nil {
		slog.Error("database not ready", "error", err)
		os.Exit(1)
	}

	// Repository / Usecase（スキーマ作成を含む）
	app, err := di.NewApp(ctx, cfg, nil)
	if err != nil {
		slog.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	// ルータ生成
	r := router.NewRouter(app.BarHandler(), app.TradeHandler(), router.Options{
		StaticDir:    cfg.Server.StaticDir,
		AllowOrigins: cfg.Server.AllowOrigins,
		Health:       app.Ping,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("server listening", "addr", cfg.Server.Addr, "provider", cfg.Provider.Name, "database", cfg.Database.Driver)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
