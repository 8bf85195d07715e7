package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"market_journal/internal/feature/marketdata/domain"
	"market_journal/internal/feature/marketdata/domain/entity"
	"market_journal/internal/shared/ratelimiter"
)

// MarketRepository は外部プロバイダから直近ウィンドウの分足を取得します。
// 空の結果は正常系で、通信エラーとは区別されます。
type MarketRepository interface {
	GetMinuteBars(ctx context.Context, symbol string) ([]entity.Bar, error)
}

// IngestResult は IngestAll の銘柄ごとの結果です。
type IngestResult struct {
	Symbol  string
	Written int64
	Err     error
}

// IngestUsecase は外部APIから分足を取得し、データベースに永続化するユースケースです。
type IngestUsecase struct {
	market      MarketRepository
	bars        BarRepository
	rateLimiter ratelimiter.RateLimiterInterface
	workers     int
}

// NewIngestUsecase は新しい IngestUsecase を作成します。workers が1未満の場合は1として扱います。
func NewIngestUsecase(market MarketRepository, bars BarRepository, rateLimiter ratelimiter.RateLimiterInterface, workers int) *IngestUsecase {
	if workers < 1 {
		workers = 1
	}
	return &IngestUsecase{market: market, bars: bars, rateLimiter: rateLimiter, workers: workers}
}

// Ingest は銘柄の直近ウィンドウを取得して保存し、新たに書き込んだ件数を返します。
// プロバイダが空を返した場合は domain.ErrNoData を返し、何も書き込みません。
// ストアのエラーはそのまま返します。
func (iu *IngestUsecase) Ingest(ctx context.Context, symbol string) (int64, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return 0, fmt.Errorf("%w: symbol is required", domain.ErrInvalidQuery)
	}
	if iu.rateLimiter != nil {
		if err := iu.rateLimiter.Wait(ctx); err != nil {
			return 0, err
		}
	}

	bs, err := iu.market.GetMinuteBars(ctx, symbol)
	if err != nil {
		return 0, fmt.Errorf("fetch %s: %w", symbol, err)
	}
	if len(bs) == 0 {
		return 0, fmt.Errorf("%w: %s", domain.ErrNoData, symbol)
	}

	// 取得したデータに銘柄コードを設定
	for i := range bs {
		bs[i].Symbol = symbol
	}
	return iu.bars.UpsertBars(ctx, symbol, bs)
}

// IngestAll は全銘柄を最大 workers 並列で取り込みます。
// 1つの銘柄でエラーが発生しても処理を止めずにログに出力し、結果に記録します。
func (iu *IngestUsecase) IngestAll(ctx context.Context, symbols []string) []IngestResult {
	results := make([]IngestResult, len(symbols))

	var g errgroup.Group
	g.SetLimit(iu.workers)
	for i, s := range symbols {
		g.Go(func() error {
			n, err := iu.Ingest(ctx, s)
			results[i] = IngestResult{Symbol: s, Written: n, Err: err}
			if err != nil {
				slog.Error("failed to ingest data", "symbol", s, "error", err)
				return nil
			}
			slog.Info("ingested bars", "symbol", s, "written", n)
			return nil
		})
	}
	_ = g.Wait()

	return results
}
