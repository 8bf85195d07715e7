package adapters

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"market_journal/internal/feature/marketdata/domain"
	"market_journal/internal/feature/marketdata/domain/entity"
	"market_journal/internal/feature/marketdata/usecase"
	"market_journal/internal/platform/config"
)

// mongoDuplicateKey is the server error code for a unique index violation.
const mongoDuplicateKey = 11000

// barMongo は分足を MongoDB のコレクションに保存します。
// SQL ストアと同じく呼び出しごとにクライアントを開いて閉じます。
type barMongo struct {
	cfg config.MongoConfig
}

var _ usecase.BarRepository = (*barMongo)(nil)

func NewBarMongoRepository(cfg config.MongoConfig) *barMongo {
	return &barMongo{cfg: cfg}
}

func (r *barMongo) withCollection(ctx context.Context, fn func(coll *mongo.Collection) error) error {
	client, err := mongo.Connect(options.Client().ApplyURI(r.cfg.URI))
	if err != nil {
		return fmt.Errorf("connect mongo: %w", err)
	}
	defer func() {
		if err := client.Disconnect(context.WithoutCancel(ctx)); err != nil {
			slog.Warn("failed to disconnect mongo client", "error", err)
		}
	}()
	return fn(client.Database(r.cfg.Database).Collection(r.cfg.Collection))
}

// EnsureIndexes は (symbol, tradetime) のユニークインデックスと日付検索用インデックスを作成します。
func (r *barMongo) EnsureIndexes(ctx context.Context) error {
	return r.withCollection(ctx, func(coll *mongo.Collection) error {
		_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
			{
				Keys:    bson.D{{Key: "symbol", Value: 1}, {Key: "tradetime", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("uniq_symbol_tradetime"),
			},
			{
				Keys:    bson.D{{Key: "symbol", Value: 1}, {Key: "tradeday", Value: 1}},
				Options: options.Index().SetName("idx_symbol_tradeday"),
			},
		})
		return err
	})
}

// UpsertBars は順序なしの一括挿入を行い、ユニークインデックス違反の行はスキップします。
// 重複以外の書き込みエラーがあれば ErrStorage を返します。
func (r *barMongo) UpsertBars(ctx context.Context, symbol string, bars []entity.Bar) (int64, error) {
	if len(bars) == 0 {
		return 0, nil
	}
	docs := make([]BarModel, 0, len(bars))
	for _, e := range bars {
		docs = append(docs, toModel(symbol, e))
	}

	var written int64
	err := r.withCollection(ctx, func(coll *mongo.Collection) error {
		res, err := coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
		n, err := insertedCount(len(docs), res, err)
		written = n
		return err
	})
	if err != nil {
		slog.Error("failed to upsert bars", "symbol", symbol, "rows", len(bars), "error", err)
		return 0, domain.ErrStorage
	}
	return written, nil
}

// insertedCount は InsertMany の結果から実際に挿入された件数を求めます。
// 重複キーだけの BulkWriteException は成功扱いです。
func insertedCount(total int, res *mongo.InsertManyResult, err error) (int64, error) {
	if err == nil {
		if res == nil {
			return int64(total), nil
		}
		return int64(len(res.InsertedIDs)), nil
	}
	var bwe mongo.BulkWriteException
	if !errors.As(err, &bwe) || bwe.WriteConcernError != nil {
		return 0, err
	}
	for _, we := range bwe.WriteErrors {
		if we.Code != mongoDuplicateKey {
			return 0, err
		}
	}
	return int64(total - len(bwe.WriteErrors)), nil
}

func (r *barMongo) QueryBars(ctx context.Context, symbol, day string) ([]entity.Bar, error) {
	var docs []BarModel
	err := r.withCollection(ctx, func(coll *mongo.Collection) error {
		cur, err := coll.Find(ctx, dayFilter(symbol, day))
		if err != nil {
			return err
		}
		return cur.All(ctx, &docs)
	})
	if err != nil {
		slog.Error("failed to query bars", "symbol", symbol, "day", day, "error", err)
		return nil, domain.ErrStorage
	}

	out := make([]entity.Bar, 0, len(docs))
	for _, m := range docs {
		b, err := toEntity(m)
		if err != nil {
			slog.Error("corrupt bar document", "symbol", symbol, "day", day, "error", err)
			return nil, domain.ErrStorage
		}
		out = append(out, b)
	}
	return out, nil
}

// dayFilter は銘柄と取引日の完全一致です。並び順は保存順のままにします。
func dayFilter(symbol, day string) bson.D {
	return bson.D{{Key: "symbol", Value: symbol}, {Key: "tradeday", Value: day}}
}

func (r *barMongo) ListSymbols(ctx context.Context) ([]string, error) {
	out := []string{}
	err := r.withCollection(ctx, func(coll *mongo.Collection) error {
		res := coll.Distinct(ctx, "symbol", bson.D{})
		if err := res.Err(); err != nil {
			return err
		}
		return res.Decode(&out)
	})
	if err != nil {
		slog.Error("failed to list symbols", "error", err)
		return nil, domain.ErrStorage
	}
	slices.Sort(out)
	return out, nil
}
