package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"

	"market_journal/internal/feature/marketdata/domain/entity"
)

// mockBarRepository はテスト用のBarRepositoryモック実装です。
type mockBarRepository struct {
	queryFn   func(ctx context.Context, symbol, day string) ([]entity.Bar, error)
	upsertFn  func(ctx context.Context, symbol string, bars []entity.Bar) (int64, error)
	symbolsFn func(ctx context.Context) ([]string, error)
}

func (m *mockBarRepository) QueryBars(ctx context.Context, symbol, day string) ([]entity.Bar, error) {
	if m.queryFn != nil {
		return m.queryFn(ctx, symbol, day)
	}
	return nil, nil
}

func (m *mockBarRepository) UpsertBars(ctx context.Context, symbol string, bars []entity.Bar) (int64, error) {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, symbol, bars)
	}
	return int64(len(bars)), nil
}

func (m *mockBarRepository) ListSymbols(ctx context.Context) ([]string, error) {
	if m.symbolsFn != nil {
		return m.symbolsFn(ctx)
	}
	return nil, nil
}

var testNow = time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC)

func sampleBars() []entity.Bar {
	return []entity.Bar{
		{Symbol: "AAPL", TradeTime: time.Date(2024, 1, 3, 14, 30, 0, 0, time.UTC), Open: 187.1, High: 187.4, Low: 186.9, Close: 187.0, Volume: 1000},
	}
}

// TestNewCachingBarRepository_Defaults はデフォルト値（TTLとnamespace）が正しく設定されることを検証します。
func TestNewCachingBarRepository_Defaults(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name              string
		ttl               time.Duration
		namespace         string
		expectedTTL       time.Duration
		expectedNamespace string
	}{
		{"default values when zero/empty", 0, "", 5 * time.Minute, "marketdata"},
		{"negative ttl uses default", -1 * time.Minute, "", 5 * time.Minute, "marketdata"},
		{"custom values preserved", 10 * time.Minute, "custom", 10 * time.Minute, "custom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			repo := NewCachingBarRepository(nil, tt.ttl, &mockBarRepository{}, tt.namespace, nil)

			if repo.ttl != tt.expectedTTL {
				t.Errorf("expected TTL %v, got %v", tt.expectedTTL, repo.ttl)
			}
			if repo.namespace != tt.expectedNamespace {
				t.Errorf("expected namespace %q, got %q", tt.expectedNamespace, repo.namespace)
			}
			if repo.loc != time.UTC {
				t.Errorf("expected UTC location, got %v", repo.loc)
			}
		})
	}
}

// TestCachingBarRepository_QueryBars_NilRedis はRedisがnilの場合にキャッシュをバイパスすることを検証します。
func TestCachingBarRepository_QueryBars_NilRedis(t *testing.T) {
	t.Parallel()

	inner := &mockBarRepository{
		queryFn: func(ctx context.Context, symbol, day string) ([]entity.Bar, error) {
			return sampleBars(), nil
		},
	}

	repo := NewCachingBarRepository(nil, 5*time.Minute, inner, "marketdata", time.UTC)

	bars, err := repo.QueryBars(context.Background(), "AAPL", "2024-01-03")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bars) != 1 {
		t.Errorf("expected 1 bar, got %d", len(bars))
	}
}

// TestCachingBarRepository_QueryBars_CacheHit はキャッシュヒット時に内部リポジトリを呼ばないことを検証します。
func TestCachingBarRepository_QueryBars_CacheHit(t *testing.T) {
	t.Parallel()

	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	cachedJSON, _ := json.Marshal(sampleBars())
	mock.ExpectGet("marketdata:AAPL:2024-01-03").SetVal(string(cachedJSON))

	innerCalled := false
	inner := &mockBarRepository{
		queryFn: func(ctx context.Context, symbol, day string) ([]entity.Bar, error) {
			innerCalled = true
			return nil, nil
		},
	}

	repo := NewCachingBarRepository(rdb, 5*time.Minute, inner, "marketdata", time.UTC)
	bars, err := repo.QueryBars(context.Background(), "AAPL", "2024-01-03")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if innerCalled {
		t.Error("inner repository should not be called on cache hit")
	}
	if len(bars) != 1 || !bars[0].TradeTime.Equal(sampleBars()[0].TradeTime) {
		t.Errorf("unexpected bars from cache: %+v", bars)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled mock expectations: %v", err)
	}
}

// TestCachingBarRepository_QueryBars_CacheMiss はキャッシュミス時にDBから取得してキャッシュに保存することを検証します。
func TestCachingBarRepository_QueryBars_CacheMiss(t *testing.T) {
	t.Parallel()

	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	expectedJSON, _ := json.Marshal(sampleBars())
	mock.ExpectGet("marketdata:AAPL:2024-01-03").RedisNil()
	// 当日分なので base TTL
	mock.ExpectSet("marketdata:AAPL:2024-01-03", expectedJSON, 5*time.Minute).SetVal("OK")

	inner := &mockBarRepository{
		queryFn: func(ctx context.Context, symbol, day string) ([]entity.Bar, error) {
			return sampleBars(), nil
		},
	}

	repo := NewCachingBarRepository(rdb, 5*time.Minute, inner, "marketdata", time.UTC)
	repo.now = func() time.Time { return testNow }

	bars, err := repo.QueryBars(context.Background(), "AAPL", "2024-01-03")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bars) != 1 {
		t.Errorf("expected 1 bar, got %d", len(bars))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled mock expectations: %v", err)
	}
}

// TestCachingBarRepository_QueryBars_PastDayTTL は過去日のキャッシュが次の寄り付きまで保持されることを検証します。
func TestCachingBarRepository_QueryBars_PastDayTTL(t *testing.T) {
	t.Parallel()

	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	emptyJSON, _ := json.Marshal([]entity.Bar{})
	mock.ExpectGet("marketdata:AAPL:2024-01-02").RedisNil()
	// 12:00 UTC から翌 09:30 UTC まで
	mock.ExpectSet("marketdata:AAPL:2024-01-02", emptyJSON, 21*time.Hour+30*time.Minute).SetVal("OK")

	inner := &mockBarRepository{
		queryFn: func(ctx context.Context, symbol, day string) ([]entity.Bar, error) {
			return []entity.Bar{}, nil
		},
	}

	repo := NewCachingBarRepository(rdb, 5*time.Minute, inner, "marketdata", time.UTC)
	repo.now = func() time.Time { return testNow }

	if _, err := repo.QueryBars(context.Background(), "AAPL", "2024-01-02"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled mock expectations: %v", err)
	}
}

// TestCachingBarRepository_QueryBars_InnerError は内部リポジトリのエラーが伝播されることを検証します。
func TestCachingBarRepository_QueryBars_InnerError(t *testing.T) {
	t.Parallel()

	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	expectedErr := errors.New("database error")
	mock.ExpectGet("marketdata:AAPL:2024-01-03").RedisNil()

	inner := &mockBarRepository{
		queryFn: func(ctx context.Context, symbol, day string) ([]entity.Bar, error) {
			return nil, expectedErr
		},
	}

	repo := NewCachingBarRepository(rdb, 5*time.Minute, inner, "marketdata", time.UTC)
	_, err := repo.QueryBars(context.Background(), "AAPL", "2024-01-03")

	if !errors.Is(err, expectedErr) {
		t.Errorf("expected error %v, got %v", expectedErr, err)
	}
}

// TestCachingBarRepository_QueryBars_CorruptedCache は破損したキャッシュを削除してDBにフォールバックすることを検証します。
func TestCachingBarRepository_QueryBars_CorruptedCache(t *testing.T) {
	t.Parallel()

	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	expectedJSON, _ := json.Marshal(sampleBars())
	mock.ExpectGet("marketdata:AAPL:2024-01-03").SetVal("invalid json")
	mock.ExpectDel("marketdata:AAPL:2024-01-03").SetVal(1)
	mock.ExpectSet("marketdata:AAPL:2024-01-03", expectedJSON, 5*time.Minute).SetVal("OK")

	inner := &mockBarRepository{
		queryFn: func(ctx context.Context, symbol, day string) ([]entity.Bar, error) {
			return sampleBars(), nil
		},
	}

	repo := NewCachingBarRepository(rdb, 5*time.Minute, inner, "marketdata", time.UTC)
	repo.now = func() time.Time { return testNow }

	bars, err := repo.QueryBars(context.Background(), "AAPL", "2024-01-03")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bars) != 1 {
		t.Errorf("expected 1 bar, got %d", len(bars))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled mock expectations: %v", err)
	}
}

// TestCachingBarRepository_UpsertBars_Invalidation は書き込み後に銘柄のキャッシュが無効化されることを検証します。
func TestCachingBarRepository_UpsertBars_Invalidation(t *testing.T) {
	t.Parallel()

	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	mock.ExpectScan(0, "marketdata:AAPL:*", 200).SetVal([]string{"marketdata:AAPL:2024-01-02", "marketdata:AAPL:2024-01-03"}, 0)
	mock.ExpectDel("marketdata:AAPL:2024-01-02", "marketdata:AAPL:2024-01-03").SetVal(2)

	repo := NewCachingBarRepository(rdb, 5*time.Minute, &mockBarRepository{}, "marketdata", time.UTC)

	n, err := repo.UpsertBars(context.Background(), "AAPL", sampleBars())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 written, got %d", n)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled mock expectations: %v", err)
	}
}

// TestCachingBarRepository_UpsertBars_InvalidationGlobSymbol はグロブ文字を含む銘柄でもキャッシュが無効化されることを検証します。
func TestCachingBarRepository_UpsertBars_InvalidationGlobSymbol(t *testing.T) {
	t.Parallel()

	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	mock.ExpectGet("marketdata:BRK_B_:2024-01-03").RedisNil()
	mock.ExpectSet("marketdata:BRK_B_:2024-01-03", []byte("[]"), 5*time.Minute).SetVal("OK")
	mock.ExpectScan(0, "marketdata:BRK_B_:*", 200).SetVal([]string{"marketdata:BRK_B_:2024-01-03"}, 0)
	mock.ExpectDel("marketdata:BRK_B_:2024-01-03").SetVal(1)

	inner := &mockBarRepository{
		queryFn: func(ctx context.Context, symbol, day string) ([]entity.Bar, error) {
			return []entity.Bar{}, nil
		},
	}
	repo := NewCachingBarRepository(rdb, 5*time.Minute, inner, "marketdata", time.UTC)
	repo.now = func() time.Time { return time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC) }

	if _, err := repo.QueryBars(context.Background(), "BRK[B]", "2024-01-03"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := repo.UpsertBars(context.Background(), "BRK[B]", sampleBars()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled mock expectations: %v", err)
	}
}

// TestCachingBarRepository_UpsertBars_NothingWritten は書き込み0件ならキャッシュに触れないことを検証します。
func TestCachingBarRepository_UpsertBars_NothingWritten(t *testing.T) {
	t.Parallel()

	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	inner := &mockBarRepository{
		upsertFn: func(ctx context.Context, symbol string, bars []entity.Bar) (int64, error) {
			return 0, nil
		},
	}

	repo := NewCachingBarRepository(rdb, 5*time.Minute, inner, "marketdata", time.UTC)

	n, err := repo.UpsertBars(context.Background(), "AAPL", sampleBars())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 written, got %d", n)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unexpected redis calls: %v", err)
	}
}

// TestCachingBarRepository_UpsertBars_InnerError は内部リポジトリのエラーが伝播されることを検証します。
func TestCachingBarRepository_UpsertBars_InnerError(t *testing.T) {
	t.Parallel()

	expectedErr := errors.New("upsert error")
	inner := &mockBarRepository{
		upsertFn: func(ctx context.Context, symbol string, bars []entity.Bar) (int64, error) {
			return 0, expectedErr
		},
	}

	repo := NewCachingBarRepository(nil, 5*time.Minute, inner, "marketdata", time.UTC)
	_, err := repo.UpsertBars(context.Background(), "AAPL", sampleBars())

	if !errors.Is(err, expectedErr) {
		t.Errorf("expected error %v, got %v", expectedErr, err)
	}
}

// TestCachingBarRepository_UpsertBars_ScanFailureIsIgnored はキャッシュ削除の失敗が書き込み結果に影響しないことを検証します。
func TestCachingBarRepository_UpsertBars_ScanFailureIsIgnored(t *testing.T) {
	t.Parallel()

	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	mock.ExpectScan(0, "marketdata:AAPL:*", 200).SetErr(errors.New("redis down"))

	repo := NewCachingBarRepository(rdb, 5*time.Minute, &mockBarRepository{}, "marketdata", time.UTC)

	n, err := repo.UpsertBars(context.Background(), "AAPL", sampleBars())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 written, got %d", n)
	}
}

// TestCachingBarRepository_ListSymbols は ListSymbols がそのまま委譲されることを検証します。
func TestCachingBarRepository_ListSymbols(t *testing.T) {
	t.Parallel()

	inner := &mockBarRepository{
		symbolsFn: func(ctx context.Context) ([]string, error) {
			return []string{"AAPL", "SPY"}, nil
		},
	}

	repo := NewCachingBarRepository(nil, 0, inner, "", nil)

	got, err := repo.ListSymbols(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0] != "AAPL" {
		t.Errorf("unexpected symbols: %v", got)
	}
}

// TestSafe はsafe関数がRedisキーで問題となる文字を正しくエスケープすることを検証します。
func TestSafe(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected string
	}{
		{"AAPL", "AAPL"},
		{"BRK A", "BRK_A"},
		{"key:value", "key_value"},
		{"SP*", "SP_"},
		{"BRK[B]", "BRK_B_"},
		{"X?Y", "X_Y"},
		{`A\B`, "A_B"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			if got := safe(tt.input); got != tt.expected {
				t.Errorf("safe(%q) = %q, expected %q", tt.input, got, tt.expected)
			}
		})
	}
}
