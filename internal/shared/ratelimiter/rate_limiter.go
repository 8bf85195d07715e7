package ratelimiter

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// RateLimiterInterface は、API呼び出しなどの操作の頻度を制限するインターフェースです。
type RateLimiterInterface interface {
	Wait(ctx context.Context) error
}

// RateLimiterは、API呼び出しなどの操作の頻度を制限します。複数のgoroutineから安全に使えます。
type RateLimiter struct {
	mu        sync.Mutex
	limit     int           // interval あたりの上限。0以下で無制限
	interval  time.Duration // どの単位でリセットするか
	count     int
	lastReset time.Time
	now       func() time.Time
}

// NewRateLimiterは新しいRateLimiterのインスタンスを生成します。
func NewRateLimiter(limit int, interval time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:     limit,
		interval:  interval,
		lastReset: time.Now(),
		now:       time.Now,
	}
}

// Waitはレートリミットの上限に達しているかを確認し、必要であれば次のウィンドウまで待機します。
// 待機中に ctx がキャンセルされた場合は ctx.Err() を返します。
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl.limit <= 0 {
		return nil
	}
	for {
		sleep := rl.reserve()
		if sleep <= 0 {
			return nil
		}
		slog.Warn("rate limit hit, sleeping", "limit", rl.limit, "sleep", sleep)
		t := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

// reserve は枠があればカウントして0を、なければ次のリセットまでの時間を返します。
func (rl *RateLimiter) reserve() time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	// interval を過ぎたらカウントリセット
	if now.Sub(rl.lastReset) >= rl.interval {
		rl.count = 0
		rl.lastReset = now
	}
	if rl.count < rl.limit {
		rl.count++
		return 0
	}
	return rl.interval - now.Sub(rl.lastReset)
}
