// Package retry はプロバイダ呼び出しのバックオフ設定をまとめます。
package retry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrTooManyRequests はプロバイダのレート制限に達したことを表します。
var ErrTooManyRequests = errors.New("too many requests")

// Policy はリトライ回数と待機間隔を決めます。
type Policy struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultPolicy returns the policy used against live providers.
func DefaultPolicy(maxRetries int) Policy {
	return Policy{
		MaxRetries:      maxRetries,
		InitialInterval: time.Second,
		MaxInterval:     30 * time.Second,
	}
}

// NewBackOff は ctx のキャンセルで止まる指数バックオフを返します。
func (p Policy) NewBackOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		eb.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		eb.MaxInterval = p.MaxInterval
	}
	eb.MaxElapsedTime = 0
	retries := p.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(retries)), ctx)
}

// Notifier logs each failed attempt before the next wait.
func Notifier(provider, symbol string) backoff.Notify {
	return func(err error, d time.Duration) {
		if errors.Is(err, ErrTooManyRequests) {
			slog.Info("request exceeded rate limit, waiting before retrying", "provider", provider, "symbol", symbol, "wait", d, "error", err)
			return
		}
		slog.Warn("request failed, waiting before retrying", "provider", provider, "symbol", symbol, "wait", d, "error", err)
	}
}

// Do runs op under the policy. Errors wrapped with backoff.Permanent stop
// immediately and are returned unwrapped.
func (p Policy) Do(ctx context.Context, provider, symbol string, op func() error) error {
	return backoff.RetryNotify(op, p.NewBackOff(ctx), Notifier(provider, symbol))
}
