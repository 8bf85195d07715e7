// Package middleware はルーター全体に適用するginミドルウェアを提供します。
package middleware

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HeaderRequestID is the header carrying the request id in both directions.
const HeaderRequestID = "X-Request-ID"

type ctxKey struct{}

// RequestID は受信した X-Request-ID を引き継ぐか新しく採番し、レスポンスヘッダーと
// リクエストの context に設定します。
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Header(HeaderRequestID, id)
		c.Set("request_id", id)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), ctxKey{}, id))
		c.Next()
	}
}

// RequestIDFrom returns the request id stored by RequestID, or "".
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// Logger は request_id 付きの slog ロガーを返します。
func Logger(ctx context.Context) *slog.Logger {
	if id := RequestIDFrom(ctx); id != "" {
		return slog.Default().With("request_id", id)
	}
	return slog.Default()
}
