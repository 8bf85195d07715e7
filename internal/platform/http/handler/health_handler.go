// Package handler はプラットフォームレベルのエンドポイント用HTTPハンドラーを提供します。
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// CheckFunc はストレージなど依存先の疎通を確認します。
type CheckFunc func(ctx context.Context) error

// Health は /healthz を処理します。check が nil なら常に ok を返し、
// check が失敗した場合は 503 を返します。キャッシュは常に無効です。
func Health(check CheckFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")

		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		status := http.StatusOK
		body := gin.H{"status": "ok"}
		if check != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				slog.Warn("health check failed", "error", err)
				status = http.StatusServiceUnavailable
				body = gin.H{"status": "unavailable"}
			}
		}

		if c.Request.Method == http.MethodHead {
			c.Status(status)
			return
		}
		c.JSON(status, body)
	}
}
