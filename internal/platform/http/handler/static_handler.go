package handler

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"market_journal/internal/api"
)

// Static はビルド済みフロントエンドを配信します。dir 配下に存在するファイルはそのまま返し、
// それ以外は index.html にフォールバックします。/api/ 配下の未定義ルートは JSON の 404 です。
func Static(dir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := c.Request.URL.Path
		if strings.HasPrefix(p, "/api/") || (c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Not found"})
			return
		}

		// Clean は ".." を解決するので dir の外には出ない
		rel := path.Clean("/" + p)
		if rel != "/" {
			full := filepath.Join(dir, filepath.FromSlash(rel))
			if info, err := os.Stat(full); err == nil && !info.IsDir() {
				c.File(full)
				return
			}
		}

		index := filepath.Join(dir, "index.html")
		if _, err := os.Stat(index); err != nil {
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Not found"})
			return
		}
		c.File(index)
	}
}
