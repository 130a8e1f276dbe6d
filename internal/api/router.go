package api

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dompeassist/internal/logger"
)

type RouterOptions struct {
	AllowedOrigins []string
	// StaticDir is served with an index.html fallback when non-empty.
	StaticDir string
}

// NewRouter builds the gin engine with middleware, API routes and, in
// production, the single-page app.
func NewRouter(h *Handler, opts RouterOptions) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), AccessLog())
	if len(opts.AllowedOrigins) > 0 {
		router.Use(CORS(opts.AllowedOrigins))
	}
	h.RegisterRoutes(router)

	if opts.StaticDir != "" {
		registerSPA(router, opts.StaticDir)
	}
	return router
}

func registerSPA(router *gin.Engine, dir string) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		logger.L().Warn("static directory not found, skipping", zap.String("dir", dir))
		return
	}
	index := filepath.Join(dir, "index.html")
	router.NoRoute(func(c *gin.Context) {
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		rel := strings.TrimPrefix(path.Clean("/"+c.Request.URL.Path), "/")
		if rel != "" {
			candidate := filepath.Join(dir, filepath.FromSlash(rel))
			if fi, err := os.Stat(candidate); err == nil && !fi.IsDir() {
				c.File(candidate)
				return
			}
		}
		c.File(index)
	})
}
