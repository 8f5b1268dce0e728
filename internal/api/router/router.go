package router

import (
	"github.com/wb-go/wbf/ginext"

	"github.com/aliskhannn/image-optimizer/internal/api/handlers/image"
	"github.com/aliskhannn/image-optimizer/internal/metrics"
	"github.com/aliskhannn/image-optimizer/internal/middleware"
)

// Setup registers every route. A nil limiter disables rate limiting.
func Setup(h *image.Handler, m *metrics.Collector, limiter *middleware.RateLimiter) *ginext.Engine {
	r := ginext.New()

	r.Use(ginext.Logger())
	r.Use(ginext.Recovery())
	r.Use(middleware.SecureHeaders())

	r.GET("/health", image.Health)

	metricsHandler := m.Handler()
	r.GET("/metrics", func(c *ginext.Context) {
		metricsHandler.ServeHTTP(c.Writer, c.Request)
	})

	api := r.Group("/")
	if limiter != nil {
		api.Use(limiter.Handler())
	}

	api.POST("/upload", h.Upload)              // uploading image
	api.GET("/download/:filename", h.Download) // one-shot archive download

	return r
}
