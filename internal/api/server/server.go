package server

import (
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/klauspost/compress/gzhttp"

	"github.com/aliskhannn/image-optimizer/internal/config"
)

// New wraps handler with CORS and response compression and returns the HTTP server.
func New(cfg config.Server, handler http.Handler) *http.Server {
	handler = cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	})(handler)

	return &http.Server{
		Addr:              cfg.Addr(),
		Handler:           gzhttp.GzipHandler(handler),
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
