package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"

	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/image-optimizer/internal/api/handlers/image"
	"github.com/aliskhannn/image-optimizer/internal/api/router"
	"github.com/aliskhannn/image-optimizer/internal/api/server"
	"github.com/aliskhannn/image-optimizer/internal/archive"
	"github.com/aliskhannn/image-optimizer/internal/config"
	"github.com/aliskhannn/image-optimizer/internal/infra/kafka/producer"
	"github.com/aliskhannn/image-optimizer/internal/metrics"
	"github.com/aliskhannn/image-optimizer/internal/middleware"
	"github.com/aliskhannn/image-optimizer/internal/model"
	"github.com/aliskhannn/image-optimizer/internal/processor"
	"github.com/aliskhannn/image-optimizer/internal/reaper"
	imagesvc "github.com/aliskhannn/image-optimizer/internal/service/image"
	"github.com/aliskhannn/image-optimizer/internal/storage"
	"github.com/aliskhannn/image-optimizer/internal/storage/bucket"
	"github.com/aliskhannn/image-optimizer/internal/storage/file"
)

// publisher is satisfied by both the Kafka producer and producer.Nop.
type publisher interface {
	Publish(ev model.Event)
}

func main() {
	// Context & signals: used for graceful shutdown on system interrupts.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	zlog.Init()
	cfg := config.MustLoad("./config/config.yml")

	store, err := newStore(ctx, cfg.Storage)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to initialize artifact store")
	}

	m := metrics.New()

	var wg sync.WaitGroup

	// Lifecycle events go to Kafka only when enabled.
	var events publisher = producer.Nop{}
	if cfg.Kafka.Enabled {
		strategy := retry.Strategy{
			Attempts: cfg.Retry.Attempts,
			Delay:    cfg.Retry.Delay,
			Backoff:  cfg.Retry.Backoff,
		}

		p := producer.New(&cfg.Kafka, strategy)
		wg.Add(1)
		go p.Run(ctx, &wg)
		events = p
	}

	imageProcessor := processor.New(processor.Options{
		WebPQuality: cfg.Processor.WebPQuality,
		JPEGQuality: cfg.Processor.JPEGQuality,
	})
	builder := archive.NewBuilder(store)
	service := imagesvc.NewService(imageProcessor, builder, store, events, m)
	imgHandler := image.NewHandler(service, m, cfg.Server.MaxUploadBytes)

	// Orphaned archive sweep.
	rp := reaper.New(store, events, cfg.Reaper.Interval, cfg.Reaper.Grace,
		reaper.WithMetrics(m.Reaped, m.SweepErrors))
	wg.Add(1)
	go rp.Run(ctx, &wg)

	var limiter *middleware.RateLimiter
	if cfg.Server.RateLimit > 0 {
		limiter = middleware.NewRateLimiter(cfg.Server.RateLimit)
	}

	r := router.Setup(imgHandler, m, limiter)
	s := server.New(cfg.Server, r)
	go func() {
		zlog.Logger.Info().Str("addr", s.Addr).Msg("starting server")
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Block until context is canceled (SIGINT/SIGTERM).
	<-ctx.Done()
	zlog.Logger.Info().Msg("context done")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	zlog.Logger.Info().Msg("shutting down server")
	if err := s.Shutdown(shutdownCtx); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to shutdown server")
	}
	if errors.Is(shutdownCtx.Err(), context.DeadlineExceeded) {
		zlog.Logger.Info().Msg("timeout exceeded, forcing shutdown")
	}

	// Wait for the reaper and the event producer to finish.
	wg.Wait()
}

// newStore builds the artifact store backend selected in the configuration.
func newStore(ctx context.Context, cfg config.Storage) (storage.Store, error) {
	switch cfg.Backend {
	case "", "file":
		zlog.Logger.Info().Str("dir", cfg.BaseDir).Msg("using file artifact store")
		return file.NewStorage(cfg.BaseDir), nil
	case "minio":
		zlog.Logger.Info().Str("endpoint", cfg.Endpoint).Str("bucket", cfg.BucketName).Msg("using minio artifact store")
		return bucket.NewStorage(ctx, cfg.Endpoint, cfg.AccessKey, cfg.SecretKey, cfg.BucketName, cfg.Prefix, cfg.UseSSL)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
