package image

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/image-optimizer/internal/archive"
	"github.com/aliskhannn/image-optimizer/internal/markup"
	"github.com/aliskhannn/image-optimizer/internal/metrics"
	"github.com/aliskhannn/image-optimizer/internal/model"
	"github.com/aliskhannn/image-optimizer/internal/processor"
	"github.com/aliskhannn/image-optimizer/internal/storage"
)

// transcoder produces the encoded variants of an image.
type transcoder interface {
	Transcode(ctx context.Context, basename string, data []byte, plan model.Plan) ([]model.EncodedVariant, error)
}

// builder packs variants into a stored archive.
type builder interface {
	Build(ctx context.Context, basename string, variants []model.EncodedVariant) (model.Artifact, error)
}

// artifactStore is the read and delete side of the artifact store.
type artifactStore interface {
	Open(ctx context.Context, name string) (io.ReadCloser, model.Artifact, error)
	Delete(ctx context.Context, name string) error
}

// publisher receives archive lifecycle events.
type publisher interface {
	Publish(ev model.Event)
}

// Service runs the upload pipeline and the one-shot download.
type Service struct {
	transcoder transcoder
	builder    builder
	store      artifactStore
	publisher  publisher
	metrics    *metrics.Collector
}

// NewService creates a new Service.
func NewService(t transcoder, b builder, s artifactStore, p publisher, m *metrics.Collector) *Service {
	return &Service{
		transcoder: t,
		builder:    b,
		store:      s,
		publisher:  p,
		metrics:    m,
	}
}

// Optimize transcodes a validated upload into every planned variant, stores
// them as one archive and renders the markup referencing them.
// Nothing is stored when any variant fails.
func (s *Service) Optimize(ctx context.Context, upload model.Upload) (model.Result, error) {
	start := time.Now()
	basename := archive.Basename(upload.Filename)
	plan := processor.Plan(upload.SniffedMIME)

	variants, err := s.transcoder.Transcode(ctx, basename, upload.Data, plan)
	if err != nil {
		s.metrics.Uploads.WithLabelValues("failed").Inc()
		return model.Result{}, fmt.Errorf("optimize: %w", err)
	}

	artifact, err := s.builder.Build(ctx, basename, variants)
	if err != nil {
		s.metrics.Uploads.WithLabelValues("failed").Inc()
		return model.Result{}, fmt.Errorf("optimize: %w", err)
	}

	s.metrics.Uploads.WithLabelValues("ok").Inc()
	s.metrics.PipelineDuration.WithLabelValues(upload.SniffedMIME).Observe(time.Since(start).Seconds())
	s.metrics.ArchiveBytes.Observe(float64(artifact.Size))

	s.publisher.Publish(model.Event{
		Type: model.EventArchiveCreated,
		Name: artifact.Name,
		Size: artifact.Size,
		At:   time.Now(),
	})

	zlog.Logger.Info().
		Str("archive", artifact.Name).
		Int("variants", len(variants)).
		Int64("size", artifact.Size).
		Dur("took", time.Since(start)).
		Msg("archive created")

	return model.Result{
		FileName: artifact.Name,
		HTMLCode: markup.Render(variants),
	}, nil
}

// Download opens the archive and hands it to serve. The archive is deleted
// only after serve returns without error; a failed transfer leaves it for the
// reaper. Returns storage.ErrNotFound when the archive does not exist.
func (s *Service) Download(ctx context.Context, name string, serve func(a model.Artifact, r io.Reader) error) error {
	rc, artifact, err := s.store.Open(ctx, name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.metrics.Downloads.WithLabelValues("not_found").Inc()
			return storage.ErrNotFound
		}
		s.metrics.Downloads.WithLabelValues("failed").Inc()
		return fmt.Errorf("download: %w", err)
	}

	serveErr := serve(artifact, rc)
	if err := rc.Close(); err != nil {
		zlog.Logger.Warn().Err(err).Str("archive", name).Msg("failed to close archive reader")
	}

	if serveErr != nil {
		s.metrics.Downloads.WithLabelValues("failed").Inc()
		return fmt.Errorf("download: %w", serveErr)
	}

	// The reaper may have removed it in the meantime; Delete tolerates that.
	if err := s.store.Delete(ctx, name); err != nil {
		zlog.Logger.Err(err).Str("archive", name).Msg("failed to delete downloaded archive")
	}

	s.metrics.Downloads.WithLabelValues("ok").Inc()
	s.publisher.Publish(model.Event{
		Type: model.EventArchiveDownloaded,
		Name: name,
		Size: artifact.Size,
		At:   time.Now(),
	})

	return nil
}
