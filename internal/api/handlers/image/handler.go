package image

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/image-optimizer/internal/api/respond"
	"github.com/aliskhannn/image-optimizer/internal/metrics"
	"github.com/aliskhannn/image-optimizer/internal/model"
	"github.com/aliskhannn/image-optimizer/internal/storage"
	"github.com/aliskhannn/image-optimizer/internal/validator"
)

// multipartMemory is how much of a multipart body is kept in memory before
// spilling to temporary files.
const multipartMemory = 10 << 20

// downloadHeaders are set before streaming and removed again if nothing was sent.
var downloadHeaders = []string{"Content-Disposition", "Content-Type", "Content-Length", "Cache-Control"}

// errNotFound is the message of a download miss.
var errNotFound = errors.New("file not found or already downloaded")

// service defines the interface for the upload pipeline and downloads.
type service interface {
	Optimize(ctx context.Context, upload model.Upload) (model.Result, error)
	Download(ctx context.Context, name string, serve func(a model.Artifact, r io.Reader) error) error
}

// Handler provides HTTP handlers for upload and download endpoints.
type Handler struct {
	service        service
	metrics        *metrics.Collector
	maxUploadBytes int64
}

// NewHandler creates a new Handler with the given service.
// maxUploadBytes caps the request body of an upload; 0 disables the cap.
func NewHandler(s service, m *metrics.Collector, maxUploadBytes int64) *Handler {
	return &Handler{service: s, metrics: m, maxUploadBytes: maxUploadBytes}
}

// Upload validates the multipart body, runs the pipeline and responds with the
// archive name and the markup.
func (h *Handler) Upload(c *ginext.Context) {
	upload, err := h.readUpload(c)
	if err != nil {
		if !validator.IsRejection(err) {
			h.metrics.Uploads.WithLabelValues("failed").Inc()
			zlog.Logger.Err(err).Msg("failed to read upload")
			respond.Internal(c, err)
			return
		}

		h.metrics.Uploads.WithLabelValues("rejected").Inc()
		zlog.Logger.Warn().Err(err).Msg("upload rejected")
		respond.Fail(c, http.StatusBadRequest, err)
		return
	}

	zlog.Logger.Info().
		Str("filename", upload.Filename).
		Str("declared", upload.DeclaredMIME).
		Str("sniffed", upload.SniffedMIME).
		Int("size", len(upload.Data)).
		Msg("uploaded file")

	result, err := h.service.Optimize(c.Request.Context(), upload)
	if err != nil {
		zlog.Logger.Err(err).Str("filename", upload.Filename).Msg("failed to optimize the image")
		respond.Internal(c, err)
		return
	}

	respond.OK(c, result, "Data uploaded successfully")
}

// readUpload applies every validation step, in order, and returns the upload.
func (h *Handler) readUpload(c *ginext.Context) (model.Upload, error) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}

	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return model.Upload{}, validator.ErrTooLarge
		case errors.Is(err, http.ErrNotMultipart), errors.Is(err, http.ErrMissingBoundary):
			return model.Upload{}, validator.ErrNotMultipart
		default:
			return model.Upload{}, validator.ErrNoFile
		}
	}

	header, err := validator.Form(c.Request.MultipartForm)
	if err != nil {
		return model.Upload{}, err
	}

	file, err := header.Open()
	if err != nil {
		return model.Upload{}, fmt.Errorf("open uploaded file: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return model.Upload{}, fmt.Errorf("read uploaded file: %w", err)
	}

	sniffed, err := validator.Image(data)
	if err != nil {
		return model.Upload{}, err
	}

	return model.Upload{
		Filename:     header.Filename,
		DeclaredMIME: header.Header.Get("Content-Type"),
		SniffedMIME:  sniffed,
		Data:         data,
	}, nil
}

// Download streams the archive once and deletes it afterwards.
func (h *Handler) Download(c *ginext.Context) {
	name := c.Param("filename")

	err := h.service.Download(c.Request.Context(), name, func(a model.Artifact, r io.Reader) error {
		c.Header("Content-Disposition", "attachment; filename="+name)
		c.Header("Content-Type", "application/zip")
		c.Header("Content-Length", strconv.FormatInt(a.Size, 10))
		c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
		c.Status(http.StatusOK)

		if _, err := io.Copy(c.Writer, r); err != nil {
			return fmt.Errorf("stream archive: %w", err)
		}

		return nil
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			zlog.Logger.Debug().Str("archive", name).Msg("archive not found")
			respond.Fail(c, http.StatusNotFound, errNotFound)
			return
		}

		zlog.Logger.Err(err).Str("archive", name).Msg("failed to serve archive")
		if !c.Writer.Written() {
			for _, k := range downloadHeaders {
				c.Writer.Header().Del(k)
			}
			respond.Internal(c, err)
		}
		return
	}

	zlog.Logger.Info().Str("archive", name).Msg("archive downloaded")
}

// Health reports that the server is up.
func Health(c *ginext.Context) {
	respond.JSON(c, http.StatusOK, map[string]string{"status": "ok"})
}
