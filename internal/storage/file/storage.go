package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/aliskhannn/image-optimizer/internal/model"
	"github.com/aliskhannn/image-optimizer/internal/storage"
)

const partSuffix = ".part"

// Storage provides a file-based artifact store.
// Archives are stored flat under basePath. An archive's creation time is its
// modification time: files are written once and never touched again.
type Storage struct {
	basePath string
}

// NewStorage creates a new Storage instance with the given basePath.
// The directory is created lazily on the first write.
func NewStorage(basePath string) *Storage {
	return &Storage{basePath: basePath}
}

// Create writes the archive to a hidden temporary file and renames it into
// place once complete, so readers never observe a partial archive.
func (s *Storage) Create(_ context.Context, name string, write func(w io.Writer) error) (model.Artifact, error) {
	if !storage.ValidName(name) {
		return model.Artifact{}, fmt.Errorf("invalid artifact name %q", name)
	}

	if err := os.MkdirAll(s.basePath, 0o750); err != nil {
		return model.Artifact{}, fmt.Errorf("failed to create directory %s: %w", s.basePath, err)
	}

	tmp, err := os.CreateTemp(s.basePath, "."+name+".*"+partSuffix)
	if err != nil {
		return model.Artifact{}, fmt.Errorf("failed to create file for %s: %w", name, err)
	}

	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	if err := write(tmp); err != nil {
		_ = tmp.Close()
		cleanup()
		return model.Artifact{}, fmt.Errorf("failed to write %s: %w", name, err)
	}

	if err := tmp.Close(); err != nil {
		cleanup()
		return model.Artifact{}, fmt.Errorf("failed to close %s: %w", name, err)
	}

	dstPath := filepath.Join(s.basePath, name)
	if err := os.Rename(tmpPath, dstPath); err != nil {
		cleanup()
		return model.Artifact{}, fmt.Errorf("failed to save file %s: %w", dstPath, err)
	}

	info, err := os.Stat(dstPath)
	if err != nil {
		return model.Artifact{}, fmt.Errorf("failed to stat %s: %w", dstPath, err)
	}

	return toArtifact(info), nil
}

// Open opens the archive and returns a reader.
func (s *Storage) Open(_ context.Context, name string) (io.ReadCloser, model.Artifact, error) {
	if !storage.ValidName(name) {
		return nil, model.Artifact{}, storage.ErrNotFound
	}

	f, err := os.Open(filepath.Join(s.basePath, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, model.Artifact{}, storage.ErrNotFound
		}
		return nil, model.Artifact{}, fmt.Errorf("failed to open %s: %w", name, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, model.Artifact{}, fmt.Errorf("failed to stat %s: %w", name, err)
	}

	if !info.Mode().IsRegular() {
		_ = f.Close()
		return nil, model.Artifact{}, storage.ErrNotFound
	}

	return f, toArtifact(info), nil
}

// List returns every regular file under basePath sorted by name, leftover
// partial writes included so they can be reaped as well.
// A missing directory means an empty store.
func (s *Storage) List(_ context.Context) ([]model.Artifact, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read directory %s: %w", s.basePath, err)
	}

	artifacts := make([]model.Artifact, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}

		info, err := e.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("failed to stat %s: %w", e.Name(), err)
		}

		artifacts = append(artifacts, toArtifact(info))
	}

	sort.Slice(artifacts, func(i, j int) bool {
		return artifacts[i].Name < artifacts[j].Name
	})

	return artifacts, nil
}

// Delete removes the file from storage. A missing file is not an error.
func (s *Storage) Delete(_ context.Context, name string) error {
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name {
		return fmt.Errorf("invalid artifact name %q", name)
	}

	path := filepath.Join(s.basePath, name)
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", path, err)
	}

	return nil
}

func toArtifact(info fs.FileInfo) model.Artifact {
	return model.Artifact{
		Name:      info.Name(),
		Size:      info.Size(),
		CreatedAt: info.ModTime(),
	}
}
