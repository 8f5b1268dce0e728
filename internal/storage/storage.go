// Package storage defines the artifact store shared by the upload pipeline,
// the download handler and the reaper.
//
// Archives are immutable once created. Delete is idempotent on every backend,
// so the download path and the reaper may race on the same archive without a lock.
package storage

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/aliskhannn/image-optimizer/internal/model"
)

// ErrNotFound is returned by Open when the archive does not exist.
var ErrNotFound = errors.New("artifact not found")

// Store is an ephemeral key-value store of archives.
type Store interface {
	// Create stores the bytes produced by write under name. If write fails
	// nothing is left behind.
	Create(ctx context.Context, name string, write func(w io.Writer) error) (model.Artifact, error)
	// Open returns a reader for the archive, or ErrNotFound.
	Open(ctx context.Context, name string) (io.ReadCloser, model.Artifact, error)
	// List returns every artifact currently stored.
	List(ctx context.Context) ([]model.Artifact, error)
	// Delete removes the archive. Deleting a missing archive succeeds.
	Delete(ctx context.Context, name string) error
}

// ValidName reports whether name can address an archive: a single path
// element, not hidden, no separators.
func ValidName(name string) bool {
	if name == "" || len(name) > 255 || strings.HasPrefix(name, ".") {
		return false
	}

	return !strings.ContainsAny(name, `/\`+"\x00")
}
