// Package archive packs encoded variants into a single zip stored in the artifact store.
package archive

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zip"

	"github.com/aliskhannn/image-optimizer/internal/model"
)

// Ext is the extension of every archive name.
const Ext = ".zip"

// store is the part of the artifact store the builder writes to.
type store interface {
	Create(ctx context.Context, name string, write func(w io.Writer) error) (model.Artifact, error)
}

// Builder writes archives to a store.
type Builder struct {
	store store
}

// NewBuilder creates a new Builder writing to s.
func NewBuilder(s store) *Builder {
	return &Builder{store: s}
}

// Name returns a fresh archive name: a random UUID followed by the sanitized basename.
func Name(basename string) string {
	return uuid.NewString() + "-" + basename + Ext
}

// Build writes every variant as an entry of a new archive, in the given order,
// and returns the stored artifact. Entry names are taken from the variants as is.
func (b *Builder) Build(ctx context.Context, basename string, variants []model.EncodedVariant) (model.Artifact, error) {
	if len(variants) == 0 {
		return model.Artifact{}, fmt.Errorf("build archive: no variants")
	}

	name := Name(basename)

	artifact, err := b.store.Create(ctx, name, func(w io.Writer) error {
		return write(w, variants)
	})
	if err != nil {
		return model.Artifact{}, fmt.Errorf("build archive: %w", err)
	}

	return artifact, nil
}

func write(w io.Writer, variants []model.EncodedVariant) error {
	zw := zip.NewWriter(w)

	seen := make(map[string]bool, len(variants))
	for _, v := range variants {
		if seen[v.Name] {
			_ = zw.Close()
			return fmt.Errorf("duplicate entry %q", v.Name)
		}
		seen[v.Name] = true

		// Already-compressed formats are stored as is.
		method := zip.Store
		if v.Format == model.FormatPNG {
			method = zip.Deflate
		}

		fw, err := zw.CreateHeader(&zip.FileHeader{Name: v.Name, Method: method})
		if err != nil {
			_ = zw.Close()
			return fmt.Errorf("create entry %s: %w", v.Name, err)
		}

		if _, err := fw.Write(v.Data); err != nil {
			_ = zw.Close()
			return fmt.Errorf("write entry %s: %w", v.Name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finish archive: %w", err)
	}

	return nil
}

// Basename derives a safe archive basename from an uploaded filename:
// directories and everything from the first dot are dropped and characters
// outside [A-Za-z0-9_-] become '-'.
func Basename(filename string) string {
	base := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}

	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '-'
		}
	}, base)

	base = strings.Trim(base, "-")
	if len(base) > 100 {
		base = base[:100]
	}
	if base == "" {
		return "image"
	}

	return base
}
