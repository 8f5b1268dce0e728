// Package bucket implements the artifact store on top of an S3-compatible
// object store (MinIO, AWS S3, ...).
package bucket

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/aliskhannn/image-optimizer/internal/model"
	"github.com/aliskhannn/image-optimizer/internal/storage"
)

const contentType = "application/zip"

// Storage stores archives as objects under an optional key prefix.
// Object LastModified serves as the creation time since archives are never rewritten.
type Storage struct {
	client     *minio.Client
	bucketName string
	prefix     string
}

// NewStorage creates a new Storage instance connected to the specified MinIO server.
// If the bucket does not exist, it will be created automatically.
func NewStorage(ctx context.Context, endpoint, accessKey, secretKey, bucketName, prefix string, useSSL bool) (*Storage, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check if bucket exists: %w", err)
	}

	if !exists {
		if err := client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &Storage{
		client:     client,
		bucketName: bucketName,
		prefix:     strings.Trim(prefix, "/"),
	}, nil
}

func (s *Storage) key(name string) string {
	if s.prefix == "" {
		return name
	}

	return s.prefix + "/" + name
}

// Create buffers the archive and uploads it in a single PUT, which is atomic:
// a failed write never produces an object.
func (s *Storage) Create(ctx context.Context, name string, write func(w io.Writer) error) (model.Artifact, error) {
	if !storage.ValidName(name) {
		return model.Artifact{}, fmt.Errorf("invalid artifact name %q", name)
	}

	buf := bytes.NewBuffer(nil)
	if err := write(buf); err != nil {
		return model.Artifact{}, fmt.Errorf("failed to write %s: %w", name, err)
	}

	size := int64(buf.Len())
	info, err := s.client.PutObject(ctx, s.bucketName, s.key(name), buf, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return model.Artifact{}, fmt.Errorf("failed to save file: %w", err)
	}

	createdAt := info.LastModified
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	return model.Artifact{Name: name, Size: size, CreatedAt: createdAt}, nil
}

// Open stats the object first so a missing key maps to storage.ErrNotFound
// before any bytes are streamed.
func (s *Storage) Open(ctx context.Context, name string) (io.ReadCloser, model.Artifact, error) {
	if !storage.ValidName(name) {
		return nil, model.Artifact{}, storage.ErrNotFound
	}

	info, err := s.client.StatObject(ctx, s.bucketName, s.key(name), minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return nil, model.Artifact{}, storage.ErrNotFound
		}
		return nil, model.Artifact{}, fmt.Errorf("failed to stat file: %w", err)
	}

	obj, err := s.client.GetObject(ctx, s.bucketName, s.key(name), minio.GetObjectOptions{})
	if err != nil {
		return nil, model.Artifact{}, fmt.Errorf("failed to load file: %w", err)
	}

	return obj, model.Artifact{Name: name, Size: info.Size, CreatedAt: info.LastModified}, nil
}

// List returns all archives under the prefix sorted by name.
func (s *Storage) List(ctx context.Context) ([]model.Artifact, error) {
	opts := minio.ListObjectsOptions{Recursive: true}
	if s.prefix != "" {
		opts.Prefix = s.prefix + "/"
	}

	var artifacts []model.Artifact
	for obj := range s.client.ListObjects(ctx, s.bucketName, opts) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list files: %w", obj.Err)
		}

		name := strings.TrimPrefix(obj.Key, opts.Prefix)
		if name == "" || strings.Contains(name, "/") {
			continue
		}

		artifacts = append(artifacts, model.Artifact{
			Name:      name,
			Size:      obj.Size,
			CreatedAt: obj.LastModified,
		})
	}

	sort.Slice(artifacts, func(i, j int) bool {
		return artifacts[i].Name < artifacts[j].Name
	})

	return artifacts, nil
}

// Delete removes the object from the bucket. S3 deletes are idempotent, a
// NoSuchKey response is treated as success for stores that report it anyway.
func (s *Storage) Delete(ctx context.Context, name string) error {
	if !storage.ValidName(name) {
		return nil
	}

	err := s.client.RemoveObject(ctx, s.bucketName, s.key(name), minio.RemoveObjectOptions{})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	return nil
}

func isNotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}
