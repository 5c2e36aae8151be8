package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"mercadinho/backend/internal/domain"
)

type GCS struct {
	client *storage.Client
	bucket string
}

// NewGCS prefers explicit service account JSON and falls back to application
// default credentials.
func NewGCS(ctx context.Context, bucket string, credentialsJSON string, opts ...option.ClientOption) (*GCS, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, errors.New("GCS_BUCKET is required")
	}
	if strings.TrimSpace(credentialsJSON) != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credentialsJSON)))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	return &GCS{client: client, bucket: bucket}, nil
}

func (g *GCS) Upload(ctx context.Context, name string, data []byte) error {
	wc := g.client.Bucket(g.bucket).Object(name).NewWriter(ctx)
	wc.ContentType = contentType
	if _, err := wc.Write(data); err != nil {
		_ = wc.Close()
		return fmt.Errorf("upload %s: %w", name, err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("upload %s: %w", name, err)
	}
	return nil
}

func (g *GCS) Download(ctx context.Context, name string) ([]byte, error) {
	rc, err := g.client.Bucket(g.bucket).Object(name).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", name, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (g *GCS) List(ctx context.Context, prefix string) ([]domain.CloudBackup, error) {
	it := g.client.Bucket(g.bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	items := make([]domain.CloudBackup, 0)
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list backups: %w", err)
		}
		items = append(items, domain.CloudBackup{Name: attrs.Name, Size: attrs.Size, UpdatedAt: attrs.Updated})
	}
	return SortNewestFirst(items), nil
}

func (g *GCS) Close() error {
	return g.client.Close()
}
