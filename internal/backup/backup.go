// Package backup keeps snapshot documents in object storage.
package backup

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"mercadinho/backend/internal/config"
	"mercadinho/backend/internal/domain"
)

var (
	ErrBackupDisabled = errors.New("cloud backup is not configured")
	ErrNotFound       = errors.New("backup object not found")
)

const (
	ObjectPrefix = "mercadinho-backup-"
	contentType  = "application/json"
)

type Storage interface {
	Upload(ctx context.Context, name string, data []byte) error
	Download(ctx context.Context, name string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]domain.CloudBackup, error)
	Close() error
}

// New builds the storage for the configured provider. An empty provider
// yields Disabled.
func New(ctx context.Context, cfg config.BackupConfig) (Storage, error) {
	switch cfg.Provider {
	case "":
		return Disabled{}, nil
	case "gcs":
		return NewGCS(ctx, cfg.GCSBucket, cfg.GCSCredentialsJSON)
	case "s3":
		return NewS3(ctx, S3Config{
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			Endpoint:     cfg.S3Endpoint,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			UsePathStyle: cfg.S3UsePathStyle,
		})
	default:
		return nil, fmt.Errorf("unknown backup provider %q", cfg.Provider)
	}
}

func ObjectName(now time.Time) string {
	return ObjectPrefix + now.UTC().Format("2006-01-02T150405Z") + ".json"
}

// Newest returns the most recently updated backup, ties broken by name.
func Newest(items []domain.CloudBackup) (domain.CloudBackup, bool) {
	if len(items) == 0 {
		return domain.CloudBackup{}, false
	}
	sorted := SortNewestFirst(items)
	return sorted[0], true
}

func SortNewestFirst(items []domain.CloudBackup) []domain.CloudBackup {
	sorted := append([]domain.CloudBackup(nil), items...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].UpdatedAt.Equal(sorted[j].UpdatedAt) {
			return sorted[i].UpdatedAt.After(sorted[j].UpdatedAt)
		}
		return sorted[i].Name > sorted[j].Name
	})
	return sorted
}

func ValidName(name string) bool {
	return strings.HasPrefix(name, ObjectPrefix) && strings.HasSuffix(name, ".json") && !strings.ContainsAny(name, "/\\")
}

type Disabled struct{}

func (Disabled) Upload(context.Context, string, []byte) error { return ErrBackupDisabled }

func (Disabled) Download(context.Context, string) ([]byte, error) { return nil, ErrBackupDisabled }

func (Disabled) List(context.Context, string) ([]domain.CloudBackup, error) {
	return nil, ErrBackupDisabled
}

func (Disabled) Close() error { return nil }
