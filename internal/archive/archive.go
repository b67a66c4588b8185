// internal/archive/archive.go
package archive

import (
	"bytes"
	"context"
	"fmt"

	"github.com/andresuchdata/invsync/internal/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Archiver uploads committed sync snapshots to S3-compatible object storage.
// Archival is best-effort: callers log failures and move on.
type Archiver struct {
	client *minio.Client
	bucket string
}

// New builds an Archiver, or returns (nil, nil) when archiving is disabled.
func New(cfg config.ArchiveConfig) (*Archiver, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("archive endpoint must be provided")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("archive credentials must be provided")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create archive client: %w", err)
	}

	return &Archiver{client: client, bucket: cfg.Bucket}, nil
}

// StoreSnapshot uploads one serialized payload under
// snapshots/{domain}/{date}.json.
func (a *Archiver) StoreSnapshot(ctx context.Context, syncDomain, date string, payload []byte) error {
	key := fmt.Sprintf("snapshots/%s/%s.json", syncDomain, date)

	_, err := a.client.PutObject(ctx, a.bucket, key,
		bytes.NewReader(payload), int64(len(payload)),
		minio.PutObjectOptions{ContentType: "application/json"},
	)
	if err != nil {
		return fmt.Errorf("upload snapshot %s: %w", key, err)
	}
	return nil
}
