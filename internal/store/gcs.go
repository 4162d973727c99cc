package store

import (
	"context"
	"fmt"
	"path"

	gcs "cloud.google.com/go/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/magpie-engine/magpie/internal/metadata"
)

// GCS writes extracted text as objects in a Cloud Storage bucket, one object
// per item, with selected metadata carried as object attributes.
// Authentication uses Application Default Credentials.
type GCS struct {
	client *gcs.Client
	bucket string
	prefix string
	logger *zap.Logger
}

// NewGCS initializes a client and verifies the bucket is reachable, failing
// fast on startup when the configuration is wrong.
func NewGCS(ctx context.Context, bucket, prefix string, logger *zap.Logger) (*GCS, error) {
	if bucket == "" {
		return nil, fmt.Errorf("data_store.gcs.bucket is required")
	}
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	if _, err := client.Bucket(bucket).Attrs(ctx); err != nil {
		if closeErr := client.Close(); closeErr != nil {
			logger.Warn("close gcs client after attrs failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("get gcs bucket %q attributes: %w", bucket, err)
	}
	return &GCS{client: client, bucket: bucket, prefix: prefix, logger: logger}, nil
}

// AddItem uploads the text and returns the object's gs:// URI as item id.
func (g *GCS) AddItem(ctx context.Context, text string, md metadata.Metadata) (string, error) {
	name := path.Join(g.prefix, uuid.NewString()+".txt")
	w := g.client.Bucket(g.bucket).Object(name).NewWriter(ctx)
	w.ContentType = "text/plain; charset=utf-8"
	w.Metadata = map[string]string{
		"source_url":       md.SourceURL,
		"title":            md.Title,
		"mime_type":        md.MimeType,
		"processing_state": md.ProcessingState,
	}
	if _, err := w.Write([]byte(text)); err != nil {
		if closeErr := w.Close(); closeErr != nil {
			g.logger.Warn("close gcs writer after write failure", zap.Error(closeErr))
		}
		return "", fmt.Errorf("write gcs object %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize gcs object %s: %w", name, err)
	}
	return fmt.Sprintf("gs://%s/%s", g.bucket, name), nil
}

// Close releases the client.
func (g *GCS) Close() error {
	if err := g.client.Close(); err != nil {
		return fmt.Errorf("close gcs client: %w", err)
	}
	return nil
}
