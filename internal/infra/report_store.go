package infra

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"

	"zedcmms/internal/config"
)

// ReportStore archives generated report files. Files go to MinIO when an
// endpoint is configured, otherwise to the local report directory.
type ReportStore struct {
	client *minio.Client
	bucket string
	dir    string
}

func NewReportStore(cfg *config.Config) *ReportStore {
	s := &ReportStore{bucket: cfg.MinIOBucket, dir: cfg.ReportStoragePath}
	if cfg.MinIOEndpoint == "" {
		return s
	}
	client, err := minio.New(cfg.MinIOEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinIOAccessKey, cfg.MinIOSecretKey, ""),
		Secure: cfg.MinIOUseSSL,
	})
	if err != nil {
		log.Warn().Err(err).Str("endpoint", cfg.MinIOEndpoint).Msg("minio unavailable, archiving reports locally")
		return s
	}
	s.client = client
	return s
}

// NewLocalReportStore keeps files under dir only.
func NewLocalReportStore(dir string) *ReportStore { return &ReportStore{dir: dir} }

// Save stores data under name and returns the location it was written to.
func (s *ReportStore) Save(ctx context.Context, name, contentType string, data []byte) (string, error) {
	if s.client != nil {
		_, err := s.client.PutObject(ctx, s.bucket, name, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
			ContentType: contentType,
		})
		if err != nil {
			return "", fmt.Errorf("report store: put %s: %w", name, err)
		}
		return fmt.Sprintf("s3://%s/%s", s.bucket, name), nil
	}

	path := filepath.Join(s.dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("report store: mkdir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("report store: write %s: %w", name, err)
	}
	return path, nil
}
