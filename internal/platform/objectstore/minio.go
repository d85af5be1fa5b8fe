package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/yungbote/sessionscribe-backend/internal/platform/logger"
)

// Archive keeps a copy of every saved report in an S3-compatible bucket.
type Archive struct {
	log    *logger.Logger
	client *minio.Client
	cfg    Config
}

func NewMinIOClient(cfg Config) (*minio.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts := &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: newTransport(),
	}
	return minio.New(cfg.Endpoint, opts)
}

// NewArchive connects and makes sure the bucket exists.
func NewArchive(ctx context.Context, log *logger.Logger, cfg Config) (*Archive, error) {
	client, err := NewMinIOClient(cfg)
	if err != nil {
		return nil, err
	}
	if err := ensureBucket(ctx, client, cfg.Bucket, cfg.Region); err != nil {
		return nil, fmt.Errorf("ensure bucket %s: %w", cfg.Bucket, err)
	}
	return &Archive{log: log.With("service", "ReportArchive"), client: client, cfg: cfg}, nil
}

// PutReport uploads the markdown and the JSON snapshot of one report.
func (a *Archive) PutReport(ctx context.Context, reportID string, markdown string, snapshot []byte) error {
	if err := a.put(ctx, a.cfg.Key(reportID, "report.md"), []byte(markdown), "text/markdown; charset=utf-8"); err != nil {
		return err
	}
	if len(snapshot) == 0 {
		return nil
	}
	return a.put(ctx, a.cfg.Key(reportID, "report.json"), snapshot, "application/json")
}

// DeleteReport removes both objects; missing objects are not an error.
func (a *Archive) DeleteReport(ctx context.Context, reportID string) error {
	for _, name := range []string{"report.md", "report.json"} {
		if err := a.client.RemoveObject(ctx, a.cfg.Bucket, a.cfg.Key(reportID, name), minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("remove %s: %w", name, err)
		}
	}
	return nil
}

func (a *Archive) put(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := a.client.PutObject(
		ctx,
		a.cfg.Bucket,
		key,
		bytes.NewReader(body),
		int64(len(body)),
		minio.PutObjectOptions{ContentType: contentType},
	)
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	a.log.Debug("Archived object", "bucket", a.cfg.Bucket, "key", key, "bytes", len(body))
	return nil
}

func ensureBucket(ctx context.Context, client *minio.Client, bucket string, region string) error {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region})
}

func newTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}
