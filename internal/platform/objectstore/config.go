package objectstore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yungbote/sessionscribe-backend/internal/platform/envutil"
)

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
	Bucket    string
	Prefix    string
}

// ConfigFromEnv returns ok=false when MINIO_ENDPOINT is unset; archiving is then disabled.
func ConfigFromEnv() (Config, bool, error) {
	endpoint := envutil.String("MINIO_ENDPOINT", "")
	if endpoint == "" {
		return Config{}, false, nil
	}
	cfg := Config{
		Endpoint:  endpoint,
		AccessKey: envutil.String("MINIO_ACCESS_KEY", ""),
		SecretKey: envutil.String("MINIO_SECRET_KEY", ""),
		Region:    envutil.String("MINIO_REGION", "us-east-1"),
		UseSSL:    envutil.Bool("MINIO_USE_SSL", false),
		Bucket:    envutil.String("MINIO_BUCKET", "session-reports"),
		Prefix:    envutil.String("MINIO_PREFIX", "reports"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, false, err
	}
	return cfg, true, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return errors.New("endpoint is required")
	}
	if strings.TrimSpace(c.AccessKey) == "" {
		return errors.New("access key is required")
	}
	if strings.TrimSpace(c.SecretKey) == "" {
		return errors.New("secret key is required")
	}
	if strings.TrimSpace(c.Bucket) == "" {
		return errors.New("bucket is required")
	}
	if strings.Contains(c.Endpoint, "://") {
		return fmt.Errorf("endpoint must not include scheme: %q", c.Endpoint)
	}
	return nil
}

// Key builds the object key for a report file.
func (c Config) Key(reportID string, name string) string {
	parts := make([]string, 0, 3)
	if p := strings.Trim(c.Prefix, "/"); p != "" {
		parts = append(parts, p)
	}
	parts = append(parts, reportID, name)
	return strings.Join(parts, "/")
}
