package db

import (
	"testing"

	"github.com/yungbote/sessionscribe-backend/internal/platform/logger"
)

func TestConfigFromEnvBuildsPostgresURL(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_DSN", "")
	t.Setenv("POSTGRES_USER", "scribe")
	t.Setenv("POSTGRES_PASSWORD", "pw")
	t.Setenv("POSTGRES_HOST", "db")
	t.Setenv("POSTGRES_PORT", "6543")
	t.Setenv("POSTGRES_NAME", "reports")
	cfg := ConfigFromEnv()
	if cfg.DSN != "postgres://scribe:pw@db:6543/reports?sslmode=disable" {
		t.Fatalf("unexpected dsn %q", cfg.DSN)
	}
}

func TestOpenSQLiteAndMigrate(t *testing.T) {
	svc, err := Open(logger.Nop(), Config{Driver: "sqlite", DSN: "file::memory:"})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer svc.Close()
	if err := AutoMigrateAll(svc.DB()); err != nil {
		t.Fatalf("AutoMigrateAll: %v", err)
	}
	if !svc.DB().Migrator().HasTable("session_report") {
		t.Fatalf("session_report table missing")
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open(logger.Nop(), Config{Driver: "oracle"}); err == nil {
		t.Fatalf("unknown driver should fail")
	}
}
