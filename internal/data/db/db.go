package db

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/sessionscribe-backend/internal/platform/envutil"
	"github.com/yungbote/sessionscribe-backend/internal/platform/logger"
)

type Config struct {
	// Driver is "sqlite" or "postgres".
	Driver string
	DSN    string
}

// ConfigFromEnv reads DB_DRIVER and DB_DSN. For postgres without DB_DSN the POSTGRES_*
// variables are assembled into a URL.
func ConfigFromEnv() Config {
	cfg := Config{
		Driver: strings.ToLower(envutil.String("DB_DRIVER", "sqlite")),
		DSN:    envutil.String("DB_DSN", ""),
	}
	if cfg.DSN != "" {
		return cfg
	}
	switch cfg.Driver {
	case "postgres":
		cfg.DSN = fmt.Sprintf(
			"postgres://%s:%s@%s:%s/%s?sslmode=disable",
			envutil.String("POSTGRES_USER", "postgres"),
			envutil.String("POSTGRES_PASSWORD", ""),
			envutil.String("POSTGRES_HOST", "localhost"),
			envutil.String("POSTGRES_PORT", "5432"),
			envutil.String("POSTGRES_NAME", "sessionscribe"),
		)
	default:
		cfg.DSN = "file:sessionscribe.db?_busy_timeout=5000"
	}
	return cfg
}

type Service struct {
	db  *gorm.DB
	log *logger.Logger
}

func Open(logg *logger.Logger, cfg Config) (*Service, error) {
	serviceLog := logg.With("service", "ReportDB", "driver", cfg.Driver)

	gormLog := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             1 * time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	gcfg := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLog,
	}

	var (
		conn *gorm.DB
		err  error
	)
	switch cfg.Driver {
	case "postgres":
		conn, err = gorm.Open(postgres.Open(cfg.DSN), gcfg)
	case "sqlite", "":
		conn, err = gorm.Open(sqlite.Open(cfg.DSN), gcfg)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", cfg.Driver, err)
	}
	serviceLog.Info("Database connected")
	return &Service{db: conn, log: serviceLog}, nil
}

func (s *Service) DB() *gorm.DB { return s.db }

func (s *Service) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
