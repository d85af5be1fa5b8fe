package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/sessionscribe-backend/internal/http/handlers"
	"github.com/yungbote/sessionscribe-backend/internal/platform/logger"
	"github.com/yungbote/sessionscribe-backend/internal/realtime"
)

type Handlers struct {
	Jobs    *handlers.JobHandler
	Reports *handlers.ReportHandler
	Health  *handlers.HealthHandler
}

func wireHandlers(log *logger.Logger, cfg Config, db *gorm.DB, svcs Services) Handlers {
	log.Info("Wiring handlers...")
	ping := func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Ping()
	}
	return Handlers{
		Jobs:    handlers.NewJobHandler(log, svcs.Jobs, realtime.NewStreamer(log, cfg.StreamKeepalive)),
		Reports: handlers.NewReportHandler(svcs.Reports),
		Health:  handlers.NewHealthHandler(ping),
	}
}
