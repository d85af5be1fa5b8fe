package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/sessionscribe-backend/internal/data/repos/reports"
	"github.com/yungbote/sessionscribe-backend/internal/platform/logger"
)

type Repos struct {
	Reports reports.ReportRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Reports: reports.NewReportRepo(db, log),
	}
}
