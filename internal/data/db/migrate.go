package db

import (
	"gorm.io/gorm"

	"github.com/yungbote/sessionscribe-backend/internal/domain/report"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&report.Report{},
	)
}
