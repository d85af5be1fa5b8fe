package report

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Report is a finished session report as persisted by the report store.
type Report struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	JobID          string         `gorm:"column:job_id;not null;index" json:"jobId"`
	Title          string         `gorm:"column:title;not null" json:"title"`
	TranscriptName string         `gorm:"column:transcript_name" json:"transcriptName"`
	UniverseName   string         `gorm:"column:universe_name;index" json:"universeName"`
	Markdown       string         `gorm:"column:markdown;type:text;not null" json:"markdown"`
	Scenes         datatypes.JSON `gorm:"column:scenes" json:"scenes"`
	Issues         datatypes.JSON `gorm:"column:issues" json:"issues"`
	ArchiveKey     string         `gorm:"column:archive_key" json:"archiveKey,omitempty"`
	CreatedAt      time.Time      `gorm:"not null;index" json:"createdAt"`
	UpdatedAt      time.Time      `gorm:"not null;index" json:"updatedAt"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Report) TableName() string { return "session_report" }

// Draft is what the format stage hands to the report store.
type Draft struct {
	JobID          string
	Title          string
	TranscriptName string
	UniverseName   string
	Markdown       string
	Scenes         []Scene
	Summaries      []SceneSummary
	Issues         []Issue
}
