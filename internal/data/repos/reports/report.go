package reports

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/sessionscribe-backend/internal/domain/report"
	"github.com/yungbote/sessionscribe-backend/internal/platform/dbctx"
	"github.com/yungbote/sessionscribe-backend/internal/platform/logger"
)

type ListFilter struct {
	UniverseName string
	JobID        string
	Limit        int
	Offset       int
}

type ReportRepo interface {
	Create(dbc dbctx.Context, r *report.Report) (*report.Report, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*report.Report, error)
	List(dbc dbctx.Context, f ListFilter) ([]*report.Report, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) (bool, error)
	Delete(dbc dbctx.Context, id uuid.UUID) (bool, error)
}

type reportRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewReportRepo(db *gorm.DB, baseLog *logger.Logger) ReportRepo {
	return &reportRepo{
		db:  db,
		log: baseLog.With("repo", "ReportRepo"),
	}
}

func (r *reportRepo) Create(dbc dbctx.Context, rep *report.Report) (*report.Report, error) {
	if rep.ID == uuid.Nil {
		rep.ID = uuid.New()
	}
	now := time.Now().UTC()
	if rep.CreatedAt.IsZero() {
		rep.CreatedAt = now
	}
	rep.UpdatedAt = now
	if err := dbc.DB(r.db).Create(rep).Error; err != nil {
		return nil, err
	}
	return rep, nil
}

// GetByID returns nil, nil when the report does not exist.
func (r *reportRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*report.Report, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var out report.Report
	if err := dbc.DB(r.db).Where("id = ?", id).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if out.ID == uuid.Nil {
		return nil, nil
	}
	return &out, nil
}

// List is newest first.
func (r *reportRepo) List(dbc dbctx.Context, f ListFilter) ([]*report.Report, error) {
	q := dbc.DB(r.db).Model(&report.Report{})
	if f.UniverseName != "" {
		q = q.Where("universe_name = ?", f.UniverseName)
	}
	if f.JobID != "" {
		q = q.Where("job_id = ?", f.JobID)
	}
	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}
	out := []*report.Report{}
	if err := q.Order("created_at DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *reportRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) (bool, error) {
	if id == uuid.Nil || len(updates) == 0 {
		return false, nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	res := dbc.DB(r.db).Model(&report.Report{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *reportRepo) Delete(dbc dbctx.Context, id uuid.UUID) (bool, error) {
	if id == uuid.Nil {
		return false, nil
	}
	res := dbc.DB(r.db).Where("id = ?", id).Delete(&report.Report{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
