package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/sessionscribe-backend/internal/data/repos/reports"
	"github.com/yungbote/sessionscribe-backend/internal/domain/report"
	"github.com/yungbote/sessionscribe-backend/internal/platform/apierr"
	"github.com/yungbote/sessionscribe-backend/internal/platform/dbctx"
	"github.com/yungbote/sessionscribe-backend/internal/platform/logger"
)

// Archive keeps an external copy of saved reports. It is optional.
type Archive interface {
	PutReport(ctx context.Context, reportID string, markdown string, snapshot []byte) error
	DeleteReport(ctx context.Context, reportID string) error
}

type ReportPatch struct {
	Title    *string `json:"title"`
	Markdown *string `json:"markdown"`
}

type ReportService interface {
	SaveReport(ctx context.Context, draft report.Draft) (string, error)
	Get(ctx context.Context, id string) (*report.Report, error)
	List(ctx context.Context, f reports.ListFilter) ([]*report.Report, error)
	Update(ctx context.Context, id string, patch ReportPatch) (*report.Report, error)
	Delete(ctx context.Context, id string) error
}

type reportService struct {
	log     *logger.Logger
	repo    reports.ReportRepo
	archive Archive
}

func NewReportService(baseLog *logger.Logger, repo reports.ReportRepo, archive Archive) ReportService {
	return &reportService{
		log:     baseLog.With("service", "ReportService"),
		repo:    repo,
		archive: archive,
	}
}

type sceneRecord struct {
	report.Scene
	Summary    string   `json:"summary,omitempty"`
	KeyEvents  []string `json:"keyEvents,omitempty"`
	Characters []string `json:"characters,omitempty"`
}

// SaveReport inserts the report once. Archive failures are logged; the stored row is the
// source of truth.
func (s *reportService) SaveReport(ctx context.Context, draft report.Draft) (string, error) {
	if strings.TrimSpace(draft.Markdown) == "" {
		return "", fmt.Errorf("empty report markdown")
	}
	summaries := map[int]report.SceneSummary{}
	for _, sum := range draft.Summaries {
		summaries[sum.SceneID] = sum
	}
	scenes := make([]sceneRecord, 0, len(draft.Scenes))
	for _, sc := range draft.Scenes {
		rec := sceneRecord{Scene: sc}
		if sum, ok := summaries[sc.ID]; ok {
			rec.Summary = sum.Summary
			rec.KeyEvents = sum.KeyEvents
			rec.Characters = sum.Characters
		}
		scenes = append(scenes, rec)
	}
	scenesJSON, err := json.Marshal(scenes)
	if err != nil {
		return "", err
	}
	issues := draft.Issues
	if issues == nil {
		issues = []report.Issue{}
	}
	issuesJSON, err := json.Marshal(issues)
	if err != nil {
		return "", err
	}

	rep, err := s.repo.Create(dbctx.Of(ctx), &report.Report{
		JobID:          draft.JobID,
		Title:          draft.Title,
		TranscriptName: draft.TranscriptName,
		UniverseName:   draft.UniverseName,
		Markdown:       draft.Markdown,
		Scenes:         datatypes.JSON(scenesJSON),
		Issues:         datatypes.JSON(issuesJSON),
	})
	if err != nil {
		return "", fmt.Errorf("insert report: %w", err)
	}
	id := rep.ID.String()
	s.log.Info("Report saved", "report_id", id, "job_id", draft.JobID, "scenes", len(scenes), "issues", len(issues))

	if s.archive != nil {
		snapshot, _ := json.Marshal(rep)
		if err := s.archive.PutReport(ctx, id, rep.Markdown, snapshot); err != nil {
			s.log.Warn("Report archive failed", "report_id", id, "error", err)
		} else {
			_, _ = s.repo.UpdateFields(dbctx.Of(ctx), rep.ID, map[string]interface{}{"archive_key": id})
		}
	}
	return id, nil
}

func (s *reportService) Get(ctx context.Context, id string) (*report.Report, error) {
	rid, err := parseReportID(id)
	if err != nil {
		return nil, err
	}
	rep, err := s.repo.GetByID(dbctx.Of(ctx), rid)
	if err != nil {
		return nil, err
	}
	if rep == nil {
		return nil, apierr.NotFound("report_not_found", fmt.Errorf("report %s not found", id))
	}
	return rep, nil
}

func (s *reportService) List(ctx context.Context, f reports.ListFilter) ([]*report.Report, error) {
	return s.repo.List(dbctx.Of(ctx), f)
}

func (s *reportService) Update(ctx context.Context, id string, patch ReportPatch) (*report.Report, error) {
	rid, err := parseReportID(id)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if patch.Title != nil {
		t := strings.TrimSpace(*patch.Title)
		if t == "" {
			return nil, apierr.Invalid("title must not be empty")
		}
		updates["title"] = t
	}
	if patch.Markdown != nil {
		if strings.TrimSpace(*patch.Markdown) == "" {
			return nil, apierr.Invalid("markdown must not be empty")
		}
		updates["markdown"] = *patch.Markdown
	}
	if len(updates) == 0 {
		return nil, apierr.Invalid("nothing to update")
	}
	ok, err := s.repo.UpdateFields(dbctx.Of(ctx), rid, updates)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apierr.NotFound("report_not_found", fmt.Errorf("report %s not found", id))
	}
	rep, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.archive != nil && rep.ArchiveKey != "" {
		snapshot, _ := json.Marshal(rep)
		if err := s.archive.PutReport(ctx, rep.ID.String(), rep.Markdown, snapshot); err != nil {
			s.log.Warn("Report archive refresh failed", "report_id", id, "error", err)
		}
	}
	return rep, nil
}

func (s *reportService) Delete(ctx context.Context, id string) error {
	rid, err := parseReportID(id)
	if err != nil {
		return err
	}
	rep, err := s.repo.GetByID(dbctx.Of(ctx), rid)
	if err != nil {
		return err
	}
	if rep == nil {
		return apierr.NotFound("report_not_found", fmt.Errorf("report %s not found", id))
	}
	if _, err := s.repo.Delete(dbctx.Of(ctx), rid); err != nil {
		return err
	}
	if s.archive != nil && rep.ArchiveKey != "" {
		if err := s.archive.DeleteReport(ctx, rep.ID.String()); err != nil {
			s.log.Warn("Report archive delete failed", "report_id", id, "error", err)
		}
	}
	return nil
}

func parseReportID(id string) (uuid.UUID, error) {
	rid, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return uuid.Nil, apierr.NotFound("report_not_found", fmt.Errorf("invalid report id %q", id))
	}
	return rid, nil
}
