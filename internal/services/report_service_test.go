package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/yungbote/sessionscribe-backend/internal/data/repos/reports"
	"github.com/yungbote/sessionscribe-backend/internal/data/repos/testutil"
	"github.com/yungbote/sessionscribe-backend/internal/domain/report"
	"github.com/yungbote/sessionscribe-backend/internal/platform/apierr"
	"github.com/yungbote/sessionscribe-backend/internal/platform/logger"
)

type memArchive struct {
	objects map[string]string
	fail    bool
	deleted []string
}

func (a *memArchive) PutReport(ctx context.Context, id, markdown string, snapshot []byte) error {
	if a.fail {
		return errors.New("bucket unavailable")
	}
	a.objects[id] = markdown
	return nil
}

func (a *memArchive) DeleteReport(ctx context.Context, id string) error {
	a.deleted = append(a.deleted, id)
	delete(a.objects, id)
	return nil
}

func sampleDraft() report.Draft {
	two := 2
	return report.Draft{
		JobID:        "job-9",
		Title:        "The Crypt",
		UniverseName: "Eberron",
		Markdown:     "# The Crypt\n\nThey went in.",
		Scenes: []report.Scene{
			{ID: 1, Title: "Intro", Type: "meta", Lines: report.LineRange{Start: 1, End: 3}},
			{ID: 2, Title: "Crypt", Type: "narrative", Lines: report.LineRange{Start: 4, End: 20}},
		},
		Summaries: []report.SceneSummary{{SceneID: 2, Summary: "They went in."}},
		Issues:    []report.Issue{{SceneID: &two, Severity: report.SeverityWarning, Message: "thin"}},
	}
}

func newTestReportService(t *testing.T, archive Archive) ReportService {
	t.Helper()
	repo := reports.NewReportRepo(testutil.DB(t), testutil.Logger(t))
	return NewReportService(logger.Nop(), repo, archive)
}

func TestSaveReportStoresScenesWithSummaries(t *testing.T) {
	arch := &memArchive{objects: map[string]string{}}
	svc := newTestReportService(t, arch)
	ctx := context.Background()

	id, err := svc.SaveReport(ctx, sampleDraft())
	if err != nil {
		t.Fatalf("SaveReport: %v", err)
	}
	rep, err := svc.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	var scenes []map[string]any
	if err := json.Unmarshal(rep.Scenes, &scenes); err != nil {
		t.Fatalf("scenes json: %v", err)
	}
	if len(scenes) != 2 || scenes[1]["summary"] != "They went in." {
		t.Fatalf("unexpected scenes %v", scenes)
	}
	if rep.ArchiveKey != id || arch.objects[id] == "" {
		t.Fatalf("report not archived")
	}
}

func TestSaveReportSurvivesArchiveFailure(t *testing.T) {
	svc := newTestReportService(t, &memArchive{objects: map[string]string{}, fail: true})
	id, err := svc.SaveReport(context.Background(), sampleDraft())
	if err != nil {
		t.Fatalf("archive failure must not fail the save: %v", err)
	}
	rep, _ := svc.Get(context.Background(), id)
	if rep.ArchiveKey != "" {
		t.Fatalf("archive key set despite failure")
	}
}

func TestUpdateAndDeleteReport(t *testing.T) {
	arch := &memArchive{objects: map[string]string{}}
	svc := newTestReportService(t, arch)
	ctx := context.Background()
	id, _ := svc.SaveReport(ctx, sampleDraft())

	title := "The Crypt, revised"
	rep, err := svc.Update(ctx, id, ReportPatch{Title: &title})
	if err != nil || rep.Title != title {
		t.Fatalf("Update: %v %v", rep, err)
	}
	empty := " "
	if _, err := svc.Update(ctx, id, ReportPatch{Markdown: &empty}); apierr.As(err).Status != http.StatusBadRequest {
		t.Fatalf("blank markdown should be rejected, got %v", err)
	}

	if err := svc.Delete(ctx, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(arch.deleted) != 1 {
		t.Fatalf("archive copy not removed")
	}
	if _, err := svc.Get(ctx, id); apierr.As(err).Status != http.StatusNotFound {
		t.Fatalf("deleted report should be 404, got %v", err)
	}
	if err := svc.Delete(ctx, "not-a-uuid"); apierr.As(err).Status != http.StatusNotFound {
		t.Fatalf("malformed id should be 404, got %v", err)
	}
}
