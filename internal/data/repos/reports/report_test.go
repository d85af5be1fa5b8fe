package reports

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/sessionscribe-backend/internal/data/repos/testutil"
	"github.com/yungbote/sessionscribe-backend/internal/domain/report"
	"github.com/yungbote/sessionscribe-backend/internal/platform/dbctx"
)

func sampleReport(jobID, universe string, created time.Time) *report.Report {
	return &report.Report{
		JobID:        jobID,
		Title:        "Session " + jobID,
		UniverseName: universe,
		Markdown:     "# Session " + jobID,
		Scenes:       datatypes.JSON([]byte("[]")),
		Issues:       datatypes.JSON([]byte("[]")),
		CreatedAt:    created,
	}
}

func TestReportRepoCRUD(t *testing.T) {
	db := testutil.DB(t)
	repo := NewReportRepo(db, testutil.Logger(t))
	dbc := dbctx.Of(context.Background())

	created, err := repo.Create(dbc, sampleReport("job-1", "Eberron", time.Now().UTC()))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == uuid.Nil {
		t.Fatalf("Create should assign an id")
	}

	got, err := repo.GetByID(dbc, created.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID: %v %v", got, err)
	}
	if got.Markdown != "# Session job-1" || got.JobID != "job-1" {
		t.Fatalf("unexpected report %+v", got)
	}

	ok, err := repo.UpdateFields(dbc, created.ID, map[string]interface{}{"title": "Renamed"})
	if err != nil || !ok {
		t.Fatalf("UpdateFields: ok=%v err=%v", ok, err)
	}
	got, _ = repo.GetByID(dbc, created.ID)
	if got.Title != "Renamed" {
		t.Fatalf("title not updated: %q", got.Title)
	}

	ok, err = repo.Delete(dbc, created.ID)
	if err != nil || !ok {
		t.Fatalf("Delete: ok=%v err=%v", ok, err)
	}
	got, err = repo.GetByID(dbc, created.ID)
	if err != nil || got != nil {
		t.Fatalf("deleted report still visible: %v %v", got, err)
	}
	ok, _ = repo.Delete(dbc, created.ID)
	if ok {
		t.Fatalf("second delete should affect nothing")
	}
}

func TestReportRepoListNewestFirstAndFiltered(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewReportRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, u := range []string{"Eberron", "Faerun", "Eberron"} {
		if _, err := repo.Create(dbc, sampleReport(uuid.NewString(), u, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	all, err := repo.List(dbc, ListFilter{})
	if err != nil || len(all) != 3 {
		t.Fatalf("List: %d %v", len(all), err)
	}
	for i := 1; i < len(all); i++ {
		if all[i].CreatedAt.After(all[i-1].CreatedAt) {
			t.Fatalf("list not newest first")
		}
	}

	eb, err := repo.List(dbc, ListFilter{UniverseName: "Eberron"})
	if err != nil || len(eb) != 2 {
		t.Fatalf("filtered List: %d %v", len(eb), err)
	}

	page, _ := repo.List(dbc, ListFilter{Limit: 1, Offset: 1})
	if len(page) != 1 || page[0].ID != all[1].ID {
		t.Fatalf("pagination mismatch")
	}
}

func TestGetByIDMissingReturnsNil(t *testing.T) {
	repo := NewReportRepo(testutil.DB(t), testutil.Logger(t))
	got, err := repo.GetByID(dbctx.Of(context.Background()), uuid.New())
	if err != nil || got != nil {
		t.Fatalf("want nil, nil got %v %v", got, err)
	}
}
