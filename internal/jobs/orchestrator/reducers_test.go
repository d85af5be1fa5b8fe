package orchestrator

import (
	"testing"

	"github.com/yungbote/sessionscribe-backend/internal/domain/report"
)

func TestMergeReplacesSummaryByID(t *testing.T) {
	st := &report.PipelineState{}
	Merge(st, report.Partial{SceneSummaries: []report.SceneSummary{
		{SceneID: 3, Summary: "old three"},
		{SceneID: 1, Summary: "one"},
		{SceneID: 2, Summary: "two"},
	}})
	Merge(st, report.Partial{SceneSummaries: []report.SceneSummary{{SceneID: 3, Summary: "new three"}}})

	if len(st.SceneSummaries) != 3 {
		t.Fatalf("want 3 summaries got %d", len(st.SceneSummaries))
	}
	for i, s := range st.SceneSummaries {
		if s.SceneID != i+1 {
			t.Fatalf("summaries not sorted by id: %+v", st.SceneSummaries)
		}
	}
	if got, _ := st.Summary(3); got.Summary != "new three" {
		t.Fatalf("later write should win, got %q", got.Summary)
	}
	if got, _ := st.Summary(1); got.Summary != "one" {
		t.Fatalf("untouched scene changed: %q", got.Summary)
	}
}

func TestMergeLeavesUnwrittenFieldsAlone(t *testing.T) {
	title := "Session 12"
	st := &report.PipelineState{ReportTitle: title, NormalizedText: "text", RetryCount: 1}
	md := "# Report"
	Merge(st, report.Partial{FinalReport: &md})
	if st.ReportTitle != title || st.NormalizedText != "text" || st.RetryCount != 1 {
		t.Fatalf("unwritten fields changed: %+v", st)
	}
	if st.FinalReport != md {
		t.Fatalf("final report not written")
	}
}

func TestMergeAppendsTrace(t *testing.T) {
	st := &report.PipelineState{}
	Merge(st, report.Partial{Trace: []string{"preprocess"}})
	Merge(st, report.Partial{Trace: []string{"analyze"}})
	if len(st.Trace) != 2 || st.Trace[1] != "analyze" {
		t.Fatalf("trace should append, got %v", st.Trace)
	}
}

func TestRetryCountNeverDecreases(t *testing.T) {
	st := &report.PipelineState{RetryCount: 2}
	lower := 1
	Merge(st, report.Partial{RetryCount: &lower})
	if st.RetryCount != 2 {
		t.Fatalf("retryCount went backwards: %d", st.RetryCount)
	}
}

func TestReducerTableCoversEveryField(t *testing.T) {
	want := []string{
		"sourceText", "normalizedText", "scenes", "speakerMap", "entities", "sceneSummaries",
		"issues", "retryCount", "pendingSceneIds", "finalReport", "reportTitle", "reportId", "trace",
	}
	if len(reducers) != len(want) {
		t.Fatalf("want %d reducers got %d", len(want), len(reducers))
	}
	for i, r := range reducers {
		if r.field != want[i] {
			t.Fatalf("reducer %d: want %s got %s", i, want[i], r.field)
		}
	}
}

func TestRouteAfterValidate(t *testing.T) {
	two, five, nine := 2, 5, 9
	st := &report.PipelineState{
		RetryCount: 1,
		Issues: []report.Issue{
			{SceneID: &five, Severity: report.SeverityError},
			{SceneID: &two, Severity: report.SeverityError},
			{SceneID: &two, Severity: report.SeverityWarning},
			{SceneID: &nine, Severity: report.SeverityError},
			{Severity: report.SeverityError},
		},
	}
	tr := routeAfterValidate(st, []int{2, 5}, 2)
	if tr.Next != StageSummarize || len(tr.Pending) != 2 || tr.Pending[0] != 2 || tr.Pending[1] != 5 {
		t.Fatalf("want retry on [2 5], got %+v", tr)
	}

	st.RetryCount = 2
	tr = routeAfterValidate(st, []int{2, 5}, 2)
	if tr.Next != StageFormat || len(tr.Pending) != 0 {
		t.Fatalf("exhausted budget should route to format, got %+v", tr)
	}

	st.RetryCount = 1
	st.Issues = []report.Issue{{SceneID: &two, Severity: report.SeverityWarning}}
	tr = routeAfterValidate(st, []int{2, 5}, 2)
	if tr.Next != StageFormat || tr.Reason != "clean" {
		t.Fatalf("warnings alone must not retry, got %+v", tr)
	}
}
