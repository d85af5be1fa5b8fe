package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/sessionscribe-backend/internal/data/repos/reports"
	"github.com/yungbote/sessionscribe-backend/internal/data/repos/testutil"
	"github.com/yungbote/sessionscribe-backend/internal/domain/jobs"
	httpH "github.com/yungbote/sessionscribe-backend/internal/http/handlers"
	"github.com/yungbote/sessionscribe-backend/internal/jobs/orchestrator"
	"github.com/yungbote/sessionscribe-backend/internal/jobs/registry"
	"github.com/yungbote/sessionscribe-backend/internal/jobs/worker"
	"github.com/yungbote/sessionscribe-backend/internal/modules/report/pipeline"
	"github.com/yungbote/sessionscribe-backend/internal/modules/report/steps"
	"github.com/yungbote/sessionscribe-backend/internal/platform/logger"
	"github.com/yungbote/sessionscribe-backend/internal/realtime"
	"github.com/yungbote/sessionscribe-backend/internal/services"
)

// scriptedAI answers analysis with two narrative scenes and one pause, and passes validation.
type scriptedAI struct {
	mu        sync.Mutex
	failStage string
}

func (a *scriptedAI) GenerateJSON(ctx context.Context, system, user, schemaName string, schema map[string]any) (map[string]any, error) {
	a.mu.Lock()
	fail := a.failStage == schemaName
	a.mu.Unlock()
	if fail {
		return nil, errors.New("upstream unavailable")
	}
	switch schemaName {
	case "scene_analysis":
		scene := func(title string, start, end int, typ string) map[string]any {
			return map[string]any{"title": title, "start_line": float64(start), "end_line": float64(end), "type": typ, "location": ""}
		}
		return map[string]any{
			"title":    "The Crypt",
			"scenes":   []any{scene("Gate", 1, 1, "exploration"), scene("Snacks", 2, 2, "pause"), scene("Crypt", 3, 3, "combat")},
			"entities": []any{},
		}, nil
	case "scene_summary":
		return map[string]any{"summary": "Things happened.", "key_events": []any{}, "characters": []any{}}, nil
	case "scene_validation":
		return map[string]any{"issues": []any{}}, nil
	}
	return nil, errors.New("unexpected schema " + schemaName)
}

func (a *scriptedAI) GenerateText(ctx context.Context, system, user string) (string, error) {
	return "# The Crypt\n\nThe party survived.", nil
}

type testStack struct {
	srv    *httptest.Server
	worker *worker.Worker
}

func newTestStack(t *testing.T, ai *scriptedAI) *testStack {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logger.Nop()

	reg := registry.New(log, registry.Config{})
	reportSvc := services.NewReportService(log, reports.NewReportRepo(testutil.DB(t), log), nil)
	def := pipeline.Default()
	engine := orchestrator.NewEngine(log, steps.Stages(steps.Deps{Log: log, AI: ai, Reports: reportSvc, Def: def}), orchestrator.Config{
		MaxRetries:         def.MaxRetries,
		BatchSize:          def.BatchSize,
		ExcludedSceneTypes: def.ExcludedSceneTypes,
	})
	w := worker.NewWorker(log, engine, reg, worker.Config{})
	jobSvc := services.NewJobService(context.Background(), log, reg, w)

	router := NewRouter(RouterConfig{
		Log:           log,
		JobHandler:    httpH.NewJobHandler(log, jobSvc, realtime.NewStreamer(log, time.Second)),
		ReportHandler: httpH.NewReportHandler(reportSvc),
		HealthHandler: httpH.NewHealthHandler(nil),
	})
	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		srv.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = w.Wait(ctx)
	})
	return &testStack{srv: srv, worker: w}
}

func doJSON(t *testing.T, method, url string, body any) (*stdhttp.Response, []byte) {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		rdr = bytes.NewReader(raw)
	}
	req, _ := stdhttp.NewRequest(method, url, rdr)
	req.Header.Set("Content-Type", "application/json")
	resp, err := stdhttp.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	return resp, raw
}

func submit(t *testing.T, st *testStack) jobs.Summary {
	t.Helper()
	resp, raw := doJSON(t, stdhttp.MethodPost, st.srv.URL+"/jobs", jobs.Input{
		Transcript:     "GM: The gate creaks.\nAna: snack break\nGM: Skeletons rise!",
		TranscriptName: "crypt.txt",
		UniverseName:   "Eberron",
		Players:        []jobs.Player{{Name: "Ana", Character: "Vex"}},
	})
	if resp.StatusCode != stdhttp.StatusAccepted {
		t.Fatalf("POST /jobs: %d %s", resp.StatusCode, raw)
	}
	var sum jobs.Summary
	if err := json.Unmarshal(raw, &sum); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if sum.Status != jobs.StatusPending || sum.PlayersCount != 1 || sum.Error != nil {
		t.Fatalf("unexpected summary %+v", sum)
	}
	return sum
}

func streamAll(t *testing.T, url string) []realtime.Frame {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := stdhttp.NewRequestWithContext(ctx, stdhttp.MethodGet, url, nil)
	resp, err := stdhttp.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != stdhttp.StatusOK {
		t.Fatalf("GET %s: %d", url, resp.StatusCode)
	}
	var frames []realtime.Frame
	if err := realtime.ReadFrames(resp.Body, func(f realtime.Frame) error {
		frames = append(frames, f)
		return nil
	}); err != nil {
		t.Fatalf("read stream: %v", err)
	}
	return frames
}

func TestJobRunsToCompletionOverHTTP(t *testing.T) {
	st := newTestStack(t, &scriptedAI{})
	sum := submit(t, st)

	frames := streamAll(t, st.srv.URL+"/jobs/"+sum.ID+"/stream")
	if len(frames) < 2 {
		t.Fatalf("stream too short: %+v", frames)
	}
	for i, f := range frames {
		if f.ID != int64(i+1) {
			t.Fatalf("event ids not contiguous at %d: %+v", i, f)
		}
	}
	result, done := frames[len(frames)-2], frames[len(frames)-1]
	if result.Event != string(jobs.EventResult) || done.Event != string(jobs.EventDone) {
		t.Fatalf("want result then done, got %s then %s", result.Event, done.Event)
	}
	var payload struct {
		Report   string `json:"report"`
		ReportID string `json:"reportId"`
	}
	if err := json.Unmarshal([]byte(result.Data), &payload); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if !strings.HasPrefix(payload.Report, "# The Crypt") || payload.ReportID == "" {
		t.Fatalf("unexpected result payload %+v", payload)
	}

	resp, raw := doJSON(t, stdhttp.MethodGet, st.srv.URL+"/jobs/"+sum.ID, nil)
	if resp.StatusCode != stdhttp.StatusOK || !strings.Contains(string(raw), `"status":"completed"`) {
		t.Fatalf("GET /jobs/:id: %d %s", resp.StatusCode, raw)
	}
	resp, raw = doJSON(t, stdhttp.MethodGet, st.srv.URL+"/reports/"+payload.ReportID, nil)
	if resp.StatusCode != stdhttp.StatusOK || !strings.Contains(string(raw), "The party survived.") {
		t.Fatalf("GET /reports/:id: %d %s", resp.StatusCode, raw)
	}

	resumed := streamAll(t, st.srv.URL+"/jobs/"+sum.ID+"/stream?from=4")
	if len(resumed) != len(frames)-3 || resumed[0].ID != 4 {
		t.Fatalf("resume from 4 returned %d frames starting at %d", len(resumed), resumed[0].ID)
	}
}

func TestFailingStageEndsWithErrorEvent(t *testing.T) {
	st := newTestStack(t, &scriptedAI{failStage: "scene_summary"})
	sum := submit(t, st)

	frames := streamAll(t, st.srv.URL+"/jobs/"+sum.ID+"/stream")
	last := frames[len(frames)-1]
	if last.Event != string(jobs.EventError) {
		t.Fatalf("want terminal error event, got %s", last.Event)
	}
	for _, f := range frames {
		if f.Event == string(jobs.EventResult) || f.Event == string(jobs.EventDone) {
			t.Fatalf("failed job emitted %s", f.Event)
		}
	}
	_, raw := doJSON(t, stdhttp.MethodGet, st.srv.URL+"/jobs?status=failed", nil)
	var list []jobs.Summary
	_ = json.Unmarshal(raw, &list)
	if len(list) != 1 || list[0].ID != sum.ID || list[0].Error == nil {
		t.Fatalf("failed job not listed: %s", raw)
	}
}

func TestRequestErrorsUseEnvelope(t *testing.T) {
	st := newTestStack(t, &scriptedAI{})
	cases := []struct {
		method, path string
		body         any
		status       int
		code         string
	}{
		{stdhttp.MethodPost, "/jobs", map[string]any{"transcript": "  "}, stdhttp.StatusBadRequest, "invalid_request"},
		{stdhttp.MethodPost, "/jobs", map[string]any{"transcript": "GM: hi", "players": []any{map[string]any{"character": "Vex"}}}, stdhttp.StatusBadRequest, "invalid_request"},
		{stdhttp.MethodGet, "/jobs/unknown", nil, stdhttp.StatusNotFound, "job_not_found"},
		{stdhttp.MethodGet, "/jobs/unknown/stream", nil, stdhttp.StatusNotFound, "job_not_found"},
		{stdhttp.MethodGet, "/jobs?status=paused", nil, stdhttp.StatusBadRequest, "invalid_request"},
		{stdhttp.MethodGet, "/reports/not-a-uuid", nil, stdhttp.StatusNotFound, "report_not_found"},
	}
	for _, tc := range cases {
		resp, raw := doJSON(t, tc.method, st.srv.URL+tc.path, tc.body)
		if resp.StatusCode != tc.status {
			t.Fatalf("%s %s: want %d got %d (%s)", tc.method, tc.path, tc.status, resp.StatusCode, raw)
		}
		var env struct {
			Error struct {
				Message string `json:"message"`
				Code    string `json:"code"`
			} `json:"error"`
		}
		if err := json.Unmarshal(raw, &env); err != nil || env.Error.Code != tc.code || env.Error.Message == "" {
			t.Fatalf("%s %s: bad envelope %s", tc.method, tc.path, raw)
		}
	}

	_, raw := doJSON(t, stdhttp.MethodGet, st.srv.URL+"/jobs", nil)
	if strings.TrimSpace(string(raw)) != "[]" {
		t.Fatalf("rejected submissions must not create jobs: %s", raw)
	}
}

func TestHealthcheck(t *testing.T) {
	st := newTestStack(t, &scriptedAI{})
	resp, raw := doJSON(t, stdhttp.MethodGet, st.srv.URL+"/healthcheck", nil)
	if resp.StatusCode != stdhttp.StatusOK || string(raw) != "ok" {
		t.Fatalf("healthcheck: %d %s", resp.StatusCode, raw)
	}
}
