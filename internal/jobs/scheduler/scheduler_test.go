package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yungbote/sessionscribe-backend/internal/domain/jobs"
	"github.com/yungbote/sessionscribe-backend/internal/domain/report"
)

type recordingEmitter struct {
	mu     sync.Mutex
	events []jobs.Event
}

func (e *recordingEmitter) Publish(t jobs.EventType, payload any) (jobs.Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ev := jobs.Event{ID: int64(len(e.events)) + 1, Type: t, Payload: payload}
	e.events = append(e.events, ev)
	return ev, nil
}

func (e *recordingEmitter) ofType(t jobs.EventType) []jobs.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := []jobs.Event{}
	for _, ev := range e.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func scenes(n int) []report.Scene {
	out := make([]report.Scene, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, report.Scene{ID: i, Title: "scene", Lines: report.LineRange{Start: i, End: i}, Type: "combat"})
	}
	return out
}

func TestRunNeverExceedsBatchSizeInFlight(t *testing.T) {
	emit := &recordingEmitter{}
	var inFlight, peak int32

	res, err := Run(context.Background(), Config{Stage: "summarize", Group: jobs.GroupSummarize, BatchSize: 5}, emit, scenes(12),
		func(ctx context.Context, s report.Scene) (int, error) {
			n := atomic.AddInt32(&inFlight, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
			return s.ID * 10, nil
		})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if peak > 5 {
		t.Fatalf("peak concurrency %d exceeds batch size", peak)
	}
	if len(res) != 12 {
		t.Fatalf("want 12 results got %d", len(res))
	}
	for i, r := range res {
		if r.SceneID != i+1 || r.Value != (i+1)*10 {
			t.Fatalf("result %d out of order: %+v", i, r)
		}
	}
	if got := len(emit.ofType(jobs.EventSceneStart)); got != 12 {
		t.Fatalf("want 12 start events got %d", got)
	}
	if got := len(emit.ofType(jobs.EventSceneComplete)); got != 12 {
		t.Fatalf("want 12 complete events got %d", got)
	}
	if got := len(emit.ofType(jobs.EventStageProgress)); got != 3 {
		t.Fatalf("want one progress event per batch, got %d", got)
	}
}

func TestRunProcessesBatchesSequentially(t *testing.T) {
	emit := &recordingEmitter{}
	var mu sync.Mutex
	finished := map[int]bool{}

	_, err := Run(context.Background(), Config{Stage: "validate", BatchSize: 2}, emit, scenes(6),
		func(ctx context.Context, s report.Scene) (struct{}, error) {
			batch := (s.ID - 1) / 2
			mu.Lock()
			for prev := 1; prev <= batch*2; prev++ {
				if !finished[prev] {
					mu.Unlock()
					return struct{}{}, errors.New("earlier batch still running")
				}
			}
			mu.Unlock()
			time.Sleep(time.Millisecond * time.Duration(3-s.ID%2))
			mu.Lock()
			finished[s.ID] = true
			mu.Unlock()
			return struct{}{}, nil
		})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestRunFailsFastOnUnitError(t *testing.T) {
	emit := &recordingEmitter{}
	var calls int32
	boom := errors.New("model unavailable")

	_, err := Run(context.Background(), Config{Stage: "summarize", BatchSize: 5}, emit, scenes(10),
		func(ctx context.Context, s report.Scene) (string, error) {
			atomic.AddInt32(&calls, 1)
			if s.ID == 3 {
				return "", boom
			}
			return "ok", nil
		})
	if !errors.Is(err, boom) {
		t.Fatalf("want wrapped unit error, got %v", err)
	}
	if calls != 5 {
		t.Fatalf("second batch must not start after a failure, calls=%d", calls)
	}
}

func TestRunAnnouncesSceneIDs(t *testing.T) {
	emit := &recordingEmitter{}
	in := []report.Scene{{ID: 2, Title: "b"}, {ID: 5, Title: "e"}}
	_, err := Run(context.Background(), Config{Stage: "summarize", Group: jobs.GroupSummarize}, emit, in,
		func(ctx context.Context, s report.Scene) (int, error) { return s.ID, nil })
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	ann := emit.ofType(jobs.EventSceneBatchAnnounce)
	if len(ann) != 1 {
		t.Fatalf("want one announce got %d", len(ann))
	}
	payload := ann[0].Payload.(map[string]any)
	ids := payload["sceneIds"].([]int)
	if len(ids) != 2 || ids[0] != 2 || ids[1] != 5 || payload["group"] != jobs.GroupSummarize {
		t.Fatalf("unexpected announce payload %+v", payload)
	}
	if emit.events[0].Type != jobs.EventSceneBatchAnnounce {
		t.Fatalf("announce must precede scene events")
	}
}

func TestRunWithNoScenesOnlyAnnounces(t *testing.T) {
	emit := &recordingEmitter{}
	res, err := Run(context.Background(), Config{Stage: "summarize"}, emit, nil,
		func(ctx context.Context, s report.Scene) (int, error) {
			t.Fatalf("unit must not run")
			return 0, nil
		})
	if err != nil || len(res) != 0 {
		t.Fatalf("unexpected result %v %v", res, err)
	}
	if len(emit.events) != 1 {
		t.Fatalf("want only the announce event, got %d", len(emit.events))
	}
}

func TestPartition(t *testing.T) {
	got := Partition([]int{1, 2, 3, 4, 5, 6, 7}, 5)
	if len(got) != 2 || len(got[0]) != 5 || len(got[1]) != 2 || got[1][0] != 6 {
		t.Fatalf("unexpected partition %v", got)
	}
	if len(Partition([]int{}, 5)) != 0 {
		t.Fatalf("empty input should give no batches")
	}
}

// gatedEmitter holds the second scene-start until the batch context is cancelled.
type gatedEmitter struct {
	recordingEmitter
	batchCtx chan context.Context
	starts   int32
}

func (e *gatedEmitter) Publish(t jobs.EventType, payload any) (jobs.Event, error) {
	ev, err := e.recordingEmitter.Publish(t, payload)
	if t == jobs.EventSceneStart && atomic.AddInt32(&e.starts, 1) == 2 {
		select {
		case ctx := <-e.batchCtx:
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
		case <-time.After(time.Second):
		}
	}
	return ev, err
}

func TestRunStopsStartingScenesAfterBatchFailure(t *testing.T) {
	emit := &gatedEmitter{batchCtx: make(chan context.Context, 1)}
	boom := errors.New("upstream down")

	_, err := Run(context.Background(), Config{Stage: "summarize", Group: jobs.GroupSummarize, BatchSize: 5}, emit, scenes(5),
		func(ctx context.Context, s report.Scene) (int, error) {
			if s.ID == 1 {
				emit.batchCtx <- ctx
				return 0, boom
			}
			<-ctx.Done()
			return 0, ctx.Err()
		})
	if !errors.Is(err, boom) {
		t.Fatalf("want unit error, got %v", err)
	}
	if got := len(emit.ofType(jobs.EventSceneStart)); got != 2 {
		t.Fatalf("want 2 scene-start events before the failure was seen, got %d", got)
	}
	if got := len(emit.ofType(jobs.EventSceneComplete)); got != 0 {
		t.Fatalf("failed batch emitted %d completions", got)
	}
}
