package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/sessionscribe-backend/internal/domain/jobs"
	"github.com/yungbote/sessionscribe-backend/internal/domain/report"
	"github.com/yungbote/sessionscribe-backend/internal/jobs/scheduler"
	"github.com/yungbote/sessionscribe-backend/internal/platform/logger"
)

// Job is the registry surface the engine drives. Every lifecycle write goes through it.
type Job interface {
	ID() string
	Input() jobs.Input
	Publish(t jobs.EventType, payload any) (jobs.Event, error)
	SetStatus(status jobs.Status, errMsg string) error
	Finish(status jobs.Status, t jobs.EventType, payload any, errMsg string) (jobs.Event, error)
}

// RunContext is what an executor sees for one stage pass. State is shared with the engine
// and must be treated as read-only; executors report changes through the returned Partial.
type RunContext struct {
	JobID     string
	Input     jobs.Input
	State     *report.PipelineState
	Stage     StageName
	Pass      int
	Eligible  []report.Scene
	BatchSize int
	Emit      scheduler.Emitter
	Log       *logger.Logger
}

// Executor runs one stage and returns the fields it wrote.
type Executor func(ctx context.Context, rc *RunContext) (report.Partial, error)

type Stages struct {
	Preprocess Executor
	Analyze    Executor
	Summarize  Executor
	Validate   Executor
	Format     Executor
}

func (s Stages) byName(name StageName) Executor {
	switch name {
	case StagePreprocess:
		return s.Preprocess
	case StageAnalyze:
		return s.Analyze
	case StageSummarize:
		return s.Summarize
	case StageValidate:
		return s.Validate
	case StageFormat:
		return s.Format
	default:
		return nil
	}
}

type Config struct {
	MaxRetries         int
	BatchSize          int
	ExcludedSceneTypes []string
	// StageTimeout bounds a single stage pass. Zero disables it.
	StageTimeout time.Duration
}

type Engine struct {
	log    *logger.Logger
	stages Stages
	cfg    Config
	tracer trace.Tracer
	now    func() time.Time
}

func NewEngine(log *logger.Logger, stages Stages, cfg Config) *Engine {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = scheduler.DefaultBatchSize
	}
	if cfg.ExcludedSceneTypes == nil {
		cfg.ExcludedSceneTypes = report.DefaultExcludedSceneTypes
	}
	return &Engine{
		log:    log,
		stages: stages,
		cfg:    cfg,
		tracer: otel.Tracer("sessionscribe/orchestrator"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Run drives one job from running to exactly one terminal status. It returns the final
// pipeline state and the error that failed the job, if any. The terminal event has already
// been published when Run returns.
func (e *Engine) Run(ctx context.Context, job Job) (*report.PipelineState, error) {
	log := e.log.With("job_id", job.ID())
	if err := job.SetStatus(jobs.StatusRunning, ""); err != nil {
		return nil, fmt.Errorf("start job: %w", err)
	}

	in := job.Input()
	st := &report.PipelineState{
		SourceText:      in.Transcript,
		SpeakerMap:      map[string]string{},
		Issues:          []report.Issue{},
		PendingSceneIDs: []int{},
	}
	ostate := newOrchestratorState()

	ctx, span := e.tracer.Start(ctx, "report.pipeline", trace.WithAttributes(attribute.String("job.id", job.ID())))
	defer span.End()

	stage := StagePreprocess
	for stage != StageTerminal {
		tr, err := e.runStage(ctx, job, log, st, ostate, stage)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			e.fail(job, log, stage, err)
			return st, err
		}
		stage = tr.Next
	}

	if _, err := job.Publish(jobs.EventResult, map[string]any{
		"report":     st.FinalReport,
		"title":      st.ReportTitle,
		"reportId":   st.ReportID,
		"issues":     st.Issues,
		"retryCount": st.RetryCount,
	}); err != nil {
		e.fail(job, log, StageFormat, err)
		return st, err
	}
	if _, err := job.Finish(jobs.StatusCompleted, jobs.EventDone, map[string]any{
		"jobId":  job.ID(),
		"status": jobs.StatusCompleted,
		"stages": ostate.Snapshot(),
	}, ""); err != nil {
		log.Warn("finish job failed", "error", err)
		return st, err
	}
	log.Info("report pipeline completed", "retry_count", st.RetryCount, "issues", len(st.Issues))
	return st, nil
}

func (e *Engine) runStage(ctx context.Context, job Job, log *logger.Logger, st *report.PipelineState, ostate *OrchestratorState, stage StageName) (Transition, error) {
	exec := e.stages.byName(stage)
	if exec == nil {
		return Transition{}, fmt.Errorf("stage %q has no executor", stage)
	}
	ss := ostate.EnsureStage(stage)
	markStarted(ss, e.now())

	eligible := e.eligible(stage, st)
	startPayload := map[string]any{
		"stage":      stage,
		"pass":       ss.Passes,
		"retryCount": st.RetryCount,
	}
	if stage == StageSummarize || stage == StageValidate {
		startPayload["sceneIds"] = sceneIDs(eligible)
	}
	if _, err := job.Publish(jobs.EventStageStart, startPayload); err != nil {
		return Transition{}, err
	}

	sctx, span := e.tracer.Start(ctx, "report.stage."+string(stage), trace.WithAttributes(
		attribute.String("stage", string(stage)),
		attribute.Int("pass", ss.Passes),
		attribute.Int("scenes", len(eligible)),
	))
	rc := &RunContext{
		JobID:     job.ID(),
		Input:     job.Input(),
		State:     st,
		Stage:     stage,
		Pass:      ss.Passes,
		Eligible:  eligible,
		BatchSize: e.cfg.BatchSize,
		Emit:      job,
		Log:       log.With("stage", string(stage)),
	}
	partial, err := e.safeRun(sctx, stage, exec, rc)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()
		markFinished(ss, e.now(), err.Error())
		return Transition{}, err
	}
	span.End()
	Merge(st, partial)

	tr := Transition{Next: next(stage)}
	if stage == StageValidate {
		bumped := st.RetryCount + 1
		Merge(st, report.Partial{RetryCount: &bumped})
		tr = routeAfterValidate(st, sceneIDs(eligible), e.cfg.MaxRetries)
		Merge(st, report.Partial{PendingSceneIDs: &tr.Pending})
	}
	markFinished(ss, e.now(), "")

	completePayload := map[string]any{
		"stage":      stage,
		"pass":       ss.Passes,
		"durationMs": ss.DurationMs,
		"next":       tr.Next,
		"retryCount": st.RetryCount,
	}
	if stage == StageValidate {
		completePayload["pendingSceneIds"] = tr.Pending
		completePayload["route"] = tr.Reason
		completePayload["issues"] = len(st.Issues)
	}
	if _, err := job.Publish(jobs.EventStageComplete, completePayload); err != nil {
		return Transition{}, err
	}
	log.Debug("stage complete", "stage", stage, "pass", ss.Passes, "next", tr.Next, "retry_count", st.RetryCount)
	return tr, nil
}

// eligible picks the scenes a per-scene stage works on: the pending retry set when there is
// one, otherwise every narrative scene.
func (e *Engine) eligible(stage StageName, st *report.PipelineState) []report.Scene {
	if stage != StageSummarize && stage != StageValidate {
		return nil
	}
	out := []report.Scene{}
	if len(st.PendingSceneIDs) > 0 {
		want := make(map[int]bool, len(st.PendingSceneIDs))
		for _, id := range st.PendingSceneIDs {
			want[id] = true
		}
		for _, sc := range st.Scenes {
			if want[sc.ID] {
				out = append(out, sc)
			}
		}
		return out
	}
	for _, sc := range st.Scenes {
		if sc.Narrative(e.cfg.ExcludedSceneTypes) {
			out = append(out, sc)
		}
	}
	return out
}

func (e *Engine) fail(job Job, log *logger.Logger, stage StageName, cause error) {
	msg := cause.Error()
	if _, err := job.Finish(jobs.StatusFailed, jobs.EventError, map[string]any{
		"stage":   stage,
		"message": msg,
	}, msg); err != nil {
		log.Warn("mark job failed", "error", err)
		return
	}
	log.Error("report pipeline failed", "stage", stage, "error", msg)
}

// safeRun converts executor panics into errors and applies the optional stage timeout. A
// timed-out executor is abandoned; its late result is dropped.
func (e *Engine) safeRun(ctx context.Context, stage StageName, exec Executor, rc *RunContext) (report.Partial, error) {
	run := func(ctx context.Context) (p report.Partial, err error) {
		defer func() {
			if r := recover(); r != nil {
				rc.Log.Error("stage panic", "panic", r, "stack", string(debug.Stack()))
				err = fmt.Errorf("stage %s panicked: %v", stage, r)
			}
		}()
		return exec(ctx, rc)
	}
	if e.cfg.StageTimeout <= 0 {
		return run(ctx)
	}
	tctx, cancel := context.WithTimeout(ctx, e.cfg.StageTimeout)
	defer cancel()
	type out struct {
		p   report.Partial
		err error
	}
	ch := make(chan out, 1)
	go func() {
		p, err := run(tctx)
		ch <- out{p: p, err: err}
	}()
	select {
	case <-tctx.Done():
		if errors.Is(tctx.Err(), context.DeadlineExceeded) {
			return report.Partial{}, fmt.Errorf("stage %s timed out after %s", stage, e.cfg.StageTimeout)
		}
		return report.Partial{}, fmt.Errorf("stage %s: %w", stage, tctx.Err())
	case o := <-ch:
		return o.p, o.err
	}
}

func sceneIDs(scenes []report.Scene) []int {
	out := make([]int, 0, len(scenes))
	for _, s := range scenes {
		out = append(out, s.ID)
	}
	return out
}
