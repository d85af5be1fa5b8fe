package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yungbote/sessionscribe-backend/internal/domain/jobs"
	"github.com/yungbote/sessionscribe-backend/internal/domain/report"
	"github.com/yungbote/sessionscribe-backend/internal/jobs/orchestrator"
	"github.com/yungbote/sessionscribe-backend/internal/platform/logger"
)

// Runner executes one job to a terminal status.
type Runner interface {
	Run(ctx context.Context, job orchestrator.Job) (*report.PipelineState, error)
}

type Sweeper interface {
	Sweep() int
}

type Config struct {
	// Concurrency caps how many jobs run at once. Jobs beyond it stay pending until a slot frees.
	Concurrency   int
	SweepInterval time.Duration
}

type Worker struct {
	log    *logger.Logger
	runner Runner
	sweep  Sweeper
	cfg    Config
	slots  chan struct{}
	wg     sync.WaitGroup
}

func NewWorker(baseLog *logger.Logger, runner Runner, sweep Sweeper, cfg Config) *Worker {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 4
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 10 * time.Minute
	}
	return &Worker{
		log:    baseLog.With("component", "JobWorker"),
		runner: runner,
		sweep:  sweep,
		cfg:    cfg,
		slots:  make(chan struct{}, cfg.Concurrency),
	}
}

// Start runs the retention sweeper until ctx is done.
func (w *Worker) Start(ctx context.Context) {
	if w.sweep == nil {
		return
	}
	w.log.Info("Starting job sweeper", "interval", w.cfg.SweepInterval, "concurrency", w.cfg.Concurrency)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ticker := time.NewTicker(w.cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				w.log.Info("Job sweeper stopped")
				return
			case <-ticker.C:
				if n := w.sweep.Sweep(); n > 0 {
					w.log.Debug("Swept expired jobs", "removed", n)
				}
			}
		}
	}()
}

// Launch runs job in the background and returns immediately. ctx must not be tied to the
// request that submitted the job.
func (w *Worker) Launch(ctx context.Context, job orchestrator.Job) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		select {
		case w.slots <- struct{}{}:
		case <-ctx.Done():
			w.failJob(job, fmt.Errorf("job not started: %w", ctx.Err()))
			return
		}
		defer func() { <-w.slots }()
		w.run(ctx, job)
	}()
}

func (w *Worker) run(ctx context.Context, job orchestrator.Job) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("Job handler panic", "job_id", job.ID(), "panic", r)
			w.failJob(job, errFromRecover(r))
		}
	}()
	start := time.Now()
	if _, err := w.runner.Run(ctx, job); err != nil {
		w.log.Warn("Job failed", "job_id", job.ID(), "error", err, "elapsed", time.Since(start))
		return
	}
	w.log.Info("Job completed", "job_id", job.ID(), "elapsed", time.Since(start))
}

// failJob is the safety net for jobs the runner could not terminate itself. A job that
// already reached a terminal status rejects the call.
func (w *Worker) failJob(job orchestrator.Job, cause error) {
	// pending jobs pass through running so the status sequence stays one-way
	_ = job.SetStatus(jobs.StatusRunning, "")
	if _, err := job.Finish(jobs.StatusFailed, jobs.EventError, map[string]any{
		"stage":   "dispatch",
		"message": cause.Error(),
	}, cause.Error()); err != nil {
		w.log.Debug("Job already terminal", "job_id", job.ID(), "error", err)
	}
}

// Wait blocks until every launched job and the sweeper have returned, or ctx is done.
func (w *Worker) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func errFromRecover(v any) error { return &panicError{Val: v} }

type panicError struct{ Val any }

func (e *panicError) Error() string { return fmt.Sprintf("panic: %v", e.Val) }
