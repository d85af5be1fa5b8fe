package services

import (
	"context"
	"errors"
	"strings"

	"github.com/yungbote/sessionscribe-backend/internal/domain/jobs"
	"github.com/yungbote/sessionscribe-backend/internal/jobs/orchestrator"
	"github.com/yungbote/sessionscribe-backend/internal/jobs/registry"
	"github.com/yungbote/sessionscribe-backend/internal/platform/apierr"
	"github.com/yungbote/sessionscribe-backend/internal/platform/ctxutil"
	"github.com/yungbote/sessionscribe-backend/internal/platform/logger"
)

// Launcher starts a job in the background.
type Launcher interface {
	Launch(ctx context.Context, job orchestrator.Job)
}

type JobService interface {
	Submit(ctx context.Context, in jobs.Input) (jobs.Summary, error)
	Get(id string) (jobs.Summary, error)
	List(statuses []jobs.Status) []jobs.Summary
	Subscribe(id string, from int64) (*registry.Subscription, error)
}

type jobService struct {
	log      *logger.Logger
	reg      *registry.Registry
	launcher Launcher
	// base outlives every request; launched jobs derive from it
	base context.Context
}

func NewJobService(base context.Context, baseLog *logger.Logger, reg *registry.Registry, launcher Launcher) JobService {
	if base == nil {
		base = context.Background()
	}
	return &jobService{
		log:      baseLog.With("service", "JobService"),
		reg:      reg,
		launcher: launcher,
		base:     base,
	}
}

// ValidateInput rejects a submission before any job exists.
func ValidateInput(in jobs.Input) error {
	if strings.TrimSpace(in.Transcript) == "" {
		return apierr.Invalid("transcript is required")
	}
	for i, p := range in.Players {
		if strings.TrimSpace(p.Name) == "" {
			return apierr.Invalid("players[%d].name is required", i)
		}
		if strings.TrimSpace(p.Character) == "" {
			return apierr.Invalid("players[%d].character is required", i)
		}
	}
	return nil
}

func (s *jobService) Submit(ctx context.Context, in jobs.Input) (jobs.Summary, error) {
	if err := ValidateInput(in); err != nil {
		return jobs.Summary{}, err
	}
	in.TranscriptName = strings.TrimSpace(in.TranscriptName)
	in.UniverseName = strings.TrimSpace(in.UniverseName)

	job := s.reg.Create(in)
	sum := job.Summary()
	s.log.Info("Job submitted",
		append(ctxutil.LogFields(ctx),
			"job_id", job.ID(),
			"transcript", in.Transcript,
			"players", len(in.Players),
		)...,
	)
	s.launcher.Launch(ctxutil.Detach(ctx, s.base, job.ID()), job)
	return sum, nil
}

func (s *jobService) Get(id string) (jobs.Summary, error) {
	job, err := s.reg.Get(strings.TrimSpace(id))
	if err != nil {
		return jobs.Summary{}, mapRegistryErr(err)
	}
	return job.Summary(), nil
}

func (s *jobService) List(statuses []jobs.Status) []jobs.Summary {
	return s.reg.List(statuses...)
}

func (s *jobService) Subscribe(id string, from int64) (*registry.Subscription, error) {
	sub, err := s.reg.Subscribe(strings.TrimSpace(id), from)
	if err != nil {
		return nil, mapRegistryErr(err)
	}
	return sub, nil
}

func mapRegistryErr(err error) error {
	if errors.Is(err, registry.ErrNotFound) {
		return apierr.NotFound("job_not_found", err)
	}
	return err
}

// ParseStatuses turns "pending,running" into statuses; unknown names are rejected.
func ParseStatuses(raw string) ([]jobs.Status, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	out := []jobs.Status{}
	for _, part := range strings.Split(raw, ",") {
		st := jobs.Status(strings.ToLower(strings.TrimSpace(part)))
		if st == "" {
			continue
		}
		if !st.Valid() {
			return nil, apierr.Invalid("unknown status %q", part)
		}
		out = append(out, st)
	}
	return out, nil
}
