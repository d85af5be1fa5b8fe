package registry

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/sessionscribe-backend/internal/domain/jobs"
	"github.com/yungbote/sessionscribe-backend/internal/platform/logger"
)

var (
	ErrNotFound          = errors.New("job not found")
	ErrInvalidTransition = errors.New("invalid job status transition")
	ErrTerminal          = errors.New("job already terminal")
)

const (
	DefaultRetention      = 6 * time.Hour
	DefaultListenerBuffer = 256
)

// Observer sees every appended event, in id order per job, while the job lock is held.
// Implementations must not block.
type Observer interface {
	Observe(jobID string, ev jobs.Event)
}

type Config struct {
	Retention      time.Duration
	ListenerBuffer int
	Observer       Observer
	Now            func() time.Time
}

// Registry is the process-local store of jobs. The map is guarded by mu; each Job guards its
// own log and listener set. Lock order is always Registry.mu before Job.mu.
type Registry struct {
	log *logger.Logger
	cfg Config

	mu   sync.RWMutex
	jobs map[string]*Job
}

func New(log *logger.Logger, cfg Config) *Registry {
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultRetention
	}
	if cfg.ListenerBuffer <= 0 {
		cfg.ListenerBuffer = DefaultListenerBuffer
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Registry{
		log:  log.With("component", "JobRegistry"),
		cfg:  cfg,
		jobs: map[string]*Job{},
	}
}

func (r *Registry) Create(input jobs.Input) *Job {
	r.Sweep()
	j := newJob(uuid.NewString(), input, r.cfg.Now, r.cfg.Observer, r.cfg.ListenerBuffer)
	r.mu.Lock()
	r.jobs[j.id] = j
	r.mu.Unlock()
	r.log.Debug("Job created", "job_id", j.id, "transcript", input.Transcript, "players", len(input.Players))
	return j
}

func (r *Registry) Get(id string) (*Job, error) {
	r.Sweep()
	return r.lookup(id)
}

// List returns summaries newest first, optionally restricted to the given statuses.
func (r *Registry) List(statuses ...jobs.Status) []jobs.Summary {
	r.Sweep()
	want := map[jobs.Status]bool{}
	for _, s := range statuses {
		want[s] = true
	}

	r.mu.RLock()
	out := make([]jobs.Summary, 0, len(r.jobs))
	for _, j := range r.jobs {
		sum := j.Summary()
		if len(want) > 0 && !want[sum.Status] {
			continue
		}
		out = append(out, sum)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(a, b int) bool {
		if out[a].CreatedAt.Equal(out[b].CreatedAt) {
			return out[a].ID > out[b].ID
		}
		return out[a].CreatedAt.After(out[b].CreatedAt)
	})
	return out
}

func (r *Registry) SetStatus(id string, status jobs.Status, errMsg string) error {
	j, err := r.lookup(id)
	if err != nil {
		return err
	}
	if err := j.SetStatus(status, errMsg); err != nil {
		r.log.Warn("Rejected job status change", "job_id", id, "status", status, "error", err)
		return err
	}
	return nil
}

func (r *Registry) Publish(id string, t jobs.EventType, payload any) (jobs.Event, error) {
	j, err := r.lookup(id)
	if err != nil {
		return jobs.Event{}, err
	}
	return j.Publish(t, payload)
}

func (r *Registry) Finish(id string, status jobs.Status, t jobs.EventType, payload any, errMsg string) (jobs.Event, error) {
	j, err := r.lookup(id)
	if err != nil {
		return jobs.Event{}, err
	}
	ev, err := j.Finish(status, t, payload, errMsg)
	if err != nil {
		r.log.Warn("Rejected terminal transition", "job_id", id, "status", status, "error", err)
		return jobs.Event{}, err
	}
	r.log.Info("Job finished", "job_id", id, "status", status, "events", ev.ID)
	return ev, nil
}

func (r *Registry) Subscribe(id string, from int64) (*Subscription, error) {
	j, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	return j.Subscribe(from), nil
}

// Sweep drops terminal jobs whose last update is older than the retention window.
func (r *Registry) Sweep() int {
	cutoff := r.cfg.Now().Add(-r.cfg.Retention)
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, j := range r.jobs {
		j.mu.Lock()
		expired := j.status.Terminal() && j.updatedAt.Before(cutoff)
		j.mu.Unlock()
		if expired {
			delete(r.jobs, id)
			removed++
		}
	}
	if removed > 0 {
		r.log.Debug("Swept expired jobs", "removed", removed)
	}
	return removed
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

func (r *Registry) lookup(id string) (*Job, error) {
	r.mu.RLock()
	j, ok := r.jobs[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return j, nil
}
