package registry

import (
	"fmt"
	"sync"
	"time"

	"github.com/yungbote/sessionscribe-backend/internal/domain/jobs"
)

// Job is one pipeline run. Status, log and listeners are guarded by mu; the registry and the
// orchestrator go through its methods, nothing else holds the fields.
type Job struct {
	id        string
	input     jobs.Input
	createdAt time.Time

	now      func() time.Time
	observer Observer
	buffer   int

	mu        sync.Mutex
	status    jobs.Status
	updatedAt time.Time
	errMsg    *string
	events    []jobs.Event
	listeners map[*listener]struct{}
}

type listener struct {
	ch     chan jobs.Event
	from   int64
	lagged bool
}

func newJob(id string, input jobs.Input, now func() time.Time, observer Observer, buffer int) *Job {
	ts := now()
	return &Job{
		id:        id,
		input:     input,
		createdAt: ts,
		now:       now,
		observer:  observer,
		buffer:    buffer,
		status:    jobs.StatusPending,
		updatedAt: ts,
		events:    make([]jobs.Event, 0, 32),
		listeners: map[*listener]struct{}{},
	}
}

func (j *Job) ID() string { return j.id }

func (j *Job) Input() jobs.Input { return j.input }

func (j *Job) Status() jobs.Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

func (j *Job) UpdatedAt() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.updatedAt
}

func (j *Job) Summary() jobs.Summary {
	j.mu.Lock()
	defer j.mu.Unlock()
	var errMsg *string
	if j.errMsg != nil {
		s := *j.errMsg
		errMsg = &s
	}
	return jobs.Summary{
		ID:             j.id,
		Status:         j.status,
		CreatedAt:      j.createdAt,
		UpdatedAt:      j.updatedAt,
		TranscriptName: j.input.TranscriptName,
		UniverseName:   j.input.UniverseName,
		PlayersCount:   len(j.input.Players),
		Error:          errMsg,
	}
}

// Events returns a copy of the log.
func (j *Job) Events() []jobs.Event {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]jobs.Event, len(j.events))
	copy(out, j.events)
	return out
}

func (j *Job) ListenerCount() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.listeners)
}

// Publish appends a non-terminal event and fans it out to live listeners.
func (j *Job) Publish(t jobs.EventType, payload any) (jobs.Event, error) {
	if t.Terminal() {
		return jobs.Event{}, fmt.Errorf("%w: %s events are published through Finish", ErrInvalidTransition, t)
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status.Terminal() {
		return jobs.Event{}, fmt.Errorf("%w: job %s is %s", ErrTerminal, j.id, j.status)
	}
	return j.appendLocked(t, payload), nil
}

// SetStatus moves the job to running, completed or failed. A terminal status detaches every
// listener; a second terminal call returns ErrTerminal and changes nothing.
func (j *Job) SetStatus(status jobs.Status, errMsg string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.checkTransitionLocked(status); err != nil {
		return err
	}
	j.applyStatusLocked(status, errMsg)
	return nil
}

// Finish appends the terminal event and flips the status under one lock, so a subscriber
// either sees the terminal event in its replay or receives it live, never neither.
func (j *Job) Finish(status jobs.Status, t jobs.EventType, payload any, errMsg string) (jobs.Event, error) {
	if !status.Terminal() {
		return jobs.Event{}, fmt.Errorf("%w: %s is not terminal", ErrInvalidTransition, status)
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.checkTransitionLocked(status); err != nil {
		return jobs.Event{}, err
	}
	ev := j.appendLocked(t, payload)
	j.applyStatusLocked(status, errMsg)
	return ev, nil
}

// Subscribe replays every event with id >= from and, unless the job is terminal, attaches a
// live listener. Replay and attach happen under the same lock as Publish, so the first live
// event is exactly the one after the last replayed event.
func (j *Job) Subscribe(from int64) *Subscription {
	if from < 1 {
		from = 1
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	sub := &Subscription{job: j}
	if from <= int64(len(j.events)) {
		sub.Replay = make([]jobs.Event, len(j.events)-int(from-1))
		copy(sub.Replay, j.events[from-1:])
	}
	if j.status.Terminal() {
		return sub
	}
	// from may be ahead of the log; live events below it are skipped.
	l := &listener{ch: make(chan jobs.Event, j.buffer), from: from}
	j.listeners[l] = struct{}{}
	sub.l = l
	sub.Events = l.ch
	return sub
}

func (j *Job) detach(l *listener) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if _, ok := j.listeners[l]; ok {
		delete(j.listeners, l)
		close(l.ch)
	}
}

func (j *Job) appendLocked(t jobs.EventType, payload any) jobs.Event {
	ts := j.now()
	ev := jobs.Event{
		ID:        int64(len(j.events)) + 1,
		Type:      t,
		Payload:   payload,
		Timestamp: ts,
	}
	j.events = append(j.events, ev)
	j.updatedAt = ts
	for l := range j.listeners {
		if ev.ID < l.from {
			continue
		}
		select {
		case l.ch <- ev:
		default:
			// Consumer fell behind; it resumes from the log on reconnect.
			l.lagged = true
			delete(j.listeners, l)
			close(l.ch)
		}
	}
	if j.observer != nil {
		j.observer.Observe(j.id, ev)
	}
	return ev
}

func (j *Job) checkTransitionLocked(to jobs.Status) error {
	if j.status.Terminal() {
		return fmt.Errorf("%w: job %s is already %s", ErrTerminal, j.id, j.status)
	}
	switch {
	case j.status == jobs.StatusPending && to == jobs.StatusRunning:
		return nil
	case j.status == jobs.StatusRunning && to.Terminal():
		return nil
	default:
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.status, to)
	}
}

func (j *Job) applyStatusLocked(status jobs.Status, errMsg string) {
	j.status = status
	j.updatedAt = j.now()
	if status == jobs.StatusFailed {
		msg := errMsg
		if msg == "" {
			msg = "job failed"
		}
		j.errMsg = &msg
	}
	if status.Terminal() {
		for l := range j.listeners {
			delete(j.listeners, l)
			close(l.ch)
		}
	}
}

// Subscription is one consumer's view of a job's log. Events is nil when the job was already
// terminal at subscribe time; otherwise it is closed when the job ends, when the consumer
// falls too far behind, or on Close.
type Subscription struct {
	Replay []jobs.Event
	Events <-chan jobs.Event

	job  *Job
	l    *listener
	once sync.Once
}

func (s *Subscription) Live() bool { return s.l != nil }

// Lagged reports whether the listener was dropped for overflowing its buffer. Only
// meaningful after Events has been closed.
func (s *Subscription) Lagged() bool {
	if s.l == nil {
		return false
	}
	s.job.mu.Lock()
	defer s.job.mu.Unlock()
	return s.l.lagged
}

// Close detaches the listener. It never affects the job itself.
func (s *Subscription) Close() {
	s.once.Do(func() {
		if s.l != nil {
			s.job.detach(s.l)
		}
	})
}
