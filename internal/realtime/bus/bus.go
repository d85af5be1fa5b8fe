package bus

import (
	"context"

	"github.com/yungbote/sessionscribe-backend/internal/domain/jobs"
)

// Message is the wire form of one mirrored job event.
type Message struct {
	JobID string     `json:"jobId"`
	Event jobs.Event `json:"event"`
}

// Bus mirrors job events to observers outside this process. Observe must never block the
// publisher; delivery is best effort.
type Bus interface {
	Observe(jobID string, ev jobs.Event)
	StartForwarder(ctx context.Context, onMsg func(m Message)) error
	Close() error
}
