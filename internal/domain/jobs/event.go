package jobs

import (
	"time"
)

type EventType string

const (
	EventStageStart         EventType = "stage-start"
	EventStageComplete      EventType = "stage-complete"
	EventStageProgress      EventType = "stage-progress"
	EventSceneBatchAnnounce EventType = "scene-batch-announce"
	EventSceneStart         EventType = "scene-start"
	EventSceneComplete      EventType = "scene-complete"
	EventResult             EventType = "result"
	EventError              EventType = "error"
	EventDone               EventType = "done"
)

// Terminal reports whether publishing this event type ends the job.
func (t EventType) Terminal() bool {
	return t == EventError || t == EventDone
}

// Event is one immutable entry of a job's log. IDs start at 1 and have no gaps.
type Event struct {
	ID        int64     `json:"id"`
	Type      EventType `json:"type"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Scene groups tag scene-batch-announce and per-scene events.
const (
	GroupSummarize = "summarize"
	GroupValidate  = "validate"
)
