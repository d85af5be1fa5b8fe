package jobs

import (
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

// Player is one roster entry. SpeakerHint is the label used for this player in the transcript
// when it differs from Name.
type Player struct {
	Name        string `json:"name"`
	Character   string `json:"character"`
	SpeakerHint string `json:"speakerHint,omitempty"`
}

// Input is everything a client submits for one report run.
type Input struct {
	Transcript      string   `json:"transcript"`
	TranscriptName  string   `json:"transcriptName,omitempty"`
	UniverseName    string   `json:"universeName,omitempty"`
	UniverseContext string   `json:"universeContext,omitempty"`
	SessionHistory  string   `json:"sessionHistory,omitempty"`
	Players         []Player `json:"players"`
}

// Summary is the cheap, serializable view of a job: no event log, no listeners.
type Summary struct {
	ID             string    `json:"id"`
	Status         Status    `json:"status"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
	TranscriptName string    `json:"transcriptName"`
	UniverseName   string    `json:"universeName"`
	PlayersCount   int       `json:"playersCount"`
	Error          *string   `json:"error"`
}
