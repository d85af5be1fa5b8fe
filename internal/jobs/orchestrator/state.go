package orchestrator

import (
	"strings"
	"time"
)

type StageName string

const (
	StagePreprocess StageName = "preprocess"
	StageAnalyze    StageName = "analyze"
	StageSummarize  StageName = "summarize"
	StageValidate   StageName = "validate"
	StageFormat     StageName = "format"
	StageTerminal   StageName = "terminal"
)

// StageOrder is the fixed pipeline. Summarize and Validate may repeat through the retry edge.
var StageOrder = []StageName{StagePreprocess, StageAnalyze, StageSummarize, StageValidate, StageFormat}

type StageStatus string

const (
	StagePending   StageStatus = "pending"
	StageRunning   StageStatus = "running"
	StageSucceeded StageStatus = "succeeded"
	StageFailed    StageStatus = "failed"
)

type StageState struct {
	Name       StageName   `json:"name"`
	Status     StageStatus `json:"status"`
	Passes     int         `json:"passes"`
	StartedAt  *time.Time  `json:"startedAt,omitempty"`
	FinishedAt *time.Time  `json:"finishedAt,omitempty"`
	DurationMs int64       `json:"durationMs"`
	LastError  string      `json:"lastError,omitempty"`
}

// OrchestratorState is the per-run bookkeeping reported in stage and terminal events.
type OrchestratorState struct {
	Stages map[StageName]*StageState `json:"stages"`
}

func newOrchestratorState() *OrchestratorState {
	st := &OrchestratorState{Stages: map[StageName]*StageState{}}
	for _, name := range StageOrder {
		st.Stages[name] = &StageState{Name: name, Status: StagePending}
	}
	return st
}

func (s *OrchestratorState) EnsureStage(name StageName) *StageState {
	ss := s.Stages[name]
	if ss == nil {
		ss = &StageState{Name: name, Status: StagePending}
		s.Stages[name] = ss
	}
	return ss
}

// Snapshot returns the stage states in pipeline order.
func (s *OrchestratorState) Snapshot() []StageState {
	out := make([]StageState, 0, len(StageOrder))
	for _, name := range StageOrder {
		if ss := s.Stages[name]; ss != nil {
			out = append(out, *ss)
		}
	}
	return out
}

func markStarted(ss *StageState, now time.Time) {
	ss.Status = StageRunning
	ss.Passes++
	ss.StartedAt = &now
	ss.FinishedAt = nil
}

func markFinished(ss *StageState, now time.Time, lastErr string) {
	ss.FinishedAt = &now
	if ss.StartedAt != nil {
		ss.DurationMs += now.Sub(*ss.StartedAt).Milliseconds()
	}
	if strings.TrimSpace(lastErr) != "" {
		ss.Status = StageFailed
		ss.LastError = lastErr
		return
	}
	ss.Status = StageSucceeded
}
