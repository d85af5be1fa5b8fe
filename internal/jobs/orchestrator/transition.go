package orchestrator

import (
	"sort"

	"github.com/yungbote/sessionscribe-backend/internal/domain/report"
)

const DefaultMaxRetries = 2

// Transition is the tagged result of a stage decision point.
type Transition struct {
	Next    StageName
	Pending []int
	Reason  string
}

// next returns the static successor of every stage except Validate.
func next(stage StageName) StageName {
	switch stage {
	case StagePreprocess:
		return StageAnalyze
	case StageAnalyze:
		return StageSummarize
	case StageSummarize:
		return StageValidate
	case StageFormat:
		return StageTerminal
	default:
		return StageTerminal
	}
}

// routeAfterValidate decides the conditional edge. st.RetryCount already includes the pass
// that just finished. validated is the set of scene ids checked by that pass; only their
// error issues can send the pipeline back to Summarize.
func routeAfterValidate(st *report.PipelineState, validated []int, maxRetries int) Transition {
	scope := make(map[int]bool, len(validated))
	for _, id := range validated {
		scope[id] = true
	}
	failing := report.ErrorSceneIDs(st.Issues, scope)
	sort.Ints(failing)

	switch {
	case len(failing) == 0:
		return Transition{Next: StageFormat, Pending: []int{}, Reason: "clean"}
	case st.RetryCount < maxRetries:
		return Transition{Next: StageSummarize, Pending: failing, Reason: "retry"}
	default:
		return Transition{Next: StageFormat, Pending: []int{}, Reason: "retry_budget_exhausted"}
	}
}
