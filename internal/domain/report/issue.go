package report

import "strings"

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

func ParseSeverity(s string) Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error", "critical", "high":
		return SeverityError
	case "warning", "warn", "medium":
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

// Issue is a non-fatal validation finding. SceneID is nil for report-wide findings.
type Issue struct {
	SceneID  *int     `json:"sceneId,omitempty"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// ErrorSceneIDs returns the distinct scene ids carrying at least one error-severity issue,
// restricted to the given scope when scope is non-nil.
func ErrorSceneIDs(issues []Issue, scope map[int]bool) []int {
	seen := map[int]bool{}
	out := []int{}
	for _, is := range issues {
		if is.Severity != SeverityError || is.SceneID == nil {
			continue
		}
		id := *is.SceneID
		if scope != nil && !scope[id] {
			continue
		}
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// CarryForward returns prev with every scene-scoped issue inside scope replaced by fresh.
// Report-wide issues and issues for scenes outside scope are kept as they were.
func CarryForward(prev []Issue, scope map[int]bool, fresh []Issue) []Issue {
	out := make([]Issue, 0, len(prev)+len(fresh))
	for _, is := range prev {
		if is.SceneID != nil && scope[*is.SceneID] {
			continue
		}
		out = append(out, is)
	}
	return append(out, fresh...)
}
