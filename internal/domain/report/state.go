package report

import "sort"

// PipelineState is the orchestrator's working record for one job. Only the goroutine running
// that job's orchestration touches it.
type PipelineState struct {
	SourceText      string            `json:"sourceText"`
	NormalizedText  string            `json:"normalizedText"`
	Scenes          []Scene           `json:"scenes"`
	SpeakerMap      map[string]string `json:"speakerMap"`
	Entities        []Entity          `json:"entities"`
	SceneSummaries  []SceneSummary    `json:"sceneSummaries"`
	Issues          []Issue           `json:"issues"`
	RetryCount      int               `json:"retryCount"`
	PendingSceneIDs []int             `json:"pendingSceneIds"`
	FinalReport     string            `json:"finalReport"`
	ReportTitle     string            `json:"reportTitle"`
	ReportID        string            `json:"reportId,omitempty"`
	Trace           []string          `json:"trace,omitempty"`
}

func (s *PipelineState) Scene(id int) (Scene, bool) {
	for _, sc := range s.Scenes {
		if sc.ID == id {
			return sc, true
		}
	}
	return Scene{}, false
}

func (s *PipelineState) Summary(sceneID int) (SceneSummary, bool) {
	i := sort.Search(len(s.SceneSummaries), func(i int) bool { return s.SceneSummaries[i].SceneID >= sceneID })
	if i < len(s.SceneSummaries) && s.SceneSummaries[i].SceneID == sceneID {
		return s.SceneSummaries[i], true
	}
	return SceneSummary{}, false
}

func (s *PipelineState) IssuesFor(sceneID int) []Issue {
	out := []Issue{}
	for _, is := range s.Issues {
		if is.SceneID != nil && *is.SceneID == sceneID {
			out = append(out, is)
		}
	}
	return out
}

// Partial is what a stage returns. A nil field means "not written by this stage".
type Partial struct {
	SourceText      *string
	NormalizedText  *string
	Scenes          *[]Scene
	SpeakerMap      map[string]string
	Entities        *[]Entity
	SceneSummaries  []SceneSummary
	Issues          *[]Issue
	RetryCount      *int
	PendingSceneIDs *[]int
	FinalReport     *string
	ReportTitle     *string
	ReportID        *string
	Trace           []string
}
