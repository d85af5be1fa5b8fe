package report

import (
	"strings"
)

type LineRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func (r LineRange) Valid() bool { return r.Start > 0 && r.End >= r.Start }

// Scene is produced once by the analysis stage and never mutated afterwards.
type Scene struct {
	ID       int       `json:"id"`
	Title    string    `json:"title"`
	Lines    LineRange `json:"lines"`
	Type     string    `json:"type"`
	Location string    `json:"location,omitempty"`
}

const (
	SceneTypeMeta  = "meta"
	SceneTypePause = "pause"
)

// DefaultExcludedSceneTypes are skipped by per-scene summarization and validation.
var DefaultExcludedSceneTypes = []string{SceneTypeMeta, SceneTypePause}

// Narrative reports whether s takes part in per-scene processing.
func (s Scene) Narrative(excluded []string) bool {
	t := strings.ToLower(strings.TrimSpace(s.Type))
	for _, x := range excluded {
		if t == strings.ToLower(strings.TrimSpace(x)) {
			return false
		}
	}
	return true
}

// NarrativeIDs returns the ids of scenes eligible for per-scene work, in scene order.
func NarrativeIDs(scenes []Scene, excluded []string) []int {
	out := make([]int, 0, len(scenes))
	for _, s := range scenes {
		if s.Narrative(excluded) {
			out = append(out, s.ID)
		}
	}
	return out
}

type Entity struct {
	Name  string `json:"name"`
	Kind  string `json:"kind"`
	Notes string `json:"notes,omitempty"`
}

type SceneSummary struct {
	SceneID    int      `json:"sceneId"`
	Summary    string   `json:"summary"`
	KeyEvents  []string `json:"keyEvents,omitempty"`
	Characters []string `json:"characters,omitempty"`
}
