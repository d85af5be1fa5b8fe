package orchestrator

import (
	"sort"

	"github.com/yungbote/sessionscribe-backend/internal/domain/report"
)

// reducer folds one field of a stage's Partial into the canonical state.
type reducer struct {
	field string
	apply func(st *report.PipelineState, p report.Partial)
}

// reducers is the complete merge table: one entry per PipelineState field. Every field is
// last-write-wins except sceneSummaries (merge by scene id) and trace (append).
var reducers = []reducer{
	{"sourceText", func(st *report.PipelineState, p report.Partial) {
		if p.SourceText != nil {
			st.SourceText = *p.SourceText
		}
	}},
	{"normalizedText", func(st *report.PipelineState, p report.Partial) {
		if p.NormalizedText != nil {
			st.NormalizedText = *p.NormalizedText
		}
	}},
	{"scenes", func(st *report.PipelineState, p report.Partial) {
		if p.Scenes != nil {
			st.Scenes = append([]report.Scene(nil), (*p.Scenes)...)
		}
	}},
	{"speakerMap", func(st *report.PipelineState, p report.Partial) {
		if p.SpeakerMap != nil {
			m := make(map[string]string, len(p.SpeakerMap))
			for k, v := range p.SpeakerMap {
				m[k] = v
			}
			st.SpeakerMap = m
		}
	}},
	{"entities", func(st *report.PipelineState, p report.Partial) {
		if p.Entities != nil {
			st.Entities = append([]report.Entity(nil), (*p.Entities)...)
		}
	}},
	{"sceneSummaries", func(st *report.PipelineState, p report.Partial) {
		if len(p.SceneSummaries) > 0 {
			st.SceneSummaries = mergeSummaries(st.SceneSummaries, p.SceneSummaries)
		}
	}},
	{"issues", func(st *report.PipelineState, p report.Partial) {
		if p.Issues != nil {
			st.Issues = append([]report.Issue(nil), (*p.Issues)...)
		}
	}},
	{"retryCount", func(st *report.PipelineState, p report.Partial) {
		if p.RetryCount != nil && *p.RetryCount > st.RetryCount {
			st.RetryCount = *p.RetryCount
		}
	}},
	{"pendingSceneIds", func(st *report.PipelineState, p report.Partial) {
		if p.PendingSceneIDs != nil {
			st.PendingSceneIDs = append([]int(nil), (*p.PendingSceneIDs)...)
		}
	}},
	{"finalReport", func(st *report.PipelineState, p report.Partial) {
		if p.FinalReport != nil {
			st.FinalReport = *p.FinalReport
		}
	}},
	{"reportTitle", func(st *report.PipelineState, p report.Partial) {
		if p.ReportTitle != nil {
			st.ReportTitle = *p.ReportTitle
		}
	}},
	{"reportId", func(st *report.PipelineState, p report.Partial) {
		if p.ReportID != nil {
			st.ReportID = *p.ReportID
		}
	}},
	{"trace", func(st *report.PipelineState, p report.Partial) {
		st.Trace = append(st.Trace, p.Trace...)
	}},
}

// Merge applies every reducer in table order.
func Merge(st *report.PipelineState, p report.Partial) {
	for _, r := range reducers {
		r.apply(st, p)
	}
}

// mergeSummaries replaces entries by scene id (the later write wins) and keeps the result
// sorted by scene id. Entries for other ids are left untouched.
func mergeSummaries(existing []report.SceneSummary, updates []report.SceneSummary) []report.SceneSummary {
	byID := make(map[int]report.SceneSummary, len(existing)+len(updates))
	for _, s := range existing {
		byID[s.SceneID] = s
	}
	for _, s := range updates {
		byID[s.SceneID] = s
	}
	out := make([]report.SceneSummary, 0, len(byID))
	for _, s := range byID {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SceneID < out[j].SceneID })
	return out
}
