package steps

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/yungbote/sessionscribe-backend/internal/domain/report"
	"github.com/yungbote/sessionscribe-backend/internal/jobs/orchestrator"
	"github.com/yungbote/sessionscribe-backend/internal/modules/report/prompts"
)

// Analyze segments the transcript into scenes and extracts entities in one model call.
func Analyze(ctx context.Context, deps Deps, rc *orchestrator.RunContext) (report.Partial, error) {
	lines := transcriptLines(rc.State.NormalizedText)
	if len(lines) == 0 {
		return report.Partial{}, fmt.Errorf("analyze: no normalized transcript")
	}
	spec := deps.Def.Stage("analyze")
	shown := len(lines)
	if spec.MaxInputLines > 0 && shown > spec.MaxInputLines {
		shown = spec.MaxInputLines
		rc.Log.Warn("transcript truncated for analysis", "lines", len(lines), "shown", shown)
	}

	p, err := prompts.Build(prompts.PromptSceneAnalysis, prompts.Input{
		UniverseName:       rc.Input.UniverseName,
		UniverseContext:    rc.Input.UniverseContext,
		SessionHistory:     rc.Input.SessionHistory,
		Roster:             rosterText(rc.Input.Players),
		SpeakerMap:         speakerMapText(rc.State.SpeakerMap),
		NumberedTranscript: numbered(lines, 1, shown),
		LineCount:          shown,
		Instructions:       spec.Instructions,
	})
	if err != nil {
		return report.Partial{}, err
	}
	obj, err := deps.AI.GenerateJSON(ctx, p.System, p.User, p.SchemaName, p.Schema)
	if err != nil {
		return report.Partial{}, fmt.Errorf("analyze: %w", err)
	}

	scenes := parseScenes(obj["scenes"], shown)
	entities := parseEntities(obj["entities"])
	title := stringFromAny(obj["title"])
	if title == "" {
		title = defaultTitle(rc)
	}
	narrative := report.NarrativeIDs(scenes, deps.Def.ExcludedSceneTypes)
	rc.Log.Info("transcript analyzed", "scenes", len(scenes), "narrative", len(narrative), "entities", len(entities))

	return report.Partial{
		Scenes:      &scenes,
		Entities:    &entities,
		ReportTitle: &title,
		Trace:       []string{fmt.Sprintf("analyze: %d scenes (%d narrative), %d entities", len(scenes), len(narrative), len(entities))},
	}, nil
}

// parseScenes clamps line ranges into [1, lineCount], drops empty ranges, orders by start
// line and numbers scenes from 1.
func parseScenes(v any, lineCount int) []report.Scene {
	out := []report.Scene{}
	for _, m := range mapSliceFromAny(v) {
		start := intFromAny(m["start_line"], 0)
		end := intFromAny(m["end_line"], 0)
		if start < 1 {
			start = 1
		}
		if end > lineCount {
			end = lineCount
		}
		r := report.LineRange{Start: start, End: end}
		if !r.Valid() {
			continue
		}
		typ := strings.ToLower(stringFromAny(m["type"]))
		if typ == "" {
			typ = "narrative"
		}
		out = append(out, report.Scene{
			Title:    stringFromAny(m["title"]),
			Lines:    r,
			Type:     typ,
			Location: stringFromAny(m["location"]),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Lines.Start < out[j].Lines.Start })
	for i := range out {
		out[i].ID = i + 1
		if out[i].Title == "" {
			out[i].Title = fmt.Sprintf("Scene %d", i+1)
		}
	}
	return out
}

func parseEntities(v any) []report.Entity {
	out := []report.Entity{}
	seen := map[string]bool{}
	for _, m := range mapSliceFromAny(v) {
		name := stringFromAny(m["name"])
		key := strings.ToLower(name)
		if name == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, report.Entity{
			Name:  name,
			Kind:  strings.ToLower(stringFromAny(m["kind"])),
			Notes: stringFromAny(m["notes"]),
		})
	}
	return out
}

func defaultTitle(rc *orchestrator.RunContext) string {
	if t := strings.TrimSpace(rc.Input.TranscriptName); t != "" {
		return t
	}
	if u := strings.TrimSpace(rc.Input.UniverseName); u != "" {
		return u + " session report"
	}
	return "Session report"
}
