package steps

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/sessionscribe-backend/internal/domain/jobs"
	"github.com/yungbote/sessionscribe-backend/internal/domain/report"
	"github.com/yungbote/sessionscribe-backend/internal/jobs/orchestrator"
	"github.com/yungbote/sessionscribe-backend/internal/jobs/scheduler"
	"github.com/yungbote/sessionscribe-backend/internal/modules/report/prompts"
)

// Summarize writes one summary per eligible scene. On a retry pass each prompt carries the
// previous summary and the error issues that rejected it.
func Summarize(ctx context.Context, deps Deps, rc *orchestrator.RunContext) (report.Partial, error) {
	lines := transcriptLines(rc.State.NormalizedText)
	spec := deps.Def.Stage("summarize")
	retry := len(rc.State.PendingSceneIDs) > 0

	results, err := scheduler.Run(ctx, scheduler.Config{
		Stage:     string(rc.Stage),
		Group:     jobs.GroupSummarize,
		BatchSize: rc.BatchSize,
	}, rc.Emit, rc.Eligible, func(ctx context.Context, scene report.Scene) (report.SceneSummary, error) {
		in := prompts.Input{
			UniverseName:    rc.Input.UniverseName,
			UniverseContext: rc.Input.UniverseContext,
			SpeakerMap:      speakerMapText(rc.State.SpeakerMap),
			SceneID:         scene.ID,
			SceneTitle:      scene.Title,
			SceneType:       scene.Type,
			SceneLocation:   scene.Location,
			SceneText:       sceneText(lines, scene),
			Instructions:    spec.Instructions,
		}
		if retry {
			if prev, ok := rc.State.Summary(scene.ID); ok {
				in.PreviousSummary = prev.Summary
			}
			in.Corrections = correctionsFor(rc.State, scene.ID)
		}
		p, err := prompts.Build(prompts.PromptSceneSummary, in)
		if err != nil {
			return report.SceneSummary{}, err
		}
		obj, err := deps.AI.GenerateJSON(ctx, p.System, p.User, p.SchemaName, p.Schema)
		if err != nil {
			return report.SceneSummary{}, err
		}
		sum := report.SceneSummary{
			SceneID:    scene.ID,
			Summary:    stringFromAny(obj["summary"]),
			KeyEvents:  stringSliceFromAny(obj["key_events"]),
			Characters: stringSliceFromAny(obj["characters"]),
		}
		if sum.Summary == "" {
			return report.SceneSummary{}, fmt.Errorf("empty summary")
		}
		return sum, nil
	})
	if err != nil {
		return report.Partial{}, err
	}

	out := make([]report.SceneSummary, 0, len(results))
	for _, r := range results {
		out = append(out, r.Value)
	}
	return report.Partial{
		SceneSummaries: out,
		Trace:          []string{fmt.Sprintf("summarize pass %d: %d scenes", rc.Pass, len(out))},
	}, nil
}

func correctionsFor(st *report.PipelineState, sceneID int) string {
	var b strings.Builder
	for _, is := range st.IssuesFor(sceneID) {
		if is.Severity != report.SeverityError {
			continue
		}
		b.WriteString("- ")
		b.WriteString(is.Message)
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}
