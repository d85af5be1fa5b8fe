package steps

import (
	"context"
	"fmt"

	"github.com/yungbote/sessionscribe-backend/internal/domain/jobs"
	"github.com/yungbote/sessionscribe-backend/internal/domain/report"
	"github.com/yungbote/sessionscribe-backend/internal/jobs/orchestrator"
	"github.com/yungbote/sessionscribe-backend/internal/jobs/scheduler"
	"github.com/yungbote/sessionscribe-backend/internal/modules/report/prompts"
)

// Validate reviews the summaries of the eligible scenes. Their previous issues are replaced;
// issues of every other scene are carried forward.
func Validate(ctx context.Context, deps Deps, rc *orchestrator.RunContext) (report.Partial, error) {
	lines := transcriptLines(rc.State.NormalizedText)
	spec := deps.Def.Stage("validate")

	results, err := scheduler.Run(ctx, scheduler.Config{
		Stage:     string(rc.Stage),
		Group:     jobs.GroupValidate,
		BatchSize: rc.BatchSize,
	}, rc.Emit, rc.Eligible, func(ctx context.Context, scene report.Scene) ([]report.Issue, error) {
		sum, ok := rc.State.Summary(scene.ID)
		if !ok {
			return nil, fmt.Errorf("no summary to validate")
		}
		p, err := prompts.Build(prompts.PromptSceneValidation, prompts.Input{
			SpeakerMap:   speakerMapText(rc.State.SpeakerMap),
			SceneID:      scene.ID,
			SceneTitle:   scene.Title,
			SceneText:    sceneText(lines, scene),
			SummaryJSON:  mustJSON(sum),
			Instructions: spec.Instructions,
		})
		if err != nil {
			return nil, err
		}
		obj, err := deps.AI.GenerateJSON(ctx, p.System, p.User, p.SchemaName, p.Schema)
		if err != nil {
			return nil, err
		}
		return parseIssues(obj["issues"], scene.ID), nil
	})
	if err != nil {
		return report.Partial{}, err
	}

	scope := make(map[int]bool, len(rc.Eligible))
	for _, s := range rc.Eligible {
		scope[s.ID] = true
	}
	fresh := []report.Issue{}
	errorsFound := 0
	for _, r := range results {
		for _, is := range r.Value {
			if is.Severity == report.SeverityError {
				errorsFound++
			}
			fresh = append(fresh, is)
		}
	}
	issues := report.CarryForward(rc.State.Issues, scope, fresh)
	return report.Partial{
		Issues: &issues,
		Trace:  []string{fmt.Sprintf("validate pass %d: %d scenes, %d issues, %d errors", rc.Pass, len(results), len(fresh), errorsFound)},
	}, nil
}

func parseIssues(v any, sceneID int) []report.Issue {
	out := []report.Issue{}
	for _, m := range mapSliceFromAny(v) {
		msg := stringFromAny(m["message"])
		if msg == "" {
			continue
		}
		id := sceneID
		out = append(out, report.Issue{
			SceneID:  &id,
			Severity: report.ParseSeverity(stringFromAny(m["severity"])),
			Message:  msg,
		})
	}
	return out
}
