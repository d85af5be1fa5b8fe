package steps

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/sessionscribe-backend/internal/domain/report"
	"github.com/yungbote/sessionscribe-backend/internal/jobs/orchestrator"
	"github.com/yungbote/sessionscribe-backend/internal/modules/report/prompts"
)

type formattedScene struct {
	SceneID    int      `json:"sceneId"`
	Title      string   `json:"title"`
	Type       string   `json:"type"`
	Location   string   `json:"location,omitempty"`
	Summary    string   `json:"summary"`
	KeyEvents  []string `json:"keyEvents,omitempty"`
	Characters []string `json:"characters,omitempty"`
}

// Format writes the final Markdown report and stores it. Remaining issues are advisory.
// With no scene summaries the report is rendered without a model call.
func Format(ctx context.Context, deps Deps, rc *orchestrator.RunContext) (report.Partial, error) {
	st := rc.State
	title := strings.TrimSpace(st.ReportTitle)
	if title == "" {
		title = defaultTitle(rc)
	}

	scenes := make([]formattedScene, 0, len(st.SceneSummaries))
	for _, sum := range st.SceneSummaries {
		sc, _ := st.Scene(sum.SceneID)
		scenes = append(scenes, formattedScene{
			SceneID:    sum.SceneID,
			Title:      sc.Title,
			Type:       sc.Type,
			Location:   sc.Location,
			Summary:    sum.Summary,
			KeyEvents:  sum.KeyEvents,
			Characters: sum.Characters,
		})
	}

	var markdown string
	if len(scenes) == 0 {
		markdown = renderWithoutScenes(title, st)
	} else {
		p, err := prompts.Build(prompts.PromptReportFormat, prompts.Input{
			ReportTitle:    title,
			TranscriptName: rc.Input.TranscriptName,
			UniverseName:   rc.Input.UniverseName,
			SessionHistory: rc.Input.SessionHistory,
			Roster:         rosterText(rc.Input.Players),
			SummariesJSON:  mustJSON(scenes),
			EntitiesJSON:   mustJSON(st.Entities),
			IssuesJSON:     mustJSON(advisoryIssues(st.Issues)),
			Instructions:   deps.Def.Stage("format").Instructions,
		})
		if err != nil {
			return report.Partial{}, err
		}
		text, err := deps.AI.GenerateText(ctx, p.System, p.User)
		if err != nil {
			return report.Partial{}, fmt.Errorf("format: %w", err)
		}
		markdown = ensureHeading(strings.TrimSpace(text), title)
	}

	out := report.Partial{
		FinalReport: &markdown,
		ReportTitle: &title,
		Trace:       []string{fmt.Sprintf("format: %d scenes, %d chars", len(scenes), len(markdown))},
	}
	if deps.Reports != nil {
		id, err := deps.Reports.SaveReport(ctx, report.Draft{
			JobID:          rc.JobID,
			Title:          title,
			TranscriptName: rc.Input.TranscriptName,
			UniverseName:   rc.Input.UniverseName,
			Markdown:       markdown,
			Scenes:         st.Scenes,
			Summaries:      st.SceneSummaries,
			Issues:         st.Issues,
		})
		if err != nil {
			return report.Partial{}, fmt.Errorf("format: save report: %w", err)
		}
		out.ReportID = &id
	}
	return out, nil
}

func advisoryIssues(issues []report.Issue) []report.Issue {
	out := []report.Issue{}
	for _, is := range issues {
		if is.Severity == report.SeverityError || is.Severity == report.SeverityWarning {
			out = append(out, is)
		}
	}
	return out
}

func ensureHeading(markdown, title string) string {
	if strings.HasPrefix(markdown, "# ") {
		return markdown
	}
	if markdown == "" {
		return "# " + title + "\n"
	}
	return "# " + title + "\n\n" + markdown
}

func renderWithoutScenes(title string, st *report.PipelineState) string {
	var b strings.Builder
	b.WriteString("# ")
	b.WriteString(title)
	b.WriteString("\n\nNo narrative scenes were identified in this session.\n")
	if len(st.Scenes) > 0 {
		b.WriteString("\n## Segments\n\n")
		for _, sc := range st.Scenes {
			fmt.Fprintf(&b, "- %s (%s, lines %d-%d)\n", sc.Title, sc.Type, sc.Lines.Start, sc.Lines.End)
		}
	}
	if len(st.Entities) > 0 {
		b.WriteString("\n## Notable entities\n\n")
		for _, e := range st.Entities {
			fmt.Fprintf(&b, "- **%s** (%s)", e.Name, e.Kind)
			if e.Notes != "" {
				b.WriteString(": ")
				b.WriteString(e.Notes)
			}
			b.WriteByte('\n')
		}
	}
	return b.String()
}
