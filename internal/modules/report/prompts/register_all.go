package prompts

// RegisterAll declares every report prompt. Build calls it once.
func RegisterAll() {
	RegisterSpec(Spec{
		Name:       PromptSceneAnalysis,
		Version:    1,
		SchemaName: "scene_analysis",
		Schema:     SceneAnalysisSchema,
		System: `
You split a tabletop roleplaying session transcript into scenes and list the named entities in it.
A scene is a contiguous run of lines with one dramatic purpose, place or activity.
Mark out-of-character rules talk and table chatter as "meta" and breaks as "pause".
Scenes must not overlap and must use the line numbers shown in the transcript.`,
		User: `
Universe: {{.UniverseName}}
{{if .UniverseContext}}Universe context:
{{.UniverseContext}}
{{end}}{{if .SessionHistory}}Previous sessions:
{{.SessionHistory}}
{{end}}Players and characters:
{{.Roster}}

Speaker labels:
{{.SpeakerMap}}

Transcript ({{.LineCount}} lines):
{{.NumberedTranscript}}

Output rules:
- title: a short evocative title for the session.
- scenes: in transcript order, start_line and end_line between 1 and {{.LineCount}}.
- entities: characters, NPCs, places, items and factions that matter to the story.`,
		Validators: []Validator{
			RequireNonEmpty("NumberedTranscript", func(in Input) string { return in.NumberedTranscript }),
			RequirePositive("LineCount", func(in Input) int { return in.LineCount }),
		},
	})

	RegisterSpec(Spec{
		Name:       PromptSceneSummary,
		Version:    1,
		SchemaName: "scene_summary",
		Schema:     SceneSummarySchema,
		System: `
You write the chronicle entry for one scene of a tabletop roleplaying session.
Write in past tense, third person, naming characters rather than players.
Keep every fact traceable to the scene text.`,
		User: `
Universe: {{.UniverseName}}
{{if .UniverseContext}}Universe context:
{{.UniverseContext}}
{{end}}Speaker labels:
{{.SpeakerMap}}

Scene {{.SceneID}}: {{.SceneTitle}} ({{.SceneType}}{{if .SceneLocation}}, {{.SceneLocation}}{{end}})
{{.SceneText}}
{{if .Corrections}}
A reviewer rejected the previous summary:
{{.PreviousSummary}}

Fix these problems:
{{.Corrections}}
{{end}}
Output rules:
- summary: 3-8 sentences.
- key_events: the turning points, one short sentence each.
- characters: characters who act or speak in the scene.`,
		Validators: []Validator{
			RequireNonEmpty("SceneText", func(in Input) string { return in.SceneText }),
		},
	})

	RegisterSpec(Spec{
		Name:       PromptSceneValidation,
		Version:    1,
		SchemaName: "scene_validation",
		Schema:     SceneValidationSchema,
		System: `
You review a scene summary against the scene transcript.
Report an error only for a contradiction, an invented event, or a wrong character attribution.
Report omissions and style problems as warnings. Return an empty list when the summary is faithful.`,
		User: `
Speaker labels:
{{.SpeakerMap}}

Scene {{.SceneID}}: {{.SceneTitle}}
{{.SceneText}}

Summary under review:
{{.SummaryJSON}}`,
		Validators: []Validator{
			RequireNonEmpty("SceneText", func(in Input) string { return in.SceneText }),
			RequireNonEmpty("SummaryJSON", func(in Input) string { return in.SummaryJSON }),
		},
	})

	RegisterSpec(Spec{
		Name:    PromptReportFormat,
		Version: 1,
		System: `
You assemble the final session report in Markdown from per-scene summaries.
Start with a level-one heading containing the report title, then a short recap, then one section per scene in order,
then a section listing notable characters, places and items.
Treat listed issues as advisory: phrase uncertain points cautiously instead of asserting them.`,
		User: `
Title: {{.ReportTitle}}
Transcript: {{.TranscriptName}}
Universe: {{.UniverseName}}
{{if .SessionHistory}}Previous sessions:
{{.SessionHistory}}
{{end}}Players and characters:
{{.Roster}}

Scene summaries:
{{.SummariesJSON}}

Entities:
{{.EntitiesJSON}}

Open review issues:
{{.IssuesJSON}}`,
		Validators: []Validator{
			RequireNonEmpty("ReportTitle", func(in Input) string { return in.ReportTitle }),
		},
	})
}
