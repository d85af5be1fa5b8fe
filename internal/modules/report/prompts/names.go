package prompts

type PromptName string

const (
	PromptSceneAnalysis   PromptName = "scene_analysis"
	PromptSceneSummary    PromptName = "scene_summary"
	PromptSceneValidation PromptName = "scene_validation"
	PromptReportFormat    PromptName = "report_format"
)
