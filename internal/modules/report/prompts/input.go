package prompts

// Input is a superset of the fields any report prompt renders.
// Missing fields render empty strings (templates use missingkey=zero).
type Input struct {
	// Session context
	UniverseName    string
	UniverseContext string
	SessionHistory  string
	Roster          string
	SpeakerMap      string
	// Whole transcript, one numbered line per row
	NumberedTranscript string
	LineCount          int
	// Scene scope
	SceneID       int
	SceneTitle    string
	SceneType     string
	SceneLocation string
	SceneText     string
	// Retry pass feedback
	PreviousSummary string
	Corrections     string
	// Validation + format
	SummaryJSON    string
	SummariesJSON  string
	EntitiesJSON   string
	IssuesJSON     string
	ReportTitle    string
	TranscriptName string
	// Operator instructions from the pipeline definition
	Instructions string
}
