package steps

import (
	"context"

	"github.com/yungbote/sessionscribe-backend/internal/domain/report"
	"github.com/yungbote/sessionscribe-backend/internal/jobs/orchestrator"
	"github.com/yungbote/sessionscribe-backend/internal/modules/report/pipeline"
	"github.com/yungbote/sessionscribe-backend/internal/platform/logger"
	"github.com/yungbote/sessionscribe-backend/internal/platform/openai"
)

// ReportSink stores a finished report and returns its id.
type ReportSink interface {
	SaveReport(ctx context.Context, draft report.Draft) (string, error)
}

type Deps struct {
	Log     *logger.Logger
	AI      openai.Client
	Reports ReportSink
	Def     *pipeline.Definition
}

// Stages binds the five report executors to deps.
func Stages(deps Deps) orchestrator.Stages {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	if deps.Def == nil {
		deps.Def = pipeline.Default()
	}
	return orchestrator.Stages{
		Preprocess: func(ctx context.Context, rc *orchestrator.RunContext) (report.Partial, error) {
			return Preprocess(ctx, deps, rc)
		},
		Analyze: func(ctx context.Context, rc *orchestrator.RunContext) (report.Partial, error) {
			return Analyze(ctx, deps, rc)
		},
		Summarize: func(ctx context.Context, rc *orchestrator.RunContext) (report.Partial, error) {
			return Summarize(ctx, deps, rc)
		},
		Validate: func(ctx context.Context, rc *orchestrator.RunContext) (report.Partial, error) {
			return Validate(ctx, deps, rc)
		},
		Format: func(ctx context.Context, rc *orchestrator.RunContext) (report.Partial, error) {
			return Format(ctx, deps, rc)
		},
	}
}
