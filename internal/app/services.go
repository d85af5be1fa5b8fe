package app

import (
	"context"

	"github.com/yungbote/sessionscribe-backend/internal/jobs/orchestrator"
	"github.com/yungbote/sessionscribe-backend/internal/jobs/registry"
	"github.com/yungbote/sessionscribe-backend/internal/jobs/worker"
	"github.com/yungbote/sessionscribe-backend/internal/modules/report/pipeline"
	"github.com/yungbote/sessionscribe-backend/internal/modules/report/steps"
	"github.com/yungbote/sessionscribe-backend/internal/platform/logger"
	"github.com/yungbote/sessionscribe-backend/internal/services"
)

type Services struct {
	Registry  *registry.Registry
	Engine    *orchestrator.Engine
	JobWorker *worker.Worker
	Jobs      services.JobService
	Reports   services.ReportService
}

func wireServices(jobCtx context.Context, log *logger.Logger, cfg Config, repos Repos, clients Clients) Services {
	log.Info("Wiring services...")

	var archive services.Archive
	if clients.Archive != nil {
		archive = clients.Archive
	}
	reportSvc := services.NewReportService(log, repos.Reports, archive)

	regCfg := registry.Config{
		Retention:      cfg.JobRetention,
		ListenerBuffer: cfg.StreamBuffer,
	}
	if clients.Mirror != nil {
		regCfg.Observer = clients.Mirror
	}
	reg := registry.New(log, regCfg)

	def := pipeline.Load(log)
	engine := orchestrator.NewEngine(log, steps.Stages(steps.Deps{
		Log:     log,
		AI:      clients.OpenAI,
		Reports: reportSvc,
		Def:     def,
	}), orchestrator.Config{
		MaxRetries:         def.MaxRetries,
		BatchSize:          def.BatchSize,
		ExcludedSceneTypes: def.ExcludedSceneTypes,
		StageTimeout:       cfg.StageTimeout,
	})

	w := worker.NewWorker(log, engine, reg, worker.Config{
		Concurrency:   cfg.WorkerConcurrency,
		SweepInterval: cfg.JobSweepInterval,
	})

	return Services{
		Registry:  reg,
		Engine:    engine,
		JobWorker: w,
		Jobs:      services.NewJobService(jobCtx, log, reg, w),
		Reports:   reportSvc,
	}
}
