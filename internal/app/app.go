package app

import (
	"context"
	"fmt"
	"net"

	"github.com/yungbote/sessionscribe-backend/internal/data/db"
	apphttp "github.com/yungbote/sessionscribe-backend/internal/http"
	"github.com/yungbote/sessionscribe-backend/internal/observability"
	"github.com/yungbote/sessionscribe-backend/internal/platform/envutil"
	"github.com/yungbote/sessionscribe-backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	DB       *db.Service
	Server   *apphttp.Server
	Cfg      Config
	Clients  Clients
	Services Services

	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
	jobCancel    context.CancelFunc
}

func New() (*App, error) {
	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	otelShutdown := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
		Version:     cfg.Version,
	})

	store, err := db.Open(log, cfg.DB)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init db: %w", err)
	}
	if err := db.AutoMigrateAll(store.DB()); err != nil {
		_ = store.Close()
		log.Sync()
		return nil, fmt.Errorf("db automigrate: %w", err)
	}

	clients, err := wireClients(log, cfg)
	if err != nil {
		_ = store.Close()
		log.Sync()
		return nil, err
	}

	// jobs run on their own context so that a finished request or a closed stream never
	// cancels them
	jobCtx, jobCancel := context.WithCancel(context.Background())
	repos := wireRepos(store.DB(), log)
	svcs := wireServices(jobCtx, log, cfg, repos, clients)
	hs := wireHandlers(log, cfg, store.DB(), svcs)

	server := apphttp.NewServer(net.JoinHostPort("", cfg.Port), apphttp.RouterConfig{
		Log:           log,
		ServiceName:   cfg.ServiceName,
		CORSOrigins:   cfg.CORSOrigins,
		JobHandler:    hs.Jobs,
		ReportHandler: hs.Reports,
		HealthHandler: hs.Health,
	})

	return &App{
		Log:          log,
		DB:           store,
		Server:       server,
		Cfg:          cfg,
		Clients:      clients,
		Services:     svcs,
		otelShutdown: otelShutdown,
		jobCancel:    jobCancel,
	}, nil
}

func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if a.Services.JobWorker != nil {
		a.Services.JobWorker.Start(ctx)
	}
}

func (a *App) Run() error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	a.Log.Info("HTTP server listening", "port", a.Cfg.Port)
	return a.Server.Run()
}

// Shutdown stops intake first, then gives running jobs until ctx is done before cancelling
// them.
func (a *App) Shutdown(ctx context.Context) {
	if a == nil {
		return
	}
	if err := a.Server.Shutdown(ctx); err != nil {
		a.Log.Warn("HTTP shutdown incomplete", "error", err)
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if err := a.Services.JobWorker.Wait(ctx); err != nil {
		a.Log.Warn("Cancelling unfinished jobs", "error", err)
		a.jobCancel()
	}
	a.Close()
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.jobCancel != nil {
		a.jobCancel()
	}
	if a.Clients.Mirror != nil {
		if err := a.Clients.Mirror.Close(); err != nil {
			a.Log.Warn("Redis mirror close failed", "error", err)
		}
	}
	if a.DB != nil {
		_ = a.DB.Close()
	}
	if a.otelShutdown != nil {
		_ = a.otelShutdown(context.Background())
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
