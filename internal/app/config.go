package app

import (
	"time"

	"github.com/yungbote/sessionscribe-backend/internal/data/db"
	"github.com/yungbote/sessionscribe-backend/internal/jobs/registry"
	"github.com/yungbote/sessionscribe-backend/internal/platform/envutil"
	"github.com/yungbote/sessionscribe-backend/internal/platform/logger"
	"github.com/yungbote/sessionscribe-backend/internal/platform/openai"
	"github.com/yungbote/sessionscribe-backend/internal/realtime"
	"github.com/yungbote/sessionscribe-backend/internal/realtime/bus"
)

type Config struct {
	Port        string
	ServiceName string
	Environment string
	Version     string
	CORSOrigins []string

	JobRetention      time.Duration
	JobSweepInterval  time.Duration
	WorkerConcurrency int
	StageTimeout      time.Duration

	StreamKeepalive time.Duration
	StreamBuffer    int

	DB     db.Config
	Redis  bus.Config
	OpenAI openai.Config
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Port:        envutil.String("PORT", "8080"),
		ServiceName: envutil.String("OTEL_SERVICE_NAME", "sessionscribe"),
		Environment: envutil.String("APP_ENV", "development"),
		Version:     envutil.String("APP_VERSION", "dev"),
		CORSOrigins: envutil.List("CORS_ORIGINS", nil),

		JobRetention:      envutil.Duration("JOB_RETENTION", registry.DefaultRetention),
		JobSweepInterval:  envutil.Duration("JOB_SWEEP_INTERVAL", 5*time.Minute),
		WorkerConcurrency: envutil.Int("WORKER_CONCURRENCY", 4),
		StageTimeout:      envutil.Duration("STAGE_TIMEOUT", 0),

		StreamKeepalive: envutil.Duration("STREAM_KEEPALIVE", realtime.DefaultKeepalive),
		StreamBuffer:    envutil.Int("STREAM_BUFFER", registry.DefaultListenerBuffer),

		DB: db.ConfigFromEnv(),
		Redis: bus.Config{
			Addr:    envutil.String("REDIS_ADDR", ""),
			Channel: envutil.String("REDIS_CHANNEL", ""),
			Queue:   envutil.Int("REDIS_QUEUE", 1024),
		},
		OpenAI: openai.ConfigFromEnv(),
	}
	log.Info("Config loaded",
		"port", cfg.Port,
		"db_driver", cfg.DB.Driver,
		"job_retention", cfg.JobRetention.String(),
		"stage_timeout", cfg.StageTimeout.String(),
		"redis_mirror", cfg.Redis.Addr != "",
		"openai_model", cfg.OpenAI.Model,
	)
	return cfg
}
