package app

import (
	"context"
	"fmt"
	"time"

	"github.com/yungbote/sessionscribe-backend/internal/platform/logger"
	"github.com/yungbote/sessionscribe-backend/internal/platform/objectstore"
	"github.com/yungbote/sessionscribe-backend/internal/platform/openai"
	"github.com/yungbote/sessionscribe-backend/internal/realtime/bus"
)

type Clients struct {
	OpenAI  openai.Client
	Mirror  bus.Bus
	Archive *objectstore.Archive
}

// wireClients builds external clients. OpenAI is required; the redis mirror and the archive
// are optional and a failure to reach them only disables them.
func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	var out Clients

	ai, err := openai.NewClient(log, cfg.OpenAI)
	if err != nil {
		return out, fmt.Errorf("init openai: %w", err)
	}
	out.OpenAI = ai

	if cfg.Redis.Addr != "" {
		mirror, err := bus.NewRedisBus(log, cfg.Redis)
		if err != nil {
			log.Warn("Redis event mirror disabled", "error", err)
		} else {
			out.Mirror = mirror
		}
	}

	storeCfg, ok, err := objectstore.ConfigFromEnv()
	switch {
	case err != nil:
		log.Warn("Report archive disabled (bad config)", "error", err)
	case ok:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		archive, err := objectstore.NewArchive(ctx, log, storeCfg)
		cancel()
		if err != nil {
			log.Warn("Report archive disabled", "error", err)
		} else {
			out.Archive = archive
		}
	}
	return out, nil
}
