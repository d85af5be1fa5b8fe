package scheduler

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/sessionscribe-backend/internal/domain/jobs"
	"github.com/yungbote/sessionscribe-backend/internal/domain/report"
)

const DefaultBatchSize = 5

// Emitter is the slice of a job the scheduler needs: appending events to its log.
type Emitter interface {
	Publish(t jobs.EventType, payload any) (jobs.Event, error)
}

type Config struct {
	Stage     string
	Group     string
	BatchSize int
}

// Unit is the per-scene stage function. It is called concurrently for the scenes of one batch.
type Unit[R any] func(ctx context.Context, scene report.Scene) (R, error)

type Result[R any] struct {
	SceneID int
	Value   R
}

// Run applies unit to every scene, batchSize at a time. Batches run strictly one after the
// other; inside a batch every scene is dispatched at once and the whole batch is awaited.
// The first failing unit fails the batch and the run. Results come back in input order.
func Run[R any](ctx context.Context, cfg Config, emit Emitter, scenes []report.Scene, unit Unit[R]) ([]Result[R], error) {
	size := cfg.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}
	ids := make([]int, 0, len(scenes))
	for _, s := range scenes {
		ids = append(ids, s.ID)
	}
	batches := Partition(scenes, size)

	if _, err := emit.Publish(jobs.EventSceneBatchAnnounce, map[string]any{
		"stage":     cfg.Stage,
		"group":     cfg.Group,
		"sceneIds":  ids,
		"batchSize": size,
		"batches":   len(batches),
	}); err != nil {
		return nil, err
	}

	out := make([]Result[R], 0, len(scenes))
	done := 0
	for bi, batch := range batches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		results, err := runBatch(ctx, cfg, emit, batch, unit)
		if err != nil {
			return nil, fmt.Errorf("%s batch %d/%d: %w", cfg.Stage, bi+1, len(batches), err)
		}
		out = append(out, results...)
		done += len(batch)
		if _, err := emit.Publish(jobs.EventStageProgress, map[string]any{
			"stage": cfg.Stage,
			"group": cfg.Group,
			"done":  done,
			"total": len(scenes),
		}); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func runBatch[R any](ctx context.Context, cfg Config, emit Emitter, batch []report.Scene, unit Unit[R]) ([]Result[R], error) {
	results := make([]Result[R], len(batch))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(len(batch))

	for i, scene := range batch {
		// a failed sibling already cancelled the batch
		if gctx.Err() != nil {
			break
		}
		if _, err := emit.Publish(jobs.EventSceneStart, scenePayload(cfg, scene)); err != nil {
			return nil, err
		}
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("scene %d panicked: %v", scene.ID, r)
				}
			}()
			v, err := unit(gctx, scene)
			if err != nil {
				return fmt.Errorf("scene %d: %w", scene.ID, err)
			}
			results[i] = Result[R]{SceneID: scene.ID, Value: v}
			_, err = emit.Publish(jobs.EventSceneComplete, scenePayload(cfg, scene))
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func scenePayload(cfg Config, s report.Scene) map[string]any {
	return map[string]any{
		"stage":   cfg.Stage,
		"group":   cfg.Group,
		"sceneId": s.ID,
		"title":   s.Title,
		"lines":   s.Lines,
	}
}

// Partition splits items into consecutive chunks of at most size elements.
func Partition[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = DefaultBatchSize
	}
	out := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[start:end])
	}
	return out
}
