package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/sessionscribe-backend/internal/domain/jobs"
	"github.com/yungbote/sessionscribe-backend/internal/platform/logger"
)

type Config struct {
	Addr    string
	Channel string
	// Queue bounds events waiting to be published. Events beyond it are dropped.
	Queue int
}

type redisBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string

	publish func(ctx context.Context, payload []byte) error

	mu      sync.RWMutex
	closed  bool
	queue   chan Message
	done    chan struct{}
	dropped atomic.Int64
}

func NewRedisBus(log *logger.Logger, cfg Config) (Bus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	b := newBus(log, cfg)
	b.rdb = rdb
	b.publish = func(ctx context.Context, payload []byte) error {
		return rdb.Publish(ctx, b.channel, payload).Err()
	}
	go b.run()
	return b, nil
}

func newBus(log *logger.Logger, cfg Config) *redisBus {
	ch := strings.TrimSpace(cfg.Channel)
	if ch == "" {
		ch = "sessionscribe:job-events"
	}
	if cfg.Queue <= 0 {
		cfg.Queue = 1024
	}
	return &redisBus{
		log:     log.With("service", "RedisEventBus"),
		channel: ch,
		queue:   make(chan Message, cfg.Queue),
		done:    make(chan struct{}),
	}
}

// Observe queues ev for publishing. It runs under the job lock, so it never waits on redis.
func (b *redisBus) Observe(jobID string, ev jobs.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	select {
	case b.queue <- Message{JobID: jobID, Event: ev}:
	default:
		if n := b.dropped.Add(1); n == 1 || n%100 == 0 {
			b.log.Warn("Event mirror queue full; dropping", "job_id", jobID, "event_id", ev.ID, "dropped_total", n)
		}
	}
}

func (b *redisBus) run() {
	defer close(b.done)
	for msg := range b.queue {
		raw, err := json.Marshal(msg)
		if err != nil {
			b.log.Warn("Event mirror marshal failed", "job_id", msg.JobID, "error", err)
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = b.publish(ctx, raw)
		cancel()
		if err != nil {
			b.log.Warn("Event mirror publish failed", "job_id", msg.JobID, "event_id", msg.Event.ID, "error", err)
		}
	}
}

// StartForwarder subscribes to the mirror channel, for tools that tail events from another
// process.
func (b *redisBus) StartForwarder(ctx context.Context, onMsg func(m Message)) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis event bus not initialized")
	}
	if onMsg == nil {
		return fmt.Errorf("onMsg callback required")
	}

	sub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					_ = sub.Close()
					return
				}
				var msg Message
				if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
					b.log.Warn("bad redis event payload", "error", err)
					continue
				}
				onMsg(msg)
			}
		}
	}()
	return nil
}

// Close stops accepting events, drains what is queued and closes the client.
func (b *redisBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.queue)
	b.mu.Unlock()

	select {
	case <-b.done:
	case <-time.After(10 * time.Second):
		b.log.Warn("Event mirror drain timed out")
	}
	if b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}
