package bus

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/yungbote/sessionscribe-backend/internal/domain/jobs"
	"github.com/yungbote/sessionscribe-backend/internal/platform/logger"
)

type capture struct {
	mu   sync.Mutex
	msgs []Message
	gate chan struct{}
}

func (c *capture) publish(ctx context.Context, payload []byte) error {
	if c.gate != nil {
		<-c.gate
	}
	var m Message
	if err := json.Unmarshal(payload, &m); err != nil {
		return err
	}
	c.mu.Lock()
	c.msgs = append(c.msgs, m)
	c.mu.Unlock()
	return nil
}

func newTestBus(c *capture, queue int) *redisBus {
	b := newBus(logger.Nop(), Config{Queue: queue})
	b.publish = c.publish
	go b.run()
	return b
}

func TestMirrorPublishesInOrderAndDrainsOnClose(t *testing.T) {
	c := &capture{}
	b := newTestBus(c, 16)
	for i := 1; i <= 5; i++ {
		b.Observe("job-1", jobs.Event{ID: int64(i), Type: jobs.EventStageProgress, Timestamp: time.Now()})
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if len(c.msgs) != 5 {
		t.Fatalf("want 5 mirrored events got %d", len(c.msgs))
	}
	for i, m := range c.msgs {
		if m.JobID != "job-1" || m.Event.ID != int64(i+1) {
			t.Fatalf("out of order at %d: %+v", i, m)
		}
	}
}

func TestMirrorDropsWhenQueueFull(t *testing.T) {
	c := &capture{gate: make(chan struct{})}
	b := newTestBus(c, 2)

	done := make(chan struct{})
	go func() {
		for i := 1; i <= 20; i++ {
			b.Observe("job-1", jobs.Event{ID: int64(i), Type: jobs.EventStageProgress})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Observe blocked on a stalled publisher")
	}
	if b.dropped.Load() == 0 {
		t.Fatalf("expected drops with a stalled publisher")
	}
	close(c.gate)
	_ = b.Close()
}

func TestObserveAfterCloseIsIgnored(t *testing.T) {
	c := &capture{}
	b := newTestBus(c, 4)
	_ = b.Close()
	b.Observe("job-1", jobs.Event{ID: 1})
	if err := b.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if len(c.msgs) != 0 {
		t.Fatalf("closed bus published %d events", len(c.msgs))
	}
}
