package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/sessionscribe-backend/internal/domain/jobs"
	"github.com/yungbote/sessionscribe-backend/internal/jobs/registry"
	"github.com/yungbote/sessionscribe-backend/internal/platform/logger"
)

const DefaultKeepalive = 15 * time.Second

// Streamer writes one job subscription to an HTTP response as a text/event-stream.
type Streamer struct {
	log       *logger.Logger
	keepalive time.Duration
}

func NewStreamer(log *logger.Logger, keepalive time.Duration) *Streamer {
	if keepalive <= 0 {
		keepalive = DefaultKeepalive
	}
	return &Streamer{log: log.With("component", "JobStream"), keepalive: keepalive}
}

// ResumeFrom picks the first event id to send. An explicit from wins; otherwise the standard
// Last-Event-ID header resumes after the last id the client saw.
func ResumeFrom(from string, lastEventID string) (int64, error) {
	if v := strings.TrimSpace(from); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid from %q", v)
		}
		if n == 0 {
			n = 1
		}
		return n, nil
	}
	if v := strings.TrimSpace(lastEventID); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid Last-Event-ID %q", v)
		}
		return n + 1, nil
	}
	return 1, nil
}

// Serve replays sub.Replay, then forwards live events until the job ends, the listener is
// dropped, or ctx is done. The subscription is always closed on return; the job is not touched.
func (s *Streamer) Serve(ctx context.Context, w http.ResponseWriter, jobID string, sub *registry.Subscription) error {
	defer sub.Close()

	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("streaming unsupported")
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	log := s.log.With("job_id", jobID)
	for _, ev := range sub.Replay {
		if err := writeEvent(w, ev); err != nil {
			return err
		}
		if ev.Type.Terminal() {
			flusher.Flush()
			return nil
		}
	}
	flusher.Flush()
	if !sub.Live() {
		return nil
	}

	heartbeat := time.NewTicker(s.keepalive)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug("Stream client gone", "err", ctx.Err())
			return nil
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return err
			}
			flusher.Flush()
		case ev, ok := <-sub.Events:
			if !ok {
				if sub.Lagged() {
					log.Warn("Stream listener lagged; client must resume")
				}
				return nil
			}
			if err := writeEvent(w, ev); err != nil {
				return err
			}
			flusher.Flush()
			if ev.Type.Terminal() {
				return nil
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, ev jobs.Event) error {
	data := []byte("{}")
	if ev.Payload != nil {
		raw, err := json.Marshal(ev.Payload)
		if err != nil {
			return fmt.Errorf("marshal event %d: %w", ev.ID, err)
		}
		data = raw
	}
	_, err := fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", ev.ID, ev.Type, data)
	return err
}
