package ctxutil

import "context"

type traceDataKey struct{}

type TraceData struct {
	TraceID   string
	RequestID string
	JobID     string
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(ctx, traceDataKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	if ctx == nil {
		return nil
	}
	if td, ok := ctx.Value(traceDataKey{}).(*TraceData); ok {
		return td
	}
	return nil
}

// Detach copies the request's trace data onto a fresh background context tagged with jobID.
// Orchestration must outlive the HTTP request that submitted the job.
func Detach(parent context.Context, base context.Context, jobID string) context.Context {
	if base == nil {
		base = context.Background()
	}
	td := &TraceData{JobID: jobID}
	if src := GetTraceData(parent); src != nil {
		td.TraceID = src.TraceID
		td.RequestID = src.RequestID
	}
	return WithTraceData(base, td)
}

// LogFields returns key/value pairs suitable for logger.With.
func LogFields(ctx context.Context) []interface{} {
	td := GetTraceData(ctx)
	if td == nil {
		return nil
	}
	out := make([]interface{}, 0, 6)
	if td.TraceID != "" {
		out = append(out, "trace_id", td.TraceID)
	}
	if td.RequestID != "" {
		out = append(out, "request_id", td.RequestID)
	}
	if td.JobID != "" {
		out = append(out, "job_id", td.JobID)
	}
	return out
}
