package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/sessionscribe-backend/internal/domain/jobs"
	"github.com/yungbote/sessionscribe-backend/internal/http/response"
	"github.com/yungbote/sessionscribe-backend/internal/platform/apierr"
	"github.com/yungbote/sessionscribe-backend/internal/platform/logger"
	"github.com/yungbote/sessionscribe-backend/internal/realtime"
	"github.com/yungbote/sessionscribe-backend/internal/services"
)

type JobHandler struct {
	log    *logger.Logger
	jobs   services.JobService
	stream *realtime.Streamer
}

func NewJobHandler(log *logger.Logger, jobs services.JobService, stream *realtime.Streamer) *JobHandler {
	return &JobHandler{log: log.With("handler", "JobHandler"), jobs: jobs, stream: stream}
}

// POST /jobs
func (h *JobHandler) CreateJob(c *gin.Context) {
	var in jobs.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		response.RespondErr(c, apierr.Invalid("malformed request body: %v", err))
		return
	}
	sum, err := h.jobs.Submit(c.Request.Context(), in)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondAccepted(c, sum)
}

// GET /jobs?status=pending,running
func (h *JobHandler) ListJobs(c *gin.Context) {
	statuses, err := services.ParseStatuses(c.Query("status"))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, h.jobs.List(statuses))
}

// GET /jobs/:id
func (h *JobHandler) GetJob(c *gin.Context) {
	sum, err := h.jobs.Get(c.Param("id"))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, sum)
}

// GET /jobs/:id/stream?from=<eventId>
func (h *JobHandler) StreamJob(c *gin.Context) {
	from, err := realtime.ResumeFrom(c.Query("from"), c.GetHeader("Last-Event-ID"))
	if err != nil {
		response.RespondErr(c, apierr.Invalid("%v", err))
		return
	}
	id := c.Param("id")
	sub, err := h.jobs.Subscribe(id, from)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	if err := h.stream.Serve(c.Request.Context(), c.Writer, id, sub); err != nil {
		h.log.Debug("Stream ended with error", "job_id", id, "error", err)
	}
}
