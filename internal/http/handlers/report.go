package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/sessionscribe-backend/internal/data/repos/reports"
	"github.com/yungbote/sessionscribe-backend/internal/http/response"
	"github.com/yungbote/sessionscribe-backend/internal/platform/apierr"
	"github.com/yungbote/sessionscribe-backend/internal/services"
)

type ReportHandler struct {
	reports services.ReportService
}

func NewReportHandler(reports services.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// GET /reports?universe=&jobId=&limit=&offset=
func (h *ReportHandler) ListReports(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	out, err := h.reports.List(c.Request.Context(), reports.ListFilter{
		UniverseName: c.Query("universe"),
		JobID:        c.Query("jobId"),
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, out)
}

// GET /reports/:id
func (h *ReportHandler) GetReport(c *gin.Context) {
	rep, err := h.reports.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, rep)
}

// PATCH /reports/:id
func (h *ReportHandler) UpdateReport(c *gin.Context) {
	var patch services.ReportPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.RespondErr(c, apierr.Invalid("malformed request body: %v", err))
		return
	}
	rep, err := h.reports.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, rep)
}

// DELETE /reports/:id
func (h *ReportHandler) DeleteReport(c *gin.Context) {
	if err := h.reports.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.RespondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
