package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/sessionscribe-backend/internal/http/handlers"
	httpMW "github.com/yungbote/sessionscribe-backend/internal/http/middleware"
	"github.com/yungbote/sessionscribe-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	ServiceName string
	CORSOrigins []string

	JobHandler    *httpH.JobHandler
	ReportHandler *httpH.ReportHandler
	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.TraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	// Jobs
	if cfg.JobHandler != nil {
		r.POST("/jobs", cfg.JobHandler.CreateJob)
		r.GET("/jobs", cfg.JobHandler.ListJobs)
		r.GET("/jobs/:id", cfg.JobHandler.GetJob)
		r.GET("/jobs/:id/stream", cfg.JobHandler.StreamJob)
	}

	// Reports
	if cfg.ReportHandler != nil {
		r.GET("/reports", cfg.ReportHandler.ListReports)
		r.GET("/reports/:id", cfg.ReportHandler.GetReport)
		r.PATCH("/reports/:id", cfg.ReportHandler.UpdateReport)
		r.DELETE("/reports/:id", cfg.ReportHandler.DeleteReport)
	}

	return r
}
