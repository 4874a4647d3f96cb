package router

import (
	"github.com/cuongbtq/report-service/internal/api/handler"
	"github.com/gin-gonic/gin"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	jobHandler := handler.NewJobHandler(deps)

	r.GET("/health", jobHandler.Health)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		reports := v1.Group("/reports")
		{
			// POST /api/v1/reports - Queue a report for a target date
			reports.POST("", jobHandler.QueueReport)

			// GET /api/v1/reports - List report jobs with filtering and pagination
			reports.GET("", jobHandler.ListJobs)

			// GET /api/v1/reports/:job_id/status - Poll job progress
			reports.GET("/:job_id/status", jobHandler.GetReportStatus)

			// GET /api/v1/reports/:job_id/download - Fetch the generated PDF
			reports.GET("/:job_id/download", jobHandler.DownloadReport)
		}
	}

	return r
}
