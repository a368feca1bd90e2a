package server

import (
	"github.com/smartsum/backend/internal/server/middleware"
	"github.com/smartsum/backend/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	e.GET("/", routes.RootHandler)
	e.GET("/health", routes.HealthHandler)
	e.POST("/summarize_video", routes.SummarizeVideoHandler)

	apiRoutes := e.Group("/api", middleware.AuthMiddleware)

	// Processing routes
	apiRoutes.POST("/process", routes.ProcessHandler)
	apiRoutes.POST("/keyword", routes.KeywordHandler)
	apiRoutes.POST("/jobs", routes.CreateJobHandler)

	// Document routes
	apiRoutes.GET("/documents", routes.GetDocumentsHandler)
	apiRoutes.GET("/documents/:id", routes.GetDocumentHandler)
	apiRoutes.GET("/documents/:id/mindmap", routes.GetDocumentMindmapHandler)
	apiRoutes.POST("/search", routes.SearchHandler)
}
