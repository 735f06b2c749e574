package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/recapcrew/recap-engine/internal/infrastructure/http/middleware"
	"github.com/recapcrew/recap-engine/pkg/config"
	"github.com/recapcrew/recap-engine/pkg/jwt"
)

// Router holds all handlers
type Router struct {
	cfg            *config.Config
	jwtManager     *jwt.Manager
	meetingHandler *Meeting
	reviewHandler  *Review
	ingestHandler  *Ingest
}

// NewRouter creates a new router with all handlers
func NewRouter(cfg *config.Config, jwtManager *jwt.Manager, meetingHandler *Meeting, reviewHandler *Review, ingestHandler *Ingest) *Router {
	return &Router{
		cfg:            cfg,
		jwtManager:     jwtManager,
		meetingHandler: meetingHandler,
		reviewHandler:  reviewHandler,
		ingestHandler:  ingestHandler,
	}
}

// Setup configures all application routes
func (rt *Router) Setup(e *echo.Echo) {
	// Health check endpoint
	e.GET("/health", rt.healthCheck)

	// API v1 group, all routes require a verified token
	v1 := e.Group("/v1", middleware.EchoAuth(rt.jwtManager))

	rt.setupMeetingRoutes(v1)
	rt.setupIngestRoutes(v1)
}

// setupMeetingRoutes configures meeting lifecycle and review routes
func (rt *Router) setupMeetingRoutes(g *echo.Group) {
	meetings := g.Group("/meetings")

	meetings.POST("", rt.meetingHandler.Create)
	meetings.GET("/:id", rt.meetingHandler.Get)
	meetings.DELETE("/:id", rt.meetingHandler.Delete)
	meetings.GET("/:id/updates", rt.meetingHandler.ListUpdates)
	meetings.POST("/:id/extraction", rt.meetingHandler.SubmitExtraction)
	meetings.POST("/:id/publish", rt.meetingHandler.Publish)
	meetings.POST("/:id/reprocess", rt.meetingHandler.Reprocess)
	meetings.POST("/:id/notes", rt.meetingHandler.AddReviewNote)

	meetings.GET("/:id/lock", rt.reviewHandler.Holder)
	meetings.POST("/:id/lock", rt.reviewHandler.AcquireLock)
	meetings.DELETE("/:id/lock", rt.reviewHandler.ReleaseLock)
	meetings.POST("/:id/force-unlock", rt.reviewHandler.ForceUnlock)
}

// setupIngestRoutes configures batch ingestion routes
func (rt *Router) setupIngestRoutes(g *echo.Group) {
	ingestGroup := g.Group("/ingest")

	ingestGroup.POST("/batch", rt.ingestHandler.Batch)
}

// healthCheck returns health status
func (rt *Router) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"service": "recap-engine",
	})
}
