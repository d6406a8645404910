package routes

import (
	"context"

	"fleetpulse/internal/config"
	"fleetpulse/internal/delivery/http/handler"
	"fleetpulse/internal/domain/telemetry"
	"fleetpulse/internal/logger"
	"fleetpulse/internal/middleware"
	"fleetpulse/internal/usecase/fleet"

	"github.com/gin-gonic/gin"
)

// Dependencies are the application components the HTTP surface is built on.
type Dependencies struct {
	Store    telemetry.Store
	Health   handler.HealthChecker
	Ingestor handler.Ingestor
	Engine   handler.SimulationController
	Streamer handler.Streamer
}

// SetupRoutes builds the router. Background work owned by the middleware
// stops when ctx is done.
func SetupRoutes(ctx context.Context, cfg *config.Config, deps *Dependencies) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Order: recovery, request ID, logging, security headers, CORS, request size limit, general rate limit
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware("/health"))
	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(middleware.CORSMiddleware(&cfg.CORS))
	router.Use(middleware.RequestSizeLimitMiddleware(middleware.DefaultMaxRequestSize))
	if cfg.RateLimit.GeneralRPS > 0 {
		router.Use(middleware.RateLimitMiddleware(ctx, cfg.RateLimit.GeneralRPS, cfg.RateLimit.GeneralBurst))
	}

	healthHandler := handler.NewHealthHandler(deps.Health)
	router.GET("/health", healthHandler.Health)

	fleetService := fleet.NewService(deps.Store)

	v1 := router.Group("/api/v1")
	{
		handler.NewTelemetryHandler(deps.Ingestor, fleetService).RegisterRoutes(v1)
		handler.NewDeviceHandler(deps.Ingestor, fleetService).RegisterRoutes(v1)
		handler.NewAlertHandler(fleetService).RegisterRoutes(v1)
		handler.NewSimulationHandler(deps.Engine).RegisterRoutes(v1)
		handler.NewStreamHandler(deps.Streamer).RegisterRoutes(v1)
	}

	logger.Info("All routes initialized")
	return router
}
