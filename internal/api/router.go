package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/bluetrack/tracking-backend-go/internal/config"
	"github.com/bluetrack/tracking-backend-go/internal/handler"
	"github.com/bluetrack/tracking-backend-go/internal/middleware"
)

// Handlers groups the HTTP handlers wired into the router
type Handlers struct {
	Ingest   *handler.IngestHandler
	Live     *handler.LiveHandler
	Position *handler.PositionHandler
	Device   *handler.DeviceHandler
}

// SetupRouter builds the gin engine with all routes and middleware
func SetupRouter(cfg *config.Config, logger zerolog.Logger, h Handlers) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(logger))

	// CORS middleware
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Tracking Backend API is running",
		})
	})

	api := r.Group("/api/v1")
	{
		// Tracker ingestion webhook: open to field hardware, rate limited
		tracker := api.Group("/tracker")
		tracker.Use(middleware.RateLimit(cfg.IngestRateLimit, time.Minute))
		{
			tracker.POST("/report", h.Ingest.Report)
		}

		// Live feed
		live := api.Group("/live")
		{
			live.GET("/stream", h.Live.Stream)
			live.GET("/positions", h.Live.Positions)
		}

		// Reads for reporting collaborators
		api.GET("/positions", middleware.Auth(cfg.JWTSecret), h.Position.Recent)

		// Device status and administration
		devices := api.Group("/devices")
		{
			devices.GET("/:device_id/status", h.Device.Status)

			admin := devices.Group("")
			admin.Use(middleware.Auth(cfg.JWTSecret, "admin", "organization"))
			{
				admin.POST("/:device_id/deactivate", h.Device.Deactivate)
				admin.POST("/:device_id/reassign", h.Device.Reassign)
			}
		}
	}

	return r
}
