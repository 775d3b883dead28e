package http

import (
	"github.com/gin-gonic/gin"

	httpH "github.com/darisni/darisni-backend/internal/http/handlers"
	httpMW "github.com/darisni/darisni-backend/internal/http/middleware"
	"github.com/darisni/darisni-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log *logger.Logger

	HealthHandler  *httpH.HealthHandler
	StreamHandler  *httpH.StreamHandler
	SessionHandler *httpH.SessionHandler
	VideoHandler   *httpH.VideoHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS(cfg.Log))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		// Streaming
		if cfg.StreamHandler != nil {
			api.GET("/stream", cfg.StreamHandler.Stream)
		}

		// Session entitlements
		if cfg.SessionHandler != nil {
			api.GET("/session-access", cfg.SessionHandler.CheckAccess)
			api.POST("/session-purchase", cfg.SessionHandler.Purchase)
			api.POST("/session-attendance", cfg.SessionHandler.MarkAttendance)
		}

		// Video catalog
		if cfg.VideoHandler != nil {
			api.POST("/videos/upload", cfg.VideoHandler.Upload)
			api.GET("/videos", cfg.VideoHandler.List)
			api.GET("/videos/:id", cfg.VideoHandler.Get)
			api.DELETE("/videos/:id", cfg.VideoHandler.Delete)
		}
	}

	return r
}
