package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stemsi/exstem-adaptive/internal/config"
	"github.com/stemsi/exstem-adaptive/internal/handler"
	"github.com/stemsi/exstem-adaptive/internal/middleware"
	"github.com/stemsi/exstem-adaptive/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Session *handler.SessionHandler
	WS      *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	tokens middleware.TokenValidator,
	submitLimiter *middleware.RateLimiter,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	if cfg.MetricsEnabled {
		router.Use(middleware.Metrics())
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// ─── 1. Test-taker Group (JWT) ─────────────────────────────────────
	api := router.Group("/api/v1")
	api.Use(middleware.RequireTestTakerJWT(tokens))
	{
		api.POST("/sessions", handlers.Session.StartSession)
		api.GET("/sessions/:session_id", handlers.Session.GetSession)
		api.POST("/sessions/:session_id/answers", submitLimiter.Middleware(), handlers.Session.SubmitAnswer)
		api.GET("/mastery", handlers.Session.ListMastery)
	}

	// ─── 2. WebSocket Group (Test-taker WS Auth) ───────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireTestTakerWSAuth(tokens))
	{
		ws.GET("/sessions/:session_id/stream", handlers.WS.SessionStream)
	}

	return router
}
