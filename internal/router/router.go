package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stemsi/degree-backend/internal/config"
	"github.com/stemsi/degree-backend/internal/handler"
	"github.com/stemsi/degree-backend/internal/metrics"
	"github.com/stemsi/degree-backend/internal/middleware"
	"github.com/stemsi/degree-backend/internal/response"
)

const metricsPath = "/metrics"

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Degree *handler.DegreeHandler
	Health *handler.HealthHandler
}

// SetupRouter configures the Gin engine with global middlewares and routes.
func SetupRouter(handlers *Handlers, m *metrics.Metrics, cfg *config.Config) *gin.Engine {
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
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept-Encoding", response.HeaderRequestID}
	corsConfig.ExposeHeaders = []string{response.HeaderRequestID}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.Metrics(m))
	// promhttp negotiates its own compression.
	router.Use(middleware.BrotliWithConfig(middleware.BrotliConfig{
		Quality:   middleware.DefaultBrotliConfig.Quality,
		MinLength: middleware.DefaultBrotliConfig.MinLength,
		Skipper:   middleware.SkipPaths(metricsPath),
	}))

	router.NoRoute(func(c *gin.Context) {
		response.Fail(c, http.StatusNotFound, response.ErrRouteNotFound)
	})

	router.GET("/health", handlers.Health.Check)
	router.GET(metricsPath, gin.WrapH(m.Handler()))

	// ─── API v1 ────────────────────────────────────────────────────────
	v1 := router.Group("/api/v1")
	v1.Use(middleware.CacheControl("no-store"))
	{
		degrees := v1.Group("/degrees")
		degrees.POST("", handlers.Degree.Create)
		// Static segment; wins over /:id.
		degrees.GET("/search", handlers.Degree.Search)
		degrees.GET("/:id", handlers.Degree.Get)
		degrees.PUT("/:id", handlers.Degree.Update)
		degrees.DELETE("/:id", handlers.Degree.Delete)
	}

	return router
}
