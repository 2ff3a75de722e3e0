// Package http assembles the gin router and HTTP server for the scoring API.
package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/MolScore/internal/infrastructure/monitoring/logging"
	prom "github.com/turtacn/MolScore/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/MolScore/internal/interfaces/http/handlers"
	"github.com/turtacn/MolScore/internal/interfaces/http/middleware"
)

// RouterConfig carries everything the router needs.
type RouterConfig struct {
	Logger  logging.Logger
	Metrics prom.MetricsCollector

	// AppMetrics records per-request counters; optional.
	AppMetrics *prom.AppMetrics

	HealthHandler  *handlers.HealthHandler
	ScoringHandler *handlers.ScoringHandler
	RunHandler     *handlers.RunHandler

	// LoggingConfig, CORSConfig, and RateLimitConfig default when zero.
	LoggingConfig   *middleware.LoggingConfig
	CORSConfig      *middleware.CORSConfig
	RateLimitConfig *middleware.RateLimitConfig

	// RateLimiter overrides the default token bucket limiter; optional.
	RateLimiter middleware.RateLimiter

	// Mode is the gin mode ("debug", "release", "test").
	Mode string
}

// NewRouter builds the engine with the full middleware chain and all routes.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}
	switch cfg.Mode {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	logCfg := middleware.DefaultLoggingConfig()
	if cfg.LoggingConfig != nil {
		logCfg = *cfg.LoggingConfig
	}
	corsCfg := middleware.DefaultCORSConfig()
	if cfg.CORSConfig != nil {
		corsCfg = *cfg.CORSConfig
	}
	limitCfg := middleware.DefaultRateLimitConfig()
	if cfg.RateLimitConfig != nil {
		limitCfg = *cfg.RateLimitConfig
	}
	limiter := cfg.RateLimiter
	if limiter == nil {
		limiter = middleware.NewTokenBucketLimiter(
			limitCfg.RequestsPerSecond, limitCfg.BurstSize, limitCfg.CleanupInterval)
	}

	engine := gin.New()
	engine.Use(
		middleware.Recovery(cfg.Logger),
		middleware.RequestID(),
		middleware.RequestLogging(cfg.Logger, logCfg),
		middleware.CORS(corsCfg),
		middleware.RateLimit(limiter, limitCfg),
	)
	if cfg.AppMetrics != nil {
		engine.Use(requestMetrics(cfg.AppMetrics))
	}

	if cfg.HealthHandler != nil {
		engine.GET("/healthz", cfg.HealthHandler.Liveness)
		engine.GET("/readyz", cfg.HealthHandler.Readiness)
	}
	if cfg.Metrics != nil {
		engine.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	v1 := engine.Group("/api/v1")
	if cfg.ScoringHandler != nil {
		v1.POST("/scores", cfg.ScoringHandler.ScoreBatch)
	}
	if cfg.RunHandler != nil {
		v1.POST("/runs", cfg.RunHandler.SubmitRun)
		v1.GET("/runs", cfg.RunHandler.ListRuns)
		v1.GET("/runs/:id", cfg.RunHandler.GetRun)
		v1.GET("/runs/:id/steps", cfg.RunHandler.ListSteps)
		v1.GET("/runs/:id/artifact", cfg.RunHandler.GetArtifactURL)
	}

	return engine
}

// requestMetrics records request count, latency, and sizes per route
// template.
func requestMetrics(metrics *prom.AppMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		prom.RecordHTTPRequest(metrics,
			c.Request.Method,
			path,
			c.Writer.Status(),
			time.Since(start),
			c.Request.ContentLength,
			int64(c.Writer.Size()),
		)
	}
}

//Personal.AI order the ending
