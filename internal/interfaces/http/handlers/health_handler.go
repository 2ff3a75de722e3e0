package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/MolScore/internal/infrastructure/monitoring/logging"
)

// HealthChecker reports the health of one dependency (database, cache,
// object store, broker).
type HealthChecker interface {
	// Name identifies the dependency in the readiness report.
	Name() string

	// Check returns nil when the dependency is reachable and usable.
	Check(ctx context.Context) error
}

// CheckerFunc adapts a named function to the HealthChecker interface.
type CheckerFunc struct {
	CheckerName string
	Fn          func(ctx context.Context) error
}

func (f CheckerFunc) Name() string                    { return f.CheckerName }
func (f CheckerFunc) Check(ctx context.Context) error { return f.Fn(ctx) }

// checkTimeout bounds each dependency probe during readiness.
const checkTimeout = 5 * time.Second

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	checkers []HealthChecker
	version  string
	startAt  time.Time
	logger   logging.Logger
}

// NewHealthHandler creates a health handler.  Checkers run on every
// readiness probe; liveness never touches dependencies.
func NewHealthHandler(version string, checkers []HealthChecker, log logging.Logger) *HealthHandler {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &HealthHandler{
		checkers: checkers,
		version:  version,
		startAt:  time.Now(),
		logger:   log.Named("health"),
	}
}

// Liveness handles GET /healthz.  It answers 200 as long as the process is
// serving requests.
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": h.version,
		"uptime":  time.Since(h.startAt).Round(time.Second).String(),
	})
}

// dependencyStatus is one entry in the readiness report.
type dependencyStatus struct {
	Name      string `json:"name"`
	Healthy   bool   `json:"healthy"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// Readiness handles GET /readyz.  It probes every registered dependency and
// answers 503 when any of them fails.
func (h *HealthHandler) Readiness(c *gin.Context) {
	statuses := make([]dependencyStatus, 0, len(h.checkers))
	ready := true

	for _, checker := range h.checkers {
		ctx, cancel := context.WithTimeout(c.Request.Context(), checkTimeout)
		start := time.Now()
		err := checker.Check(ctx)
		cancel()

		status := dependencyStatus{
			Name:      checker.Name(),
			Healthy:   err == nil,
			LatencyMS: time.Since(start).Milliseconds(),
		}
		if err != nil {
			ready = false
			status.Error = err.Error()
			h.logger.Warn("readiness check failed",
				logging.String("dependency", checker.Name()),
				logging.Err(err),
			)
		}
		statuses = append(statuses, status)
	}

	code := http.StatusOK
	overall := "ready"
	if !ready {
		code = http.StatusServiceUnavailable
		overall = "not_ready"
	}
	c.JSON(code, gin.H{
		"status":       overall,
		"version":      h.version,
		"dependencies": statuses,
	})
}

//Personal.AI order the ending
