package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/degree-backend/internal/response"
)

const healthCheckTimeout = 2 * time.Second

// Pinger is a dependency that can report its reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// unreachableMessage replaces driver errors in the public report; the error itself is logged.
const unreachableMessage = "unreachable"

type componentHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency"`
}

type healthReport struct {
	Status     string                     `json:"status"`
	Components map[string]componentHealth `json:"components"`
}

// HealthHandler pings every registered dependency in parallel.
type HealthHandler struct {
	deps map[string]Pinger
	log  zerolog.Logger
}

func NewHealthHandler(deps map[string]Pinger, log zerolog.Logger) *HealthHandler {
	return &HealthHandler{
		deps: deps,
		log:  log.With().Str("component", "health_handler").Logger(),
	}
}

// Check handles GET /health. Any unreachable dependency turns the response into a 503.
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	report := healthReport{Status: "up", Components: make(map[string]componentHealth, len(h.deps))}
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for name, dep := range h.deps {
		wg.Add(1)
		go func(name string, dep Pinger) {
			defer wg.Done()
			start := time.Now()
			ch := componentHealth{Status: "up"}
			if err := dep.Ping(ctx); err != nil {
				ch.Status = "down"
				ch.Message = unreachableMessage
				h.log.Warn().Err(err).Str("dependency", name).Msg("Health check failed")
			}
			ch.Latency = time.Since(start).Round(time.Millisecond).String()

			mu.Lock()
			report.Components[name] = ch
			mu.Unlock()
		}(name, dep)
	}
	wg.Wait()

	status := http.StatusOK
	for _, ch := range report.Components {
		if ch.Status != "up" {
			report.Status = "down"
			status = http.StatusServiceUnavailable
			break
		}
	}
	response.Success(c, status, report)
}
