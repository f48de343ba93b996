package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-scores/internal/response"
)

const healthTimeout = 2 * time.Second

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingerFunc adapts a function to Pinger, e.g. a Redis client's Ping.
type PingerFunc func(ctx context.Context) error

func (f PingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// SystemHandler reports dependency health.
type SystemHandler struct {
	db    Pinger
	cache Pinger
	log   zerolog.Logger
}

// NewSystemHandler creates a new SystemHandler.
func NewSystemHandler(db, cache Pinger, log zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		db:    db,
		cache: cache,
		log:   log.With().Str("component", "system_handler").Logger(),
	}
}

// Health godoc
// GET /health
// Pings Postgres and Redis. Responds 503 when either is unreachable.
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	dbStatus := h.check(ctx, "database", h.db)
	cacheStatus := h.check(ctx, "cache", h.cache)

	status, code := "healthy", http.StatusOK
	if dbStatus != "connected" || cacheStatus != "connected" {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}

	response.Success(c, code, gin.H{
		"status":   status,
		"database": dbStatus,
		"cache":    cacheStatus,
	})
}

func (h *SystemHandler) check(ctx context.Context, name string, p Pinger) string {
	if p == nil {
		return "disconnected"
	}
	if err := p.Ping(ctx); err != nil {
		h.log.Warn().Err(err).Str("dependency", name).Msg("Health check failed")
		return "disconnected"
	}
	return "connected"
}
