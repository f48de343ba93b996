package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-scores/internal/config"
	"github.com/stemsi/exstem-scores/internal/middleware"
	"github.com/stemsi/exstem-scores/internal/response"
	ws "github.com/stemsi/exstem-scores/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// ActivityHandler streams score activity to admins over WebSocket.
type ActivityHandler struct {
	rdb      *redis.Client
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewActivityHandler creates a new ActivityHandler.
func NewActivityHandler(rdb *redis.Client, log zerolog.Logger, allowedOrigins []string) *ActivityHandler {
	return &ActivityHandler{
		rdb:      rdb,
		log:      log.With().Str("component", "activity_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// ActivityFeed godoc
// WS /ws/v1/admin/activity?token=...
// Forwards score events published on Redis to the connected admin.
func (h *ActivityHandler) ActivityFeed(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	ctx := c.Request.Context()
	channel := config.CacheKey.ActivityChannel()

	// Subscribe before upgrading so a Redis failure can still be reported as HTTP.
	pubsub := h.rdb.Subscribe(ctx, channel)
	defer pubsub.Close()
	if _, err := pubsub.Receive(ctx); err != nil {
		h.log.Error().Err(err).Msg("Subscribe failed")
		response.Fail(c, http.StatusServiceUnavailable, response.ErrServiceUnavailable)
		return
	}

	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	conn := ws.NewConn(raw)
	defer conn.Close()

	wsLog := h.log.With().Int("admin_id", claims.UserID).Logger()
	wsLog.Info().Msg("Admin attached to activity feed")

	if err := conn.WriteTyped(ws.ConnectedResponse{Event: ws.EventConnected, Channel: channel}); err != nil {
		return
	}

	events := make(chan []byte)
	go func() {
		defer close(events)
		for msg := range pubsub.Channel() {
			select {
			case events <- []byte(msg.Payload):
			case <-ctx.Done():
				return
			}
		}
	}()

	if err := ws.ServeFeed(ctx, conn, events, wsLog); err != nil {
		wsLog.Warn().Err(err).Msg("Activity feed closed with error")
		return
	}
	wsLog.Info().Msg("Admin detached from activity feed")
}
