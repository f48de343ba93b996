package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-scores/internal/middleware"
	"github.com/stemsi/exstem-scores/internal/response"
	"github.com/stemsi/exstem-scores/internal/service"
)

// StatisticsHandler serves progress and profile statistics.
type StatisticsHandler struct {
	statsService *service.StatisticsService
	log          zerolog.Logger
}

// NewStatisticsHandler creates a new StatisticsHandler.
func NewStatisticsHandler(statsService *service.StatisticsService, log zerolog.Logger) *StatisticsHandler {
	return &StatisticsHandler{
		statsService: statsService,
		log:          log.With().Str("component", "statistics_handler").Logger(),
	}
}

// GetProgress godoc
// GET /api/v1/scores/progress/:user_id
func (h *StatisticsHandler) GetProgress(c *gin.Context) {
	userID, ok := paramID(c, "user_id")
	if !ok {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	progress, err := h.statsService.Progress(c.Request.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Int("user_id", userID).Msg("Progress failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, progress)
}

// GetMyStatistics godoc
// GET /api/v1/scores/statistics
func (h *StatisticsHandler) GetMyStatistics(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	h.respond(c, claims.UserID)
}

// GetUserStatistics godoc
// GET /api/v1/admin/users/:id/statistics
func (h *StatisticsHandler) GetUserStatistics(c *gin.Context) {
	userID, ok := paramID(c, "id")
	if !ok {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}
	h.respond(c, userID)
}

func (h *StatisticsHandler) respond(c *gin.Context, userID int) {
	stats, err := h.statsService.Get(c.Request.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Int("user_id", userID).Msg("Statistics failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, stats)
}
