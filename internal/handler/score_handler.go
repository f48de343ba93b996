package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-scores/internal/middleware"
	"github.com/stemsi/exstem-scores/internal/model"
	"github.com/stemsi/exstem-scores/internal/response"
	"github.com/stemsi/exstem-scores/internal/service"
	"github.com/stemsi/exstem-scores/internal/validator"
)

// ScoreHandler handles score submission and retrieval.
type ScoreHandler struct {
	scoreService *service.ScoreService
	log          zerolog.Logger
}

// NewScoreHandler creates a new ScoreHandler.
func NewScoreHandler(scoreService *service.ScoreService, log zerolog.Logger) *ScoreHandler {
	return &ScoreHandler{
		scoreService: scoreService,
		log:          log.With().Str("component", "score_handler").Logger(),
	}
}

// Ping godoc
// GET /api/v1/scores/ping
func (h *ScoreHandler) Ping(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{"message": "pong!"})
}

// ListMyScores godoc
// GET /api/v1/scores/user
// Returns every score of the caller, newest first.
func (h *ScoreHandler) ListMyScores(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	scores, err := h.scoreService.ListForUser(c.Request.Context(), claims.UserID)
	if err != nil {
		h.log.Error().Err(err).Int("user_id", claims.UserID).Msg("List scores failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"scores": model.NewScoreViews(scores)})
}

// GetMyScore godoc
// GET /api/v1/scores/user/:score_id
func (h *ScoreHandler) GetMyScore(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	// A malformed id cannot match any score.
	scoreID, ok := paramID(c, "score_id")
	if !ok {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	score, err := h.scoreService.GetForUser(c.Request.Context(), claims.UserID, scoreID)
	if err != nil {
		h.fail(c, err, "Get score failed")
		return
	}

	response.Success(c, http.StatusOK, gin.H{"score": model.NewScoreView(score)})
}

// CreateScore godoc
// POST /api/v1/scores
// Records a submission for the caller.
func (h *ScoreHandler) CreateScore(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	if emptyBody(c) {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}

	var req model.CreateScoreRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	score, err := h.scoreService.Create(c.Request.Context(), claims.UserID, &req)
	if err != nil {
		h.fail(c, err, "Create score failed")
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"score": model.NewScoreView(score)})
}

// UpdateScore godoc
// PUT /api/v1/scores/:exercise_id
// Partially updates the caller's latest score on an exercise.
func (h *ScoreHandler) UpdateScore(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	exerciseID, ok := paramID(c, "exercise_id")
	if !ok {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if emptyBody(c) {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}

	var req model.UpdateScoreRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	if req.Empty() {
		response.Fail(c, http.StatusBadRequest, response.ErrNoFieldsToUpdate)
		return
	}

	score, err := h.scoreService.Update(c.Request.Context(), claims.UserID, exerciseID, &req)
	if err != nil {
		h.fail(c, err, "Update score failed")
		return
	}

	response.Success(c, http.StatusOK, gin.H{"score": model.NewScoreView(score)})
}

// ListScores godoc
// GET /api/v1/admin/scores?page=1&per_page=10
func (h *ScoreHandler) ListScores(c *gin.Context) {
	page, perPage := pageQuery(c)

	scores, total, err := h.scoreService.List(c.Request.Context(), page, perPage)
	if err != nil {
		h.log.Error().Err(err).Msg("List all scores failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK,
		gin.H{"scores": model.NewScoreViews(scores)},
		response.NewPagination(page, perPage, total),
	)
}

// DeleteScore godoc
// DELETE /api/v1/admin/scores/:id
func (h *ScoreHandler) DeleteScore(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.scoreService.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err, "Delete score failed")
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

func (h *ScoreHandler) fail(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, service.ErrScoreNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrNoFieldsToUpdate):
		response.Fail(c, http.StatusBadRequest, response.ErrNoFieldsToUpdate)
	default:
		h.log.Error().Err(err).Msg(msg)
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
