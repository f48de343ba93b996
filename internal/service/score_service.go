package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-scores/internal/config"
	"github.com/stemsi/exstem-scores/internal/model"
	"github.com/stemsi/exstem-scores/internal/repository"
	"github.com/stemsi/exstem-scores/internal/results"
)

// ScoreService handles score submissions and reads.
type ScoreService struct {
	scores *repository.ScoreRepository
	rdb    *redis.Client
	log    zerolog.Logger
}

// NewScoreService creates a new ScoreService.
func NewScoreService(scores *repository.ScoreRepository, rdb *redis.Client, log zerolog.Logger) *ScoreService {
	return &ScoreService{
		scores: scores,
		rdb:    rdb,
		log:    log.With().Str("component", "score_service").Logger(),
	}
}

// Create records a new submission for userID.
func (s *ScoreService) Create(ctx context.Context, userID int, req *model.CreateScoreRequest) (*model.Score, error) {
	score := &model.Score{
		UserID:      userID,
		ExerciseID:  req.ExerciseID,
		Answer:      req.Answer,
		Results:     req.Results,
		UserResults: req.UserResults,
	}
	if err := s.scores.Create(ctx, score); err != nil {
		return nil, fmt.Errorf("create score: %w", err)
	}

	s.notify(ctx, model.ScoreEventCreated, score)
	return score, nil
}

// Update applies a partial update to the caller's latest score on an exercise.
func (s *ScoreService) Update(ctx context.Context, userID, exerciseID int, req *model.UpdateScoreRequest) (*model.Score, error) {
	if req.Empty() {
		return nil, ErrNoFieldsToUpdate
	}

	score, err := s.scores.GetLatestForExercise(ctx, userID, exerciseID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrScoreNotFound
		}
		return nil, fmt.Errorf("get score: %w", err)
	}

	applyScoreUpdate(score, req)
	if err := s.scores.Update(ctx, score); err != nil {
		if isNotFound(err) {
			return nil, ErrScoreNotFound
		}
		return nil, fmt.Errorf("update score: %w", err)
	}

	s.notify(ctx, model.ScoreEventUpdated, score)
	return score, nil
}

func applyScoreUpdate(score *model.Score, req *model.UpdateScoreRequest) {
	if req.Answer != nil {
		score.Answer = req.Answer
	}
	if len(req.Results) > 0 && string(req.Results) != "null" {
		score.Results = req.Results
	}
	if len(req.UserResults) > 0 && string(req.UserResults) != "null" {
		score.UserResults = req.UserResults
	}
}

// GetForUser retrieves one of the caller's scores.
func (s *ScoreService) GetForUser(ctx context.Context, userID, scoreID int) (*model.Score, error) {
	score, err := s.scores.GetByIDForUser(ctx, scoreID, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrScoreNotFound
		}
		return nil, fmt.Errorf("get score: %w", err)
	}
	return score, nil
}

// ListForUser retrieves every score of userID, newest first.
func (s *ScoreService) ListForUser(ctx context.Context, userID int) ([]model.Score, error) {
	scores, err := s.scores.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list scores: %w", err)
	}
	return scores, nil
}

// List retrieves a page of all scores.
func (s *ScoreService) List(ctx context.Context, page, perPage int) ([]model.Score, int, error) {
	scores, total, err := s.scores.ListPaginated(ctx, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("list scores: %w", err)
	}
	return scores, total, nil
}

// Delete removes a score.
func (s *ScoreService) Delete(ctx context.Context, id int) error {
	score, err := s.scores.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrScoreNotFound
		}
		return fmt.Errorf("delete score: %w", err)
	}

	s.notify(ctx, model.ScoreEventDeleted, score)
	return nil
}

// NewScoreEvent builds the activity event describing a change to score.
func NewScoreEvent(typ model.ScoreEventType, score *model.Score, at time.Time) model.ScoreEvent {
	return model.ScoreEvent{
		Type:       typ,
		ScoreID:    score.ID,
		UserID:     score.UserID,
		ExerciseID: score.ExerciseID,
		AllCorrect: results.AllCorrect(score),
		Accuracy:   results.Accuracy(score.RawResults()),
		At:         at,
	}
}

// notify publishes the activity event and queues the user's statistics for
// recomputation. Both are best effort; the score is already stored.
func (s *ScoreService) notify(ctx context.Context, typ model.ScoreEventType, score *model.Score) {
	payload, err := json.Marshal(NewScoreEvent(typ, score, time.Now().UTC()))
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to marshal score event")
		return
	}

	pipe := s.rdb.Pipeline()
	pipe.Publish(ctx, config.CacheKey.ActivityChannel(), payload)
	pipe.Del(ctx, config.CacheKey.UserStatisticsKey(score.UserID))
	pipe.RPush(ctx, config.WorkerKey.RecomputeStatisticsQueue, strconv.Itoa(score.UserID))
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Warn().Err(err).
			Int("score_id", score.ID).
			Int("user_id", score.UserID).
			Msg("Failed to publish score event")
	}
}
