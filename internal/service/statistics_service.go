package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-scores/internal/config"
	"github.com/stemsi/exstem-scores/internal/model"
	"github.com/stemsi/exstem-scores/internal/repository"
	"github.com/stemsi/exstem-scores/internal/results"
)

// Achievement codes.
const (
	AchievementFirstSubmission = "first_submission"
	AchievementFirstPerfect    = "first_perfect"
	AchievementStreak3         = "streak_3"
	AchievementStreak5         = "streak_5"
	AchievementTenAttempts     = "ten_attempts"
	AchievementSharpshooter    = "sharpshooter"
)

const (
	sharpshooterAccuracy = 80.0
	sharpshooterAttempts = 5
)

// StatisticsService computes per-user statistics and caches them in Redis.
type StatisticsService struct {
	scores *repository.ScoreRepository
	rdb    *redis.Client
	cfg    *config.Config
	log    zerolog.Logger
}

// NewStatisticsService creates a new StatisticsService.
func NewStatisticsService(scores *repository.ScoreRepository, rdb *redis.Client, cfg *config.Config, log zerolog.Logger) *StatisticsService {
	return &StatisticsService{
		scores: scores,
		rdb:    rdb,
		cfg:    cfg,
		log:    log.With().Str("component", "statistics_service").Logger(),
	}
}

// Get returns the statistics of userID, from cache when possible.
func (s *StatisticsService) Get(ctx context.Context, userID int) (*model.UserStatistics, error) {
	key := config.CacheKey.UserStatisticsKey(userID)

	cached, err := s.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var stats model.UserStatistics
		if jsonErr := json.Unmarshal(cached, &stats); jsonErr == nil {
			return &stats, nil
		}
		s.log.Warn().Int("user_id", userID).Msg("Discarding corrupt statistics cache entry")
	case !errors.Is(err, redis.Nil):
		s.log.Warn().Err(err).Int("user_id", userID).Msg("Statistics cache read failed")
	}

	stats, err := s.Compute(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.Store(ctx, map[int]*model.UserStatistics{userID: stats}); err != nil {
		s.log.Warn().Err(err).Int("user_id", userID).Msg("Statistics cache write failed")
	}
	return stats, nil
}

// Progress returns the compact progress block of userID.
func (s *StatisticsService) Progress(ctx context.Context, userID int) (model.UserProgress, error) {
	stats, err := s.Get(ctx, userID)
	if err != nil {
		return model.UserProgress{}, err
	}
	return stats.UserProgress, nil
}

// Compute loads every score of userID from Postgres and computes statistics.
func (s *StatisticsService) Compute(ctx context.Context, userID int) (*model.UserStatistics, error) {
	scores, err := s.scores.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list scores: %w", err)
	}

	stats := ComputeStatistics(scores, s.cfg.RecentActivityLimit)
	stats.ComputedAt = time.Now().UTC()
	return &stats, nil
}

// Store writes several users' statistics to the cache in one pipeline.
func (s *StatisticsService) Store(ctx context.Context, stats map[int]*model.UserStatistics) error {
	if len(stats) == 0 {
		return nil
	}

	pipe := s.rdb.Pipeline()
	for userID, st := range stats {
		payload, err := json.Marshal(st)
		if err != nil {
			return fmt.Errorf("marshal statistics: %w", err)
		}
		pipe.Set(ctx, config.CacheKey.UserStatisticsKey(userID), payload, s.cfg.StatisticsTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache statistics: %w", err)
	}
	return nil
}

// ComputeStatistics derives progress, streaks and achievements from a user's
// scores. The input order does not matter. Scores without any result data
// count as attempts but are not graded.
func ComputeStatistics(scores []model.Score, recentLimit int) model.UserStatistics {
	chrono := make([]*model.Score, len(scores))
	for i := range scores {
		chrono[i] = &scores[i]
	}
	sort.SliceStable(chrono, func(i, j int) bool {
		if chrono[i].CreatedAt.Equal(chrono[j].CreatedAt) {
			return chrono[i].ID < chrono[j].ID
		}
		return chrono[i].CreatedAt.Before(chrono[j].CreatedAt)
	})

	var st model.UserStatistics
	st.TotalAttempts = len(chrono)

	var graded, cases, correctCases, streak int
	for _, score := range chrono {
		raw := score.RawResults()
		total := results.CountTotal(raw)
		if total == 0 {
			continue
		}
		graded++
		cases += total
		correctCases += results.CountCorrect(raw)

		switch {
		case results.AllCorrect(raw):
			st.CorrectAnswers++
			streak++
			st.MaxStreak = max(st.MaxStreak, streak)
		case results.HasCorrectAnswers(raw):
			st.PartialAnswers++
			streak = 0
		default:
			st.IncorrectAnswers++
			streak = 0
		}
	}
	st.CurrentStreak = streak

	if st.TotalAttempts > 0 {
		st.SuccessRate = float64(st.CorrectAnswers) / float64(st.TotalAttempts) * 100
	}
	if cases > 0 {
		st.TestCaseAccuracy = float64(correctCases) / float64(cases) * 100
	}

	if recentLimit < 0 {
		recentLimit = 0
	}
	recent := make([]model.Score, 0, min(recentLimit, len(chrono)))
	for i := len(chrono) - 1; i >= 0 && len(recent) < recentLimit; i-- {
		recent = append(recent, *chrono[i])
	}
	st.RecentActivity = model.NewScoreViews(recent)

	st.Achievements = achievements(&st, graded)
	return st
}

func achievements(st *model.UserStatistics, graded int) []model.Achievement {
	return []model.Achievement{
		{
			Code:        AchievementFirstSubmission,
			Title:       "First Steps",
			Description: "Submit your first solution.",
			Unlocked:    st.TotalAttempts >= 1,
		},
		{
			Code:        AchievementFirstPerfect,
			Title:       "Flawless",
			Description: "Pass every test case of an exercise.",
			Unlocked:    st.CorrectAnswers >= 1,
		},
		{
			Code:        AchievementStreak3,
			Title:       "On a Roll",
			Description: "Solve 3 exercises in a row.",
			Unlocked:    st.MaxStreak >= 3,
		},
		{
			Code:        AchievementStreak5,
			Title:       "Unstoppable",
			Description: "Solve 5 exercises in a row.",
			Unlocked:    st.MaxStreak >= 5,
		},
		{
			Code:        AchievementTenAttempts,
			Title:       "Persistent",
			Description: "Make 10 submissions.",
			Unlocked:    st.TotalAttempts >= 10,
		},
		{
			Code:        AchievementSharpshooter,
			Title:       "Sharpshooter",
			Description: "Keep test case accuracy at 80% or more over at least 5 graded submissions.",
			Unlocked:    graded >= sharpshooterAttempts && st.TestCaseAccuracy >= sharpshooterAccuracy,
		},
	}
}
