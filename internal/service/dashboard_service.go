package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-scores/internal/config"
	"github.com/stemsi/exstem-scores/internal/model"
	"github.com/stemsi/exstem-scores/internal/repository"
	"github.com/stemsi/exstem-scores/internal/results"
	"golang.org/x/sync/errgroup"
)

const dashboardRecentLimit = 10

// DashboardData consolidates all metrics for the admin dashboard.
type DashboardData struct {
	Users             model.UserStats          `json:"users"`
	Scores            model.PlatformScoreStats `json:"scores"`
	RecentSubmissions []model.ScoreView        `json:"recent_submissions"`
}

// aggregateCache is the part of *redis.Client used to cache the results
// aggregate.
type aggregateCache interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// DashboardService handles admin dashboard business logic.
type DashboardService struct {
	users  *repository.UserRepository
	scores *repository.ScoreRepository
	cache  aggregateCache
	ttl    time.Duration
	log    zerolog.Logger
}

// NewDashboardService creates a new DashboardService.
func NewDashboardService(
	users *repository.UserRepository,
	scores *repository.ScoreRepository,
	rdb *redis.Client,
	cfg *config.Config,
	log zerolog.Logger,
) *DashboardService {
	return &DashboardService{
		users:  users,
		scores: scores,
		cache:  rdb,
		ttl:    cfg.DashboardTTL,
		log:    log.With().Str("component", "dashboard_service").Logger(),
	}
}

// GetDashboardData fetches every dashboard block concurrently.
func (s *DashboardService) GetDashboardData(ctx context.Context) (*DashboardData, error) {
	var (
		data   DashboardData
		totals repository.ScoreTotals
		agg    ResultsAggregate
		recent []model.Score
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		data.Users, err = s.users.GetStats(gctx)
		if err != nil {
			return fmt.Errorf("user stats: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		var err error
		totals, err = s.scores.GetTotals(gctx)
		if err != nil {
			return fmt.Errorf("score totals: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		var err error
		agg, err = s.resultsAggregate(gctx, s.scanResults)
		return err
	})

	g.Go(func() error {
		var err error
		recent, err = s.scores.ListRecent(gctx, dashboardRecentLimit)
		if err != nil {
			return fmt.Errorf("recent scores: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	data.Scores = model.PlatformScoreStats{
		TotalSubmissions:  totals.Submissions,
		DistinctUsers:     totals.DistinctUsers,
		DistinctExercises: totals.DistinctExercises,
		TestCaseAccuracy:  agg.Accuracy(),
		PerfectRate:       agg.PerfectRate(),
	}
	data.RecentSubmissions = model.NewScoreViews(recent)
	return &data, nil
}

// resultsAggregate returns the platform-wide results aggregate from cache,
// or builds it with load and caches it for the configured TTL. A corrupt or
// unreadable cache entry is rebuilt.
func (s *DashboardService) resultsAggregate(
	ctx context.Context,
	load func(context.Context) (ResultsAggregate, error),
) (ResultsAggregate, error) {
	key := config.CacheKey.DashboardResultsKey()

	cached, err := s.cache.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var agg ResultsAggregate
		if jsonErr := json.Unmarshal(cached, &agg); jsonErr == nil {
			return agg, nil
		}
		s.log.Warn().Msg("Discarding corrupt dashboard cache entry")
	case !errors.Is(err, redis.Nil):
		s.log.Warn().Err(err).Msg("Dashboard cache read failed")
	}

	agg, err := load(ctx)
	if err != nil {
		return ResultsAggregate{}, err
	}

	payload, err := json.Marshal(agg)
	if err != nil {
		return ResultsAggregate{}, fmt.Errorf("marshal results aggregate: %w", err)
	}
	if err := s.cache.Set(ctx, key, payload, s.ttl).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Dashboard cache write failed")
	}
	return agg, nil
}

// scanResults streams every stored results payload into an aggregate.
func (s *DashboardService) scanResults(ctx context.Context) (ResultsAggregate, error) {
	var agg ResultsAggregate
	err := s.scores.EachResults(ctx, func(raw json.RawMessage) error {
		agg.Add(results.FromJSON(raw))
		return nil
	})
	if err != nil {
		return ResultsAggregate{}, fmt.Errorf("scan results: %w", err)
	}
	return agg, nil
}

// ResultsAggregate accumulates test case counts over many submissions.
type ResultsAggregate struct {
	Submissions  int `json:"submissions"`
	Perfect      int `json:"perfect"`
	Cases        int `json:"cases"`
	CorrectCases int `json:"correct_cases"`
}

// Add folds one submission into the aggregate.
func (a *ResultsAggregate) Add(raw results.Raw) {
	a.Submissions++
	a.Cases += results.CountTotal(raw)
	a.CorrectCases += results.CountCorrect(raw)
	if results.AllCorrect(raw) {
		a.Perfect++
	}
}

// Accuracy is the share of passing test cases, 0 when there are none.
func (a *ResultsAggregate) Accuracy() float64 {
	if a.Cases == 0 {
		return 0
	}
	return float64(a.CorrectCases) / float64(a.Cases) * 100
}

// PerfectRate is the share of submissions that passed every test case.
func (a *ResultsAggregate) PerfectRate() float64 {
	if a.Submissions == 0 {
		return 0
	}
	return float64(a.Perfect) / float64(a.Submissions) * 100
}
