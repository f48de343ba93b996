package worker

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-scores/internal/config"
	"github.com/stemsi/exstem-scores/internal/model"
)

const (
	StatisticsBatchSize    = 50
	StatisticsBatchTimeout = 2 * time.Second
	StatisticsPollTimeout  = 1 * time.Second
)

// StatisticsStore is the part of service.StatisticsService the worker needs.
type StatisticsStore interface {
	Compute(ctx context.Context, userID int) (*model.UserStatistics, error)
	Store(ctx context.Context, stats map[int]*model.UserStatistics) error
}

// StatisticsWorker rebuilds cached user statistics after score changes.
type StatisticsWorker struct {
	rdb   *redis.Client
	stats StatisticsStore
	log   zerolog.Logger
}

func NewStatisticsWorker(rdb *redis.Client, stats StatisticsStore, log zerolog.Logger) *StatisticsWorker {
	return &StatisticsWorker{
		rdb:   rdb,
		stats: stats,
		log:   log.With().Str("component", "statistics_worker").Logger(),
	}
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

func (w *StatisticsWorker) Start(ctx context.Context) {
	w.log.Info().Msg("StatisticsWorker started")

	batch := make([]int, 0, StatisticsBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= StatisticsBatchSize || time.Since(lastFlush) >= StatisticsBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Int("pending", len(batch)).Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, StatisticsPollTimeout, config.WorkerKey.RecomputeStatisticsQueue).Result()
			if err != nil {
				if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			userID, err := strconv.Atoi(item[1])
			if err != nil || userID < 1 {
				w.log.Error().Str("payload", item[1]).Msg("Invalid user id in queue")
				continue
			}
			batch = append(batch, userID)
		}
	}
}

// flushSafe recomputes a batch and requeues the users that failed.
func (w *StatisticsWorker) flushSafe(ctx context.Context, batch []int) {
	if len(batch) == 0 {
		return
	}

	failed := w.recompute(ctx, batch)
	if len(failed) == 0 {
		return
	}

	w.log.Warn().Ints("user_ids", failed).Msg("Statistics recompute failed, requeueing")
	ids := make([]interface{}, len(failed))
	for i, id := range failed {
		ids[i] = strconv.Itoa(id)
	}
	if err := w.rdb.RPush(ctx, config.WorkerKey.RecomputeStatisticsQueue, ids...).Err(); err != nil {
		w.log.Error().Err(err).Ints("user_ids", failed).Msg("Requeue failed")
	}
}

// recompute computes statistics for every distinct user in batch and writes
// them to the cache in one pipeline. It returns the users that must be retried.
func (w *StatisticsWorker) recompute(ctx context.Context, batch []int) []int {
	userIDs := dedupe(batch)
	computed := make(map[int]*model.UserStatistics, len(userIDs))
	var failed []int

	for _, id := range userIDs {
		st, err := w.stats.Compute(ctx, id)
		if err != nil {
			w.log.Error().Err(err).Int("user_id", id).Msg("Compute statistics failed")
			failed = append(failed, id)
			continue
		}
		computed[id] = st
	}

	if err := w.stats.Store(ctx, computed); err != nil {
		w.log.Error().Err(err).Int("users", len(computed)).Msg("Cache statistics failed")
		for _, id := range userIDs {
			if _, ok := computed[id]; ok {
				failed = append(failed, id)
			}
		}
		return failed
	}

	w.log.Debug().Int("users", len(computed)).Msg("Statistics recomputed")
	return failed
}

// dedupe returns the distinct ids in first-seen order.
func dedupe(ids []int) []int {
	seen := make(map[int]struct{}, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
