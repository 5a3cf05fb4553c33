package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mcqhub/mcqhub-backend/internal/config"
	"github.com/mcqhub/mcqhub-backend/internal/repository"
	"github.com/mcqhub/mcqhub-backend/internal/service"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	StatsBatchSize    = 50
	StatsBatchTimeout = 2 * time.Second
	StatsPollTimeout  = 1 * time.Second
)

// StatsWorker drains the submission event queue and recomputes the
// test_stats rollup for every test that received submissions. Events are
// batched so a burst of submissions to one test costs one recompute.
type StatsWorker struct {
	stats *repository.StatsRepository
	rdb   *redis.Client
	log   zerolog.Logger
}

func NewStatsWorker(stats *repository.StatsRepository, rdb *redis.Client, log zerolog.Logger) *StatsWorker {
	return &StatsWorker{
		stats: stats,
		rdb:   rdb,
		log:   log.With().Str("component", "stats_worker").Logger(),
	}
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

func (w *StatsWorker) Start(ctx context.Context) {
	w.log.Info().Msg("StatsWorker started")

	batch := make(map[int64]struct{}, StatsBatchSize)
	lastFlush := time.Now()

	for {
		// Should flush?
		if len(batch) > 0 &&
			(len(batch) >= StatsBatchSize || time.Since(lastFlush) >= StatsBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = make(map[int64]struct{}, StatsBatchSize)
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, StatsPollTimeout, config.WorkerKey.RefreshStatsQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var event service.SubmissionEvent
			if err := json.Unmarshal([]byte(item[1]), &event); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch[event.TestID] = struct{}{}
		}
	}
}

// flushSafe recomputes stats for the batched tests; on failure the ids are
// requeued so the rollup eventually catches up.
func (w *StatsWorker) flushSafe(ctx context.Context, batch map[int64]struct{}) {
	if len(batch) == 0 {
		return
	}

	testIDs := make([]int64, 0, len(batch))
	for id := range batch {
		testIDs = append(testIDs, id)
	}

	if err := w.stats.RefreshForTests(ctx, testIDs); err != nil {
		w.log.Warn().Err(err).Int("tests", len(testIDs)).Msg("Stats refresh failed — requeueing")
		for _, id := range testIDs {
			raw, _ := json.Marshal(service.SubmissionEvent{TestID: id})
			w.rdb.RPush(ctx, config.WorkerKey.RefreshStatsQueue, raw)
		}
		return
	}

	w.log.Debug().Int("tests", len(testIDs)).Msg("Stats refreshed")
}
