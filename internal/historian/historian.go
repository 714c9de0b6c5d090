// Package historian drains the redis action log into Postgres in batches.
package historian

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/ageofchess/internal/cache"
)

// InsertFunc writes one batch. It must be idempotent; a failed batch is retried.
type InsertFunc func(ctx context.Context, recs []cache.GameActionRecord) error

// popTimeout is how long one BLPop waits. Redis rounds shorter waits up to a second.
const popTimeout = time.Second

// maxBacklogBatches bounds how many batches are held while the database is failing.
const maxBacklogBatches = 50

// Service pops action records and flushes them when the batch is full or the oldest
// buffered record has waited FlushDelay.
type Service struct {
	client     *redis.Client
	queue      string
	insert     InsertFunc
	batchSize  int
	flushDelay time.Duration
	log        *logrus.Entry

	batch      []cache.GameActionRecord
	firstQueue time.Time
}

func New(client *redis.Client, queue string, batchSize int, flushDelay time.Duration, insert InsertFunc, logger *logrus.Logger) *Service {
	if batchSize <= 0 {
		batchSize = 20
	}
	return &Service{
		client:     client,
		queue:      queue,
		insert:     insert,
		batchSize:  batchSize,
		flushDelay: flushDelay,
		log:        logger.WithField("component", "historian"),
		batch:      make([]cache.GameActionRecord, 0, batchSize),
	}
}

// Run blocks until ctx is done, then flushes what is left.
func (s *Service) Run(ctx context.Context) {
	s.log.WithField("queue", s.queue).Info("historian started")
	for ctx.Err() == nil {
		rec, err := cache.PopGameAction(ctx, s.client, s.queue, popTimeout)
		switch {
		case ctx.Err() != nil:
		case err != nil:
			s.log.WithError(err).Warn("pop action")
		case rec != nil:
			if len(s.batch) == 0 {
				s.firstQueue = time.Now()
			}
			s.batch = append(s.batch, *rec)
		}

		if len(s.batch) >= s.batchSize || (len(s.batch) > 0 && time.Since(s.firstQueue) >= s.flushDelay) {
			s.flush(ctx)
		}
	}

	if len(s.batch) > 0 {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		s.flush(flushCtx)
		cancel()
	}
	s.log.Info("historian stopped")
}

// flush writes the buffered records. On failure they stay buffered for the next attempt,
// up to the backlog limit, past which the oldest are dropped.
func (s *Service) flush(ctx context.Context) {
	if err := s.insert(ctx, s.batch); err != nil {
		s.log.WithError(err).WithField("count", len(s.batch)).Error("flush actions")
		if limit := s.batchSize * maxBacklogBatches; len(s.batch) > limit {
			dropped := len(s.batch) - limit
			s.batch = append(s.batch[:0], s.batch[dropped:]...)
			s.log.WithField("dropped", dropped).Warn("action backlog full")
		}
		s.firstQueue = time.Now()
		return
	}
	s.log.WithField("count", len(s.batch)).Debug("flushed actions")
	s.batch = s.batch[:0]
}
