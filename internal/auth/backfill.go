package auth

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/clubhub/internal/metrics"
)

var ErrBackfillerClosed = errors.New("backfiller is closed")

// LocalBackfiller runs college backfills in process. It is used when no
// task queue is configured. Each scheduled backfill waits, attempts the
// assignment and retries with doubling delay until it succeeds or runs
// out of attempts.
type LocalBackfiller struct {
	assigner CollegeAssigner
	delay    time.Duration
	maxRetry int
	logger   *slog.Logger
	metrics  *metrics.Metrics

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewLocalBackfiller(assigner CollegeAssigner, delay time.Duration, maxRetry int, logger *slog.Logger, m *metrics.Metrics) *LocalBackfiller {
	if logger == nil {
		logger = slog.Default()
	}
	if maxRetry < 0 {
		maxRetry = 0
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &LocalBackfiller{
		assigner: assigner,
		delay:    delay,
		maxRetry: maxRetry,
		logger:   logger,
		metrics:  m,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Schedule starts the backfill and returns immediately. The request
// context is not used past this call.
func (b *LocalBackfiller) Schedule(_ context.Context, email string, collegeID uuid.UUID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBackfillerClosed
	}

	b.wg.Add(1)
	go b.run(email, collegeID)
	return nil
}

func (b *LocalBackfiller) run(email string, collegeID uuid.UUID) {
	defer b.wg.Done()

	wait := b.delay
	for attempt := 0; attempt <= b.maxRetry; attempt++ {
		timer := time.NewTimer(wait)
		select {
		case <-b.ctx.Done():
			timer.Stop()
			b.metrics.Backfill(metrics.BackfillDropped)
			return
		case <-timer.C:
		}

		err := b.assigner.Assign(b.ctx, email, collegeID)
		if err == nil {
			b.metrics.Backfill(metrics.BackfillAssigned)
			b.logger.Debug("college backfilled", "college_id", collegeID)
			return
		}

		b.metrics.Backfill(metrics.BackfillRetry)
		b.logger.Debug("college backfill attempt failed",
			"college_id", collegeID,
			"attempt", attempt+1,
			"error", err,
		)
		wait *= 2
	}

	b.metrics.Backfill(metrics.BackfillDropped)
	b.logger.Warn("college backfill gave up", "college_id", collegeID, "attempts", b.maxRetry+1)
}

// Close stops accepting work, cancels pending waits and blocks until every
// running backfill has returned.
func (b *LocalBackfiller) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	b.cancel()
	b.wg.Wait()
}
