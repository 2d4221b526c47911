package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/hugh/clubhub/internal/auth"
	"github.com/hugh/clubhub/pkg/queue"
)

// Enqueuer is the part of *asynq.Client the dispatcher needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Dispatcher schedules college backfills on the task queue so they run in
// the worker after the sign-in has committed the user row.
type Dispatcher struct {
	client   Enqueuer
	delay    time.Duration
	maxRetry int
}

var _ auth.Backfiller = (*Dispatcher)(nil)

func NewDispatcher(client Enqueuer, delay time.Duration, maxRetry int) *Dispatcher {
	return &Dispatcher{
		client:   client,
		delay:    delay,
		maxRetry: maxRetry,
	}
}

func (d *Dispatcher) Schedule(ctx context.Context, email string, collegeID uuid.UUID) error {
	task, err := NewCollegeBackfillTask(CollegeBackfillPayload{
		Email:     email,
		CollegeID: collegeID,
	})
	if err != nil {
		return fmt.Errorf("creating backfill task: %w", err)
	}

	_, err = d.client.EnqueueContext(ctx, task,
		asynq.Queue(queue.QueueIdentity),
		asynq.ProcessIn(d.delay),
		asynq.MaxRetry(d.maxRetry),
	)
	if err != nil {
		return fmt.Errorf("enqueueing backfill task: %w", err)
	}
	return nil
}
