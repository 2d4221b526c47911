package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/hugh/clubhub/internal/auth"
	"github.com/hugh/clubhub/internal/metrics"
)

type Handler struct {
	assigner auth.CollegeAssigner
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func NewHandler(assigner auth.CollegeAssigner, logger *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{
		assigner: assigner,
		logger:   logger,
		metrics:  m,
	}
}

func (h *Handler) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeCollegeBackfill, h.HandleCollegeBackfill)
}

// HandleCollegeBackfill assigns the college if the user still has none.
// A missing user row is returned as an error so the queue retries it;
// after the last retry the task is archived and the backfill is lost.
func (h *Handler) HandleCollegeBackfill(ctx context.Context, t *asynq.Task) error {
	var payload CollegeBackfillPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.Email == "" || payload.CollegeID == uuid.Nil {
		return fmt.Errorf("incomplete payload: %w", asynq.SkipRetry)
	}

	if err := h.assigner.Assign(ctx, payload.Email, payload.CollegeID); err != nil {
		retried, _ := asynq.GetRetryCount(ctx)
		maxRetry, _ := asynq.GetMaxRetry(ctx)
		if retried >= maxRetry {
			h.metrics.Backfill(metrics.BackfillDropped)
			h.logger.Warn("college backfill gave up",
				"college_id", payload.CollegeID,
				"attempts", retried+1,
				"error", err,
			)
		} else {
			h.metrics.Backfill(metrics.BackfillRetry)
		}
		return err
	}

	h.metrics.Backfill(metrics.BackfillAssigned)
	h.logger.Debug("college backfilled", "college_id", payload.CollegeID)
	return nil
}
