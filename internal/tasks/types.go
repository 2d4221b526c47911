package tasks

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Task type names
const (
	TypeCollegeBackfill = "identity:college_backfill"
)

// CollegeBackfillPayload names the user (by email) whose college should be
// set, and the college matched from the email domain at sign-in.
type CollegeBackfillPayload struct {
	Email     string    `json:"email"`
	CollegeID uuid.UUID `json:"college_id"`
}

func NewCollegeBackfillTask(payload CollegeBackfillPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeCollegeBackfill, data), nil
}
