package jobs

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const DefaultMaxAttempts = 5

// Job is one unit of asynchronous work as it travels through the queue.
type Job struct {
	ID          string          `json:"id"`
	Type        JobType         `json:"type"`
	Payload     json.RawMessage `json:"payload"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"maxAttempts"`
	RunAt       time.Time       `json:"runAt"`
	LastError   *string         `json:"lastError,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// NewJob builds a job that is due at runAt, or now when runAt is zero.
func NewJob(t JobType, payloadJSON []byte, runAt time.Time, maxAttempts int) (Job, error) {
	if !t.IsValid() {
		return Job{}, ErrInvalidJobType
	}

	now := time.Now().UTC()
	if runAt.IsZero() {
		runAt = now
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	return Job{
		ID:          uuid.NewString(),
		Type:        t,
		Payload:     payloadJSON,
		Attempts:    0,
		MaxAttempts: maxAttempts,
		RunAt:       runAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Exhausted reports whether the job has used up its attempts.
func (j Job) Exhausted() bool {
	return j.Attempts >= j.MaxAttempts
}
