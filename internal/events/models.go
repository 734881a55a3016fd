package events

import "github.com/google/uuid"

// JobEvent is the payload published on every job lifecycle transition.
type JobEvent struct {
	JobID      uuid.UUID `json:"job_id"`
	Kind       string    `json:"kind"`
	State      string    `json:"state"`
	Phase      string    `json:"phase,omitempty"`
	Error      string    `json:"error,omitempty"`
	ErrorType  string    `json:"error_type,omitempty"`
	DurationMs int64     `json:"duration_ms,omitempty"`
}
