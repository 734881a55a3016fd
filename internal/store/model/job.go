package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Job state constants
const (
	JobStateRunning   = "running"
	JobStateCompleted = "completed"
	JobStateFailed    = "failed"
	JobStateCancelled = "cancelled"
)

type Job struct {
	ID         uuid.UUID `gorm:"primaryKey;"`
	Kind       string    `gorm:"not null;index"`
	State      string    `gorm:"not null;index"`
	Phase      string
	Params     []byte `gorm:"type:jsonb"`
	Stats      []byte `gorm:"type:jsonb"`
	Cost       []byte `gorm:"type:jsonb"`
	Result     []byte `gorm:"type:jsonb"`
	Error      string
	ErrorType  string
	StartedAt  time.Time
	FinishedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type JobList []Job

func (j Job) String() string {
	val, _ := json.Marshal(j)
	return string(val)
}

func NewJobFromId(id uuid.UUID) *Job {
	return &Job{ID: id}
}
