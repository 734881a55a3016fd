// Package v1alpha1 holds the REST resources served by the insight API.
package v1alpha1

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Job kinds accepted by the API.
const (
	JobKindSearch     = "search"
	JobKindEnrichment = "enrichment"
	JobKindGraphIndex = "graph-index"
)

type Job struct {
	Id         uuid.UUID          `json:"id"`
	Kind       string             `json:"kind"`
	State      string             `json:"state"`
	Phase      string             `json:"phase,omitempty"`
	Params     map[string]string  `json:"params,omitempty"`
	Stats      map[string]any     `json:"stats,omitempty"`
	Cost       map[string]float64 `json:"cost,omitempty"`
	Result     json.RawMessage    `json:"result,omitempty"`
	Error      string             `json:"error,omitempty"`
	ErrorType  string             `json:"errorType,omitempty"`
	StartedAt  time.Time          `json:"startedAt"`
	FinishedAt *time.Time         `json:"finishedAt,omitempty"`
}

type JobList []Job

// JobCreate is the request body accepted by the job creation endpoints.
// Params are forwarded to the worker as command line flags.
type JobCreate struct {
	Params map[string]string `json:"params"`
}
