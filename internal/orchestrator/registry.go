package orchestrator

import (
	"sync"

	"github.com/google/uuid"
)

// Registry tracks in-flight coordinators so an explicit stop request can be
// correlated by job identifier.
type Registry struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*Coordinator
}

func NewRegistry() *Registry {
	return &Registry{jobs: make(map[uuid.UUID]*Coordinator)}
}

func (r *Registry) Add(id uuid.UUID, c *Coordinator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[id] = c
}

func (r *Registry) Remove(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, id)
}

// Cancel requests cancellation of the job with the given id. Returns false
// when no such job is in flight.
func (r *Registry) Cancel(id uuid.UUID) bool {
	r.mu.Lock()
	c, ok := r.jobs[id]
	r.mu.Unlock()

	if !ok {
		return false
	}
	c.Cancel()
	return true
}
