// Package jobs tracks the state of video analysis jobs. Jobs are kept in
// memory; a database or Redis would be needed to survive restarts or scale
// past a single instance.
package jobs

import (
	"sync"

	"github.com/shelfeng/skiaicoach/internal/analysis"
)

// Statuses a job moves through.
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Job is the current state of a single analysis job.
type Job struct {
	Status string           `json:"status"`
	Data   *analysis.Result `json:"data,omitempty"`
	Error  string           `json:"error,omitempty"`
}

// Store is a concurrency-safe in-memory job registry.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]Job
}

// NewStore returns an empty job store.
func NewStore() *Store {
	return &Store{jobs: make(map[string]Job)}
}

// Start registers a job in the processing state.
func (s *Store) Start(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[id] = Job{Status: StatusProcessing}
}

// Complete marks a job as finished with its analysis result.
func (s *Store) Complete(id string, result *analysis.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[id] = Job{Status: StatusCompleted, Data: result}
}

// Fail marks a job as failed with the error that stopped it.
func (s *Store) Fail(id string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job := Job{Status: StatusFailed}
	if err != nil {
		job.Error = err.Error()
	}
	s.jobs[id] = job
}

// Get returns the job and whether it exists.
func (s *Store) Get(id string) (Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	return job, ok
}

// Len returns the number of tracked jobs.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}
