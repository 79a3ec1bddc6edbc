package progress

import (
	"fmt"
	"sync"
	"time"
)

type Status string

const (
	StatusPending     Status = "pending"
	StatusDownloading Status = "downloading"
	StatusFinished    Status = "finished"
	StatusFailed      Status = "failed"
	// StatusUnknown is the sentinel for ids that were never created.
	StatusUnknown Status = "unknown"
)

// Terminal reports whether a status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusFinished || s == StatusFailed
}

// JobState is the poller-visible state of one download job.
type JobState struct {
	Status       Status
	Progress     int
	DownloadedMB float64
	TotalMB      float64
	Filename     string
	Error        string
	UpdatedAt    time.Time
}

// Store holds the authoritative state for every job, keyed by job id. Each
// job has a single writer (its runner) and any number of concurrent readers;
// all access goes through the mutex so readers never see a half-written
// record.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*JobState
}

func NewStore() *Store {
	return &Store{jobs: make(map[string]*JobState)}
}

// Create inserts a fresh pending entry. Ids come from uuid generation, so a
// collision points at a caller bug rather than bad luck.
func (s *Store) Create(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[id]; exists {
		return fmt.Errorf("job %s already exists", id)
	}
	s.jobs[id] = &JobState{
		Status:    StatusPending,
		UpdatedAt: time.Now(),
	}
	return nil
}

// SetDownloading records a progress report. Policy is last-write-wins: the
// percent stored is the latest reported, not a running max, matching the
// fetcher's own ordering of callbacks. Reports against a terminal state are
// dropped.
func (s *Store) SetDownloading(id string, percent int, downloadedMB, totalMB float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, exists := s.jobs[id]
	if !exists || state.Status.Terminal() {
		return
	}
	state.Status = StatusDownloading
	state.Progress = percent
	state.DownloadedMB = downloadedMB
	state.TotalMB = totalMB
	state.UpdatedAt = time.Now()
}

// SetFinished moves a job to its finished terminal state and records the
// artifact filename available for delivery.
func (s *Store) SetFinished(id string, filename string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, exists := s.jobs[id]
	if !exists || state.Status.Terminal() {
		return
	}
	state.Status = StatusFinished
	state.Progress = 100
	state.Filename = filename
	state.UpdatedAt = time.Now()
}

// SetFailed moves a job to its failed terminal state with a human-readable
// message.
func (s *Store) SetFailed(id string, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, exists := s.jobs[id]
	if !exists || state.Status.Terminal() {
		return
	}
	state.Status = StatusFailed
	state.Error = message
	state.UpdatedAt = time.Now()
}

// Get returns a snapshot copy of the job's state. Unknown ids report
// StatusUnknown with ok=false.
func (s *Store) Get(id string) (JobState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, exists := s.jobs[id]
	if !exists {
		return JobState{Status: StatusUnknown}, false
	}
	return *state, true
}

// Len reports the number of tracked jobs.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

// Reap removes terminal entries not updated within the retention window and
// returns how many were dropped. Old ids become unknown to pollers, so the
// reaper only runs when retention is configured.
func (s *Store) Reap(retention time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().Add(-retention)
	removed := 0
	for id, state := range s.jobs {
		if state.Status.Terminal() && state.UpdatedAt.Before(cutoff) {
			delete(s.jobs, id)
			removed++
		}
	}
	return removed
}
