package job

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/jaki95/timeline-editor/internal/progress"
)

// Manager keeps the history of export jobs
type Manager struct {
	mu   sync.RWMutex
	jobs map[string]*Status
}

// NewManager creates a new job manager
func NewManager() *Manager {
	return &Manager{
		jobs: make(map[string]*Status),
	}
}

// CreateJob creates a new job for an export at the given size
func (m *Manager) CreateJob(width, height int) *Status {
	job := &Status{
		ID:        ulid.Make().String(),
		Status:    StatusPending,
		Message:   "Export created",
		Width:     width,
		Height:    height,
		Events:    []progress.Event{},
		StartTime: time.Now(),
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.mu.Unlock()
	return job.clone()
}

// GetJob retrieves a copy of a job by ID
func (m *Manager) GetJob(jobID string) (*Status, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, exists := m.jobs[jobID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, jobID)
	}
	return job.clone(), nil
}

// SetProfile records the negotiated encoder profile
func (m *Manager) SetProfile(jobID, profile string) error {
	return m.update(jobID, func(job *Status) error {
		job.Profile = profile
		return nil
	})
}

// RecordEvent appends a progress event and mirrors it on the job status
func (m *Manager) RecordEvent(jobID string, event progress.Event) error {
	return m.update(jobID, func(job *Status) error {
		if isFinal(job.Status) {
			return fmt.Errorf("%w: %s", ErrInvalidState, job.Status)
		}
		job.Events = append(job.Events, event)
		if len(job.Events) > maxEvents {
			job.Events = job.Events[len(job.Events)-maxEvents:]
		}
		job.Progress = event.Progress
		job.Message = event.Message
		switch event.Stage {
		case progress.StageRecording:
			job.Status = StatusRecording
		case progress.StageFinalizing, progress.StageDelivering:
			job.Status = StatusFinalizing
		}
		return nil
	})
}

// Complete marks a job as delivered
func (m *Manager) Complete(jobID string, artifact Artifact) error {
	return m.update(jobID, func(job *Status) error {
		if isFinal(job.Status) {
			return fmt.Errorf("%w: %s", ErrInvalidState, job.Status)
		}
		job.Status = StatusCompleted
		job.Progress = 100
		job.Message = "Export complete"
		job.Artifact = &artifact
		endTime := time.Now()
		job.EndTime = &endTime
		return nil
	})
}

// Fail marks a job as failed
func (m *Manager) Fail(jobID string, err error) error {
	return m.update(jobID, func(job *Status) error {
		if isFinal(job.Status) {
			return fmt.Errorf("%w: %s", ErrInvalidState, job.Status)
		}
		job.Status = StatusFailed
		job.Error = err.Error()
		job.Message = "Export failed"
		endTime := time.Now()
		job.EndTime = &endTime
		return nil
	})
}

// ListJobs lists all jobs with pagination, newest first
func (m *Manager) ListJobs(page, pageSize int) *Response {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > MaxPageSize {
		pageSize = DefaultPageSize
	}

	m.mu.RLock()
	jobs := make([]*Status, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, job.clone())
	}
	m.mu.RUnlock()

	// ULIDs sort by creation time
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].ID > jobs[j].ID
	})

	start := (page - 1) * pageSize
	end := start + pageSize

	if start >= len(jobs) {
		return &Response{
			Jobs:       []*Status{},
			Page:       page,
			PageSize:   pageSize,
			TotalJobs:  len(jobs),
			TotalPages: (len(jobs) + pageSize - 1) / pageSize,
		}
	}

	if end > len(jobs) {
		end = len(jobs)
	}

	return &Response{
		Jobs:       jobs[start:end],
		Page:       page,
		PageSize:   pageSize,
		TotalJobs:  len(jobs),
		TotalPages: (len(jobs) + pageSize - 1) / pageSize,
	}
}

func (m *Manager) update(jobID string, fn func(*Status) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, exists := m.jobs[jobID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, jobID)
	}
	return fn(job)
}

func (s *Status) clone() *Status {
	c := *s
	c.Events = append([]progress.Event(nil), s.Events...)
	if s.Artifact != nil {
		a := *s.Artifact
		c.Artifact = &a
	}
	if s.EndTime != nil {
		e := *s.EndTime
		c.EndTime = &e
	}
	return &c
}

func isFinal(status string) bool {
	return status == StatusCompleted || status == StatusFailed
}
