package job

import (
	"time"

	"github.com/jaki95/timeline-editor/internal/progress"
)

// Artifact describes a delivered export
type Artifact struct {
	Name     string `json:"name"`
	Location string `json:"location"`
	Size     int64  `json:"size"`
	MimeType string `json:"mimeType"`
}

// Status represents the current state of an export job
type Status struct {
	ID        string           `json:"id"`
	Status    string           `json:"status"`
	Progress  float64          `json:"progress"`
	Message   string           `json:"message"`
	Error     string           `json:"error,omitempty"`
	Width     int              `json:"width"`
	Height    int              `json:"height"`
	Profile   string           `json:"profile,omitempty"`
	Artifact  *Artifact        `json:"artifact,omitempty"`
	Events    []progress.Event `json:"events"`
	StartTime time.Time        `json:"startTime"`
	EndTime   *time.Time       `json:"endTime,omitempty"`
}

// Response represents the response for job status
type Response struct {
	Jobs       []*Status `json:"jobs"`
	Page       int       `json:"page"`
	PageSize   int       `json:"pageSize"`
	TotalJobs  int       `json:"totalJobs"`
	TotalPages int       `json:"totalPages"`
}

// Constants for job status
const (
	StatusPending    = "pending"
	StatusRecording  = "recording"
	StatusFinalizing = "finalizing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Constants for pagination
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// maxEvents bounds the event history kept per job
const maxEvents = 200
