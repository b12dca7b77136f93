package server

import (
	"github.com/jaki95/timeline-editor/internal/domain"
	"github.com/jaki95/timeline-editor/internal/engine"
)

// TimelineResponse is the full editable state
type TimelineResponse struct {
	Tracks []domain.Track `json:"tracks"`
	Clips  []domain.Clip  `json:"clips"`
	Status engine.Status  `json:"status"`
}

// DeltaRequest carries a move or trim amount in seconds
type DeltaRequest struct {
	Delta *float64 `json:"delta" binding:"required"`
}

// SplitRequest carries the timeline position of a cut
type SplitRequest struct {
	At *float64 `json:"at" binding:"required"`
}

// SplitResponse reports the halves of a split. Both are nil when the cut
// landed too close to an edge.
type SplitResponse struct {
	Left  *domain.Clip `json:"left"`
	Right *domain.Clip `json:"right"`
}

// ClipRequest names a clip
type ClipRequest struct {
	ClipID string `json:"clipId"`
}

// SeekRequest carries a timeline position in seconds
type SeekRequest struct {
	Position *float64 `json:"position" binding:"required"`
}

// MessageResponse represents a generic message payload used for success responses.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents a generic error payload used for error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}
