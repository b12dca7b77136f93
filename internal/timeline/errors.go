package timeline

import "errors"

var (
	ErrInvalidClipState  = errors.New("invalid clip state")
	ErrTrackTypeMismatch = errors.New("track type mismatch")
	ErrTrackNotFound     = errors.New("track not found")
	ErrClipNotFound      = errors.New("clip not found")
	ErrClipboardEmpty    = errors.New("clipboard is empty")
)
