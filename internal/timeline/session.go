package timeline

import "github.com/jaki95/timeline-editor/internal/domain"

// Session is the per-editing-session context: the current selection and a
// single-slot clipboard. The clipboard survives until overwritten.
type Session struct {
	selected  string
	clipboard *domain.Clip
}

// NewSession creates an empty session.
func NewSession() *Session {
	return &Session{}
}

// Selected returns the selected clip id, or "" when nothing is selected.
func (s *Session) Selected() string {
	return s.selected
}

// ClearSelection deselects any clip.
func (s *Session) ClearSelection() {
	s.selected = ""
}

func (s *Session) setSelected(id string) {
	s.selected = id
}

// Clipboard returns the stored snapshot, if any.
func (s *Session) Clipboard() (domain.Clip, bool) {
	if s.clipboard == nil {
		return domain.Clip{}, false
	}
	return *s.clipboard, true
}

func (s *Session) store(c domain.Clip) {
	c.ID = ""
	c.Start = 0
	s.clipboard = &c
}
