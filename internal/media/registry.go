package media

import (
	"log/slog"

	"github.com/jaki95/timeline-editor/internal/domain"
)

// Registry owns one element per clip of a single media kind. Elements are
// created the first time a clip is seen and closed when the clip leaves the
// model. Reconcile is a no-op unless the model version changed.
type Registry struct {
	kind     domain.MediaKind
	factory  Factory
	elements map[string]Element
	version  uint64
	synced   bool
	logger   *slog.Logger

	// OnCreate and OnRemove, when set, are called as elements come and go.
	OnCreate func(clip domain.Clip, el Element)
	OnRemove func(clipID string, el Element)
}

// NewRegistry creates a registry for clips of kind.
func NewRegistry(kind domain.MediaKind, factory Factory) *Registry {
	return &Registry{
		kind:     kind,
		factory:  factory,
		elements: make(map[string]Element),
		logger:   slog.Default().With("component", "registry", "kind", string(kind)),
	}
}

// Reconcile brings the element set in line with clips.
func (r *Registry) Reconcile(version uint64, clips []domain.Clip) {
	if r.synced && version == r.version {
		return
	}
	r.version = version
	r.synced = true

	live := make(map[string]bool, len(clips))
	for _, c := range clips {
		if c.Kind != r.kind {
			continue
		}
		live[c.ID] = true
		if _, ok := r.elements[c.ID]; ok {
			continue
		}
		el, err := r.factory.Open(c)
		if err != nil {
			r.logger.Warn("Failed to open media element", "clip", c.ID, "source", c.Source, "error", err)
			continue
		}
		r.elements[c.ID] = el
		if r.OnCreate != nil {
			r.OnCreate(c, el)
		}
	}

	for id, el := range r.elements {
		if live[id] {
			continue
		}
		r.remove(id, el)
	}
}

// Get returns the element for a clip.
func (r *Registry) Get(clipID string) (Element, bool) {
	el, ok := r.elements[clipID]
	return el, ok
}

// Len returns the number of live elements.
func (r *Registry) Len() int {
	return len(r.elements)
}

// Each calls fn for every live element.
func (r *Registry) Each(fn func(clipID string, el Element)) {
	for id, el := range r.elements {
		fn(id, el)
	}
}

// Close releases every element.
func (r *Registry) Close() {
	for id, el := range r.elements {
		r.remove(id, el)
	}
	r.synced = false
}

func (r *Registry) remove(id string, el Element) {
	delete(r.elements, id)
	if r.OnRemove != nil {
		r.OnRemove(id, el)
	}
	if err := el.Close(); err != nil {
		r.logger.Debug("Failed to close media element", "clip", id, "error", err)
	}
}
