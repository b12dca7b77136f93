package domain

// MediaKind is the kind of media a track hosts.
type MediaKind string

const (
	KindVideo MediaKind = "video"
	KindAudio MediaKind = "audio"
)

// Valid reports whether k is a known media kind.
func (k MediaKind) Valid() bool {
	return k == KindVideo || k == KindAudio
}

// Track is a fixed-kind lane that hosts clips.
type Track struct {
	ID    string    `json:"id"`
	Kind  MediaKind `json:"kind"`
	Name  string    `json:"name"`
	Muted bool      `json:"muted"`
}

// Clip is a placed, trimmed reference to an imported media source.
// All time fields are seconds.
type Clip struct {
	ID             string    `json:"id"`
	TrackID        string    `json:"track_id"`
	Kind           MediaKind `json:"kind"`
	Source         string    `json:"source"`
	Name           string    `json:"name"`
	Start          float64   `json:"start"`
	Duration       float64   `json:"duration"`
	Offset         float64   `json:"offset"`
	SourceDuration float64   `json:"source_duration"`
	Width          int       `json:"width,omitempty"`
	Height         int       `json:"height,omitempty"`
}

// End returns the timeline position of the clip's trailing edge.
func (c Clip) End() float64 {
	return c.Start + c.Duration
}

// Contains reports whether position p falls inside [Start, End).
func (c Clip) Contains(p float64) bool {
	return c.Start <= p && p < c.End()
}

// LocalTime maps a timeline position to the clip's media position.
func (c Clip) LocalTime(p float64) float64 {
	return p - c.Start + c.Offset
}

// Pixels returns width*height, zero for audio clips.
func (c Clip) Pixels() int {
	return c.Width * c.Height
}

// MediaInfo is what the metadata probe reports for a media file.
type MediaInfo struct {
	Duration float64 `json:"duration"`
	Width    int     `json:"width,omitempty"`
	Height   int     `json:"height,omitempty"`
}

// Snapshot is a serializable copy of a timeline's tracks and clips.
type Snapshot struct {
	Tracks []Track `json:"tracks"`
	Clips  []Clip  `json:"clips"`
}
