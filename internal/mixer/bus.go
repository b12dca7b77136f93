package mixer

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/jaki95/timeline-editor/internal/domain"
	"github.com/jaki95/timeline-editor/internal/media"
)

var ErrAlreadyConnected = errors.New("channel already connected")

// Sink is a destination channels fan out to.
type Sink interface {
	Name() string
	Connect(ch *Channel) error
	Disconnect(clipID string)
}

// Bus is a mix destination. A plain bus sums the PCM of every connected
// channel whose element is playing, windowed at the element's media time. A
// timeline bus windows each channel at its clip's local time for the bus
// position instead and silences samples outside the clip's trimmed range.
type Bus struct {
	name     string
	timeline bool

	mu       sync.Mutex
	position float64
	order    []string
	inputs   map[string]*Channel
	scratch  []int16
	acc      []int32
}

// NewBus creates an empty bus.
func NewBus(name string) *Bus {
	return &Bus{name: name, inputs: make(map[string]*Channel)}
}

// NewTimelineBus creates an empty bus mixed against SetPosition.
func NewTimelineBus(name string) *Bus {
	b := NewBus(name)
	b.timeline = true
	return b
}

// SetPosition sets the timeline position a timeline bus mixes up to.
func (b *Bus) SetPosition(position float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.position = position
}

func (b *Bus) Name() string {
	return b.name
}

// Connect adds ch as an input. Connecting the same clip twice fails with
// ErrAlreadyConnected.
func (b *Bus) Connect(ch *Channel) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.inputs[ch.ClipID()]; ok {
		return fmt.Errorf("%w: %s on %s", ErrAlreadyConnected, ch.ClipID(), b.name)
	}
	b.inputs[ch.ClipID()] = ch
	b.order = append(b.order, ch.ClipID())
	return nil
}

func (b *Bus) Disconnect(clipID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.inputs[clipID]; !ok {
		return
	}
	delete(b.inputs, clipID)
	for i, id := range b.order {
		if id == clipID {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}

// Inputs returns the number of connected channels.
func (b *Bus) Inputs() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.inputs)
}

// Mix fills dst with interleaved stereo samples ending at the current
// position.
func (b *Bus) Mix(dst []int16) {
	clear(dst)

	b.mu.Lock()
	defer b.mu.Unlock()

	if cap(b.acc) < len(dst) {
		b.acc = make([]int32, len(dst))
		b.scratch = make([]int16, len(dst))
	}
	acc := b.acc[:len(dst)]
	scratch := b.scratch[:len(dst)]
	clear(acc)

	window := float64(len(dst)/media.Channels) / media.SampleRate
	mixed := false
	for _, id := range b.order {
		ch := b.inputs[id]
		el := ch.Element()
		src, ok := el.(media.PCMSource)
		if !ok || !el.Ready() {
			continue
		}
		if b.timeline {
			if !mixClip(src, ch.Clip(), b.position, window, scratch) {
				continue
			}
		} else {
			if el.Paused() {
				continue
			}
			src.PCMAt(el.CurrentTime()-window, scratch)
		}
		for i, s := range scratch {
			acc[i] += int32(s)
		}
		mixed = true
	}
	if !mixed {
		return
	}

	for i, v := range acc {
		dst[i] = clip16(v)
	}
}

// mixClip reads the window ending at clip's local time for position and
// zeroes the samples that fall outside the clip's trimmed range. It reports
// false when the window misses the clip entirely.
func mixClip(src media.PCMSource, clip domain.Clip, position, window float64, dst []int16) bool {
	end := clip.LocalTime(position)
	from := end - window
	in, out := clip.Offset, clip.Offset+clip.Duration
	if end <= in || from >= out {
		return false
	}
	src.PCMAt(from, dst)

	frames := len(dst) / media.Channels
	first := min(max(int(math.Ceil((in-from)*media.SampleRate-1e-6)), 0), frames)
	last := min(max(int(math.Ceil((out-from)*media.SampleRate-1e-6)), 0), frames)
	clear(dst[:first*media.Channels])
	clear(dst[last*media.Channels:])
	return true
}

func clip16(v int32) int16 {
	switch {
	case v > math.MaxInt16:
		return math.MaxInt16
	case v < math.MinInt16:
		return math.MinInt16
	default:
		return int16(v)
	}
}
