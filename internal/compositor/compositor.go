// Package compositor renders the active video frame onto a single surface.
package compositor

import (
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"math"
	"sync"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/jaki95/timeline-editor/internal/domain"
)

const placeholderText = "NO SIGNAL"

var placeholderColor = color.RGBA{R: 0x66, G: 0x66, B: 0x66, A: 0xff}

// Compositor owns the render surface. It is safe for concurrent use, though
// the engine only renders from its tick.
type Compositor struct {
	mu      sync.RWMutex
	target  Target
	surface *image.RGBA
	label   *image.RGBA
	logger  *slog.Logger
}

// New creates a compositor for target.
func New(target Target) (*Compositor, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}
	return &Compositor{
		target:  target,
		surface: image.NewRGBA(image.Rect(0, 0, defaultWidth, defaultHeight)),
		label:   renderLabel(),
		logger:  slog.Default().With("component", "compositor"),
	}, nil
}

// Target returns the current resolution request.
func (c *Compositor) Target() Target {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.target
}

// SetTarget changes the resolution request. The surface is resized on the
// next Render.
func (c *Compositor) SetTarget(target Target) error {
	if err := target.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.target = target
	return nil
}

// Size returns the current surface dimensions.
func (c *Compositor) Size() (int, int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b := c.surface.Bounds()
	return b.Dx(), b.Dy()
}

// Render paints one frame. A nil frame draws the placeholder.
func (c *Compositor) Render(clips []domain.Clip, frame image.Image) {
	c.mu.Lock()
	defer c.mu.Unlock()

	w, h := c.target.Resolve(clips)
	if b := c.surface.Bounds(); b.Dx() != w || b.Dy() != h {
		c.logger.Debug("Resizing surface", "width", w, "height", h, "mode", c.target.Mode)
		c.surface = image.NewRGBA(image.Rect(0, 0, w, h))
	}

	bounds := c.surface.Bounds()
	draw.Draw(c.surface, bounds, image.Black, image.Point{}, draw.Src)

	if frame != nil && !frame.Bounds().Empty() {
		draw.ApproxBiLinear.Scale(c.surface, bounds, frame, frame.Bounds(), draw.Src, nil)
		return
	}
	c.drawPlaceholder()
}

// Snapshot returns a copy of the surface.
func (c *Compositor) Snapshot() *image.RGBA {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := image.NewRGBA(c.surface.Bounds())
	copy(out.Pix, c.surface.Pix)
	return out
}

// CopyPixels copies the raw RGBA bytes of the surface into dst, growing it as
// needed, and returns the result with the surface size.
func (c *Compositor) CopyPixels(dst []byte) ([]byte, int, int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b := c.surface.Bounds()
	if cap(dst) < len(c.surface.Pix) {
		dst = make([]byte, len(c.surface.Pix))
	}
	dst = dst[:len(c.surface.Pix)]
	copy(dst, c.surface.Pix)
	return dst, b.Dx(), b.Dy()
}

// EncodePNG writes the surface as a PNG image.
func (c *Compositor) EncodePNG(w io.Writer) error {
	return png.Encode(w, c.Snapshot())
}

func (c *Compositor) drawPlaceholder() {
	bounds := c.surface.Bounds()
	lb := c.label.Bounds()

	scale := float64(bounds.Dy()) / 20 / float64(lb.Dy())
	w := int(math.Round(float64(lb.Dx()) * scale))
	h := int(math.Round(float64(lb.Dy()) * scale))
	if w <= 0 || h <= 0 {
		return
	}
	x := (bounds.Dx() - w) / 2
	y := (bounds.Dy() - h) / 2
	draw.NearestNeighbor.Scale(c.surface, image.Rect(x, y, x+w, y+h), c.label, lb, draw.Over, nil)
}

func renderLabel() *image.RGBA {
	face := basicfont.Face7x13
	width := font.MeasureString(face, placeholderText).Ceil()
	label := image.NewRGBA(image.Rect(0, 0, width, face.Height))
	d := &font.Drawer{
		Dst:  label,
		Src:  image.NewUniform(placeholderColor),
		Face: face,
		Dot:  fixed.P(0, face.Ascent),
	}
	d.DrawString(placeholderText)
	return label
}
