package output

import (
	"context"
	"errors"
	"image/gif"
	"io"
	"math"

	"github.com/willbeason/escape-fractal/pkg/animation"
	"github.com/willbeason/escape-fractal/pkg/palette"
)

// ErrClosed is returned when writing to a closed sink.
var ErrClosed = errors.New("output: sink closed")

// GIF collects frames into an animated GIF written to W on Close.
type GIF struct {
	W        io.Writer
	Gradient palette.Gradient

	// Delay is the display time of each frame in 100ths of a second.
	Delay int

	anim   gif.GIF
	closed bool
}

// NewGIF returns a GIF sink playing at fps frames per second.
func NewGIF(w io.Writer, fps float64) *GIF {
	return &GIF{W: w, Gradient: palette.Earth, Delay: DelayOf(fps)}
}

// DelayOf converts a frame rate to a GIF frame delay, at least one 100th of a second.
func DelayOf(fps float64) int {
	if fps <= 0 {
		return 1
	}
	return max(1, int(math.Round(100/fps)))
}

func (g *GIF) WriteFrame(_ context.Context, f animation.Frame) error {
	if g.closed {
		return ErrClosed
	}
	g.anim.Image = append(g.anim.Image, g.Gradient.Paletted(f.Grid))
	g.anim.Delay = append(g.anim.Delay, g.Delay)
	return nil
}

// Len is the number of frames collected.
func (g *GIF) Len() int {
	return len(g.anim.Image)
}

// Close encodes the collected frames. An empty animation writes nothing.
func (g *GIF) Close() error {
	if g.closed {
		return nil
	}
	g.closed = true

	if len(g.anim.Image) == 0 {
		return nil
	}
	return gif.EncodeAll(g.W, &g.anim)
}

var _ animation.Sink = (*GIF)(nil)
