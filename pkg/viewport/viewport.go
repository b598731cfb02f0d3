package viewport

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalid is returned when a Viewport cannot describe a non-empty region
// of the plane sampled by a non-empty pixel grid.
var ErrInvalid = errors.New("invalid viewport")

// A Viewport is the rectangle of the complex plane mapped onto a Width x Height pixel grid.
//
// Pixel (0, 0) samples LowerLeft. Pixel indices never reach Width or Height, so the last
// column and row sample one cell short of UpperRight.
type Viewport struct {
	LowerLeft  complex128
	UpperRight complex128

	Width  int
	Height int
}

// New returns a validated Viewport.
func New(lowerLeft, upperRight complex128, width, height int) (Viewport, error) {
	v := Viewport{
		LowerLeft:  lowerLeft,
		UpperRight: upperRight,
		Width:      width,
		Height:     height,
	}

	return v, v.Validate()
}

// Validate reports whether v satisfies its invariants.
func (v Viewport) Validate() error {
	if v.Width <= 0 || v.Height <= 0 {
		return fmt.Errorf("%w: resolution must be positive, got %dx%d", ErrInvalid, v.Width, v.Height)
	}

	for _, f := range []float64{real(v.LowerLeft), imag(v.LowerLeft), real(v.UpperRight), imag(v.UpperRight)} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: bounds must be finite, got [%v, %v]", ErrInvalid, v.LowerLeft, v.UpperRight)
		}
	}

	if !(real(v.UpperRight) > real(v.LowerLeft)) {
		return fmt.Errorf("%w: real bounds are degenerate, %g >= %g", ErrInvalid, real(v.LowerLeft), real(v.UpperRight))
	}
	if !(imag(v.UpperRight) > imag(v.LowerLeft)) {
		return fmt.Errorf("%w: imaginary bounds are degenerate, %g >= %g", ErrInvalid, imag(v.LowerLeft), imag(v.UpperRight))
	}

	return nil
}

// Pixels is the number of cells in the grid v describes.
func (v Viewport) Pixels() int {
	return v.Width * v.Height
}

// Map returns the point of the plane sampled by pixel (x, y).
//
// Interpolation is written as (1-t)*lo + t*hi so that Map(0, 0) is exactly LowerLeft and
// Map(Width, Height) is exactly UpperRight. Map is total: indices outside the grid extrapolate.
func (v Viewport) Map(x, y int) complex128 {
	return complex(
		lerp(real(v.LowerLeft), real(v.UpperRight), float64(x)/float64(v.Width)),
		lerp(imag(v.LowerLeft), imag(v.UpperRight), float64(y)/float64(v.Height)),
	)
}

// Nearest returns the in-grid pixel whose sample is closest to z.
// Points outside the viewport clamp to the nearest edge pixel.
func (v Viewport) Nearest(z complex128) (x, y int) {
	x = nearest(real(z), real(v.LowerLeft), real(v.UpperRight), v.Width)
	y = nearest(imag(z), imag(v.LowerLeft), imag(v.UpperRight), v.Height)
	return x, y
}

// CellSize is the distance in the plane between horizontally and vertically adjacent samples.
func (v Viewport) CellSize() complex128 {
	return complex(
		(real(v.UpperRight)-real(v.LowerLeft))/float64(v.Width),
		(imag(v.UpperRight)-imag(v.LowerLeft))/float64(v.Height),
	)
}

func lerp(lo, hi, t float64) float64 {
	return (1-t)*lo + t*hi
}

func nearest(f, lo, hi float64, n int) int {
	i := int(math.Round((f - lo) / (hi - lo) * float64(n)))
	return max(0, min(n-1, i))
}
