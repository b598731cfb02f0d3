// Package palette maps escape counts to colours.
package palette

import (
	"image"
	"image/color"

	"github.com/willbeason/escape-fractal/pkg/grid"
)

// A Stop pins a colour to a position in [0, 1].
type Stop struct {
	At    float64
	Color color.RGBA
}

// A Gradient interpolates linearly between stops sorted by At.
type Gradient []Stop

// Earth runs from deep blue through green and tan to white.
var Earth = Gradient{
	{At: 0.00, Color: color.RGBA{R: 0x00, G: 0x00, B: 0x00, A: 0xff}},
	{At: 0.10, Color: color.RGBA{R: 0x0c, G: 0x24, B: 0x6b, A: 0xff}},
	{At: 0.30, Color: color.RGBA{R: 0x2a, G: 0x6e, B: 0x7d, A: 0xff}},
	{At: 0.50, Color: color.RGBA{R: 0x4f, G: 0x94, B: 0x52, A: 0xff}},
	{At: 0.70, Color: color.RGBA{R: 0x9c, G: 0xa8, B: 0x5c, A: 0xff}},
	{At: 0.85, Color: color.RGBA{R: 0xc8, G: 0xa7, B: 0x8a, A: 0xff}},
	{At: 1.00, Color: color.RGBA{R: 0xfd, G: 0xfb, B: 0xfb, A: 0xff}},
}

// At returns the colour at position f, clamped to [0, 1].
func (g Gradient) At(f float64) color.RGBA {
	if len(g) == 0 {
		return color.RGBA{A: 0xff}
	}
	if f <= g[0].At {
		return g[0].Color
	}

	for i := 1; i < len(g); i++ {
		if f <= g[i].At {
			lo, hi := g[i-1], g[i]
			t := (f - lo.At) / (hi.At - lo.At)
			return color.RGBA{
				R: mix(lo.Color.R, hi.Color.R, t),
				G: mix(lo.Color.G, hi.Color.G, t),
				B: mix(lo.Color.B, hi.Color.B, t),
				A: mix(lo.Color.A, hi.Color.A, t),
			}
		}
	}
	return g[len(g)-1].Color
}

// Palette samples g at n evenly spaced positions, n >= 2.
func (g Gradient) Palette(n int) color.Palette {
	p := make(color.Palette, n)
	for i := range p {
		p[i] = g.At(float64(i) / float64(n-1))
	}
	return p
}

// Normalize is the position of count in a grid bounded by maxIterations.
func Normalize(count, maxIterations int) float64 {
	if maxIterations <= 0 {
		return 0
	}
	return float64(count) / float64(maxIterations)
}

// RGBA colours every cell of field.
func (g Gradient) RGBA(field *grid.Grid) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, field.Width(), field.Height()))
	for y := 0; y < field.Height(); y++ {
		for x := 0; x < field.Width(); x++ {
			img.SetRGBA(x, y, g.At(Normalize(field.At(x, y), field.MaxIterations())))
		}
	}
	return img
}

// Paletted colours every cell of field with a 256-entry palette sampled from g.
func (g Gradient) Paletted(field *grid.Grid) *image.Paletted {
	const n = 256

	img := image.NewPaletted(image.Rect(0, 0, field.Width(), field.Height()), g.Palette(n))
	for y := 0; y < field.Height(); y++ {
		for x := 0; x < field.Width(); x++ {
			f := Normalize(field.At(x, y), field.MaxIterations())
			img.SetColorIndex(x, y, uint8(f*(n-1)+0.5))
		}
	}
	return img
}

func mix(a, b uint8, t float64) uint8 {
	return uint8(float64(a) + (float64(b)-float64(a))*t + 0.5)
}
