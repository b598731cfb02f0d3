// Package grid holds the per-frame field of escape counts.
package grid

import (
	"errors"
	"fmt"
)

// ErrShape is returned when cell data does not match the grid's dimensions.
var ErrShape = errors.New("grid shape mismatch")

// A Grid is a dense Width x Height field of escape counts in [0, MaxIterations].
// A Grid is never modified after it is returned by a Builder.
type Grid struct {
	width         int
	height        int
	maxIterations int

	cells []int
}

// Width is the number of columns.
func (g *Grid) Width() int { return g.width }

// Height is the number of rows.
func (g *Grid) Height() int { return g.height }

// MaxIterations is the iteration bound the grid was computed with.
// A cell equal to MaxIterations did not diverge.
func (g *Grid) MaxIterations() int { return g.maxIterations }

// Len is the number of cells.
func (g *Grid) Len() int { return len(g.cells) }

// At returns the count of pixel (x, y).
func (g *Grid) At(x, y int) int {
	return g.cells[x+y*g.width]
}

// Row returns a copy of row y.
func (g *Grid) Row(y int) []int {
	row := make([]int, g.width)
	copy(row, g.cells[y*g.width:(y+1)*g.width])
	return row
}

// Values returns a copy of all cells in row-major order.
func (g *Grid) Values() []int {
	values := make([]int, len(g.cells))
	copy(values, g.cells)
	return values
}

// Equal reports whether g and o have the same shape, bound and cells.
func (g *Grid) Equal(o *Grid) bool {
	if g.width != o.width || g.height != o.height || g.maxIterations != o.maxIterations {
		return false
	}
	for i, c := range g.cells {
		if o.cells[i] != c {
			return false
		}
	}
	return true
}

// Diff returns the index of the first differing cell, or -1 if g and o have equal cells.
// Grids of different shape differ at 0.
func (g *Grid) Diff(o *Grid) int {
	if len(g.cells) != len(o.cells) || g.width != o.width {
		return 0
	}
	for i, c := range g.cells {
		if o.cells[i] != c {
			return i
		}
	}
	return -1
}

// A Builder collects cells for a Grid.
//
// Distinct goroutines may call Set concurrently as long as they write disjoint cells.
type Builder struct {
	g *Grid
}

// NewBuilder allocates a Builder for a width x height grid bounded by maxIterations.
func NewBuilder(width, height, maxIterations int) *Builder {
	return &Builder{g: &Grid{
		width:         width,
		height:        height,
		maxIterations: maxIterations,
		cells:         make([]int, width*height),
	}}
}

// Set stores the count of pixel (x, y).
func (b *Builder) Set(x, y, count int) {
	b.g.cells[x+y*b.g.width] = count
}

// Row exposes row y for direct writes by a single owner.
func (b *Builder) Row(y int) []int {
	return b.g.cells[y*b.g.width : (y+1)*b.g.width]
}

// Grid returns the completed grid. The Builder must not be used afterwards.
func (b *Builder) Grid() *Grid {
	g := b.g
	b.g = nil
	return g
}

// FromFloat32 builds a grid from a flat row-major buffer of counts, as returned by a compute device.
// Every value must be an integer in [0, maxIterations].
func FromFloat32(width, height, maxIterations int, buf []float32) (*Grid, error) {
	if len(buf) != width*height {
		return nil, fmt.Errorf("%w: buffer has %d values, want %d", ErrShape, len(buf), width*height)
	}

	b := NewBuilder(width, height, maxIterations)
	for i, v := range buf {
		count := int(v)
		if float32(count) != v || count < 0 || count > maxIterations {
			return nil, fmt.Errorf("%w: cell %d holds %v, want an integer in [0, %d]", ErrShape, i, v, maxIterations)
		}
		b.g.cells[i] = count
	}
	return b.Grid(), nil
}

// FromValues builds a grid from row-major counts.
func FromValues(width, height, maxIterations int, values []int) (*Grid, error) {
	if len(values) != width*height {
		return nil, fmt.Errorf("%w: %d values, want %d", ErrShape, len(values), width*height)
	}

	b := NewBuilder(width, height, maxIterations)
	copy(b.g.cells, values)
	return b.Grid(), nil
}
