package device

import (
	"context"
	"fmt"
	"image"
	"regexp"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/gogpu/naga"
	"github.com/willbeason/escape-fractal/pkg/logging"
	"golang.org/x/sync/errgroup"
)

// SoftwareName is the registry name of the software backend.
const SoftwareName = "software"

// spirvMagic is the first word of every SPIR-V module.
const spirvMagic = 0x07230203

// A Kernel is the host implementation of one compute entry point, invoked once per index.
type Kernel func(x, y uint32, u *Uniforms) float32

var (
	entryPattern     = regexp.MustCompile(`@compute\b[^{]*?\bfn\s+([A-Za-z_][A-Za-z0-9_]*)`)
	workgroupPattern = regexp.MustCompile(`@workgroup_size\(\s*(\d+)\s*(?:,\s*(\d+)\s*)?`)
)

func init() {
	Register(SoftwareName, func() (Backend, error) {
		return NewSoftware(map[string]Kernel{EscapeTimeEntry: EscapeTime}, 0), nil
	})
}

// Software is a Backend that validates WGSL programs with naga and executes them
// on host goroutines, one goroutine per workgroup tile.
type Software struct {
	kernels map[string]Kernel
	workers int
}

// NewSoftware returns a software backend able to run the passed entry points.
// If workers is 0 or negative, GOMAXPROCS is used.
func NewSoftware(kernels map[string]Kernel, workers int) *Software {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Software{kernels: kernels, workers: workers}
}

func (s *Software) Name() string { return SoftwareName }

// Compile compiles WGSL source to SPIR-V and binds its compute entry point to a host kernel.
func (s *Software) Compile(source []byte) (Program, error) {
	start := time.Now()

	spirv, err := naga.Compile(string(source))
	if err != nil {
		return nil, &CompileError{Backend: SoftwareName, Diagnostic: err.Error(), Err: err}
	}
	if len(spirv) < 4 || len(spirv)%4 != 0 {
		return nil, &CompileError{Backend: SoftwareName, Diagnostic: fmt.Sprintf("SPIR-V output has %d bytes, want a non-empty multiple of 4", len(spirv))}
	}
	if magic := uint32(spirv[0]) | uint32(spirv[1])<<8 | uint32(spirv[2])<<16 | uint32(spirv[3])<<24; magic != spirvMagic {
		return nil, &CompileError{Backend: SoftwareName, Diagnostic: fmt.Sprintf("SPIR-V magic is %#x, want %#x", magic, spirvMagic)}
	}

	m := entryPattern.FindSubmatch(source)
	if m == nil {
		return nil, &CompileError{Backend: SoftwareName, Diagnostic: "no @compute entry point"}
	}
	entry := string(m[1])

	kernel, ok := s.kernels[entry]
	if !ok {
		return nil, &CompileError{Backend: SoftwareName, Diagnostic: fmt.Sprintf("entry point %q has no host kernel", entry)}
	}

	group := workgroupSize(source)

	logging.Logger().Info("compiled kernel",
		"backend", SoftwareName,
		"entry", entry,
		"spirv_words", len(spirv)/4,
		"workgroup", group,
		"elapsed", time.Since(start))

	return &softwareProgram{
		entry:     entry,
		kernel:    kernel,
		workgroup: group,
		workers:   s.workers,
	}, nil
}

// workgroupSize reads @workgroup_size from source, defaulting missing dimensions to 1.
func workgroupSize(source []byte) image.Point {
	group := image.Pt(1, 1)

	m := workgroupPattern.FindSubmatch(source)
	if m == nil {
		return group
	}
	if x, err := strconv.Atoi(string(m[1])); err == nil && x > 0 {
		group.X = x
	}
	if len(m[2]) > 0 {
		if y, err := strconv.Atoi(string(m[2])); err == nil && y > 0 {
			group.Y = y
		}
	}
	return group
}

type softwareProgram struct {
	entry     string
	kernel    Kernel
	workgroup image.Point
	workers   int

	// mu makes the program single-owner: one launch at a time.
	mu       sync.Mutex
	released bool
}

func (p *softwareProgram) EntryPoint() string { return p.entry }

func (p *softwareProgram) Launch(ctx context.Context, u Uniforms) ([]float32, error) {
	if u.Width == 0 || u.Height == 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrDomain, u.Width, u.Height)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.released {
		return nil, ErrReleased
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]float32, int(u.Width)*int(u.Height))
	domain := image.Rect(0, 0, int(u.Width), int(u.Height))

	// Each workgroup writes only the cells of its own tile.
	var g errgroup.Group
	g.SetLimit(p.workers)
	for _, tile := range splitRect(domain, p.workgroup.X, p.workgroup.Y) {
		g.Go(func() error {
			for y := tile.Min.Y; y < tile.Max.Y; y++ {
				row := out[y*domain.Dx() : (y+1)*domain.Dx()]
				for x := tile.Min.X; x < tile.Max.X; x++ {
					row[x] = p.kernel(uint32(x), uint32(y), &u)
				}
			}
			return nil
		})
	}

	return out, g.Wait()
}

func (p *softwareProgram) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.released = true
}

// splitRect splits r into tiles of size tileW x tileH.
// Tiles at the right and bottom edges are smaller if r is not divisible.
func splitRect(r image.Rectangle, tileW, tileH int) []image.Rectangle {
	w := r.Dx()
	h := r.Dy()

	tiles := make([]image.Rectangle, 0, ((w+tileW-1)/tileW)*((h+tileH-1)/tileH))
	for oy := 0; oy < h; oy += tileH {
		th := min(tileH, h-oy)
		for ox := 0; ox < w; ox += tileW {
			tw := min(tileW, w-ox)
			tiles = append(tiles, image.Rect(r.Min.X+ox, r.Min.Y+oy, r.Min.X+ox+tw, r.Min.Y+oy+th))
		}
	}
	return tiles
}
