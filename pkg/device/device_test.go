package device

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/willbeason/escape-fractal/pkg/kernels"
	"github.com/willbeason/escape-fractal/pkg/transforms"
	"github.com/willbeason/escape-fractal/pkg/viewport"
)

func newTestProgram(kernel Kernel, group image.Point) *softwareProgram {
	return &softwareProgram{entry: "test", kernel: kernel, workgroup: group, workers: 4}
}

// =============================================================================
// Registry
// =============================================================================

func TestOpen_Software(t *testing.T) {
	b, err := Open(SoftwareName)
	if err != nil {
		t.Fatalf("Open(%q) error = %v", SoftwareName, err)
	}
	if b.Name() != SoftwareName {
		t.Errorf("Name() = %q, want %q", b.Name(), SoftwareName)
	}
}

func TestOpen_Unknown(t *testing.T) {
	_, err := Open("opencl")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Open(\"opencl\") error = %v, want ErrUnavailable", err)
	}
}

func TestOpen_FactoryFails(t *testing.T) {
	Register("broken", func() (Backend, error) { return nil, errors.New("no adapter found") })
	t.Cleanup(func() { Unregister("broken") })

	_, err := Open("broken")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Open(\"broken\") error = %v, want ErrUnavailable", err)
	}
}

func TestAvailable(t *testing.T) {
	names := Available()
	found := false
	for _, n := range names {
		found = found || n == SoftwareName
	}
	if !found {
		t.Errorf("Available() = %v, want to contain %q", names, SoftwareName)
	}
}

// =============================================================================
// Compilation
// =============================================================================

func TestSoftware_CompileEscapeTime(t *testing.T) {
	s := NewSoftware(map[string]Kernel{EscapeTimeEntry: EscapeTime}, 2)

	p, err := s.Compile(kernels.EscapeTime)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	defer p.Release()

	if p.EntryPoint() != EscapeTimeEntry {
		t.Errorf("EntryPoint() = %q, want %q", p.EntryPoint(), EscapeTimeEntry)
	}
	if got := p.(*softwareProgram).workgroup; got != image.Pt(8, 8) {
		t.Errorf("workgroup = %v, want (8,8)", got)
	}
}

func TestSoftware_CompileInvalidSource(t *testing.T) {
	s := NewSoftware(map[string]Kernel{EscapeTimeEntry: EscapeTime}, 2)

	_, err := s.Compile([]byte("this is not a shader {"))
	if !errors.Is(err, ErrCompile) {
		t.Fatalf("Compile() error = %v, want ErrCompile", err)
	}

	var ce *CompileError
	if !errors.As(err, &ce) || ce.Diagnostic == "" {
		t.Errorf("Compile() error = %#v, want *CompileError with diagnostic", err)
	}
}

func TestSoftware_CompileUnknownEntry(t *testing.T) {
	s := NewSoftware(map[string]Kernel{}, 2)

	_, err := s.Compile(kernels.EscapeTime)
	if !errors.Is(err, ErrCompile) {
		t.Fatalf("Compile() error = %v, want ErrCompile", err)
	}
}

func TestWorkgroupSize(t *testing.T) {
	tcs := []struct {
		src  string
		want image.Point
	}{
		{src: "@compute @workgroup_size(8, 8) fn main() {}", want: image.Pt(8, 8)},
		{src: "@compute @workgroup_size(64) fn main() {}", want: image.Pt(64, 1)},
		{src: "@compute @workgroup_size( 16 , 4 , 1 ) fn main() {}", want: image.Pt(16, 4)},
		{src: "@compute fn main() {}", want: image.Pt(1, 1)},
	}

	for _, tc := range tcs {
		if got := workgroupSize([]byte(tc.src)); got != tc.want {
			t.Errorf("workgroupSize(%q) = %v, want %v", tc.src, got, tc.want)
		}
	}
}

// =============================================================================
// Launch
// =============================================================================

func TestProgram_LaunchCoversDomain(t *testing.T) {
	p := newTestProgram(func(x, y uint32, u *Uniforms) float32 {
		return float32(x + y*u.Width)
	}, image.Pt(8, 8))

	out, err := p.Launch(context.Background(), Uniforms{Width: 21, Height: 13})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 21*13 {
		t.Fatalf("len(out) = %d, want %d", len(out), 21*13)
	}
	for i, v := range out {
		if v != float32(i) {
			t.Fatalf("out[%d] = %v, want %d", i, v, i)
		}
	}
}

func TestProgram_LaunchEmptyDomain(t *testing.T) {
	p := newTestProgram(func(uint32, uint32, *Uniforms) float32 { return 0 }, image.Pt(8, 8))

	if _, err := p.Launch(context.Background(), Uniforms{Width: 0, Height: 4}); !errors.Is(err, ErrDomain) {
		t.Errorf("Launch() error = %v, want ErrDomain", err)
	}
}

func TestProgram_LaunchAfterRelease(t *testing.T) {
	p := newTestProgram(func(uint32, uint32, *Uniforms) float32 { return 0 }, image.Pt(8, 8))
	p.Release()

	if _, err := p.Launch(context.Background(), Uniforms{Width: 1, Height: 1}); !errors.Is(err, ErrReleased) {
		t.Errorf("Launch() error = %v, want ErrReleased", err)
	}
}

func TestProgram_LaunchCanceledBeforeStart(t *testing.T) {
	p := newTestProgram(func(uint32, uint32, *Uniforms) float32 { return 0 }, image.Pt(8, 8))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := p.Launch(ctx, Uniforms{Width: 1, Height: 1}); !errors.Is(err, context.Canceled) {
		t.Errorf("Launch() error = %v, want context.Canceled", err)
	}
}

func TestProgram_LaunchSingleOwner(t *testing.T) {
	var inFlight, maxInFlight atomic.Int32

	p := newTestProgram(func(x, y uint32, u *Uniforms) float32 {
		if x == 0 && y == 0 {
			n := inFlight.Add(1)
			for {
				m := maxInFlight.Load()
				if n <= m || maxInFlight.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			inFlight.Add(-1)
		}
		return 0
	}, image.Pt(1, 1))

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := p.Launch(context.Background(), Uniforms{Width: 1, Height: 1}); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	if got := maxInFlight.Load(); got != 1 {
		t.Errorf("max launches in flight = %d, want 1", got)
	}
}

func TestEscapeTime_MatchesEngine(t *testing.T) {
	v := viewport.Viewport{LowerLeft: -2 - 1.5i, UpperRight: 1 + 1.5i, Width: 40, Height: 30}
	u := Uniforms{
		Width:         uint32(v.Width),
		Height:        uint32(v.Height),
		MaxIterations: 80,
		Mode:          uint32(transforms.Julia),
		Metric:        uint32(transforms.Modulus),
		Time:          1.25,
		JuliaRadius:   transforms.DefaultJuliaRadius,
		LowerLeft:     v.LowerLeft,
		UpperRight:    v.UpperRight,
	}
	c := transforms.JuliaConstant(u.Time, u.JuliaRadius)

	for y := 0; y < v.Height; y++ {
		for x := 0; x < v.Width; x++ {
			want := transforms.Julia2{C: c}.Escape(v.Map(x, y), 80, transforms.Modulus)
			if got := EscapeTime(uint32(x), uint32(y), &u); got != float32(want) {
				t.Fatalf("EscapeTime(%d, %d) = %v, want %d", x, y, got, want)
			}
		}
	}
}

func TestSplitRect(t *testing.T) {
	r := image.Rect(0, 0, 19, 10)
	tiles := splitRect(r, 8, 8)

	if len(tiles) != 6 {
		t.Fatalf("len(tiles) = %d, want 6", len(tiles))
	}

	area := 0
	for _, tile := range tiles {
		if !tile.In(r) {
			t.Errorf("tile %v outside %v", tile, r)
		}
		area += tile.Dx() * tile.Dy()
	}
	if area != 19*10 {
		t.Errorf("tiles cover %d pixels, want %d", area, 19*10)
	}
}
