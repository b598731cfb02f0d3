package main

import (
	"bytes"
	"context"
	"errors"
	"image/gif"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/willbeason/escape-fractal/pkg/animation"
	"github.com/willbeason/escape-fractal/pkg/config"
	"github.com/willbeason/escape-fractal/pkg/device"
	"github.com/willbeason/escape-fractal/pkg/dispatch"
	"github.com/willbeason/escape-fractal/pkg/output"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := mainCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func TestRender(t *testing.T) {
	out := filepath.Join(t.TempDir(), "m.bmp")

	if _, err := execute(t, "render", "--width=20", "--height=40", "--max-iterations=30", "--out", out); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Error(err)
	}
}

func TestRender_Sequence(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "j.png")

	_, err := execute(t, "render", "--mode=julia", "--frames=3", "--width=10", "--height=10", "--out", out)
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"j-0000.png", "j-0001.png", "j-0002.png"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Error(err)
		}
	}
}

func TestAnimate(t *testing.T) {
	out := filepath.Join(t.TempDir(), "julia.gif")

	_, err := execute(t, "animate", "--frames=4", "--width=16", "--height=12", "--strategy=device", "--out", out)
	if err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	anim, err := gif.DecodeAll(f)
	if err != nil {
		t.Fatal(err)
	}
	if len(anim.Image) != 4 {
		t.Errorf("decoded %d frames, want 4", len(anim.Image))
	}
}

// cancelAfter cancels once lines newlines have been written.
type cancelAfter struct {
	lines  int
	seen   int
	cancel context.CancelFunc
}

func (w *cancelAfter) Write(p []byte) (int, error) {
	w.seen += bytes.Count(p, []byte("\n"))
	if w.seen >= w.lines {
		w.cancel()
	}
	return len(p), nil
}

func TestAnimate_CanceledKeepsDeliveredFrames(t *testing.T) {
	out := filepath.Join(t.TempDir(), "julia.gif")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmd := mainCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&cancelAfter{lines: 2, cancel: cancel})
	cmd.SetArgs([]string{"animate", "--frames=5", "--width=16", "--height=12", "--out", out})

	err := cmd.ExecuteContext(ctx)

	var abort *animation.AbortError
	if !errors.As(err, &abort) || !errors.Is(err, context.Canceled) {
		t.Fatalf("animate error = %v, want *animation.AbortError wrapping context.Canceled", err)
	}
	if abort.Delivered != 2 {
		t.Errorf("Delivered = %d, want 2", abort.Delivered)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	anim, err := gif.DecodeAll(f)
	if err != nil {
		t.Fatal(err)
	}
	if len(anim.Image) != 2 {
		t.Errorf("decoded %d frames, want the 2 delivered", len(anim.Image))
	}
}

func TestAnimate_UnavailableBackend(t *testing.T) {
	out := filepath.Join(t.TempDir(), "julia.gif")

	_, err := execute(t, "animate", "--frames=2", "--strategy=device", "--backend=opencl", "--out", out)
	if !errors.Is(err, device.ErrUnavailable) {
		t.Errorf("animate error = %v, want device.ErrUnavailable", err)
	}
}

func TestAnimate_InvalidConfig(t *testing.T) {
	_, err := execute(t, "animate", "--frames=0", "--out", filepath.Join(t.TempDir(), "x.gif"))
	if !errors.Is(err, config.ErrConfiguration) {
		t.Errorf("animate error = %v, want config.ErrConfiguration", err)
	}
}

func TestBackends(t *testing.T) {
	stdout, err := execute(t, "backends")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stdout, device.SoftwareName) {
		t.Errorf("backends output = %q, want %q listed", stdout, device.SoftwareName)
	}
}

func TestFramesHandler(t *testing.T) {
	cfg := config.Default()
	cfg.Width, cfg.Height = 12, 8

	srv := httptest.NewServer(framesHandler(cfg, dispatch.NewHost(2)))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"?frames=3", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.CloseNow()

	for i := range 3 {
		_, data, err := conn.Read(ctx)
		if err != nil {
			t.Fatal(err)
		}
		f, err := output.DecodeFrame(data)
		if err != nil {
			t.Fatal(err)
		}
		if f.Index != i || f.Grid.Width() != 12 || f.Grid.Height() != 8 {
			t.Errorf("frame %d: index %d, %dx%d grid", i, f.Index, f.Grid.Width(), f.Grid.Height())
		}
	}

	if _, _, err := conn.Read(ctx); websocket.CloseStatus(err) != websocket.StatusNormalClosure {
		t.Errorf("Read() after last frame error = %v, want normal closure", err)
	}
}

func TestFramesHandler_BadFrameCount(t *testing.T) {
	srv := httptest.NewServer(framesHandler(config.Default(), dispatch.NewHost(1)))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "?frames=none")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}
