package output

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/willbeason/escape-fractal/pkg/animation"
	"github.com/willbeason/escape-fractal/pkg/palette"
)

// Still writes each frame as a separate image file.
//
// With a single frame the image goes to Path. Otherwise frame i goes to
// Path with "-%04d" inserted before the extension.
type Still struct {
	Path     string
	Format   Format
	Gradient palette.Gradient

	// Frames is the number of frames expected.
	Frames int
}

// NewStill returns a Still writing frames images to path, with the format taken from its extension.
func NewStill(path string, frames int) (*Still, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	return &Still{Path: path, Format: format, Gradient: palette.Earth, Frames: frames}, nil
}

// FramePath is the file frame i is written to.
func (s *Still) FramePath(i int) string {
	if s.Frames <= 1 {
		return s.Path
	}
	ext := filepath.Ext(s.Path)
	return fmt.Sprintf("%s-%04d%s", strings.TrimSuffix(s.Path, ext), i, ext)
}

func (s *Still) WriteFrame(_ context.Context, f animation.Frame) error {
	path := s.FramePath(f.Index)
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return err
		}
	}

	out, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := Encode(out, s.Gradient.RGBA(f.Grid), s.Format); err != nil {
		_ = out.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return out.Close()
}

var _ animation.Sink = (*Still)(nil)
