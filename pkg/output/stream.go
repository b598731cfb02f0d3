package output

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/coder/websocket"
	"github.com/willbeason/escape-fractal/pkg/animation"
	"github.com/willbeason/escape-fractal/pkg/grid"
)

// frameHeader is index, width, height and max iterations as uint32, then time as float64.
const frameHeader = 4*4 + 8

// ErrFrame is returned for a malformed stream message.
var ErrFrame = errors.New("output: malformed frame message")

// Stream sends each frame as one binary websocket message.
type Stream struct {
	Conn *websocket.Conn
}

func (s *Stream) WriteFrame(ctx context.Context, f animation.Frame) error {
	return s.Conn.Write(ctx, websocket.MessageBinary, EncodeFrame(f))
}

var _ animation.Sink = (*Stream)(nil)

// EncodeFrame lays f out little-endian: the header, then width*height uint32 counts in row-major order.
func EncodeFrame(f animation.Frame) []byte {
	g := f.Grid
	buf := make([]byte, frameHeader+4*g.Len())

	binary.LittleEndian.PutUint32(buf[0:], uint32(f.Index))
	binary.LittleEndian.PutUint32(buf[4:], uint32(g.Width()))
	binary.LittleEndian.PutUint32(buf[8:], uint32(g.Height()))
	binary.LittleEndian.PutUint32(buf[12:], uint32(g.MaxIterations()))
	binary.LittleEndian.PutUint64(buf[16:], math.Float64bits(f.Time))

	off := frameHeader
	for _, v := range g.Values() {
		binary.LittleEndian.PutUint32(buf[off:], uint32(v))
		off += 4
	}
	return buf
}

// DecodeFrame is the inverse of EncodeFrame.
func DecodeFrame(data []byte) (animation.Frame, error) {
	if len(data) < frameHeader {
		return animation.Frame{}, fmt.Errorf("%w: %d bytes is shorter than the header", ErrFrame, len(data))
	}

	index := int(binary.LittleEndian.Uint32(data[0:]))
	width := int(binary.LittleEndian.Uint32(data[4:]))
	height := int(binary.LittleEndian.Uint32(data[8:]))
	maxIterations := int(binary.LittleEndian.Uint32(data[12:]))
	t := math.Float64frombits(binary.LittleEndian.Uint64(data[16:]))

	body := data[frameHeader:]
	if len(body) != 4*width*height {
		return animation.Frame{}, fmt.Errorf("%w: %d body bytes for a %dx%d grid", ErrFrame, len(body), width, height)
	}

	values := make([]int, width*height)
	for i := range values {
		values[i] = int(binary.LittleEndian.Uint32(body[4*i:]))
	}

	g, err := grid.FromValues(width, height, maxIterations, values)
	if err != nil {
		return animation.Frame{}, fmt.Errorf("%w: %w", ErrFrame, err)
	}
	return animation.Frame{Index: index, Time: t, Grid: g}, nil
}
