package attendance

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
)

// failFrame marks a frame the fake detector refuses to process.
const failFrame byte = 0xFF

// byteDetector treats every byte of a frame as a detected class id.
type byteDetector struct {
	calls atomic.Int32
}

func (d *byteDetector) Detect(_ context.Context, frame []byte) ([]Detection, error) {
	d.calls.Add(1)
	if len(frame) > 0 && frame[0] == failFrame {
		return nil, errors.New("corrupt frame")
	}
	out := make([]Detection, 0, len(frame))
	for _, b := range frame {
		out = append(out, Detection{ClassID: int(b), Confidence: 0.9})
	}
	return out, nil
}

// blockingDetector never answers before the context is done.
type blockingDetector struct{}

func (blockingDetector) Detect(ctx context.Context, _ []byte) ([]Detection, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type sliceSource struct {
	frames  [][]byte
	rate    float64
	pos     int
	failAt  int
	failErr error
	closed  bool
}

func newSliceSource(rate float64, frames ...[]byte) *sliceSource {
	return &sliceSource{frames: frames, rate: rate, failAt: -1}
}

func (s *sliceSource) Next(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos == s.failAt {
		return nil, s.failErr
	}
	if s.pos >= len(s.frames) {
		return nil, io.EOF
	}
	f := s.frames[s.pos]
	s.pos++
	return f, nil
}

func (s *sliceSource) FrameRate() float64 { return s.rate }

func (s *sliceSource) Close() error {
	s.closed = true
	return nil
}

func repeat(frame []byte, n int) [][]byte {
	out := make([][]byte, n)
	for i := range out {
		out[i] = frame
	}
	return out
}
