package video

import (
	"context"
	"errors"
	"io"
	"sync"
)

var ErrStreamEnded = errors.New("stream already ended")

// StreamSource is fed frame by frame from a live connection. Push and End
// belong to producers; Next and Close to the session reading it. Push and End
// are serialised, so a frame accepted by Push is always delivered before the
// io.EOF that follows End.
type StreamSource struct {
	frames    chan []byte
	frameRate float64
	ended     chan struct{}
	closed    chan struct{}
	mu        sync.Mutex
	endOnce   sync.Once
	closeOnce sync.Once
}

func NewStreamSource(frameRate float64, buffer int) *StreamSource {
	if buffer < 0 {
		buffer = 0
	}
	return &StreamSource{
		frames:    make(chan []byte, buffer),
		frameRate: frameRate,
		ended:     make(chan struct{}),
		closed:    make(chan struct{}),
	}
}

// Push blocks while the buffer is full. Close or ctx release a blocked Push;
// End waits for it.
func (s *StreamSource) Push(ctx context.Context, frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.ended:
		return ErrStreamEnded
	case <-s.closed:
		return io.ErrClosedPipe
	default:
	}

	select {
	case s.frames <- frame:
		return nil
	case <-s.closed:
		return io.ErrClosedPipe
	case <-ctx.Done():
		return ctx.Err()
	}
}

// End marks the stream complete. Frames already pushed are still delivered.
func (s *StreamSource) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endOnce.Do(func() { close(s.ended) })
}

func (s *StreamSource) FrameRate() float64 {
	return s.frameRate
}

func (s *StreamSource) Next(ctx context.Context) ([]byte, error) {
	select {
	case frame := <-s.frames:
		return frame, nil
	default:
	}

	select {
	case frame := <-s.frames:
		return frame, nil
	case <-s.ended:
		select {
		case frame := <-s.frames:
			return frame, nil
		default:
			return nil, io.EOF
		}
	case <-s.closed:
		return nil, io.EOF
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *StreamSource) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}
