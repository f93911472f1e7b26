package video

import (
	"VideoPresence/internal/attendance"
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
)

// ImageSource yields a single still image.
type ImageSource struct {
	data   []byte
	format string
	served bool
}

func NewImageSource(data []byte) (*ImageSource, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty image", attendance.ErrSourceUnavailable)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: cannot decode image: %v", attendance.ErrSourceUnavailable, err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return nil, fmt.Errorf("%w: image has no pixels", attendance.ErrSourceUnavailable)
	}

	return &ImageSource{data: data, format: format}, nil
}

func (s *ImageSource) Format() string {
	return s.format
}

func (s *ImageSource) FrameRate() float64 {
	return 0
}

func (s *ImageSource) Next(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.served {
		return nil, io.EOF
	}
	s.served = true
	return s.data, nil
}

func (s *ImageSource) Close() error {
	return nil
}
