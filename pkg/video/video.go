package video

import (
	"VideoPresence/internal/attendance"
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const megabyte = 1024 * 1024

var (
	JpegSOI = []byte{0xFF, 0xD8}
	JpegEOI = []byte{0xFF, 0xD9}
)

// SplitJpeg is a bufio.SplitFunc that cuts an MJPEG stream on the SOI/EOI
// markers. Bytes outside a marker pair are skipped.
func SplitJpeg(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	start := bytes.Index(data, JpegSOI)
	if start == -1 {
		if atEOF {
			return len(data), nil, nil
		}
		return 0, nil, nil
	}
	end := bytes.Index(data[start:], JpegEOI)
	if end == -1 {
		if atEOF {
			return len(data), nil, nil
		}
		return 0, nil, nil
	}
	return start + end + 2, data[start : start+end+2], nil
}

// ParseFrameRate reads ffprobe's rational notation ("30000/1001", "25/1") or a
// plain number. "0/0" parses as 0.
func ParseFrameRate(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty frame rate")
	}

	num, den, found := strings.Cut(s, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid frame rate %q: %w", s, err)
	}
	if !found {
		return n, nil
	}

	d, err := strconv.ParseFloat(den, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid frame rate %q: %w", s, err)
	}
	if d == 0 {
		return 0, nil
	}
	return n / d, nil
}

// ProbeFrameRate asks ffprobe for the first video stream's r_frame_rate,
// falling back to avg_frame_rate.
func ProbeFrameRate(ctx context.Context, path string) (float64, error) {
	if _, err := exec.LookPath("ffprobe"); err != nil {
		return 0, fmt.Errorf("%w: ffprobe not found", attendance.ErrSourceUnavailable)
	}

	type ffprobeOutput struct {
		Streams []struct {
			RFrameRate   string `json:"r_frame_rate"`
			AvgFrameRate string `json:"avg_frame_rate"`
		} `json:"streams"`
	}

	cmd := exec.CommandContext(ctx, "ffprobe", "-v", "error", "-select_streams", "v:0",
		"-show_entries", "stream=r_frame_rate,avg_frame_rate", "-of", "json", path)
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("%w: ffprobe failed: %v", attendance.ErrSourceUnavailable, err)
	}

	var res ffprobeOutput
	if err := json.Unmarshal(out, &res); err != nil {
		return 0, fmt.Errorf("%w: ffprobe output: %v", attendance.ErrSourceUnavailable, err)
	}
	if len(res.Streams) == 0 {
		return 0, fmt.Errorf("%w: no video stream in %s", attendance.ErrSourceUnavailable, path)
	}

	rate, err := ParseFrameRate(res.Streams[0].RFrameRate)
	if err != nil || rate <= 0 {
		rate, err = ParseFrameRate(res.Streams[0].AvgFrameRate)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %v", attendance.ErrSourceUnavailable, err)
	}

	return rate, nil
}

// NewFFmpegCmd decodes inputPath to an MJPEG stream on stdout.
func NewFFmpegCmd(ctx context.Context, inputPath string) *exec.Cmd {
	return exec.CommandContext(ctx, "ffmpeg", "-hide_banner", "-loglevel", "error", "-i", inputPath, "-f", "image2pipe", "-vcodec", "mjpeg", "-")
}

// FileSource yields the frames of a video file in capture order.
type FileSource struct {
	path      string
	frameRate float64
	cmd       *exec.Cmd
	cancel    context.CancelFunc
	stdout    io.ReadCloser
	stderr    bytes.Buffer
	scanner   *bufio.Scanner
	done      bool
	waited    bool
	closeOnce sync.Once
}

func Open(ctx context.Context, path string) (*FileSource, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", attendance.ErrSourceUnavailable, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", attendance.ErrSourceUnavailable, path)
	}
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, fmt.Errorf("%w: ffmpeg not found", attendance.ErrSourceUnavailable)
	}

	rate, err := ProbeFrameRate(ctx, path)
	if err != nil {
		return nil, err
	}

	procCtx, cancel := context.WithCancel(ctx)
	src := &FileSource{
		path:      path,
		frameRate: rate,
		cmd:       NewFFmpegCmd(procCtx, path),
		cancel:    cancel,
	}
	src.cmd.Stderr = &src.stderr

	if src.stdout, err = src.cmd.StdoutPipe(); err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %v", attendance.ErrSourceUnavailable, err)
	}
	if err := src.cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("%w: failed to start ffmpeg: %v", attendance.ErrSourceUnavailable, err)
	}

	src.scanner = bufio.NewScanner(src.stdout)
	src.scanner.Buffer(make([]byte, megabyte), 64*megabyte)
	src.scanner.Split(SplitJpeg)

	return src, nil
}

func (s *FileSource) FrameRate() float64 {
	return s.frameRate
}

func (s *FileSource) Next(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.done {
		return nil, io.EOF
	}

	if s.scanner.Scan() {
		frame := make([]byte, len(s.scanner.Bytes()))
		copy(frame, s.scanner.Bytes())
		return frame, nil
	}

	s.done = true
	if err := s.scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: frame scanner: %v", attendance.ErrSourceUnavailable, err)
	}
	s.waited = true
	if err := s.cmd.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: ffmpeg: %v: %s", attendance.ErrSourceUnavailable, err, strings.TrimSpace(s.stderr.String()))
	}

	return nil, io.EOF
}

func (s *FileSource) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		s.done = true
		if !s.waited {
			s.waited = true
			s.stdout.Close()
			_ = s.cmd.Wait()
		}
	})
	return nil
}
