package video

import (
	"VideoPresence/internal/attendance"
	"bufio"
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSplitJpeg(t *testing.T) {
	first := []byte{0xFF, 0xD8, 0x01, 0x02, 0xFF, 0xD9}
	second := []byte{0xFF, 0xD8, 0x03, 0xFF, 0xD9}

	stream := []byte{0x00, 0x00}
	stream = append(stream, first...)
	stream = append(stream, second...)
	stream = append(stream, 0x00, 0xFF)

	scanner := bufio.NewScanner(bytes.NewReader(stream))
	scanner.Split(SplitJpeg)

	var got [][]byte
	for scanner.Scan() {
		got = append(got, append([]byte(nil), scanner.Bytes()...))
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scanner failed: %v", err)
	}

	if len(got) != 2 || !bytes.Equal(got[0], first) || !bytes.Equal(got[1], second) {
		t.Fatalf("unexpected frames %X", got)
	}
}

func TestParseFrameRate(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"30000/1001", 30000.0 / 1001.0},
		{"25/1", 25},
		{"10", 10},
		{"0/0", 0},
		{" 24/1 ", 24},
	}

	for _, tt := range tests {
		got, err := ParseFrameRate(tt.in)
		if err != nil {
			t.Errorf("ParseFrameRate(%q) failed: %v", tt.in, err)
			continue
		}
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("ParseFrameRate(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	for _, bad := range []string{"", "abc", "30/x"} {
		if _, err := ParseFrameRate(bad); err == nil {
			t.Errorf("ParseFrameRate(%q) should fail", bad)
		}
	}
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(context.Background(), filepath.Join(t.TempDir(), "missing.mp4"))
	if !errors.Is(err, attendance.ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
}

func encodePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.White)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestImageSource(t *testing.T) {
	data := encodePNG(t)

	src, err := NewImageSource(data)
	if err != nil {
		t.Fatalf("NewImageSource failed: %v", err)
	}
	if src.Format() != "png" {
		t.Errorf("format = %q", src.Format())
	}

	frame, err := src.Next(context.Background())
	if err != nil || !bytes.Equal(frame, data) {
		t.Fatalf("unexpected first frame (%v)", err)
	}
	if _, err := src.Next(context.Background()); err != io.EOF {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestImageSourceRejectsGarbage(t *testing.T) {
	for _, data := range [][]byte{nil, []byte("not an image")} {
		if _, err := NewImageSource(data); !errors.Is(err, attendance.ErrSourceUnavailable) {
			t.Errorf("expected ErrSourceUnavailable, got %v", err)
		}
	}
}

func TestStreamSource(t *testing.T) {
	src := NewStreamSource(15, 4)
	ctx := context.Background()

	for _, f := range [][]byte{{1}, {2}, {3}} {
		if err := src.Push(ctx, f); err != nil {
			t.Fatal(err)
		}
	}
	src.End()

	if err := src.Push(ctx, []byte{4}); !errors.Is(err, ErrStreamEnded) {
		t.Errorf("expected ErrStreamEnded, got %v", err)
	}

	var got []byte
	for {
		f, err := src.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, f...)
	}
	if !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Errorf("frames after End must still be delivered, got %v", got)
	}
	if src.FrameRate() != 15 {
		t.Errorf("frame rate = %v", src.FrameRate())
	}
}

func TestStreamSourceBlocksUntilFrame(t *testing.T) {
	src := NewStreamSource(1, 0)

	go func() {
		time.Sleep(10 * time.Millisecond)
		_ = src.Push(context.Background(), []byte{9})
	}()

	f, err := src.Next(context.Background())
	if err != nil || !bytes.Equal(f, []byte{9}) {
		t.Fatalf("unexpected frame %v (%v)", f, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := src.Next(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	src.Close()
	if _, err := src.Next(context.Background()); err != io.EOF {
		t.Fatalf("expected io.EOF after Close, got %v", err)
	}
	if err := src.Push(context.Background(), []byte{1}); err != io.ErrClosedPipe {
		t.Fatalf("expected io.ErrClosedPipe, got %v", err)
	}
}

func TestStreamSourceConcurrentProducers(t *testing.T) {
	src := NewStreamSource(10, 4)
	ctx := context.Background()

	delivered := make(chan int)
	go func() {
		n := 0
		for {
			if _, err := src.Next(ctx); err != nil {
				delivered <- n
				return
			}
			n++
		}
	}()

	var accepted atomic.Int32
	var wg sync.WaitGroup
	for p := 0; p < 8; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				if err := src.Push(ctx, []byte{byte(i)}); err == nil {
					accepted.Add(1)
				}
			}
		}()
	}

	time.Sleep(time.Millisecond)
	src.End()
	wg.Wait()

	if got := <-delivered; got != int(accepted.Load()) {
		t.Errorf("accepted %d frames but delivered %d", accepted.Load(), got)
	}
}

func TestImageSessionEndToEnd(t *testing.T) {
	src, err := NewImageSource(encodePNG(t))
	if err != nil {
		t.Fatal(err)
	}

	det := detectorFunc(func(context.Context, []byte) ([]attendance.Detection, error) {
		return []attendance.Detection{{ClassID: 2}}, nil
	})
	session, err := attendance.NewSession(attendance.SessionConfig{
		Mode:     attendance.ModeImage,
		Roster:   attendance.Roster{{Name: "alice", ClassID: 1}, {Name: "bob", ClassID: 2}},
		Detector: det,
	})
	if err != nil {
		t.Fatal(err)
	}

	res, err := session.Run(context.Background(), src)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Records[0].Attendance != attendance.LabelAbsent || res.Records[1].Attendance != attendance.LabelPresent {
		t.Errorf("unexpected records %+v", res.Records)
	}
}

type detectorFunc func(ctx context.Context, frame []byte) ([]attendance.Detection, error)

func (f detectorFunc) Detect(ctx context.Context, frame []byte) ([]attendance.Detection, error) {
	return f(ctx, frame)
}
