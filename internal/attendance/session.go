package attendance

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// FrameSource yields decoded frames in capture order. Next returns io.EOF once
// the source is exhausted.
type FrameSource interface {
	Next(ctx context.Context) ([]byte, error)
	FrameRate() float64
	Close() error
}

// FrameHook observes every folded frame. It is called from a single goroutine.
type FrameHook func(index int, res DetectionResult, err error)

type SessionConfig struct {
	ID           string
	Mode         Mode
	Roster       Roster
	Detector     Detector
	Lookup       MetadataLookup
	FrameTimeout time.Duration
	Workers      int
	Logger       *logrus.Logger
	OnFrame      FrameHook
}

type Result struct {
	SessionID    string
	Mode         Mode
	Records      []Record
	FrameRate    float64
	FramesRead   int
	FramesFailed int
	StartedAt    time.Time
	FinishedAt   time.Time

	// Detections holds the raw boxes of an image session, for annotation.
	// Video sessions leave it empty.
	Detections []Detection
}

// DurationMap is the downloadable artifact: name to duration for video, name
// to attendance label for images.
func (r *Result) DurationMap() map[string]string {
	out := make(map[string]string, len(r.Records))
	for _, rec := range r.Records {
		if r.Mode == ModeVideo {
			out[rec.Name] = rec.Duration
		} else {
			out[rec.Name] = rec.Attendance
		}
	}
	return out
}

func (r *Result) PresentCount() int {
	n := 0
	for _, rec := range r.Records {
		if rec.IsPresent() {
			n++
		}
	}
	return n
}

// Session runs one roster against one frame source.
type Session struct {
	cfg      SessionConfig
	adapter  *Adapter
	compiler *Compiler
	log      *logrus.Entry
	once     sync.Once
}

func NewSession(cfg SessionConfig) (*Session, error) {
	if cfg.Detector == nil {
		return nil, errors.New("detector is required")
	}
	if cfg.Mode != ModeImage && cfg.Mode != ModeVideo {
		return nil, fmt.Errorf("unsupported mode %d", cfg.Mode)
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Session{
		cfg:      cfg,
		adapter:  NewAdapter(cfg.Detector, cfg.FrameTimeout),
		compiler: NewCompiler(cfg.Lookup),
		log: logger.WithFields(logrus.Fields{
			"session_id": cfg.ID,
			"mode":       cfg.Mode.String(),
		}),
	}, nil
}

func (s *Session) Roster() Roster {
	return s.cfg.Roster
}

// Run consumes src to the end and compiles the attendance record. A session
// runs at most once; the source is closed before Run returns.
func (s *Session) Run(ctx context.Context, src FrameSource) (*Result, error) {
	first := false
	s.once.Do(func() { first = true })
	if !first {
		return nil, errors.New("session already ran")
	}

	if src == nil {
		return nil, fmt.Errorf("%w: no frame source", ErrSourceUnavailable)
	}
	defer src.Close()

	res := &Result{
		SessionID: s.cfg.ID,
		Mode:      s.cfg.Mode,
		FrameRate: src.FrameRate(),
		StartedAt: time.Now(),
	}

	if s.cfg.Mode == ModeVideo {
		if err := validateFrameRate(res.FrameRate); err != nil {
			s.log.WithField("frame_rate", res.FrameRate).Error("Rejecting video with invalid frame rate")
			return nil, err
		}
	}

	acc := NewAccumulator(s.cfg.Mode, s.cfg.Roster)

	var err error
	if s.cfg.Workers == 1 {
		err = s.scanSequential(ctx, src, acc, res)
	} else {
		err = s.scanParallel(ctx, src, acc, res)
	}
	if err != nil {
		return nil, err
	}

	states := acc.Seal()
	records, err := s.compiler.Compile(ctx, s.cfg.Mode, states, res.FrameRate)
	if err != nil {
		return nil, err
	}

	res.Records = records
	res.FinishedAt = time.Now()

	s.log.WithFields(logrus.Fields{
		"frames_read":   res.FramesRead,
		"frames_failed": res.FramesFailed,
		"frame_rate":    res.FrameRate,
		"present":       res.PresentCount(),
		"roster_size":   len(s.cfg.Roster),
		"elapsed_ms":    res.FinishedAt.Sub(res.StartedAt).Milliseconds(),
	}).Info("Attendance session completed")

	return res, nil
}

func (s *Session) scanSequential(ctx context.Context, src FrameSource, acc *Accumulator, res *Result) error {
	for {
		frame, ok, err := s.read(ctx, src, res.FramesRead)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		index := res.FramesRead
		res.FramesRead++

		det, derr := s.adapter.Detect(ctx, frame)
		// Cancelling the session is fatal; a frame timeout only skips the frame.
		if err := ctx.Err(); err != nil {
			return err
		}
		s.fold(acc, res, index, det, derr)
	}
}

type frameTask struct {
	index int
	data  []byte
}

type frameOutcome struct {
	index int
	res   DetectionResult
	err   error
}

func (s *Session) scanParallel(ctx context.Context, src FrameSource, acc *Accumulator, res *Result) error {
	g, gctx := errgroup.WithContext(ctx)
	tasks := make(chan frameTask, s.cfg.Workers)
	outcomes := make(chan frameOutcome, s.cfg.Workers*2)

	read := 0
	g.Go(func() error {
		defer close(tasks)
		for {
			frame, ok, err := s.read(gctx, src, read)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			select {
			case tasks <- frameTask{index: read, data: frame}:
				read++
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})

	var wg sync.WaitGroup
	for i := 0; i < s.cfg.Workers; i++ {
		wg.Add(1)
		g.Go(func() error {
			defer wg.Done()
			for task := range tasks {
				det, err := s.adapter.Detect(gctx, task.data)
				select {
				case outcomes <- frameOutcome{index: task.index, res: det, err: err}:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	for out := range outcomes {
		s.fold(acc, res, out.index, out.res, out.err)
	}

	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	res.FramesRead = read
	return nil
}

// read returns ok == false at the end of the stream. A source that cannot
// produce its first frame is unavailable; one that fails mid-stream is treated
// as ended, as a decoder returning no frame would be.
func (s *Session) read(ctx context.Context, src FrameSource, index int) ([]byte, bool, error) {
	frame, err := src.Next(ctx)
	if err == nil {
		return frame, true, nil
	}
	if errors.Is(err, io.EOF) {
		return nil, false, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, false, ctxErr
	}
	if index == 0 {
		if errors.Is(err, ErrSourceUnavailable) {
			return nil, false, err
		}
		return nil, false, fmt.Errorf("%w: first frame: %v", ErrSourceUnavailable, err)
	}

	s.log.WithFields(logrus.Fields{
		"frame": index,
		"error": err.Error(),
	}).Warn("Frame source stopped early, finishing session with frames read so far")
	return nil, false, nil
}

func (s *Session) fold(acc *Accumulator, res *Result, index int, det DetectionResult, err error) {
	if err != nil {
		res.FramesFailed++
		s.log.WithFields(logrus.Fields{
			"frame": index,
			"error": err.Error(),
		}).Warn("Detection failed, frame skipped")
		det = DetectionResult{}
	}

	if foldErr := acc.Fold(det); foldErr != nil {
		s.log.WithField("frame", index).Error("Fold after seal ignored")
		return
	}
	if s.cfg.Mode == ModeImage {
		res.Detections = append(res.Detections, det.Detections...)
	}

	if s.cfg.OnFrame != nil {
		s.cfg.OnFrame(index, det, err)
	}
}
