package presenceService

import (
	"VideoPresence/internal/api/presence"
	"VideoPresence/internal/attendance"
	contextPkg "VideoPresence/pkg/context"
	"VideoPresence/pkg/video"
	"errors"
	"io"
	"math"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

// Stream is a live video session fed one frame at a time. The session runs in
// its own goroutine; Finish or Abort must be called exactly once.
type Stream struct {
	ID string

	svc    *presenceService
	src    *video.StreamSource
	apiKey string
	ctx    context.Context
	cancel context.CancelFunc

	done chan struct{}
	res  *attendance.Result
	err  error

	finishOnce sync.Once
}

func (s *presenceService) StartStream(c context.Context, apiKey string, fps float64, onFrame attendance.FrameHook) (LiveStream, error) {
	if fps <= 0 || math.IsNaN(fps) || math.IsInf(fps, 0) {
		return nil, presence.ErrInvalidFrameRate
	}

	session, id, err := s.newSession(c, attendance.ModeVideo, onFrame)
	if err != nil {
		return nil, err
	}

	// detached from c, which ends with the upgrade request
	ctx := contextPkg.WithRequestID(context.Background(), contextPkg.GetRequestID(c))
	ctx = contextPkg.WithAPIKey(ctx, apiKey)
	ctx, cancel := context.WithCancel(ctx)

	st := &Stream{
		ID:     id,
		svc:    s,
		src:    video.NewStreamSource(fps, s.cfg.StreamBuffer),
		apiKey: apiKey,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(st.done)
		st.res, st.err = session.Run(ctx, st.src)
	}()

	s.log.WithFields(logrus.Fields{
		"request_id": contextPkg.GetRequestID(c),
		"session_id": id,
		"fps":        fps,
	}).Info("Stream session started")

	return st, nil
}

// Push hands one encoded frame to the running session. When the session has
// already stopped, its error is returned.
func (st *Stream) Push(c context.Context, frame []byte) error {
	err := st.src.Push(c, frame)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.ErrClosedPipe):
		<-st.done
		if st.err != nil {
			return st.err
		}
		return presence.ErrStreamClosed
	case errors.Is(err, video.ErrStreamEnded):
		return presence.ErrStreamClosed
	default:
		return err
	}
}

// Finish ends the stream, waits for the session to drain and stores the
// compiled record.
func (st *Stream) Finish(c context.Context) (presence.VideoProcessResponse, error) {
	var out presence.VideoProcessResponse
	var err error = presence.ErrStreamClosed

	st.finishOnce.Do(func() {
		st.src.End()

		select {
		case <-st.done:
		case <-c.Done():
			st.cancel()
			<-st.done
			err = c.Err()
			return
		}
		defer st.cancel()

		if st.err != nil {
			err = st.err
			return
		}

		out, err = st.svc.finishVideo(st.ctx, st.res, st.apiKey, "stream:"+st.ID)
	})

	return out, err
}

// Abort drops the stream without storing anything.
func (st *Stream) Abort() {
	st.finishOnce.Do(func() {
		st.cancel()
		st.src.Close()
		<-st.done

		st.svc.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(st.ctx),
			"session_id": st.ID,
		}).Warn("Stream session aborted")
	})
}

// Done is closed once the session goroutine has returned.
func (st *Stream) Done() <-chan struct{} {
	return st.done
}
