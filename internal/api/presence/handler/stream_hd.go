package presenceHandler

import (
	"VideoPresence/internal/api/presence"
	"VideoPresence/internal/attendance"
	"VideoPresence/internal/middleware"
	contextPkg "VideoPresence/pkg/context"
	"VideoPresence/pkg/handlerUtil"
	"VideoPresence/pkg/log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"golang.org/x/net/context"
)

const (
	streamReadTimeout  = 60 * time.Second
	streamWriteTimeout = 10 * time.Second
	streamEndMessage   = "end"
)

// streamConn serialises writes; frame events come from the session goroutine.
type streamConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *streamConn) writeJSON(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout)); err != nil {
		return err
	}
	if err := s.conn.WriteJSON(v); err != nil {
		return err
	}
	return s.conn.SetWriteDeadline(time.Time{})
}

func (s *streamConn) writeError(err error) error {
	_, code, message := handlerUtil.Describe(err)
	return s.writeJSON(presence.StreamErrorEvent{Error: message, Code: code})
}

func (s *streamConn) close(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, message),
		time.Now().Add(streamWriteTimeout))
}

// handleStream feeds binary frames into a live session. Each folded frame is
// answered with a FrameEvent; the text message "end" closes the session and
// returns the compiled record.
func (h *PresenceHandler) handleStream(c *websocket.Conn) {
	requestID, _ := c.Locals(middleware.RequestIDKey).(string)
	apiKey, _ := c.Locals(middleware.APIKeyLocal).(string)
	fps, _ := c.Locals(fpsLocal).(float64)

	logger := h.log.WithFields(log.Fields{
		"request_id": requestID,
		"fps":        fps,
	})
	logger.Info("Presence stream client connected")
	defer logger.Info("Presence stream client disconnected")

	conn := &streamConn{conn: c}

	ctx := contextPkg.WithRequestID(context.Background(), requestID)
	ctx = contextPkg.WithAPIKey(ctx, apiKey)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := h.presenceService.StartStream(ctx, apiKey, fps, func(index int, res attendance.DetectionResult, err error) {
		event := presence.FrameEvent{Frame: index, ClassIDs: classIDs(res)}
		if err != nil {
			event.Error = err.Error()
		}
		if writeErr := conn.writeJSON(event); writeErr != nil {
			logger.WithField("error", writeErr.Error()).Debug("Failed to send frame event")
		}
	})
	if err != nil {
		logger.WithField("error", err.Error()).Warn("Failed to start stream session")
		_ = conn.writeError(err)
		conn.close("session not started")
		return
	}

	finished := false
	defer func() {
		if !finished {
			stream.Abort()
		}
	}()

	c.SetPingHandler(func(data string) error {
		conn.mu.Lock()
		defer conn.mu.Unlock()
		if err := c.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(5*time.Second)); err != nil {
			logger.WithField("error", err.Error()).Debug("Error sending pong")
		}
		return nil
	})

	for {
		if err := c.SetReadDeadline(time.Now().Add(streamReadTimeout)); err != nil {
			logger.WithField("error", err.Error()).Error("Error setting read deadline")
			return
		}

		messageType, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.WithField("error", err.Error()).Warn("Presence stream closed unexpectedly")
			}
			return
		}

		switch messageType {
		case websocket.BinaryMessage:
			if err := stream.Push(ctx, message); err != nil {
				logger.WithField("error", err.Error()).Warn("Stream session stopped")
				_ = conn.writeError(err)
				conn.close("session stopped")
				return
			}

		case websocket.TextMessage:
			if strings.TrimSpace(string(message)) != streamEndMessage {
				if err := conn.writeError(presence.ErrStreamMessage); err != nil {
					return
				}
				continue
			}

			finished = true
			res, err := stream.Finish(ctx)
			if err != nil {
				logger.WithField("error", err.Error()).Error("Failed to finish stream session")
				_ = conn.writeError(err)
				conn.close("session failed")
				return
			}

			logger.WithFields(log.Fields{
				"session_id": res.ID,
				"present":    res.PresentCount,
			}).Info("Stream attendance recorded")

			if err := conn.writeJSON(res); err != nil {
				logger.WithField("error", err.Error()).Warn("Failed to send stream result")
			}
			conn.close("session complete")
			return
		}
	}
}

func classIDs(res attendance.DetectionResult) []int {
	ids := make([]int, 0, res.Len())
	for id := range res.ClassIDs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
