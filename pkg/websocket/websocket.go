package websocketPkg

import (
	"VideoPresence/internal/attendance"
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var ErrClientClosed = errors.New("detector client closed")

type IWebsocket interface {
	attendance.Detector
	IsConnected() bool
	CloseConnections()
}

type detectionMessage struct {
	Detections []wireDetection `json:"detections"`
	Error      string          `json:"error,omitempty"`
}

type wireDetection struct {
	ClassID    int       `json:"cls"`
	Confidence float64   `json:"conf"`
	BBox       []float64 `json:"bbox"`
}

// webSocketClient keeps up to poolSize connections to the model server so
// parallel session workers do not serialize on one socket.
type webSocketClient struct {
	url          string
	log          *logrus.Logger
	dialer       *websocket.Dialer
	slots        chan *websocket.Conn
	mu           sync.Mutex
	live         map[*websocket.Conn]struct{}
	closed       bool
	readTimeout  time.Duration
	writeTimeout time.Duration
}

func NewAIWebSocketClient(log *logrus.Logger) IWebsocket {
	url := os.Getenv("DETECTOR_WS_URL")
	if url == "" {
		url = "ws://localhost:8000/api/v1/detect/ws"
	}
	return NewDetectorClient(url, 4, log)
}

func NewDetectorClient(url string, poolSize int, log *logrus.Logger) IWebsocket {
	if poolSize < 1 {
		poolSize = 1
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	client := &webSocketClient{
		url:          url,
		log:          log,
		dialer:       &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		slots:        make(chan *websocket.Conn, poolSize),
		live:         make(map[*websocket.Conn]struct{}),
		readTimeout:  10 * time.Second,
		writeTimeout: 5 * time.Second,
	}
	for i := 0; i < poolSize; i++ {
		client.slots <- nil
	}

	return client
}

func (c *webSocketClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed && len(c.live) > 0
}

func (c *webSocketClient) CloseConnections() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	for conn := range c.live {
		conn.Close()
		delete(c.live, conn)
	}
}

func (c *webSocketClient) Detect(ctx context.Context, frame []byte) ([]attendance.Detection, error) {
	var conn *websocket.Conn
	select {
	case conn = <-c.slots:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	healthy := false
	defer func() {
		if !healthy && conn != nil {
			c.drop(conn)
			conn = nil
		}
		c.slots <- conn
	}()

	if conn == nil {
		var err error
		if conn, err = c.dial(ctx); err != nil {
			return nil, err
		}
	}

	message, err := c.exchange(ctx, conn, frame)
	if err != nil {
		return nil, err
	}
	healthy = true

	var res detectionMessage
	if err := json.Unmarshal(message, &res); err != nil {
		return nil, fmt.Errorf("error unmarshaling detection response: %w", err)
	}
	if res.Error != "" {
		return nil, fmt.Errorf("detector reported: %s", res.Error)
	}

	detections := make([]attendance.Detection, 0, len(res.Detections))
	for _, d := range res.Detections {
		det := attendance.Detection{ClassID: d.ClassID, Confidence: d.Confidence}
		if len(d.BBox) == 4 {
			det.Box = attendance.Box{X1: d.BBox[0], Y1: d.BBox[1], X2: d.BBox[2], Y2: d.BBox[3]}
		}
		detections = append(detections, det)
	}

	return detections, nil
}

func (c *webSocketClient) exchange(ctx context.Context, conn *websocket.Conn, frame []byte) ([]byte, error) {
	stop := context.AfterFunc(ctx, func() {
		conn.SetReadDeadline(time.Now())
		conn.SetWriteDeadline(time.Now())
	})
	defer stop()

	conn.SetWriteDeadline(c.deadline(ctx, c.writeTimeout))
	if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		return nil, c.wrap(ctx, "error sending frame", err)
	}

	conn.SetReadDeadline(c.deadline(ctx, c.readTimeout))
	_, message, err := conn.ReadMessage()
	if err != nil {
		return nil, c.wrap(ctx, "error reading detection message", err)
	}

	return message, nil
}

func (c *webSocketClient) dial(ctx context.Context) (*websocket.Conn, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return nil, ErrClientClosed
	}

	c.log.WithField("url", c.url).Debug("Connecting to detection service")

	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", c.url, err)
	}

	conn.SetPingHandler(func(appData string) error {
		if err := conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(c.writeTimeout)); err != nil {
			c.log.WithField("error", err.Error()).Warn("Error sending pong")
		}
		return nil
	})

	c.mu.Lock()
	c.live[conn] = struct{}{}
	c.mu.Unlock()

	return conn, nil
}

func (c *webSocketClient) drop(conn *websocket.Conn) {
	c.mu.Lock()
	delete(c.live, conn)
	c.mu.Unlock()
	conn.Close()
}

func (c *webSocketClient) deadline(ctx context.Context, fallback time.Duration) time.Time {
	d := time.Now().Add(fallback)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(d) {
		return ctxDeadline
	}
	return d
}

func (c *webSocketClient) wrap(ctx context.Context, msg string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", msg, ctxErr)
	}
	// the socket deadline can fire just before the context timer does
	if dl, ok := ctx.Deadline(); ok && !time.Now().Before(dl) {
		return fmt.Errorf("%s: %w", msg, context.DeadlineExceeded)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
