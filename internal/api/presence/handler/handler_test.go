package presenceHandler

import (
	"VideoPresence/internal/api/presence"
	presenceService "VideoPresence/internal/api/presence/service"
	"VideoPresence/internal/attendance"
	"VideoPresence/internal/entity"
	"VideoPresence/internal/middleware"
	jwtPkg "VideoPresence/pkg/jwt"
	"VideoPresence/pkg/utils"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	gorillaWs "github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const testAPIKey = "good-key"

type staticKeys map[string]bool

func (k staticKeys) VerifyAPIKey(_ context.Context, key string) error {
	if !k[key] {
		return errors.New("unknown key")
	}
	return nil
}

type stubStream struct {
	hook   attendance.FrameHook
	frames int
}

func (s *stubStream) Push(_ context.Context, frame []byte) error {
	ids := make([]int, 0, len(frame))
	for _, b := range frame {
		ids = append(ids, int(b))
	}
	s.hook(s.frames, attendance.NewDetectionResult(ids...), nil)
	s.frames++
	return nil
}

func (s *stubStream) Finish(context.Context) (presence.VideoProcessResponse, error) {
	return presence.VideoProcessResponse{ID: "stream-1", FramesRead: s.frames, PresentCount: 1}, nil
}

func (s *stubStream) Abort() {}

type stubService struct {
	mu        sync.Mutex
	videoPath string
	videoSeen bool
	apiKey    string
	userID    string
}

func (s *stubService) ProcessVideo(_ context.Context, apiKey string, videoPath string, videoName string) (presence.VideoProcessResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := os.Stat(videoPath)
	s.videoSeen = err == nil
	s.videoPath = videoPath
	s.apiKey = apiKey
	return presence.VideoProcessResponse{ID: "video-1", VideoFile: videoName, FrameRate: 25}, nil
}

func (s *stubService) ProcessImage(_ context.Context, userID string, file *multipart.FileHeader) (presence.ImageProcessResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = userID
	return presence.ImageProcessResponse{ID: "image-1", Message: file.Filename}, nil
}

func (s *stubService) LatestJSONFile(_ context.Context, userID string) (presence.FileDownloadResponse, error) {
	if userID != "01HX" {
		return presence.FileDownloadResponse{}, presence.ErrResponseNotFound
	}
	return presence.FileDownloadResponse{DownloadLink: "https://signed.example/x.json"}, nil
}

func (s *stubService) LatestImageFile(_ context.Context, userID string) (presence.FileDownloadResponse, error) {
	if userID != "01HX" {
		return presence.FileDownloadResponse{}, presence.ErrAnnotatedNotFound
	}
	return presence.FileDownloadResponse{DownloadLink: "https://signed.example/x_boxes.jpg"}, nil
}

func (s *stubService) StartStream(_ context.Context, _ string, fps float64, onFrame attendance.FrameHook) (presenceService.LiveStream, error) {
	if fps <= 0 {
		return nil, presence.ErrInvalidFrameRate
	}
	return &stubStream{hook: onFrame}, nil
}

func (s *stubService) AllVideoResponses(context.Context) ([]entity.VideoResponse, error) {
	return nil, nil
}

func (s *stubService) VideoResponsesByAPIKey(context.Context, string) ([]entity.VideoResponse, error) {
	return nil, nil
}

func newTestApp(t *testing.T) (*fiber.App, *stubService) {
	t.Helper()
	t.Setenv(jwtPkg.AccessTokenSecret, "access-secret")

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	svc := &stubService{}
	mw := middleware.New(logger, staticKeys{testAPIKey: true})
	app := fiber.New()
	app.Use(mw.NewRequestIDMiddleware())
	New(logger, validator.New(), mw, svc, utils.New(), t.TempDir()).Start(app.Group("/api/v1"))
	return app, svc
}

func multipartRequest(t *testing.T, target, field, fileName, contentType string, data []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+fileName+`"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestHandleProcessVideo(t *testing.T) {
	app, svc := newTestApp(t)

	req := multipartRequest(t, "/api/v1/presence/process_video", "video_file", "Lecture.MP4", "video/mp4", []byte("not really a video"))
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("missing api key: status = %d", resp.StatusCode)
	}

	req = multipartRequest(t, "/api/v1/presence/process_video", "video_file", "Lecture.MP4", "video/mp4", []byte("not really a video"))
	req.Header.Set(middleware.APIKeyHeader, testAPIKey)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var res presence.VideoProcessResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.VideoFile != "Lecture.MP4" {
		t.Errorf("video file = %q", res.VideoFile)
	}

	if !svc.videoSeen || svc.apiKey != testAPIKey {
		t.Errorf("upload not handed to service: seen=%v key=%q", svc.videoSeen, svc.apiKey)
	}
	if _, err := os.Stat(svc.videoPath); !os.IsNotExist(err) {
		t.Errorf("uploaded video must be removed after processing, stat err = %v", err)
	}
}

func TestHandleProcessVideoRejectsNonVideo(t *testing.T) {
	app, _ := newTestApp(t)

	req := multipartRequest(t, "/api/v1/presence/process_video", "video_file", "notes.txt", "text/plain", []byte("hello"))
	req.Header.Set(middleware.APIKeyHeader, testAPIKey)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestImagePresenceRoutes(t *testing.T) {
	app, svc := newTestApp(t)

	req := multipartRequest(t, "/api/v1/image-presence/process_image", "file", "class.png", "image/png", []byte{0x89, 'P', 'N', 'G'})
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous: status = %d", resp.StatusCode)
	}

	token, _, err := jwtPkg.Sign(map[string]interface{}{"id": "01HX", "email": "alice@example.com", "username": "alice"}, time.Minute)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}

	req = multipartRequest(t, "/api/v1/image-presence/process_image", "file", "class.png", "image/png", []byte{0x89, 'P', 'N', 'G'})
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("process image: status = %d", resp.StatusCode)
	}
	if svc.userID != "01HX" {
		t.Errorf("user id = %q", svc.userID)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/image-presence/get-json_file", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get json file: status = %d", resp.StatusCode)
	}
	var link presence.FileDownloadResponse
	if err := json.NewDecoder(resp.Body).Decode(&link); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if link.DownloadLink == "" {
		t.Error("empty download link")
	}
}

func TestLatestImageFileRoute(t *testing.T) {
	app, _ := newTestApp(t)

	tests := []struct {
		name   string
		userID string
		status int
	}{
		{"stored", "01HX", http.StatusOK},
		{"nothing annotated", "01HY", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, _, err := jwtPkg.Sign(map[string]interface{}{"id": tt.userID, "email": "alice@example.com", "username": "alice"}, time.Minute)
			if err != nil {
				t.Fatalf("Sign failed: %v", err)
			}

			req := httptest.NewRequest(http.MethodGet, "/api/v1/image-presence/get-image_file", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test failed: %v", err)
			}
			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			if tt.status != http.StatusOK {
				return
			}

			var link presence.FileDownloadResponse
			if err := json.NewDecoder(resp.Body).Decode(&link); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if link.DownloadLink != "https://signed.example/x_boxes.jpg" {
				t.Errorf("download link = %q", link.DownloadLink)
			}
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/image-presence/get-image_file", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("anonymous: status = %d", resp.StatusCode)
	}
}

func TestStreamRequiresUpgradeAndFPS(t *testing.T) {
	app, _ := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/presence/ws?fps=10", nil)
	req.Header.Set(middleware.APIKeyHeader, testAPIKey)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != http.StatusUpgradeRequired {
		t.Fatalf("plain request: status = %d", resp.StatusCode)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/presence/ws", nil)
	req.Header.Set(middleware.APIKeyHeader, testAPIKey)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing fps: status = %d", resp.StatusCode)
	}
}

func TestStreamSession(t *testing.T) {
	app, _ := newTestApp(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go func() { _ = app.Listener(ln) }()
	defer func() { _ = app.Shutdown() }()

	header := http.Header{}
	header.Set(middleware.APIKeyHeader, testAPIKey)
	conn, _, err := gorillaWs.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/api/v1/presence/ws?fps=10", header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	if err := conn.WriteMessage(gorillaWs.BinaryMessage, []byte{3, 1}); err != nil {
		t.Fatalf("write frame: %v", err)
	}
	var event presence.FrameEvent
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("read frame event: %v", err)
	}
	if event.Frame != 0 || len(event.ClassIDs) != 2 || event.ClassIDs[0] != 1 || event.ClassIDs[1] != 3 {
		t.Errorf("unexpected frame event %+v", event)
	}

	if err := conn.WriteMessage(gorillaWs.TextMessage, []byte("hello")); err != nil {
		t.Fatalf("write text: %v", err)
	}
	var bad presence.StreamErrorEvent
	if err := conn.ReadJSON(&bad); err != nil {
		t.Fatalf("read error event: %v", err)
	}
	if bad.Code != "UNSUPPORTED_STREAM_MESSAGE" {
		t.Errorf("unexpected error event %+v", bad)
	}

	if err := conn.WriteMessage(gorillaWs.TextMessage, []byte("end")); err != nil {
		t.Fatalf("write end: %v", err)
	}
	var res presence.VideoProcessResponse
	if err := conn.ReadJSON(&res); err != nil {
		t.Fatalf("read result: %v", err)
	}
	if res.ID != "stream-1" || res.FramesRead != 1 {
		t.Errorf("unexpected result %+v", res)
	}
}
