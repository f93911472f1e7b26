package main

import (
	"VideoPresence/internal/attendance"
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
)

// newModelServer reports class 1 for every frame it receives.
func newModelServer(t *testing.T) string {
	t.Helper()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
			reply := []byte(`{"detections":[{"cls":1,"conf":0.9,"bbox":[0,0,1,1]}]}`)
			if err := conn.WriteMessage(websocket.TextMessage, reply); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func writeFixtures(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()

	roster := filepath.Join(dir, "roster.json")
	if err := os.WriteFile(roster, []byte(`[{"name":"alice","class":1},{"name":"bob","class":2}]`), 0o600); err != nil {
		t.Fatal(err)
	}

	var img bytes.Buffer
	if err := png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatal(err)
	}
	input := filepath.Join(dir, "class.png")
	if err := os.WriteFile(input, img.Bytes(), 0o600); err != nil {
		t.Fatal(err)
	}

	return roster, input
}

func TestRunSessionOverImage(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	roster, input := writeFixtures(t)
	output := filepath.Join(t.TempDir(), "artifact.json")

	var stdout bytes.Buffer
	err := runSession(context.Background(), runOptions{
		InputPath:   input,
		RosterPath:  roster,
		DetectorURL: newModelServer(t),
		NumEngines:  1,
		OutputPath:  output,
	}, &stdout, io.Discard)
	if err != nil {
		t.Fatalf("runSession failed: %v", err)
	}

	var records []attendance.Record
	if err := json.Unmarshal(stdout.Bytes(), &records); err != nil {
		t.Fatalf("decode records: %v", err)
	}
	if len(records) != 2 || records[0].Attendance != attendance.LabelPresent || records[1].Attendance != attendance.LabelAbsent {
		t.Errorf("unexpected records %+v", records)
	}

	body, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("artifact not written: %v", err)
	}
	var artifact map[string]string
	if err := json.Unmarshal(body, &artifact); err != nil {
		t.Fatalf("decode artifact: %v", err)
	}
	if artifact["alice"] != attendance.LabelPresent || artifact["bob"] != attendance.LabelAbsent {
		t.Errorf("unexpected artifact %v", artifact)
	}
}

func TestRunSessionRequiresDetector(t *testing.T) {
	roster, input := writeFixtures(t)

	err := runSession(context.Background(), runOptions{InputPath: input, RosterPath: roster}, io.Discard, io.Discard)
	if err == nil {
		t.Fatal("expected missing detector error")
	}
}

func TestOpenSourceRejectsBrokenImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.jpg")
	if err := os.WriteFile(path, []byte("not an image"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, _, err := openSource(context.Background(), path); err == nil {
		t.Fatal("expected decode failure")
	}
}

func TestRosterValidateCommand(t *testing.T) {
	roster, _ := writeFixtures(t)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"roster", "validate", "--roster", roster})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("roster validate failed: %v", err)
	}
	if !strings.Contains(out.String(), "2 identities") {
		t.Errorf("unexpected output %q", out.String())
	}
}
