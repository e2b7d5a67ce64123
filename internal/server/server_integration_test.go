package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"image"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/lipstick/internal/app"
	"github.com/ayusman/lipstick/internal/config"
	"github.com/ayusman/lipstick/internal/detector"
	"github.com/ayusman/lipstick/internal/pipeline"
	"github.com/ayusman/lipstick/internal/surface"
	"github.com/ayusman/lipstick/internal/tint"
	"github.com/ayusman/lipstick/internal/tracking"
)

func newTestApp(t *testing.T) *app.App {
	t.Helper()
	cfg := config.Default()
	a := app.New(app.Config{
		Config:    cfg,
		Face:      detector.NewMockFaceDetector(),
		Hands:     detector.NewMockHandDetector(),
		Processor: pipeline.NewProcessorWith(cfg, tint.NewCompositorWithBlur(cfg, nil)),
	})
	t.Cleanup(func() { a.Close() })
	return a
}

func TestAPI_ViewerWorkflow(t *testing.T) {
	a := newTestApp(t)
	ts := httptest.NewServer(New(Config{App: a, Frames: surface.NewBuffer()}))
	defer ts.Close()
	client := ts.Client()

	put := func(path, body string) *http.Response {
		t.Helper()
		req, _ := http.NewRequest(http.MethodPut, ts.URL+path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("PUT %s error = %v", path, err)
		}
		return resp
	}

	// 1. Select a right shade.
	resp := put("/api/shades/right", `{"id": 3}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("PUT /api/shades/right status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	resp.Body.Close()
	if got := a.Shades().Right.ID; got != 3 {
		t.Errorf("right shade = %d, want 3", got)
	}

	// 2. Turn compare on.
	resp = put("/api/compare", `{"enabled": true}`)
	resp.Body.Close()
	if !a.Compare().Enabled {
		t.Error("compare should be enabled")
	}

	// 3. Snapshot before any frame.
	resp, _ = client.Get(ts.URL + "/api/snapshot")
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("GET /api/snapshot status = %d, want %d", resp.StatusCode, http.StatusConflict)
	}
	resp.Body.Close()

	// 4. Start without a configured source.
	resp, _ = client.Post(ts.URL+"/api/processing/start", "application/json", nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("POST /api/processing/start status = %d, want %d", resp.StatusCode, http.StatusServiceUnavailable)
	}
	resp.Body.Close()

	// 5. Health reports processing state.
	resp, _ = client.Get(ts.URL + "/api/health")
	var health struct {
		Status     string     `json:"status"`
		Processing app.Status `json:"processing"`
	}
	json.NewDecoder(resp.Body).Decode(&health)
	resp.Body.Close()
	if health.Status != "ok" || health.Processing.Running {
		t.Errorf("health = %+v, want ok and not running", health)
	}
}

type fakeReports struct {
	ch   chan pipeline.Report
	last pipeline.Report
}

func (f *fakeReports) Subscribe() (<-chan pipeline.Report, func()) {
	return f.ch, func() {}
}

func (f *fakeReports) LastReport() pipeline.Report { return f.last }

func TestStateHandler_PushesReports(t *testing.T) {
	src := &fakeReports{ch: make(chan pipeline.Report, 1)}
	ts := httptest.NewServer(NewStateHandler(src))
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial error = %v", err)
	}
	defer conn.Close()

	src.ch <- pipeline.Report{
		Frame:    42,
		Decision: tracking.Decision{RawVisible: true, Visibility: tracking.Visible},
		Alpha:    0.5,
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg stateMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read error = %v", err)
	}
	if msg.Report.Frame != 42 || !msg.Report.Decision.RawVisible {
		t.Errorf("report = %+v, want frame 42 raw visible", msg.Report)
	}
	if msg.Timestamp == 0 {
		t.Error("expected a timestamp")
	}
}

func TestStateHandler_SendsLastReportOnConnect(t *testing.T) {
	src := &fakeReports{
		ch:   make(chan pipeline.Report, 1),
		last: pipeline.Report{Frame: 7, Alpha: 1},
	}
	ts := httptest.NewServer(NewStateHandler(src))
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial error = %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg stateMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read error = %v", err)
	}
	if msg.Report.Frame != 7 {
		t.Errorf("first report frame = %d, want 7", msg.Report.Frame)
	}

	src.ch <- pipeline.Report{Frame: 8}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read error = %v", err)
	}
	if msg.Report.Frame != 8 {
		t.Errorf("next report frame = %d, want 8", msg.Report.Frame)
	}
}

func TestStreamHandler_WritesParts(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping OpenCV-backed test in short mode")
	}

	frames := surface.NewBuffer()
	frames.Present(image.NewRGBA(image.Rect(0, 0, 16, 12)))

	ts := httptest.NewServer(NewStreamHandler(frames, 0))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL, nil)
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "multipart/x-mixed-replace") {
		t.Fatalf("Content-Type = %s", ct)
	}

	r := bufio.NewReader(resp.Body)
	line, err := r.ReadString('\n')
	if err != nil {
		t.Fatalf("read error = %v", err)
	}
	if line != "--frame\r\n" {
		t.Errorf("first line = %q, want boundary", line)
	}
	line, _ = r.ReadString('\n')
	if line != "Content-Type: image/jpeg\r\n" {
		t.Errorf("part header = %q", line)
	}
}
