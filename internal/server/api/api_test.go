package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ayusman/lipstick/internal/app"
	"github.com/ayusman/lipstick/internal/capture"
	"github.com/ayusman/lipstick/internal/compare"
	"github.com/ayusman/lipstick/internal/config"
	"github.com/ayusman/lipstick/internal/shade"
	"github.com/ayusman/lipstick/internal/surface"
)

// fakeApp records what the handlers asked for.
type fakeApp struct {
	catalog   []shade.Shade
	sel       shade.Selection
	cmp       compare.State
	running   bool
	paused    bool
	started   int
	resumeErr error
	snap      *image.RGBA
}

func newFakeApp() *fakeApp {
	return &fakeApp{
		catalog: shade.DefaultCatalog(),
		sel:     shade.DefaultSelection(),
		cmp:     compare.NewState(),
	}
}

func (f *fakeApp) Catalog() []shade.Shade  { return f.catalog }
func (f *fakeApp) Shades() shade.Selection { return f.sel }

func (f *fakeApp) SetShadeByID(side shade.Side, id int) (shade.Shade, error) {
	sh, ok := shade.Find(f.catalog, id)
	if !ok {
		return shade.Shade{}, fmt.Errorf("%w: %d", app.ErrUnknownShade, id)
	}
	if side == shade.Left {
		f.sel.Left = sh
	} else {
		f.sel.Right = sh
	}
	return sh, nil
}

func (f *fakeApp) Compare() compare.State    { return f.cmp }
func (f *fakeApp) SetCompareEnabled(on bool) { f.cmp.SetEnabled(on) }
func (f *fakeApp) SetSplitRatio(r float64) {
	f.cmp.SetSplitRatio(r, config.Default().Compare)
}
func (f *fakeApp) DragSplit(r float64) { f.cmp.DragTo(r, config.Default().Compare) }

func (f *fakeApp) StartProcessing(src capture.Camera, out surface.Surface) error {
	if src == nil {
		return app.ErrNoSource
	}
	f.running = true
	f.started++
	return nil
}
func (f *fakeApp) StopProcessing() { f.running, f.paused = false, false }

func (f *fakeApp) Pause() {
	if f.running {
		f.running, f.paused = false, true
	}
}

func (f *fakeApp) Resume() error {
	if !f.paused {
		return nil
	}
	if f.resumeErr != nil {
		return f.resumeErr
	}
	f.running, f.paused = true, false
	return nil
}

func (f *fakeApp) Status() app.Status { return app.Status{Running: f.running, Paused: f.paused} }

func (f *fakeApp) CaptureSnapshot() (*image.RGBA, error) {
	if f.snap == nil {
		return nil, app.ErrNoFrame
	}
	return f.snap, nil
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestShadeHandler_List(t *testing.T) {
	f := newFakeApp()
	rec := do(t, NewShadeHandler(f), http.MethodGet, "/api/shades", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", ct)
	}

	var response listShadesResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(response.Shades) != 24 {
		t.Errorf("expected 24 shades, got %d", len(response.Shades))
	}
	if response.Shades[0].Label != "Natural Finish" {
		t.Errorf("expected id 0 labelled Natural Finish, got %q", response.Shades[0].Label)
	}
	if response.Selected.Left.ID != shade.DefaultLeftID {
		t.Errorf("expected left %d, got %d", shade.DefaultLeftID, response.Selected.Left.ID)
	}
}

func TestShadeHandler_Set(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{"select right", http.MethodPut, "/api/shades/right", `{"id": 5}`, http.StatusOK},
		{"select left", http.MethodPut, "/api/shades/LEFT", `{"id": 0}`, http.StatusOK},
		{"unknown shade", http.MethodPut, "/api/shades/left", `{"id": 77}`, http.StatusNotFound},
		{"missing id", http.MethodPut, "/api/shades/left", `{}`, http.StatusBadRequest},
		{"invalid json", http.MethodPut, "/api/shades/left", `{`, http.StatusBadRequest},
		{"unknown side", http.MethodPut, "/api/shades/middle", `{"id": 1}`, http.StatusNotFound},
		{"get side", http.MethodGet, "/api/shades/left", "", http.StatusOK},
		{"delete not allowed", http.MethodDelete, "/api/shades/left", "", http.StatusMethodNotAllowed},
		{"post collection not allowed", http.MethodPost, "/api/shades", "", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, NewShadeHandler(newFakeApp()), tt.method, tt.path, tt.body)
			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d (%s)", tt.wantStatus, rec.Code, rec.Body.String())
			}
		})
	}

	t.Run("selection is applied", func(t *testing.T) {
		f := newFakeApp()
		do(t, NewShadeHandler(f), http.MethodPut, "/api/shades/right", `{"id": 5}`)
		if f.sel.Right.ID != 5 {
			t.Errorf("expected right shade 5, got %d", f.sel.Right.ID)
		}
	})
}

func TestCompareHandler(t *testing.T) {
	f := newFakeApp()
	h := NewCompareHandler(f)

	decode := func(rec *httptest.ResponseRecorder) compare.State {
		t.Helper()
		var st compare.State
		if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		return st
	}

	st := decode(do(t, h, http.MethodGet, "/api/compare", ""))
	if st.Enabled {
		t.Error("compare should start off")
	}

	st = decode(do(t, h, http.MethodPut, "/api/compare", `{"enabled": true}`))
	if !st.Enabled || st.SplitRatio != 0.5 {
		t.Errorf("expected enabled at 0.5, got %+v", st)
	}

	st = decode(do(t, h, http.MethodPut, "/api/compare", `{"split_ratio": 0.99}`))
	if st.SplitRatio != 0.93 {
		t.Errorf("expected clamped ratio 0.93, got %v", st.SplitRatio)
	}

	do(t, h, http.MethodPut, "/api/compare", `{"enabled": false}`)
	st = decode(do(t, h, http.MethodPut, "/api/compare", `{"split_ratio": 0.25, "drag": true}`))
	if !st.Enabled || st.SplitRatio != 0.25 {
		t.Errorf("drag should enable compare at 0.25, got %+v", st)
	}

	if rec := do(t, h, http.MethodPut, "/api/compare", `{"drag": true}`); rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/api/compare", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
}

func TestProcessingHandler(t *testing.T) {
	t.Run("start and stop", func(t *testing.T) {
		f := newFakeApp()
		h := NewProcessingHandler(f, func() capture.Camera {
			return capture.NewMockCamera(nil, false)
		}, nil)

		if rec := do(t, h, http.MethodPost, "/api/processing/start", ""); rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		if !f.running || f.started != 1 {
			t.Errorf("expected one start, got running=%v started=%d", f.running, f.started)
		}

		rec := do(t, h, http.MethodGet, "/api/processing", "")
		var st app.Status
		if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if !st.Running {
			t.Error("status should report running")
		}

		do(t, h, http.MethodPost, "/api/processing/stop", "")
		if f.running {
			t.Error("expected processing stopped")
		}
	})

	t.Run("pause while hidden and resume", func(t *testing.T) {
		f := newFakeApp()
		h := NewProcessingHandler(f, func() capture.Camera {
			return capture.NewMockCamera(nil, false)
		}, nil)
		do(t, h, http.MethodPost, "/api/processing/start", "")

		status := func(rec *httptest.ResponseRecorder) app.Status {
			t.Helper()
			if rec.Code != http.StatusOK {
				t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
			}
			var st app.Status
			if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			return st
		}

		st := status(do(t, h, http.MethodPost, "/api/processing/pause", ""))
		if st.Running || !st.Paused {
			t.Errorf("expected paused, got %+v", st)
		}
		st = status(do(t, h, http.MethodPost, "/api/processing/resume", ""))
		if !st.Running || st.Paused {
			t.Errorf("expected running again, got %+v", st)
		}
		if f.started != 1 {
			t.Errorf("resume should not go through start, got %d starts", f.started)
		}
	})

	t.Run("resume failure", func(t *testing.T) {
		f := newFakeApp()
		f.running = true
		f.resumeErr = errors.New("camera busy")
		h := NewProcessingHandler(f, nil, nil)

		do(t, h, http.MethodPost, "/api/processing/pause", "")
		if rec := do(t, h, http.MethodPost, "/api/processing/resume", ""); rec.Code != http.StatusServiceUnavailable {
			t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, rec.Code)
		}
	})

	t.Run("no source", func(t *testing.T) {
		h := NewProcessingHandler(newFakeApp(), nil, nil)
		if rec := do(t, h, http.MethodPost, "/api/processing/start", ""); rec.Code != http.StatusServiceUnavailable {
			t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, rec.Code)
		}
	})

	t.Run("routing", func(t *testing.T) {
		h := NewProcessingHandler(newFakeApp(), nil, nil)
		for _, action := range []string{"start", "pause", "resume"} {
			if rec := do(t, h, http.MethodGet, "/api/processing/"+action, ""); rec.Code != http.StatusMethodNotAllowed {
				t.Errorf("GET %s: expected status %d, got %d", action, http.StatusMethodNotAllowed, rec.Code)
			}
		}
		if rec := do(t, h, http.MethodPost, "/api/processing/restart", ""); rec.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
		}
	})
}

func TestSnapshotHandler(t *testing.T) {
	t.Run("before first frame", func(t *testing.T) {
		rec := do(t, NewSnapshotHandler(newFakeApp()), http.MethodGet, "/api/snapshot", "")
		if rec.Code != http.StatusConflict {
			t.Errorf("expected status %d, got %d", http.StatusConflict, rec.Code)
		}
		var response errorResponse
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if response.Error == "" {
			t.Error("expected an error message")
		}
	})

	t.Run("png", func(t *testing.T) {
		if testing.Short() {
			t.Skip("skipping OpenCV-backed test in short mode")
		}
		f := newFakeApp()
		f.snap = image.NewRGBA(image.Rect(0, 0, 8, 6))
		rec := do(t, NewSnapshotHandler(f), http.MethodGet, "/api/snapshot", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
			t.Errorf("expected image/png, got %s", ct)
		}
		if !bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")) {
			t.Error("body is not a PNG")
		}
	})

	t.Run("method", func(t *testing.T) {
		rec := do(t, NewSnapshotHandler(newFakeApp()), http.MethodPost, "/api/snapshot", "")
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
		}
	})
}
