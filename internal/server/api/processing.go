package api

import (
	"errors"
	"image"
	"net/http"
	"strings"

	"github.com/ayusman/lipstick/internal/app"
	"github.com/ayusman/lipstick/internal/capture"
	"github.com/ayusman/lipstick/internal/log"
	"github.com/ayusman/lipstick/internal/surface"
)

// ProcessingController is the part of the app that starts and stops rendering.
type ProcessingController interface {
	StartProcessing(src capture.Camera, out surface.Surface) error
	StopProcessing()
	Pause()
	Resume() error
	Status() app.Status
}

// ProcessingHandler serves /api/processing and its start, stop, pause and
// resume actions. The viewer pauses while its page is hidden and resumes
// when it is shown again.
type ProcessingHandler struct {
	ctl    ProcessingController
	source func() capture.Camera
	out    surface.Surface
}

// NewProcessingHandler creates a ProcessingHandler. source is called on every
// start to obtain a fresh video source.
func NewProcessingHandler(ctl ProcessingController, source func() capture.Camera, out surface.Surface) *ProcessingHandler {
	return &ProcessingHandler{ctl: ctl, source: source, out: out}
}

func (h *ProcessingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	action := strings.TrimPrefix(r.URL.Path, "/api/processing")
	action = strings.TrimPrefix(action, "/")

	switch {
	case action == "" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, h.ctl.Status())
	case action == "start" && r.Method == http.MethodPost:
		h.start(w, r)
	case action == "stop" && r.Method == http.MethodPost:
		h.ctl.StopProcessing()
		writeJSON(w, http.StatusOK, h.ctl.Status())
	case action == "pause" && r.Method == http.MethodPost:
		h.ctl.Pause()
		writeJSON(w, http.StatusOK, h.ctl.Status())
	case action == "resume" && r.Method == http.MethodPost:
		if err := h.ctl.Resume(); err != nil {
			log.Warn("failed to resume processing", "err", err)
			writeError(w, http.StatusServiceUnavailable, "Failed to reopen video source")
			return
		}
		writeJSON(w, http.StatusOK, h.ctl.Status())
	case action == "" || action == "start" || action == "stop" || action == "pause" || action == "resume":
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

func (h *ProcessingHandler) start(w http.ResponseWriter, r *http.Request) {
	var src capture.Camera
	if h.source != nil {
		src = h.source()
	}
	if err := h.ctl.StartProcessing(src, h.out); err != nil {
		if errors.Is(err, app.ErrNoSource) {
			writeError(w, http.StatusServiceUnavailable, "No video source configured")
			return
		}
		log.Warn("failed to start processing", "err", err)
		writeError(w, http.StatusServiceUnavailable, "Failed to open video source")
		return
	}
	writeJSON(w, http.StatusOK, h.ctl.Status())
}

// Snapshotter returns the last composited frame at source resolution.
type Snapshotter interface {
	CaptureSnapshot() (*image.RGBA, error)
}

// SnapshotHandler serves GET /api/snapshot as a PNG.
type SnapshotHandler struct {
	snap Snapshotter
}

// NewSnapshotHandler creates a SnapshotHandler.
func NewSnapshotHandler(snap Snapshotter) *SnapshotHandler {
	return &SnapshotHandler{snap: snap}
}

func (h *SnapshotHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	img, err := h.snap.CaptureSnapshot()
	if err != nil {
		if errors.Is(err, app.ErrNoFrame) {
			writeError(w, http.StatusConflict, "No frame rendered yet")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to capture snapshot")
		return
	}

	data, err := surface.EncodePNG(img)
	if err != nil {
		log.Warn("failed to encode snapshot", "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to encode snapshot")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", `attachment; filename="lipstick.png"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
