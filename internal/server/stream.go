package server

import (
	"fmt"
	"image"
	"net/http"

	"github.com/ayusman/lipstick/internal/log"
	"github.com/ayusman/lipstick/internal/surface"
)

// StreamHandler serves the composited frames as MJPEG.
type StreamHandler struct {
	frames  *surface.Buffer
	quality int
}

// NewStreamHandler creates a StreamHandler reading from frames.
func NewStreamHandler(frames *surface.Buffer, quality int) *StreamHandler {
	if quality <= 0 || quality > 100 {
		quality = surface.DefaultJPEGQuality
	}
	return &StreamHandler{frames: frames, quality: quality}
}

// ServeHTTP writes one part per presented frame until the client goes away.
// A slow client skips frames instead of queueing them.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	updates, cancel := h.frames.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	var sent uint64
	for {
		if img, seq := h.frames.Latest(); img != nil && seq != sent {
			sent = seq
			if err := h.writeFrame(w, img); err != nil {
				log.Debug("stream client gone", "err", err)
				return
			}
		}

		select {
		case <-r.Context().Done():
			return
		case <-updates:
		}
	}
}

func (h *StreamHandler) writeFrame(w http.ResponseWriter, img *image.RGBA) error {
	data, err := surface.EncodeJPEG(img, h.quality)
	if err != nil {
		// An unencodable frame is skipped, not fatal to the stream.
		log.Debug("failed to encode frame", "err", err)
		return nil
	}

	if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(data)); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	if _, err := fmt.Fprint(w, "\r\n"); err != nil {
		return err
	}
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}
