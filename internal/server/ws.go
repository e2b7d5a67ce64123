package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/lipstick/internal/log"
	"github.com/ayusman/lipstick/internal/pipeline"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

const writeWait = 2 * time.Second

// ReportSource yields per-frame reports.
type ReportSource interface {
	Subscribe() (<-chan pipeline.Report, func())
	LastReport() pipeline.Report
}

// StateHandler pushes each frame's report, including the lip contour and
// hand boxes used to draw guides, to WebSocket clients. A new client first
// gets the most recent report so it can draw before the next frame.
type StateHandler struct {
	src ReportSource
}

// NewStateHandler creates a StateHandler.
func NewStateHandler(src ReportSource) *StateHandler {
	return &StateHandler{src: src}
}

type stateMessage struct {
	Report    pipeline.Report `json:"report"`
	Timestamp int64           `json:"timestamp"`
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *StateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	reports, cancel := h.src.Subscribe()
	defer cancel()

	send := func(rep pipeline.Report) bool {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		msg := stateMessage{Report: rep, Timestamp: time.Now().UnixMilli()}
		if err := conn.WriteJSON(msg); err != nil {
			log.Debug("websocket client gone", "err", err)
			return false
		}
		return true
	}
	if last := h.src.LastReport(); last.Frame > 0 && !send(last) {
		return
	}

	// Reading detects the client closing the connection.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case rep := <-reports:
			if !send(rep) {
				return
			}
		}
	}
}
