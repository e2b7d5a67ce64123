package api

import (
	"encoding/json"
	"net/http"

	"github.com/ayusman/lipstick/internal/compare"
)

// CompareController is the part of the app the compare endpoint drives.
type CompareController interface {
	Compare() compare.State
	SetCompareEnabled(on bool)
	SetSplitRatio(ratio float64)
	DragSplit(ratio float64)
}

// CompareHandler serves GET and PUT /api/compare.
type CompareHandler struct {
	ctl CompareController
}

// NewCompareHandler creates a CompareHandler.
func NewCompareHandler(ctl CompareController) *CompareHandler {
	return &CompareHandler{ctl: ctl}
}

// updateCompareRequest changes only the fields that are present. Drag moves
// the divider the way the handle does and turns compare on.
type updateCompareRequest struct {
	Enabled    *bool    `json:"enabled"`
	SplitRatio *float64 `json:"split_ratio"`
	Drag       bool     `json:"drag"`
}

func (h *CompareHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.ctl.Compare())
	case http.MethodPut:
		h.update(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *CompareHandler) update(w http.ResponseWriter, r *http.Request) {
	var req updateCompareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Drag && req.SplitRatio == nil {
		writeError(w, http.StatusBadRequest, "split_ratio is required when dragging")
		return
	}

	if req.Enabled != nil {
		h.ctl.SetCompareEnabled(*req.Enabled)
	}
	if req.SplitRatio != nil {
		if req.Drag {
			h.ctl.DragSplit(*req.SplitRatio)
		} else {
			h.ctl.SetSplitRatio(*req.SplitRatio)
		}
	}
	writeJSON(w, http.StatusOK, h.ctl.Compare())
}
