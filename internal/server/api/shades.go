// Package api provides the HTTP handlers for the lipstick viewer.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/lipstick/internal/app"
	"github.com/ayusman/lipstick/internal/shade"
)

// ShadeController is the part of the app the shade endpoints drive.
type ShadeController interface {
	Catalog() []shade.Shade
	Shades() shade.Selection
	SetShadeByID(side shade.Side, id int) (shade.Shade, error)
}

// ShadeHandler serves the catalog and the per-side selection.
type ShadeHandler struct {
	ctl ShadeController
}

// NewShadeHandler creates a ShadeHandler.
func NewShadeHandler(ctl ShadeController) *ShadeHandler {
	return &ShadeHandler{ctl: ctl}
}

// ServeHTTP routes /api/shades and /api/shades/{side}.
func (h *ShadeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/shades")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w, r)
		return
	}

	side, err := shade.ParseSide(path)
	if err != nil {
		writeError(w, http.StatusNotFound, "Unknown side")
		return
	}
	switch r.Method {
	case http.MethodGet:
		h.get(w, r, side)
	case http.MethodPut:
		h.set(w, r, side)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type shadeResponse struct {
	shade.Shade
	Label string `json:"label"`
}

type listShadesResponse struct {
	Shades   []shadeResponse `json:"shades"`
	Selected selectResponse  `json:"selected"`
}

type selectResponse struct {
	Left  shadeResponse `json:"left"`
	Right shadeResponse `json:"right"`
}

type setShadeRequest struct {
	ID *int `json:"id"`
}

func toShadeResponse(sh shade.Shade) shadeResponse {
	return shadeResponse{Shade: sh, Label: sh.Label()}
}

func toSelectResponse(sel shade.Selection) selectResponse {
	return selectResponse{Left: toShadeResponse(sel.Left), Right: toShadeResponse(sel.Right)}
}

// list handles GET /api/shades.
func (h *ShadeHandler) list(w http.ResponseWriter, r *http.Request) {
	catalog := h.ctl.Catalog()
	response := listShadesResponse{
		Shades:   make([]shadeResponse, 0, len(catalog)),
		Selected: toSelectResponse(h.ctl.Shades()),
	}
	for _, sh := range catalog {
		response.Shades = append(response.Shades, toShadeResponse(sh))
	}
	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/shades/{side}.
func (h *ShadeHandler) get(w http.ResponseWriter, r *http.Request, side shade.Side) {
	sel := h.ctl.Shades()
	sh := sel.Left
	if side == shade.Right {
		sh = sel.Right
	}
	writeJSON(w, http.StatusOK, toShadeResponse(sh))
}

// set handles PUT /api/shades/{side} with a catalog id.
func (h *ShadeHandler) set(w http.ResponseWriter, r *http.Request, side shade.Side) {
	var req setShadeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.ID == nil {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	sh, err := h.ctl.SetShadeByID(side, *req.ID)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrUnknownShade):
			writeError(w, http.StatusNotFound, "Shade not found")
		case errors.Is(err, shade.ErrInvalidColor):
			writeError(w, http.StatusUnprocessableEntity, "Shade has an invalid color")
		default:
			writeError(w, http.StatusInternalServerError, "Failed to select shade")
		}
		return
	}
	writeJSON(w, http.StatusOK, toShadeResponse(sh))
}
