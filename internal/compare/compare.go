// Package compare holds the split-view state and composites the two
// recolored buffers through a vertical divider.
package compare

import "github.com/ayusman/lipstick/internal/config"

// DefaultRatio is where the divider sits when compare mode is switched on.
const DefaultRatio = 0.5

// State is the compare-mode toggle and divider position.
type State struct {
	Enabled    bool    `json:"enabled"`
	SplitRatio float64 `json:"split_ratio"`
}

// NewState returns compare mode off with a centered divider.
func NewState() State {
	return State{SplitRatio: DefaultRatio}
}

// Clamp keeps a ratio within the configured band so both halves stay visible.
func Clamp(ratio float64, cfg config.CompareConfig) float64 {
	return min(cfg.MaxRatio, max(cfg.MinRatio, ratio))
}

// SetEnabled toggles compare mode. Switching it on recenters the divider.
func (s *State) SetEnabled(on bool) {
	if on && !s.Enabled {
		s.SplitRatio = DefaultRatio
	}
	s.Enabled = on
}

// SetSplitRatio moves the divider, clamped to the configured band.
func (s *State) SetSplitRatio(ratio float64, cfg config.CompareConfig) {
	s.SplitRatio = Clamp(ratio, cfg)
}

// DragTo moves the divider to ratio and turns compare mode on without
// recentering, as a drag on the handle does.
func (s *State) DragTo(ratio float64, cfg config.CompareConfig) {
	s.Enabled = true
	s.SplitRatio = Clamp(ratio, cfg)
}

// SplitPx is the divider position in pixels for a frame of the given width.
func (s State) SplitPx(width int, cfg config.CompareConfig) float64 {
	return float64(width) * Clamp(s.SplitRatio, cfg)
}
