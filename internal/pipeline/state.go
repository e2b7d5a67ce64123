// Package pipeline runs one frame of the lipstick overlay: smoothing,
// stabilization, the trust gate, the visibility and occlusion machine,
// recoloring, fading and the compare composite.
//
// All cross-frame state lives in FrameState, which the caller owns and
// passes into every Step. Resetting it is all a restart needs.
package pipeline

import (
	"github.com/ayusman/lipstick/internal/config"
	"github.com/ayusman/lipstick/internal/detector"
	"github.com/ayusman/lipstick/internal/fade"
	"github.com/ayusman/lipstick/internal/lips"
	"github.com/ayusman/lipstick/internal/tint"
	"github.com/ayusman/lipstick/internal/tracking"
)

// FrameState is everything carried from one frame to the next.
type FrameState struct {
	// Smoothed is the running landmark average. It survives detector
	// dropouts so the last known geometry can be held.
	Smoothed *detector.FaceLandmarks
	// Prev holds the rings of the last raw-visible frame.
	Prev     lips.Contour
	Tracking tracking.State
	Fade     fade.State
	Feather  tint.FeatherState
	Frame    uint64
}

// NewFrameState returns the state of a fresh session.
func NewFrameState(cfg config.Config) *FrameState {
	return &FrameState{Tracking: tracking.NewState(cfg.Visible)}
}

// Reset returns st to its initial value.
func (st *FrameState) Reset(cfg config.Config) {
	*st = *NewFrameState(cfg)
}

// Clone returns a deep copy of st.
func (st *FrameState) Clone() *FrameState {
	c := *st
	if st.Smoothed != nil {
		face := *st.Smoothed
		c.Smoothed = &face
	}
	c.Prev = st.Prev.Clone()
	return &c
}

// Occluded reports whether a hand currently covers the mouth. Callers stop
// submitting frames to the face detector while it is true.
func (st *FrameState) Occluded() bool {
	return st.Tracking.Occlusion.Occluded
}
