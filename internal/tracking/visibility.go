// Package tracking decides, once per frame, whether the lips are visible
// and whether a hand is occluding them, and rejects implausible contour
// jumps before either decision is made.
package tracking

import (
	"fmt"
	"math"

	"github.com/ayusman/lipstick/internal/config"
	"github.com/ayusman/lipstick/internal/geom"
)

// Visibility is the debounced lip visibility state.
type Visibility int

const (
	NotVisible Visibility = iota
	Visible
)

func (v Visibility) String() string {
	if v == Visible {
		return "VISIBLE"
	}
	return "NOT_VISIBLE"
}

// MarshalText encodes the state as its name.
func (v Visibility) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText decodes a state name written by MarshalText.
func (v *Visibility) UnmarshalText(b []byte) error {
	switch string(b) {
	case "VISIBLE":
		*v = Visible
	case "NOT_VISIBLE":
		*v = NotVisible
	default:
		return fmt.Errorf("unknown visibility %q", b)
	}
	return nil
}

// VisibilityState is the persistent part of the visibility machine.
type VisibilityState struct {
	State      Visibility `json:"state"`
	GoodStreak int        `json:"good_streak"`
	BadStreak  int        `json:"bad_streak"`
	Hold       int        `json:"hold"`
	// RawVisible is the previous frame's undebounced test result. It picks
	// the hysteresis band for the next test.
	RawVisible bool `json:"raw_visible"`
}

// NewVisibilityState returns the state of a session that has not seen lips yet.
func NewVisibilityState(cfg config.VisibleConfig) VisibilityState {
	return VisibilityState{State: NotVisible, BadStreak: cfg.OffFrames}
}

// AreaFraction returns the ring's area as a fraction of the frame area.
func AreaFraction(outer geom.Ring, w, h float64) float64 {
	return geom.PolygonArea(outer) / math.Max(1, w*h)
}

// LipsPresent reports whether outer looks like a real mouth in a w by h
// frame. The area band depends on wasVisible: exiting uses the wider band,
// entering the narrower one, so a ring hovering at a single threshold does
// not flicker.
func LipsPresent(outer geom.Ring, w, h float64, wasVisible bool, cfg config.VisibleConfig) bool {
	if len(outer) < cfg.MinRingPoints {
		return false
	}

	box := geom.BBox(outer)
	if box.W < cfg.MinBoxPx || box.H < cfg.MinBoxPx {
		return false
	}

	bleed := cfg.BleedPx
	inFrame := box.X >= -bleed &&
		box.Y >= -bleed &&
		box.X+box.W <= w+bleed &&
		box.Y+box.H <= h+bleed
	if !inFrame {
		return false
	}

	if math.Max(box.W/box.H, box.H/box.W) > cfg.MaxAspect {
		return false
	}

	pct := AreaFraction(outer, w, h)
	if wasVisible {
		return pct >= cfg.MinAreaPct*cfg.MinOffMult && pct <= cfg.MaxAreaPct*cfg.MaxOffMult
	}
	return pct >= cfg.MinAreaPct*cfg.MinOnMult && pct <= cfg.MaxAreaPct*cfg.MaxOnMult
}
