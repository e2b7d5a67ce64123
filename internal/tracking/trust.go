package tracking

import (
	"math"

	"github.com/ayusman/lipstick/internal/config"
	"github.com/ayusman/lipstick/internal/geom"
	"github.com/ayusman/lipstick/internal/lips"
)

// TrustGate rejects a candidate contour whose outer ring centroid jumped
// further than the configured fraction of the frame diagonal since the last
// visible frame. A rejected candidate is replaced by a copy of prev. The
// gate is only armed when the previous frame was visible and both outer
// rings have the same length.
func TrustGate(prev, cand lips.Contour, wasVisible bool, w, h float64, cfg config.TrustConfig) (lips.Contour, bool) {
	if !wasVisible || len(prev.Outer) == 0 || len(prev.Outer) != len(cand.Outer) {
		return cand, false
	}

	diag := math.Max(1, math.Hypot(w, h))
	shift := geom.Distance(geom.Centroid(prev.Outer), geom.Centroid(cand.Outer)) / diag
	if shift <= cfg.MaxJumpNorm {
		return cand, false
	}

	out := prev.Clone()
	if len(out.Inner) == 0 {
		out.Inner = cand.Inner
	}
	if len(out.DisplayOuter) == 0 {
		out.DisplayOuter = cand.DisplayOuter
	}
	if len(out.DisplayInner) == 0 {
		out.DisplayInner = cand.DisplayInner
	}
	return out, true
}
