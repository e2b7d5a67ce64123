// Package smooth implements temporal smoothing of face landmarks and
// motion-compensated stabilization of lip contour rings.
package smooth

import (
	"math"

	"github.com/ayusman/lipstick/internal/config"
	"github.com/ayusman/lipstick/internal/detector"
	"github.com/ayusman/lipstick/internal/geom"
	"github.com/ayusman/lipstick/internal/lips"
)

// Landmarks folds raw into smoothed and returns the result. A nil smoothed
// set is initialized from a copy of raw. A nil raw leaves smoothed as is.
//
// Lip points use an adaptive blend: displacements well below the snap
// threshold are smoothed at MinLip, displacements at or above it at MaxLip,
// and a fixed fraction of the raw delta is added on top so the average
// cannot lag indefinitely. Depth uses half the planar blend.
func Landmarks(smoothed, raw *detector.FaceLandmarks, cfg config.SmoothingConfig) *detector.FaceLandmarks {
	if raw == nil {
		return smoothed
	}
	if smoothed == nil {
		s := *raw
		return &s
	}

	for i := range smoothed.Points {
		s := &smoothed.Points[i]
		c := raw.Points[i]

		if !lips.IsLipIndex(i) {
			s.X += (c.X - s.X) * cfg.Base
			s.Y += (c.Y - s.Y) * cfg.Base
			s.Z += (c.Z - s.Z) * (cfg.Base * 0.5)
			continue
		}

		dx := c.X - s.X
		dy := c.Y - s.Y
		blend := lipBlend(math.Hypot(dx, dy), cfg)
		s.X += dx*blend + dx*cfg.LagCompensation
		s.Y += dy*blend + dy*cfg.LagCompensation
		s.Z += (c.Z - s.Z) * (blend * 0.5)
	}
	smoothed.Score = raw.Score
	return smoothed
}

func lipBlend(planar float64, cfg config.SmoothingConfig) float64 {
	ratio := 1.0
	if cfg.SnapThreshold > 0 {
		ratio = math.Min(1, planar/cfg.SnapThreshold)
	}
	return cfg.MinLip + (cfg.MaxLip-cfg.MinLip)*ratio
}

// Stabilize blends the previous ring, warped onto the current ring's
// centroid and scale, with the current ring. Rings of different length
// pass through unchanged.
func Stabilize(prev, curr geom.Ring, cfg config.ContourConfig) geom.Ring {
	if len(prev) == 0 || len(prev) != len(curr) {
		return curr
	}

	cPrev := geom.Centroid(prev)
	cCurr := geom.Centroid(curr)
	bbPrev := geom.BBox(prev)
	bbCurr := geom.BBox(curr)
	sPrev := math.Max(bbPrev.W, bbPrev.H)
	sCurr := math.Max(bbCurr.W, bbCurr.H)
	scale := math.Max(cfg.StabilizeMin, math.Min(cfg.StabilizeMax, sCurr/sPrev))

	wp := cfg.StabilizePrevW
	out := make(geom.Ring, len(curr))
	for i, p := range prev {
		warpedX := cCurr.X + (p.X-cPrev.X)*scale
		warpedY := cCurr.Y + (p.Y-cPrev.Y)*scale
		out[i] = geom.Point{
			X: warpedX*wp + curr[i].X*(1-wp),
			Y: warpedY*wp + curr[i].Y*(1-wp),
		}
	}
	return out
}

// Ease is a plain exponential blend of curr against prev with weight alpha
// on curr. Mismatched rings return a copy of curr.
func Ease(prev, curr geom.Ring, alpha float64) geom.Ring {
	if len(prev) == 0 || len(prev) != len(curr) {
		return curr.Clone()
	}
	out := make(geom.Ring, len(curr))
	for i, p := range curr {
		out[i] = geom.Point{
			X: prev[i].X*(1-alpha) + p.X*alpha,
			Y: prev[i].Y*(1-alpha) + p.Y*alpha,
		}
	}
	return out
}

// Contour stabilizes and then eases every ring of curr against prev.
func Contour(prev, curr lips.Contour, cfg config.ContourConfig) lips.Contour {
	step := func(p, c geom.Ring) geom.Ring {
		return Ease(p, Stabilize(p, c, cfg), cfg.EaseAlpha)
	}
	return lips.Contour{
		Outer:        step(prev.Outer, curr.Outer),
		Inner:        step(prev.Inner, curr.Inner),
		DisplayOuter: step(prev.DisplayOuter, curr.DisplayOuter),
		DisplayInner: step(prev.DisplayInner, curr.DisplayInner),
	}
}
