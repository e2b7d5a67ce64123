package tracking

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/ayusman/lipstick/internal/config"
	"github.com/ayusman/lipstick/internal/detector"
	"github.com/ayusman/lipstick/internal/geom"
)

// OcclusionState is the persistent part of the occlusion machine.
type OcclusionState struct {
	AreaEMA           float64    `json:"area_ema"`
	CentroidEMA       geom.Point `json:"centroid_ema"`
	Seeded            bool       `json:"-"`
	OcclusionStreak   int        `json:"occlusion_streak"`
	HandOverlapStreak int        `json:"hand_overlap_streak"`
	HandFreeStreak    int        `json:"hand_free_streak"`
	Occluded          bool       `json:"occluded"`
}

// HandBoxes returns one padded pixel-space box per hand, mirrored into the
// same space as the recolor rings.
func HandBoxes(hands []detector.HandLandmarks, w, h, pad float64) []geom.Rect {
	boxes := make([]geom.Rect, 0, len(hands))
	for _, hand := range hands {
		pts := make([]geom.Point, len(hand.Points))
		for i, p := range hand.Points {
			pts[i] = geom.Point{X: w - p.X*w, Y: p.Y * h}
		}
		boxes = append(boxes, geom.BBox(pts).Pad(pad))
	}
	return boxes
}

// HandOverlap reports whether any hand box covers at least ratio of the
// lip box's area.
func HandOverlap(lip geom.Rect, hands []geom.Rect, ratio float64) bool {
	need := lip.Area() * ratio
	for _, hb := range hands {
		if geom.IntersectArea(hb, lip) >= need {
			return true
		}
	}
	return false
}

// softSignals updates the area and centroid averages and reports whether
// the ring looks occluded without a hand: a collapsing area or a centroid
// jitter spike while the head is not moving fast, or noisy lip depth.
func softSignals(st *OcclusionState, outer geom.Ring, lipZ []float64, w, h float64, cfg config.OcclusionConfig) bool {
	if len(outer) == 0 {
		return false
	}

	area := geom.PolygonArea(outer)
	c := geom.Centroid(outer)
	if !st.Seeded {
		st.AreaEMA = area
		st.CentroidEMA = c
		st.Seeded = true
	}
	st.AreaEMA = st.AreaEMA*(1-cfg.AreaEMAAlpha) + area*cfg.AreaEMAAlpha

	prev := st.CentroidEMA
	st.CentroidEMA.X += (c.X - st.CentroidEMA.X) * cfg.CentroidEMAAlpha
	st.CentroidEMA.Y += (c.Y - st.CentroidEMA.Y) * cfg.CentroidEMAAlpha

	diag := math.Max(1, math.Hypot(w, h))
	headVel := geom.Distance(c, prev) / diag
	jitter := geom.Distance(c, st.CentroidEMA) / diag
	fastHead := headVel > cfg.HeadVelThresh

	var zStd float64
	if len(lipZ) > 0 {
		_, zStd = stat.PopMeanStdDev(lipZ, nil)
	}

	areaCollapse := area < st.AreaEMA*(1-cfg.AreaDrop) && !fastHead
	jitterSpike := jitter > cfg.JitterThresh && !fastHead
	return areaCollapse || jitterSpike || zStd > cfg.ZStdThresh
}
