// Package lips turns a face landmark set into closed lip contour rings.
//
// Each contour is kept in two spaces. Display space maps normalized
// landmarks straight onto the frame and is used for guide geometry.
// Recolor space is mirrored to match the selfie preview, has its upper
// outer edge lifted slightly and both rings scaled about their centroids;
// it is the space the mask is rasterized in.
package lips

import (
	"math"
	"sort"

	"github.com/ayusman/lipstick/internal/config"
	"github.com/ayusman/lipstick/internal/detector"
	"github.com/ayusman/lipstick/internal/geom"
)

// MinRingPoints is the smallest ring the contour builder can produce.
const MinRingPoints = 8

var (
	isLip   [detector.NumFaceLandmarks]bool
	lipList []int
)

func init() {
	for _, set := range [][]int{
		detector.UpperLipOuter, detector.LowerLipOuter,
		detector.UpperLipInner, detector.LowerLipInner,
	} {
		for _, i := range set {
			if !isLip[i] {
				isLip[i] = true
				lipList = append(lipList, i)
			}
		}
	}
	sort.Ints(lipList)
}

// IsLipIndex reports whether landmark i belongs to any lip ring.
func IsLipIndex(i int) bool {
	return i >= 0 && i < len(isLip) && isLip[i]
}

// Indices returns every lip landmark index in ascending order.
func Indices() []int {
	return append([]int(nil), lipList...)
}

// Contour is one frame's lip geometry. Outer and Inner are in recolor
// space; DisplayOuter and DisplayInner are in display space.
type Contour struct {
	Outer        geom.Ring `json:"outer"`
	Inner        geom.Ring `json:"inner"`
	DisplayOuter geom.Ring `json:"display_outer"`
	DisplayInner geom.Ring `json:"display_inner"`
}

// Clone returns a deep copy.
func (c Contour) Clone() Contour {
	return Contour{
		Outer:        c.Outer.Clone(),
		Inner:        c.Inner.Clone(),
		DisplayOuter: c.DisplayOuter.Clone(),
		DisplayInner: c.DisplayInner.Clone(),
	}
}

// Empty reports whether the contour carries no outer ring.
func (c Contour) Empty() bool {
	return len(c.Outer) == 0
}

// Extract builds the contour for a frame of w by h pixels.
func Extract(face *detector.FaceLandmarks, w, h float64, cfg config.ContourConfig) Contour {
	if face == nil {
		return Contour{}
	}

	outerU := points(face, detector.UpperLipOuter, w, h, false)
	outerL := points(face, detector.LowerLipOuter, w, h, false)
	innerU := points(face, detector.UpperLipInner, w, h, false)
	innerL := points(face, detector.LowerLipInner, w, h, false)

	outerUPx := points(face, detector.UpperLipOuter, w, h, true)
	outerLPx := points(face, detector.LowerLipOuter, w, h, true)
	innerUPx := points(face, detector.UpperLipInner, w, h, true)
	innerLPx := points(face, detector.LowerLipInner, w, h, true)

	box := geom.BBox(append(append([]geom.Point(nil), outerUPx...), outerLPx...))
	lift := math.Min(cfg.UpperBiasMaxPx, box.H*cfg.UpperBiasFrac)
	for i := range outerUPx {
		outerUPx[i].Y -= lift
	}

	return Contour{
		Outer:        geom.ScaleAbout(join(outerUPx, outerLPx), cfg.OuterScale),
		Inner:        geom.ScaleAbout(join(innerUPx, innerLPx), cfg.InnerScale),
		DisplayOuter: join(outerU, outerL),
		DisplayInner: join(innerU, innerL),
	}
}

// points maps landmark indices into pixel space. Mirrored points use
// x' = w - x*w to match the flipped preview.
func points(face *detector.FaceLandmarks, indices []int, w, h float64, mirror bool) []geom.Point {
	out := make([]geom.Point, len(indices))
	for k, i := range indices {
		p := face.Points[i]
		x := p.X * w
		if mirror {
			x = w - x
		}
		out[k] = geom.Point{X: x, Y: p.Y * h}
	}
	return out
}

// join closes a ring from an upper half and a lower half that both run
// corner to corner. The lower half is walked backwards and its copy of the
// shared closing corner is dropped, so the ring has no repeated vertex.
func join(upper, lower []geom.Point) geom.Ring {
	ring := make(geom.Ring, 0, len(upper)+len(lower))
	ring = append(ring, upper...)
	for i := len(lower) - 2; i >= 0; i-- {
		ring = append(ring, lower[i])
	}
	return ring
}
