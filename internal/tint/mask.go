package tint

import (
	"image"
	"math"
	"runtime"

	"gocv.io/x/gocv"
	"golang.org/x/image/vector"

	"github.com/ayusman/lipstick/internal/config"
	"github.com/ayusman/lipstick/internal/geom"
	"github.com/ayusman/lipstick/internal/log"
)

// Region returns the padded lip box in source pixels, clamped to the frame.
// The padding grows with the box and is capped at cfg.MaxPadPx.
func Region(outer geom.Ring, w, h int, cfg config.MaskConfig) image.Rectangle {
	bb := geom.BBox(outer)
	pad := math.Round(math.Max(bb.W, bb.H) * cfg.PadFrac)
	pad = math.Min(cfg.MaxPadPx, math.Max(cfg.MinPadPx, pad))

	bx := max(0, int(math.Floor(bb.X-pad)))
	by := max(0, int(math.Floor(bb.Y-pad)))
	bw := min(w-bx, int(math.Ceil(bb.W+pad*2)))
	bh := min(h-by, int(math.Ceil(bb.H+pad*2)))
	if bw <= 0 || bh <= 0 {
		return image.Rectangle{}
	}
	return image.Rect(bx, by, bx+bw, by+bh)
}

// deviceRect scales a source-pixel rectangle to render resolution.
func deviceRect(r image.Rectangle, scale float64) image.Rectangle {
	return image.Rect(
		int(math.Round(float64(r.Min.X)*scale)),
		int(math.Round(float64(r.Min.Y)*scale)),
		int(math.Round(float64(r.Max.X)*scale)),
		int(math.Round(float64(r.Max.Y)*scale)),
	)
}

// Rasterize fills outer minus inner into an anti-aliased alpha mask covering
// rect, which is in render pixels. Ring points are in source pixels and are
// multiplied by scale.
//
// The rings are rasterized separately and combined as |outer - inner|, an
// even-odd fill of the pair that holds for any ring orientation, including
// an inner ring whose halves cross on a nearly closed mouth.
func Rasterize(outer, inner geom.Ring, rect image.Rectangle, scale float64) *image.Alpha {
	mask := image.NewAlpha(rect)
	if rect.Empty() || len(outer) < 3 {
		return mask
	}

	z := vector.NewRasterizer(rect.Dx(), rect.Dy())
	addRing(z, outer, rect.Min, scale)
	z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
	if len(inner) < 3 {
		return mask
	}

	hole := image.NewAlpha(rect)
	z.Reset(rect.Dx(), rect.Dy())
	addRing(z, inner, rect.Min, scale)
	z.Draw(hole, hole.Bounds(), image.Opaque, image.Point{})
	for i, a := range hole.Pix {
		if a > mask.Pix[i] {
			mask.Pix[i] = a - mask.Pix[i]
		} else {
			mask.Pix[i] -= a
		}
	}
	return mask
}

func addRing(z *vector.Rasterizer, ring geom.Ring, origin image.Point, scale float64) {
	pt := func(p geom.Point) (float32, float32) {
		return float32(p.X*scale - float64(origin.X)), float32(p.Y*scale - float64(origin.Y))
	}
	z.MoveTo(pt(ring[0]))
	for _, p := range ring[1:] {
		z.LineTo(pt(p))
	}
	z.ClosePath()
}

// FeatherState smooths the feather radius across frames.
type FeatherState struct {
	Radius float64 `json:"radius"`
	Seeded bool    `json:"-"`
}

// Update folds one frame's raw radius into the average and returns it.
// The first sample seeds the average.
func (f *FeatherState) Update(raw, alpha float64) float64 {
	if !f.Seeded {
		f.Radius = raw
		f.Seeded = true
		return raw
	}
	f.Radius = f.Radius*(1-alpha) + raw*alpha
	return f.Radius
}

// FeatherRadius is the raw blur radius in render pixels for a lip box of
// the given source size.
func FeatherRadius(box image.Rectangle, scale float64, cfg config.MaskConfig) float64 {
	side := float64(max(box.Dx(), box.Dy())) * scale
	r := min(cfg.FeatherMaxPx, max(cfg.FeatherMinPx, side*cfg.FeatherFrac))
	return r * (1 + cfg.SoftEdgeBoost)
}

// BlurFunc softens a mask in place with the given gaussian sigma.
type BlurFunc func(mask *image.Alpha, sigma float64)

// GaussianBlur feathers the mask with OpenCV. Pixels outside the mask
// are treated as transparent.
func GaussianBlur(mask *image.Alpha, sigma float64) {
	if sigma <= 0 || mask.Rect.Empty() {
		return
	}
	w, h := mask.Rect.Dx(), mask.Rect.Dy()
	src, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8U, packed(mask))
	if err != nil {
		log.Debug("mask feather skipped", "err", err)
		return
	}
	defer src.Close()

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.GaussianBlur(src, &dst, image.Point{}, sigma, sigma, gocv.BorderConstant)
	runtime.KeepAlive(mask)

	out, err := dst.DataPtrUint8()
	if err != nil {
		log.Debug("mask feather skipped", "err", err)
		return
	}
	if len(out) != w*h {
		log.Debug("mask feather skipped", "got", len(out), "want", w*h)
		return
	}
	for y := 0; y < h; y++ {
		copy(mask.Pix[y*mask.Stride:y*mask.Stride+w], out[y*w:(y+1)*w])
	}
}

// packed returns the mask's pixels without row padding.
func packed(mask *image.Alpha) []byte {
	w, h := mask.Rect.Dx(), mask.Rect.Dy()
	if mask.Stride == w {
		return mask.Pix[:w*h]
	}
	buf := make([]byte, 0, w*h)
	for y := 0; y < h; y++ {
		buf = append(buf, mask.Pix[y*mask.Stride:y*mask.Stride+w]...)
	}
	return buf
}
