package tint

import (
	"image"
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/ayusman/lipstick/internal/config"
	"github.com/ayusman/lipstick/internal/geom"
)

// Recolor returns a copy of src with the pixels under mask moved toward
// target. Lightness is kept from the source so lip texture survives; hue and
// saturation come from target. alpha scales the whole mask.
func Recolor(src *image.RGBA, mask *image.Alpha, target color.RGBA, alpha float64, cfg config.RecolorConfig) *image.RGBA {
	dst := image.NewRGBA(src.Rect)
	copy(dst.Pix, src.Pix)
	RecolorInto(dst, src, mask, target, alpha, cfg)
	return dst
}

// RecolorInto writes the recolored pixels of src into dst. Pixels outside the
// mask are not written, so dst must already hold a copy of src. dst and src
// may be the same image.
func RecolorInto(dst, src *image.RGBA, mask *image.Alpha, target color.RGBA, alpha float64, cfg config.RecolorConfig) {
	if mask == nil || alpha <= 0 {
		return
	}
	th, ts, _ := colorful.Color{
		R: float64(target.R) / 255,
		G: float64(target.G) / 255,
		B: float64(target.B) / 255,
	}.Hsl()

	r := mask.Rect.Intersect(src.Rect).Intersect(dst.Rect)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			ma := float64(mask.Pix[mask.PixOffset(x, y)]) / 255 * alpha
			if ma < cfg.MinMaskAlpha {
				continue
			}

			si := src.PixOffset(x, y)
			or, og, ob := src.Pix[si], src.Pix[si+1], src.Pix[si+2]
			l := lightness(or, og, ob)
			a := geom.Clamp01(cfg.BaseOpacity+cfg.ShadowBoost*(0.5-l)) * ma

			nr, ng, nb := HSLToRGB(th, ts, l)
			di := dst.PixOffset(x, y)
			dst.Pix[di] = blend(nr, or, a)
			dst.Pix[di+1] = blend(ng, og, a)
			dst.Pix[di+2] = blend(nb, ob, a)
			dst.Pix[di+3] = src.Pix[si+3]
		}
	}
}

func blend(n, o uint8, a float64) uint8 {
	return uint8(math.Round(float64(n)*a + float64(o)*(1-a)))
}
