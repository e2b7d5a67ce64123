// Package tint builds the feathered lip mask and recolors pixels under it
// while keeping their lightness.
package tint

import (
	"image"
	"image/color"

	"github.com/ayusman/lipstick/internal/config"
	"github.com/ayusman/lipstick/internal/geom"
)

// Mask is a lip mask positioned in render pixels.
type Mask struct {
	*image.Alpha
	// Region is the padded lip box in source pixels.
	Region image.Rectangle
	// Feather is the blur sigma that was applied.
	Feather float64
}

// Compositor turns lip rings into a mask and applies recolor passes with it.
type Compositor struct {
	mask    config.MaskConfig
	recolor config.RecolorConfig
	scale   float64
	blur    BlurFunc
}

// NewCompositor creates a compositor that feathers with OpenCV.
func NewCompositor(cfg config.Config) *Compositor {
	return NewCompositorWithBlur(cfg, GaussianBlur)
}

// NewCompositorWithBlur creates a compositor with a custom feather function.
// A nil blur leaves the mask hard-edged.
func NewCompositorWithBlur(cfg config.Config, blur BlurFunc) *Compositor {
	scale := cfg.Render.Scale
	if scale <= 0 {
		scale = 1
	}
	return &Compositor{mask: cfg.Mask, recolor: cfg.Recolor, scale: scale, blur: blur}
}

// Scale is the render scale the compositor expects frames at.
func (c *Compositor) Scale() float64 { return c.scale }

// BuildMask rasterizes the rings for a frame of w by h source pixels and
// feathers the result. It returns nil when the outer ring is too small to
// cover any pixel.
func (c *Compositor) BuildMask(outer, inner geom.Ring, w, h int, feather *FeatherState) *Mask {
	if len(outer) < 3 {
		return nil
	}
	region := Region(outer, w, h, c.mask)
	if region.Empty() {
		return nil
	}

	alpha := Rasterize(outer, inner, deviceRect(region, c.scale), c.scale)
	sigma := feather.Update(FeatherRadius(region, c.scale, c.mask), c.mask.FeatherEMAAlpha)
	if c.blur != nil {
		c.blur(alpha, sigma)
	}
	return &Mask{Alpha: alpha, Region: region, Feather: sigma}
}

// Pass writes src into dst and recolors it toward target at the given
// alpha. A transparent target or nil mask yields a plain copy. dst is
// reused when its bounds match src.
func (c *Compositor) Pass(dst, src *image.RGBA, mask *Mask, target color.RGBA, alpha float64) *image.RGBA {
	if dst == nil || dst.Rect != src.Rect {
		dst = image.NewRGBA(src.Rect)
	}
	copy(dst.Pix, src.Pix)
	if mask == nil || target.A == 0 {
		return dst
	}
	RecolorInto(dst, src, mask.Alpha, target, alpha, c.recolor)
	return dst
}
