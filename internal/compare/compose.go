package compare

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/vector"

	"github.com/ayusman/lipstick/internal/config"
)

var (
	dividerColor    = color.NRGBA{R: 255, G: 255, B: 255, A: 217}
	handleFillColor = color.NRGBA{A: 179}
	handleRingColor = color.NRGBA{R: 255, G: 255, B: 255, A: 153}
)

// Compositor presents the left and right recolor passes.
type Compositor struct {
	cfg config.CompareConfig
	// Handle draws the drag marker on the divider.
	Handle bool
}

// NewCompositor creates a compositor that draws the handle marker.
func NewCompositor(cfg config.CompareConfig) *Compositor {
	return &Compositor{cfg: cfg, Handle: true}
}

// Compose writes the presented frame into dst, allocating it when nil or
// mismatched. With compare off the left buffer is shown whole. Otherwise
// pixels left of the split come from left, the rest from right, and a thin
// divider is drawn at the boundary.
func (c *Compositor) Compose(dst, left, right *image.RGBA, st State) *image.RGBA {
	if dst == nil || dst.Rect != left.Rect {
		dst = image.NewRGBA(left.Rect)
	}
	if !st.Enabled || right == nil || right.Rect != left.Rect {
		copy(dst.Pix, left.Pix)
		return dst
	}

	b := left.Rect
	splitPx := st.SplitPx(b.Dx(), c.cfg)
	cut := b.Min.X + int(math.Round(splitPx))
	rowBytes := b.Dx() * 4
	leftBytes := (cut - b.Min.X) * 4
	for y := b.Min.Y; y < b.Max.Y; y++ {
		i := left.PixOffset(b.Min.X, y)
		copy(dst.Pix[i:i+leftBytes], left.Pix[i:i+leftBytes])
		copy(dst.Pix[i+leftBytes:i+rowBytes], right.Pix[i+leftBytes:i+rowBytes])
	}

	x := float64(b.Min.X) + splitPx
	c.divider(dst, x)
	if c.Handle {
		c.handle(dst, x, float64(b.Min.Y)+float64(b.Dy())/2)
	}
	return dst
}

func (c *Compositor) divider(dst *image.RGBA, x float64) {
	b := dst.Rect
	half := c.cfg.DividerPx / 2
	z := vector.NewRasterizer(b.Dx(), b.Dy())
	x0 := float32(x - half - float64(b.Min.X))
	x1 := float32(x + half - float64(b.Min.X))
	h := float32(b.Dy())
	z.MoveTo(x0, 0)
	z.LineTo(x1, 0)
	z.LineTo(x1, h)
	z.LineTo(x0, h)
	z.ClosePath()
	z.Draw(dst, b, image.NewUniform(dividerColor), image.Point{})
}

func (c *Compositor) handle(dst *image.RGBA, cx, cy float64) {
	r := c.cfg.HandleRadius
	if r <= 0 {
		return
	}
	b := dst.Rect
	ox, oy := cx-float64(b.Min.X), cy-float64(b.Min.Y)

	fill := vector.NewRasterizer(b.Dx(), b.Dy())
	circle(fill, ox, oy, r)
	fill.Draw(dst, b, image.NewUniform(handleFillColor), image.Point{})

	// Opposite winding cancels the inner disc, leaving a ring.
	ring := vector.NewRasterizer(b.Dx(), b.Dy())
	circle(ring, ox, oy, r)
	circleReverse(ring, ox, oy, r-1.5)
	ring.Draw(dst, b, image.NewUniform(handleRingColor), image.Point{})
}

// kappa places cubic control points for a quarter circle.
const kappa = 0.5522847498

func circle(z *vector.Rasterizer, cx, cy, r float64) {
	k := r * kappa
	z.MoveTo(float32(cx+r), float32(cy))
	z.CubeTo(float32(cx+r), float32(cy+k), float32(cx+k), float32(cy+r), float32(cx), float32(cy+r))
	z.CubeTo(float32(cx-k), float32(cy+r), float32(cx-r), float32(cy+k), float32(cx-r), float32(cy))
	z.CubeTo(float32(cx-r), float32(cy-k), float32(cx-k), float32(cy-r), float32(cx), float32(cy-r))
	z.CubeTo(float32(cx+k), float32(cy-r), float32(cx+r), float32(cy-k), float32(cx+r), float32(cy))
	z.ClosePath()
}

func circleReverse(z *vector.Rasterizer, cx, cy, r float64) {
	k := r * kappa
	z.MoveTo(float32(cx+r), float32(cy))
	z.CubeTo(float32(cx+r), float32(cy-k), float32(cx+k), float32(cy-r), float32(cx), float32(cy-r))
	z.CubeTo(float32(cx-k), float32(cy-r), float32(cx-r), float32(cy-k), float32(cx-r), float32(cy))
	z.CubeTo(float32(cx-r), float32(cy+k), float32(cx-k), float32(cy+r), float32(cx), float32(cy+r))
	z.CubeTo(float32(cx+k), float32(cy+r), float32(cx+r), float32(cy+k), float32(cx+r), float32(cy))
	z.ClosePath()
}
