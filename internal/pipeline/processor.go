package pipeline

import (
	"errors"
	"image"
	"image/color"
	"time"

	"github.com/ayusman/lipstick/internal/compare"
	"github.com/ayusman/lipstick/internal/config"
	"github.com/ayusman/lipstick/internal/detector"
	"github.com/ayusman/lipstick/internal/fade"
	"github.com/ayusman/lipstick/internal/geom"
	"github.com/ayusman/lipstick/internal/lips"
	"github.com/ayusman/lipstick/internal/log"
	"github.com/ayusman/lipstick/internal/shade"
	"github.com/ayusman/lipstick/internal/smooth"
	"github.com/ayusman/lipstick/internal/tint"
	"github.com/ayusman/lipstick/internal/tracking"
)

// ErrNoFrame is returned when Step is called without a source frame.
var ErrNoFrame = errors.New("no source frame")

// Input is one frame's worth of data for Step.
type Input struct {
	// Frame is the mirrored source image at render scale.
	Frame *image.RGBA
	// Width and Height are the source dimensions in pixels, before render scale.
	Width, Height int
	// Face is the latest completed face detector result, nil when no face was found.
	Face *detector.FaceLandmarks
	// Hands is the latest completed hand detector result.
	Hands   []detector.HandLandmarks
	Shades  shade.Selection
	Compare compare.State
	// DT is the time since the previous frame.
	DT time.Duration
}

// Report describes what Step decided. It is safe to keep after the next Step.
type Report struct {
	Frame         uint64            `json:"frame"`
	Decision      tracking.Decision `json:"decision"`
	TrustRejected bool              `json:"trust_rejected"`
	Alpha         float64           `json:"alpha"`
	Target        float64           `json:"target"`
	Tinted        bool              `json:"tinted"`
	LeftColor     string            `json:"left_color"`
	RightColor    string            `json:"right_color"`
	Feather       float64           `json:"feather"`
	Compare       compare.State     `json:"compare"`
	Contour       lips.Contour      `json:"contour"`
	Hands         []geom.Rect       `json:"hands,omitempty"`
	Width         int               `json:"width"`
	Height        int               `json:"height"`
}

// Processor runs frames through the pipeline. It owns the pass buffers it
// returns, so a Processor must not be shared between goroutines.
type Processor struct {
	cfg     config.Config
	machine *tracking.Machine
	tint    *tint.Compositor
	fade    *fade.Controller
	compose *compare.Compositor

	left, right, out *image.RGBA
}

// NewProcessor creates a processor with OpenCV feathering.
func NewProcessor(cfg config.Config) *Processor {
	return NewProcessorWith(cfg, tint.NewCompositor(cfg))
}

// NewProcessorWith creates a processor around a custom tint compositor.
func NewProcessorWith(cfg config.Config, tc *tint.Compositor) *Processor {
	return &Processor{
		cfg:     cfg,
		machine: tracking.NewMachine(cfg),
		tint:    tc,
		fade:    fade.NewController(cfg.Fade),
		compose: compare.NewCompositor(cfg.Compare),
	}
}

// Step runs one frame and returns the presented image. The image is reused
// by the next call; copy it to keep it.
func (p *Processor) Step(st *FrameState, in Input) (*image.RGBA, Report, error) {
	if in.Frame == nil || in.Width <= 0 || in.Height <= 0 {
		return nil, Report{}, ErrNoFrame
	}
	st.Frame++
	w, h := float64(in.Width), float64(in.Height)
	wasVisible := st.Tracking.Visibility.State
	wasOccluded := st.Tracking.Occlusion.Occluded

	// The face result is not folded in while a hand covers the mouth, so
	// the held geometry does not follow the hand.
	if !st.Occluded() {
		st.Smoothed = smooth.Landmarks(st.Smoothed, in.Face, p.cfg.Smoothing)
	}

	cand := lips.Extract(st.Smoothed, w, h, p.cfg.Contour)
	if !cand.Empty() {
		cand = smooth.Contour(st.Prev, cand, p.cfg.Contour)
	}
	cand, rejected := tracking.TrustGate(st.Prev, cand, st.Tracking.Visibility.RawVisible, w, h, p.cfg.Trust)

	hands := tracking.HandBoxes(in.Hands, w, h, p.cfg.Occlusion.HandBoxPadPx)
	d := p.machine.Step(&st.Tracking, tracking.Observation{
		Outer:  cand.Outer,
		HasRaw: in.Face != nil,
		Hands:  hands,
		LipZ:   lipDepths(st.Smoothed),
		W:      w,
		H:      h,
	})
	if d.RawVisible {
		st.Prev = cand.Clone()
	}

	if d.ShouldShow && in.Shades.Any(in.Compare.Enabled) {
		st.Fade.SetTarget(1)
	} else {
		st.Fade.SetTarget(0)
	}
	if d.HardOcclusion {
		st.Fade.HardOcclusion()
	}

	leftHex, rightHex := in.Shades.PassColors(in.Compare.Enabled)
	rep := Report{
		Frame:         st.Frame,
		Decision:      d,
		TrustRejected: rejected,
		LeftColor:     leftHex,
		RightColor:    rightHex,
		Compare:       in.Compare,
		Contour:       cand.Clone(),
		Hands:         hands,
		Width:         in.Width,
		Height:        in.Height,
	}

	thr := p.cfg.Recolor.DrawThreshold
	var mask *tint.Mask
	if (st.Fade.Current > thr || st.Fade.Target > thr) && !d.HardOcclusion && !cand.Empty() {
		mask = p.tint.BuildMask(cand.Outer, cand.Inner, in.Width, in.Height, &st.Feather)
	}
	alpha := st.Fade.Current
	p.left = p.tint.Pass(p.left, in.Frame, mask, parse(leftHex), alpha)
	p.right = p.tint.Pass(p.right, in.Frame, mask, parse(rightHex), alpha)
	if mask != nil {
		rep.Tinted = alpha > 0
		rep.Feather = mask.Feather
	}

	p.fade.Advance(&st.Fade, in.DT)
	rep.Alpha = st.Fade.Current
	rep.Target = st.Fade.Target

	p.out = p.compose.Compose(p.out, p.left, p.right, in.Compare)

	if d.Visibility != wasVisible {
		log.Info("lips visibility changed", "frame", st.Frame, "state", d.Visibility.String())
	}
	if d.Occluded != wasOccluded {
		log.Info("occlusion changed", "frame", st.Frame, "occluded", d.Occluded)
	}
	log.Debug("frame processed",
		"frame", st.Frame,
		"raw_visible", d.RawVisible,
		"alpha", rep.Alpha,
		"trust_rejected", rejected,
	)
	return p.out, rep, nil
}

// parse resolves a pass color. Invalid colors are treated as no tint.
func parse(hex string) color.RGBA {
	c, err := shade.ParseColor(hex)
	if err != nil {
		log.Debug("ignoring invalid shade color", "color", hex, "err", err)
		return color.RGBA{}
	}
	return c
}

func lipDepths(face *detector.FaceLandmarks) []float64 {
	if face == nil {
		return nil
	}
	idx := lips.Indices()
	z := make([]float64, len(idx))
	for k, i := range idx {
		z[k] = face.Points[i].Z
	}
	return z
}
