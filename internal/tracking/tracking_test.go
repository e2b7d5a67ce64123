package tracking

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/lipstick/internal/config"
	"github.com/ayusman/lipstick/internal/detector"
	"github.com/ayusman/lipstick/internal/geom"
	"github.com/ayusman/lipstick/internal/lips"
)

const (
	frameW = 640.0
	frameH = 480.0
)

// rectRing returns an 8-point ring tracing the rectangle.
func rectRing(x, y, w, h float64) geom.Ring {
	return geom.Ring{
		{X: x, Y: y}, {X: x + w/2, Y: y}, {X: x + w, Y: y}, {X: x + w, Y: y + h/2},
		{X: x + w, Y: y + h}, {X: x + w/2, Y: y + h}, {X: x, Y: y + h}, {X: x, Y: y + h/2},
	}
}

func mouth() geom.Ring {
	return rectRing(290, 300, 60, 30)
}

func contourAt(outer geom.Ring) lips.Contour {
	return lips.Contour{
		Outer:        outer,
		Inner:        geom.ScaleAbout(outer, 0.5),
		DisplayOuter: outer.Clone(),
		DisplayInner: geom.ScaleAbout(outer, 0.5),
	}
}

func translate(r geom.Ring, dx, dy float64) geom.Ring {
	out := r.Clone()
	for i := range out {
		out[i].X += dx
		out[i].Y += dy
	}
	return out
}

func TestTrustGate(t *testing.T) {
	cfg := config.Default().Trust
	limit := cfg.MaxJumpNorm * 800 // 640x480 has an 800px diagonal
	prev := contourAt(mouth())

	tests := []struct {
		name       string
		cand       lips.Contour
		wasVisible bool
		rejected   bool
	}{
		{"just under threshold", contourAt(translate(mouth(), limit-1, 0)), true, false},
		{"just over threshold", contourAt(translate(mouth(), limit+1, 0)), true, true},
		{"diagonal jump over threshold", contourAt(translate(mouth(), 70, 70)), true, true},
		{"not armed when previously hidden", contourAt(translate(mouth(), 300, 0)), false, false},
		{"not armed on length mismatch", contourAt(translate(mouth(), 300, 0)[:6]), true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, rejected := TrustGate(prev, tt.cand, tt.wasVisible, frameW, frameH, cfg)
			assert.Equal(t, tt.rejected, rejected)
			if tt.rejected {
				assert.Equal(t, prev, got, "rejected frame must reuse the previous contour")
			} else {
				assert.Equal(t, tt.cand, got)
			}
		})
	}

	t.Run("no previous ring", func(t *testing.T) {
		cand := contourAt(mouth())
		got, rejected := TrustGate(lips.Contour{}, cand, true, frameW, frameH, cfg)
		assert.False(t, rejected)
		assert.Equal(t, cand, got)
	})

	t.Run("rejected contour does not alias previous", func(t *testing.T) {
		got, _ := TrustGate(prev, contourAt(translate(mouth(), 400, 0)), true, frameW, frameH, cfg)
		got.Outer[0].X = -50
		assert.NotEqual(t, -50.0, prev.Outer[0].X)
	})
}

func TestLipsPresent(t *testing.T) {
	cfg := config.Default().Visible

	tests := []struct {
		name  string
		outer geom.Ring
		want  bool
	}{
		{"normal mouth", mouth(), true},
		{"too few points", mouth()[:6], false},
		{"tiny box", rectRing(300, 300, 3, 30), false},
		{"left of frame", rectRing(-20, 300, 60, 30), false},
		{"within bleed", rectRing(-1.5, 300, 60, 30), true},
		{"below frame", rectRing(300, 470, 60, 30), false},
		{"thin but plausible", rectRing(20, 200, 112, 4.1), true},
		{"too thin", rectRing(20, 200, 116, 4.05), false},
		{"too large", rectRing(0, 0, 400, 200), false},
		{"degenerate", make(geom.Ring, 8), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LipsPresent(tt.outer, frameW, frameH, false, cfg))
		})
	}
}

// ringWithArea returns a rectangle ring with the given area and a 2:1 aspect.
func ringWithArea(area float64) geom.Ring {
	h := math.Sqrt(area / 2)
	return rectRing(300, 200, area/h, h)
}

func TestLipsPresent_Hysteresis(t *testing.T) {
	cfg := config.Default().Visible
	frameArea := frameW * frameH
	on := cfg.MinAreaPct * cfg.MinOnMult * frameArea

	seq := []float64{}
	for k := 0; k < 6; k++ {
		seq = append(seq, 0.9*on, 1.1*on)
	}

	t.Run("naive test flips every step", func(t *testing.T) {
		flips := 0
		prev := LipsPresent(ringWithArea(seq[0]), frameW, frameH, false, cfg)
		for _, a := range seq[1:] {
			now := LipsPresent(ringWithArea(a), frameW, frameH, false, cfg)
			if now != prev {
				flips++
			}
			prev = now
		}
		assert.Equal(t, len(seq)-1, flips)
	})

	t.Run("hysteretic test holds while visible", func(t *testing.T) {
		visible := true
		for i, a := range seq {
			visible = LipsPresent(ringWithArea(a), frameW, frameH, visible, cfg)
			require.True(t, visible, "dropped to not visible at step %d (area %f)", i, a)
		}
	})

	t.Run("machine stays visible", func(t *testing.T) {
		m := NewMachine(config.Default())
		st := NewState(cfg)
		for i := 0; i < 3; i++ {
			m.Step(&st, Observation{Outer: ringWithArea(1.1 * on), HasRaw: true, W: frameW, H: frameH})
		}
		for i, a := range seq {
			d := m.Step(&st, Observation{Outer: ringWithArea(a), HasRaw: true, W: frameW, H: frameH})
			require.True(t, d.RawVisible, "raw visibility dropped at step %d", i)
			require.Equal(t, Visible, d.Visibility)
		}
	})
}

func TestHandBoxes_Mirrored(t *testing.T) {
	hand := detector.HandAt(0.25, 0.5)
	boxes := HandBoxes([]detector.HandLandmarks{hand}, frameW, frameH, 0)
	require.Len(t, boxes, 1)

	c := geom.Point{X: boxes[0].X + boxes[0].W/2, Y: boxes[0].Y + boxes[0].H/2}
	assert.Greater(t, c.X, frameW/2, "a hand on the left of the raw frame appears on the right")

	padded := HandBoxes([]detector.HandLandmarks{hand}, frameW, frameH, 36)
	assert.InDelta(t, boxes[0].W+72, padded[0].W, 1e-9)
}

func TestHandOverlap(t *testing.T) {
	lip := geom.Rect{X: 0, Y: 0, W: 100, H: 50} // area 5000, 3.5% is 175

	tests := []struct {
		name  string
		hands []geom.Rect
		want  bool
	}{
		{"no hands", nil, false},
		{"far away", []geom.Rect{{X: 300, Y: 300, W: 50, H: 50}}, false},
		{"just below ratio", []geom.Rect{{X: 90, Y: 0, W: 50, H: 17}}, false},
		{"above ratio", []geom.Rect{{X: 90, Y: 0, W: 50, H: 18}}, true},
		{"second hand overlaps", []geom.Rect{{X: 300, Y: 300, W: 5, H: 5}, {X: 10, Y: 10, W: 40, H: 40}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HandOverlap(lip, tt.hands, 0.035))
		})
	}
}

func visibleObs() Observation {
	return Observation{Outer: mouth(), HasRaw: true, W: frameW, H: frameH}
}

func handOverMouth() []geom.Rect {
	return []geom.Rect{{X: 300, Y: 300, W: 40, H: 40}}
}

func TestMachine_OcclusionPersistence(t *testing.T) {
	m := NewMachine(config.Default())
	st := NewState(config.Default().Visible)

	for i := 0; i < 3; i++ {
		d := m.Step(&st, visibleObs())
		require.Equal(t, Visible, d.Visibility)
	}

	t.Run("single overlapping frame does not occlude", func(t *testing.T) {
		obs := visibleObs()
		obs.Hands = handOverMouth()
		d := m.Step(&st, obs)
		assert.True(t, d.HandOverlap)
		assert.False(t, d.HardOcclusion)
		assert.False(t, d.Occluded)
		assert.Equal(t, Visible, d.Visibility)

		d = m.Step(&st, visibleObs())
		assert.False(t, d.Occluded)
	})

	t.Run("two consecutive overlapping frames occlude", func(t *testing.T) {
		obs := visibleObs()
		obs.Hands = handOverMouth()
		m.Step(&st, obs)
		d := m.Step(&st, obs)
		assert.True(t, d.HardOcclusion)
		assert.True(t, d.Occluded)
		assert.False(t, d.ShouldShow)
		assert.Equal(t, NotVisible, d.Visibility)
		assert.Zero(t, st.Visibility.Hold, "hard occlusion clears the hold")
	})

	t.Run("one hand-free frame does not release", func(t *testing.T) {
		d := m.Step(&st, visibleObs())
		assert.True(t, d.Occluded)
	})

	t.Run("second hand-free frame releases", func(t *testing.T) {
		d := m.Step(&st, visibleObs())
		assert.False(t, d.Occluded)
		assert.Equal(t, Visible, d.Visibility)
	})
}

func TestMachine_HoldBridgesDropout(t *testing.T) {
	cfg := config.Default()
	m := NewMachine(cfg)
	st := NewState(cfg.Visible)

	for i := 0; i < 5; i++ {
		m.Step(&st, visibleObs())
	}
	require.Equal(t, cfg.Visible.HoldFrames, st.Visibility.Hold)

	dropout := Observation{Outer: mouth(), HasRaw: false, W: frameW, H: frameH}
	for frame := 1; frame <= cfg.Visible.HoldFrames; frame++ {
		d := m.Step(&st, dropout)
		require.False(t, d.RawVisible)
		require.Equal(t, Visible, d.Visibility, "dropout frame %d", frame)
	}

	d := m.Step(&st, dropout)
	assert.Equal(t, NotVisible, d.Visibility)
	assert.Equal(t, cfg.Visible.OffFrames, st.Visibility.BadStreak)
	assert.Zero(t, st.Visibility.GoodStreak)
}

func TestMachine_NeverVisibleWithoutLandmarks(t *testing.T) {
	m := NewMachine(config.Default())
	st := NewState(config.Default().Visible)

	for i := 0; i < 10; i++ {
		d := m.Step(&st, Observation{W: frameW, H: frameH})
		require.Equal(t, NotVisible, d.Visibility)
		require.False(t, d.ShouldShow)
	}
}

func TestMachine_SoftPolicy(t *testing.T) {
	cfg := config.Default()
	cfg.Occlusion.Policy = config.PolicySoft
	m := NewMachine(cfg)

	t.Run("collapsing area occludes after min frames", func(t *testing.T) {
		st := NewState(cfg.Visible)
		for i := 0; i < 10; i++ {
			m.Step(&st, visibleObs())
		}

		collapsed := Observation{Outer: rectRing(315, 305, 20, 10), HasRaw: true, W: frameW, H: frameH}
		var d Decision
		for i := 1; i <= cfg.Occlusion.MinFrames; i++ {
			d = m.Step(&st, collapsed)
			require.True(t, d.SoftOcclusion, "frame %d", i)
			if i < cfg.Occlusion.MinFrames {
				require.False(t, d.HardOcclusion, "frame %d", i)
			}
		}
		assert.True(t, d.HardOcclusion)
		assert.True(t, d.Occluded)
	})

	t.Run("noisy depth is a soft signal", func(t *testing.T) {
		st := NewState(cfg.Visible)
		obs := visibleObs()
		obs.LipZ = []float64{-0.1, 0.1, -0.1, 0.1}
		d := m.Step(&st, obs)
		assert.True(t, d.SoftOcclusion)
	})

	t.Run("hand-only policy ignores soft signals", func(t *testing.T) {
		hm := NewMachine(config.Default())
		st := NewState(cfg.Visible)
		for i := 0; i < 10; i++ {
			hm.Step(&st, visibleObs())
		}
		obs := visibleObs()
		obs.LipZ = []float64{-0.1, 0.1, -0.1, 0.1}
		for i := 0; i < 5; i++ {
			d := hm.Step(&st, obs)
			require.False(t, d.HardOcclusion)
			require.Equal(t, Visible, d.Visibility)
		}
	})
}

func TestVisibility_String(t *testing.T) {
	assert.Equal(t, "VISIBLE", Visible.String())
	assert.Equal(t, "NOT_VISIBLE", NotVisible.String())

	b, err := NotVisible.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "NOT_VISIBLE", string(b))

	var v Visibility
	require.NoError(t, v.UnmarshalText([]byte("VISIBLE")))
	assert.Equal(t, Visible, v)
	assert.Error(t, v.UnmarshalText([]byte("maybe")))
}
