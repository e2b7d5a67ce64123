package tracking

import (
	"github.com/ayusman/lipstick/internal/config"
	"github.com/ayusman/lipstick/internal/geom"
)

// State is everything the machine carries from one frame to the next.
type State struct {
	Visibility VisibilityState `json:"visibility"`
	Occlusion  OcclusionState  `json:"occlusion"`
}

// NewState returns the initial state of a processing session.
func NewState(cfg config.VisibleConfig) State {
	return State{Visibility: NewVisibilityState(cfg)}
}

// Observation is one frame's input to the machine, after the trust gate.
type Observation struct {
	// Outer is the recolor-space outer ring. It may come from stale
	// landmarks when the detector lost the face.
	Outer geom.Ring
	// HasRaw is true when the face detector's latest result contains a face.
	HasRaw bool
	// Hands are padded, mirrored hand boxes.
	Hands []geom.Rect
	// LipZ holds the depth of every lip landmark. Only the soft policy reads it.
	LipZ []float64
	W, H float64
}

// Decision is the machine's verdict for one frame.
type Decision struct {
	RawVisible    bool       `json:"raw_visible"`
	HandOverlap   bool       `json:"hand_overlap"`
	SoftOcclusion bool       `json:"soft_occlusion"`
	HardOcclusion bool       `json:"hard_occlusion"`
	ShouldShow    bool       `json:"should_show"`
	Visibility    Visibility `json:"visibility"`
	Occluded      bool       `json:"occluded"`
}

// Machine runs the visibility and occlusion rules.
type Machine struct {
	vis config.VisibleConfig
	occ config.OcclusionConfig
}

// NewMachine creates a machine for the given configuration.
func NewMachine(cfg config.Config) *Machine {
	return &Machine{vis: cfg.Visible, occ: cfg.Occlusion}
}

// Step evaluates one frame and updates st in place. The order is fixed:
// visibility test, hand overlap test, occlusion streaks, hold counter.
func (m *Machine) Step(st *State, obs Observation) Decision {
	vs := &st.Visibility
	oc := &st.Occlusion

	var d Decision
	d.RawVisible = obs.HasRaw && LipsPresent(obs.Outer, obs.W, obs.H, vs.RawVisible, m.vis)

	if len(obs.Outer) > 0 {
		d.HandOverlap = HandOverlap(geom.BBox(obs.Outer), obs.Hands, m.occ.HandOverlapRatio)
	}
	d.SoftOcclusion = softSignals(oc, obs.Outer, obs.LipZ, obs.W, obs.H, m.occ)

	if d.HandOverlap {
		oc.HandOverlapStreak = min(m.occ.HandOnFrames, oc.HandOverlapStreak+1)
	} else {
		oc.HandOverlapStreak = 0
	}
	handHard := oc.HandOverlapStreak >= m.occ.HandOnFrames

	switch m.occ.Policy {
	case config.PolicySoft:
		if (obs.HasRaw && (d.HandOverlap || d.SoftOcclusion)) || !d.RawVisible {
			oc.OcclusionStreak++
		} else {
			oc.OcclusionStreak = 0
		}
		d.HardOcclusion = handHard || oc.OcclusionStreak >= m.occ.MinFrames
	default:
		oc.OcclusionStreak = 0
		d.HardOcclusion = handHard
	}

	if d.HandOverlap {
		oc.HandFreeStreak = 0
	} else {
		oc.HandFreeStreak = min(m.occ.HandFreeFrames, oc.HandFreeStreak+1)
	}
	if oc.HandFreeStreak >= m.occ.HandFreeFrames {
		oc.Occluded = false
	}

	confirmed := d.RawVisible && !d.HardOcclusion
	d.ShouldShow = confirmed || vs.Hold > 0

	if confirmed {
		vs.GoodStreak = min(m.vis.OnFrames, vs.GoodStreak+1)
		vs.BadStreak = 0
		vs.Hold = m.vis.HoldFrames
	} else {
		vs.BadStreak = min(m.vis.OffFrames, vs.BadStreak+1)
		vs.GoodStreak = 0
		if vs.Hold > 0 {
			vs.Hold--
		}
	}

	if d.HardOcclusion {
		oc.Occluded = true
		vs.Hold = 0
		d.ShouldShow = false
	}

	vs.RawVisible = d.RawVisible
	if d.ShouldShow {
		vs.State = Visible
	} else {
		vs.State = NotVisible
	}

	d.Visibility = vs.State
	d.Occluded = oc.Occluded
	return d
}
