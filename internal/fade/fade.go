// Package fade animates the overlay opacity toward its target with
// frame-rate independent exponential easing.
package fade

import (
	"math"
	"time"

	"github.com/ayusman/lipstick/internal/config"
	"github.com/ayusman/lipstick/internal/geom"
)

// State is the animated opacity. Current moves toward Target each frame.
type State struct {
	Current float64 `json:"current"`
	Target  float64 `json:"target"`
}

// Controller advances a State using separate fade-in and fade-out time constants.
type Controller struct {
	in  time.Duration
	out time.Duration
}

// NewController creates a controller from the fade configuration.
func NewController(cfg config.FadeConfig) *Controller {
	return &Controller{in: cfg.In, out: cfg.Out}
}

// SetTarget clamps and stores the target opacity.
func (s *State) SetTarget(v float64) {
	s.Target = geom.Clamp01(v)
}

// HardOcclusion drops the target to zero and halves the current opacity so
// the overlay recedes quickly even mid-fade.
func (s *State) HardOcclusion() {
	s.Target = 0
	s.Current *= 0.5
}

// Advance moves Current toward Target by the fraction 1-exp(-dt/tau), where
// tau is the fade-in constant when rising and the fade-out constant otherwise.
// Non-positive dt leaves the state unchanged.
func (c *Controller) Advance(s *State, dt time.Duration) {
	if dt <= 0 {
		return
	}
	tau := c.out
	if s.Target > s.Current {
		tau = c.in
	}
	k := 1 - math.Exp(-dt.Seconds()/max(0.001, tau.Seconds()))
	s.Current = geom.Clamp01(s.Current + (s.Target-s.Current)*k)
}
