package ingest

import (
	"fmt"
	"sync"
	"sync/atomic"

	"gocv.io/x/gocv"

	"github.com/ayusman/lipstick/internal/log"
)

// DetectFunc runs one detector on one frame. A nil result means nothing was found.
type DetectFunc[T any] func(frame *gocv.Mat) (*T, error)

// Submitter sends frames to a detector in the background and publishes each
// completed result into a Slot. At most one request is in flight; Submit
// returns false instead of queueing when the detector is still busy.
type Submitter[T any] struct {
	name   string
	detect DetectFunc[T]
	slot   *Slot[T]

	busy     atomic.Bool
	gen      atomic.Uint64
	failures atomic.Int64
	wg       sync.WaitGroup
}

// NewSubmitter creates a submitter that publishes into slot. A nil detect
// function yields a submitter that never submits.
func NewSubmitter[T any](name string, slot *Slot[T], detect DetectFunc[T]) *Submitter[T] {
	return &Submitter[T]{name: name, detect: detect, slot: slot}
}

// Submit starts detection on a private copy of frame. It reports whether a
// request was started.
func (s *Submitter[T]) Submit(frame *gocv.Mat) bool {
	if s.detect == nil || frame == nil || frame.Empty() {
		return false
	}
	if !s.busy.CompareAndSwap(false, true) {
		return false
	}

	clone := frame.Clone()
	gen := s.gen.Load()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.busy.Store(false)
		defer clone.Close()

		v, err := s.run(&clone)
		if err != nil {
			if s.failures.Add(1) == 1 {
				log.Warn("detector failed", "detector", s.name, "err", err)
			} else {
				log.Debug("detector failed", "detector", s.name, "err", err)
			}
			return
		}
		if n := s.failures.Swap(0); n > 0 {
			log.Info("detector recovered", "detector", s.name, "failures", n)
		}

		// Results started before a Reset belong to the previous session.
		if s.gen.Load() != gen {
			return
		}
		s.slot.Publish(v)
	}()
	return true
}

func (s *Submitter[T]) run(frame *gocv.Mat) (v *T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("detector %s panicked: %v", s.name, r)
		}
	}()
	return s.detect(frame)
}

// InFlight reports whether a request is currently outstanding.
func (s *Submitter[T]) InFlight() bool {
	return s.busy.Load()
}

// Wait blocks until the outstanding request, if any, has finished.
func (s *Submitter[T]) Wait() {
	s.wg.Wait()
}

// Reset discards the slot's value and any result still in flight.
func (s *Submitter[T]) Reset() {
	s.gen.Add(1)
	s.slot.Clear()
	s.failures.Store(0)
}
