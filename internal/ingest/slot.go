// Package ingest holds the latest completed result of each landmark detector
// and submits frames to detectors without ever blocking the frame loop.
package ingest

import "sync/atomic"

// Slot is a single-writer, single-reader cell holding the most recent
// result. Values are replaced whole; readers never see a partial write.
type Slot[T any] struct {
	v   atomic.Pointer[T]
	seq atomic.Uint64
}

// Publish replaces the slot's value. A nil value records "nothing found".
func (s *Slot[T]) Publish(v *T) {
	s.v.Store(v)
	s.seq.Add(1)
}

// Latest returns the most recent value without clearing it.
func (s *Slot[T]) Latest() *T {
	return s.v.Load()
}

// Seq counts publications since the last Clear.
func (s *Slot[T]) Seq() uint64 {
	return s.seq.Load()
}

// Clear drops the stored value and restarts the count.
func (s *Slot[T]) Clear() {
	s.v.Store(nil)
	s.seq.Store(0)
}
