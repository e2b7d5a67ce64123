// Package surface is the output side of the pipeline: it keeps the latest
// composited frame, wakes up readers when a new one arrives and encodes
// frames for the viewer.
package surface

import (
	"image"
	"sync"
)

// Surface receives every presented frame. Implementations must copy img
// because the caller reuses it.
type Surface interface {
	Present(img *image.RGBA)
}

// Buffer is a Surface that holds the most recent frame.
type Buffer struct {
	mu   sync.RWMutex
	img  *image.RGBA
	seq  uint64
	subs map[int]chan struct{}
	next int
}

// NewBuffer creates an empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{subs: make(map[int]chan struct{})}
}

// Present stores a copy of img and notifies subscribers.
func (b *Buffer) Present(img *image.RGBA) {
	if img == nil {
		return
	}
	b.mu.Lock()
	if b.img == nil || b.img.Rect != img.Rect {
		b.img = image.NewRGBA(img.Rect)
	}
	copy(b.img.Pix, img.Pix)
	b.seq++
	for _, ch := range b.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	b.mu.Unlock()
}

// Latest returns a copy of the most recent frame and its sequence number.
// It returns nil before the first frame.
func (b *Buffer) Latest() (*image.RGBA, uint64) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.img == nil {
		return nil, b.seq
	}
	out := image.NewRGBA(b.img.Rect)
	copy(out.Pix, b.img.Pix)
	return out, b.seq
}

// Seq counts presented frames.
func (b *Buffer) Seq() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.seq
}

// Clear drops the stored frame.
func (b *Buffer) Clear() {
	b.mu.Lock()
	b.img = nil
	b.mu.Unlock()
}

// Subscribe returns a channel that receives a signal after each presented
// frame. Signals coalesce when the reader falls behind. Call cancel to
// unsubscribe.
func (b *Buffer) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}
