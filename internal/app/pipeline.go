package app

import (
	"fmt"
	"image"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/lipstick/internal/capture"
	"github.com/ayusman/lipstick/internal/detector"
	"github.com/ayusman/lipstick/internal/log"
	"github.com/ayusman/lipstick/internal/pipeline"
	"github.com/ayusman/lipstick/internal/store"
	"github.com/ayusman/lipstick/internal/surface"
)

// Status summarizes the scheduler for status endpoints.
type Status struct {
	Running bool   `json:"running"`
	Paused  bool   `json:"paused"`
	Session string `json:"session,omitempty"`
	Frames  uint64 `json:"frames"`

	Face  DetectorStatus `json:"face"`
	Hands DetectorStatus `json:"hands"`
}

// DetectorStatus tells how far a detector keeps up with the frame loop.
// Results counts landmark sets published since the session started.
type DetectorStatus struct {
	Results uint64 `json:"results"`
	Busy    bool   `json:"busy"`
}

// StartProcessing opens src and renders every tick into out. Calling it
// while processing is running does nothing.
func (a *App) StartProcessing(src capture.Camera, out surface.Surface) error {
	if src == nil {
		return ErrNoSource
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopCh != nil {
		return nil
	}
	a.source = src
	a.out = out
	a.wanted = true
	a.paused = false
	return a.startLocked()
}

// startLocked opens the source and launches the loop. a.mu must be held.
func (a *App) startLocked() error {
	if err := a.source.Open(); err != nil {
		return fmt.Errorf("open video source: %w", err)
	}

	a.faceSub.Reset()
	a.handSub.Reset()
	a.state.Reset(a.cfg)
	a.last = nil
	a.session = uuid.NewString()

	if a.store != nil {
		err := a.store.Sessions().Start(&store.Session{
			ID:     a.session,
			Camera: a.cfg.Camera.DeviceID,
			Width:  a.cfg.Camera.Width,
			Height: a.cfg.Camera.Height,
		})
		if err != nil {
			log.Warn("failed to record session", "session", a.session, "err", err)
		}
	}

	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	go a.runPipeline(a.source, a.out, a.stopCh, a.doneCh)
	log.Info("processing started", "session", a.session)
	return nil
}

// StopProcessing stops the loop, releases the source and forgets all
// per-session state. Compare mode is switched off.
func (a *App) StopProcessing() {
	a.mu.Lock()
	a.wanted = false
	a.paused = false
	a.mu.Unlock()

	a.halt()

	a.mu.Lock()
	a.compare.SetEnabled(false)
	cs := a.compare
	a.last = nil
	a.mu.Unlock()
	a.persistCompare(cs)
}

// Pause stops processing while remembering that it should resume, as when
// the viewer is hidden.
func (a *App) Pause() {
	a.mu.Lock()
	if a.stopCh == nil {
		a.mu.Unlock()
		return
	}
	a.paused = true
	a.mu.Unlock()
	a.halt()
	log.Info("processing paused")
}

// Resume restarts processing after Pause.
func (a *App) Resume() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.paused || !a.wanted || a.stopCh != nil {
		return nil
	}
	a.paused = false
	return a.startLocked()
}

// halt stops the loop goroutine and tears down the session.
func (a *App) halt() {
	a.mu.Lock()
	stopCh, doneCh := a.stopCh, a.doneCh
	a.stopCh, a.doneCh = nil, nil
	src, session := a.source, a.session
	a.session = ""
	a.mu.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)
	<-doneCh

	if err := src.Close(); err != nil {
		log.Warn("failed to close video source", "err", err)
	}
	a.faceSub.Wait()
	a.handSub.Wait()
	a.faceSub.Reset()
	a.handSub.Reset()

	a.mu.Lock()
	frames := a.state.Frame
	size := a.srcSize
	a.state.Reset(a.cfg)
	a.mu.Unlock()

	if a.store != nil && session != "" {
		if err := a.store.Sessions().Finish(session, frames, size.X, size.Y); err != nil {
			log.Warn("failed to finish session", "session", session, "err", err)
		}
	}
	log.Info("processing stopped", "session", session, "frames", frames)
}

// Running reports whether the loop is active.
func (a *App) Running() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.stopCh != nil
}

// Status returns the scheduler state.
func (a *App) Status() Status {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return Status{
		Running: a.stopCh != nil,
		Paused:  a.paused,
		Session: a.session,
		Frames:  a.report.Frame,
		Face:    DetectorStatus{Results: a.faceSlot.Seq(), Busy: a.faceSub.InFlight()},
		Hands:   DetectorStatus{Results: a.handSlot.Seq(), Busy: a.handSub.InFlight()},
	}
}

// runPipeline is the frame loop. Each tick reads the newest source frame,
// hands it to the detectors without waiting for them, and renders with
// whatever landmarks were last published.
func (a *App) runPipeline(src capture.Camera, out surface.Surface, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	fps := a.cfg.Render.FPS
	if fps <= 0 {
		fps = capture.DefaultFPS
	}
	src.SetFPS(fps)
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	var buf *image.RGBA
	lastTick := time.Now()
	for {
		select {
		case <-stopCh:
			return
		case now := <-ticker.C:
			dt := now.Sub(lastTick)
			lastTick = now
			buf = a.tick(src, out, buf, dt)
		}
	}
}

// tick renders one frame. A failure is logged and skips only this frame;
// a panic inside Step rolls the frame state back to before the frame.
func (a *App) tick(src capture.Camera, out surface.Surface, buf *image.RGBA, dt time.Duration) (next *image.RGBA) {
	next = buf
	var saved *pipeline.FrameState
	defer func() {
		if r := recover(); r != nil {
			if saved != nil {
				*a.state = *saved
			}
			log.Error("frame panicked", "err", r)
		}
	}()

	frame, err := src.ReadFrame()
	if err != nil {
		log.Debug("failed to read frame", "err", err)
		return next
	}
	defer frame.Close()

	// The hand detector keeps running while occluded so the release is seen.
	if !a.state.Occluded() {
		a.faceSub.Submit(frame)
	}
	a.handSub.Submit(frame)

	next, err = capture.MirroredRGBA(frame, a.cfg.Render.Scale, buf)
	if err != nil {
		log.Debug("failed to convert frame", "err", err)
		return buf
	}

	var hands []detector.HandLandmarks
	if hs := a.handSlot.Latest(); hs != nil {
		hands = *hs
	}

	a.mu.RLock()
	in := pipeline.Input{
		Frame:   next,
		Width:   frame.Cols(),
		Height:  frame.Rows(),
		Face:    a.faceSlot.Latest(),
		Hands:   hands,
		Shades:  a.shades,
		Compare: a.compare,
		DT:      dt,
	}
	a.mu.RUnlock()

	saved = a.state.Clone()
	img, rep, err := a.proc.Step(a.state, in)
	saved = nil
	if err != nil {
		log.Debug("frame skipped", "err", err)
		return next
	}
	if out != nil {
		out.Present(img)
	}

	a.mu.Lock()
	if a.last == nil || a.last.Rect != img.Rect {
		a.last = image.NewRGBA(img.Rect)
	}
	copy(a.last.Pix, img.Pix)
	a.srcSize = image.Pt(in.Width, in.Height)
	a.report = rep
	a.mu.Unlock()

	a.publish(rep)
	return next
}
