// Package app drives the lipstick pipeline from a video source and exposes
// the controls a viewer needs: start and stop, shade selection, compare
// mode and snapshots.
package app

import (
	"errors"
	"fmt"
	"image"
	"strconv"
	"sync"

	"gocv.io/x/gocv"
	"golang.org/x/image/draw"

	"github.com/ayusman/lipstick/internal/capture"
	"github.com/ayusman/lipstick/internal/compare"
	"github.com/ayusman/lipstick/internal/config"
	"github.com/ayusman/lipstick/internal/detector"
	"github.com/ayusman/lipstick/internal/ingest"
	"github.com/ayusman/lipstick/internal/log"
	"github.com/ayusman/lipstick/internal/pipeline"
	"github.com/ayusman/lipstick/internal/shade"
	"github.com/ayusman/lipstick/internal/store"
	"github.com/ayusman/lipstick/internal/surface"
)

var (
	// ErrNoSource is returned when processing is started without a video source.
	ErrNoSource = errors.New("no video source")
	// ErrNoFrame is returned by CaptureSnapshot before any frame was rendered.
	ErrNoFrame = errors.New("no frame rendered yet")
	// ErrUnknownShade is returned when a shade id is not in the catalog.
	ErrUnknownShade = errors.New("unknown shade")
)

// Config holds the application's collaborators. Nil detectors are looked
// up as MediaPipe services; when those are unavailable the app runs without
// an overlay.
type Config struct {
	Config config.Config
	Store  *store.Store
	Face   detector.FaceDetector
	Hands  detector.HandDetector
	// Processor overrides the frame processor, mainly for tests.
	Processor *pipeline.Processor
}

// App is the frame scheduler plus the state the viewer controls.
type App struct {
	cfg   config.Config
	store *store.Store
	face  detector.FaceDetector
	hands detector.HandDetector

	faceSlot ingest.Slot[detector.FaceLandmarks]
	handSlot ingest.Slot[[]detector.HandLandmarks]
	faceSub  *ingest.Submitter[detector.FaceLandmarks]
	handSub  *ingest.Submitter[[]detector.HandLandmarks]

	proc  *pipeline.Processor
	state *pipeline.FrameState

	mu      sync.RWMutex
	catalog []shade.Shade
	shades  shade.Selection
	compare compare.State
	source  capture.Camera
	out     surface.Surface
	stopCh  chan struct{}
	doneCh  chan struct{}
	wanted  bool
	paused  bool
	session string
	last    *image.RGBA
	srcSize image.Point
	report  pipeline.Report

	subMu   sync.Mutex
	subs    map[int]chan pipeline.Report
	nextSub int
}

// New creates an App. Selected shades and compare settings are restored
// from the store when one is configured.
func New(cfg Config) *App {
	a := &App{
		cfg:     cfg.Config,
		store:   cfg.Store,
		face:    cfg.Face,
		hands:   cfg.Hands,
		proc:    cfg.Processor,
		state:   pipeline.NewFrameState(cfg.Config),
		catalog: shade.DefaultCatalog(),
		shades:  shade.DefaultSelection(),
		compare: compare.NewState(),
		subs:    make(map[int]chan pipeline.Report),
	}
	if a.proc == nil {
		a.proc = pipeline.NewProcessor(cfg.Config)
	}

	if a.face == nil {
		if mp, err := detector.NewMediaPipeFaceDetector(cfg.Config.Detector); err == nil {
			a.face = mp
			log.Info("using MediaPipe face landmarks")
		} else {
			log.Warn("face detector unavailable, overlay disabled", "err", err)
		}
	}
	if a.hands == nil {
		if mp, err := detector.NewMediaPipeHandDetector(cfg.Config.Detector); err == nil {
			a.hands = mp
			log.Info("using MediaPipe hand landmarks")
		} else {
			log.Warn("hand detector unavailable, occlusion limited to face signals", "err", err)
		}
	}

	var detectFace ingest.DetectFunc[detector.FaceLandmarks]
	if a.face != nil {
		detectFace = a.face.DetectFace
	}
	var detectHands ingest.DetectFunc[[]detector.HandLandmarks]
	if a.hands != nil {
		detectHands = func(frame *gocv.Mat) (*[]detector.HandLandmarks, error) {
			hands, err := a.hands.DetectHands(frame)
			if err != nil {
				return nil, err
			}
			return &hands, nil
		}
	}
	a.faceSub = ingest.NewSubmitter("face", &a.faceSlot, detectFace)
	a.handSub = ingest.NewSubmitter("hands", &a.handSlot, detectHands)

	if a.store != nil {
		a.restore()
	}
	return a
}

// restore loads the catalog and the persisted selection.
func (a *App) restore() {
	if list, err := a.store.Shades().List(); err != nil {
		log.Warn("failed to load shade catalog", "err", err)
	} else if len(list) > 0 {
		a.catalog = list
	}

	load := func(key string, dst *shade.Shade) {
		v, err := a.store.Settings().Get(key)
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				log.Warn("failed to load setting", "key", key, "err", err)
			}
			return
		}
		id, err := strconv.Atoi(v)
		if err != nil {
			return
		}
		if sh, ok := shade.Find(a.catalog, id); ok {
			*dst = sh
		}
	}
	load(store.SettingLeftShade, &a.shades.Left)
	load(store.SettingRightShade, &a.shades.Right)

	var cs compare.State
	if err := a.store.Settings().GetJSON(store.SettingCompare, &cs); err == nil {
		a.compare.Enabled = cs.Enabled
		a.compare.SetSplitRatio(cs.SplitRatio, a.cfg.Compare)
	}
}

// Catalog returns the shades the viewer can choose from.
func (a *App) Catalog() []shade.Shade {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]shade.Shade(nil), a.catalog...)
}

// Shades returns the current selection.
func (a *App) Shades() shade.Selection {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.shades
}

// SetShade changes the shade one side recolors toward, starting with the next frame.
func (a *App) SetShade(side shade.Side, sh shade.Shade) error {
	if _, err := shade.ParseColor(sh.ColorHex); err != nil {
		return err
	}
	a.mu.Lock()
	switch side {
	case shade.Left:
		a.shades.Left = sh
	case shade.Right:
		a.shades.Right = sh
	default:
		a.mu.Unlock()
		return fmt.Errorf("unknown side %q", side)
	}
	a.mu.Unlock()

	key := store.SettingLeftShade
	if side == shade.Right {
		key = store.SettingRightShade
	}
	a.persist(key, strconv.Itoa(sh.ID))
	log.Info("shade selected", "side", string(side), "shade", sh.Label())
	return nil
}

// SetShadeByID selects a catalog shade by id.
func (a *App) SetShadeByID(side shade.Side, id int) (shade.Shade, error) {
	a.mu.RLock()
	sh, ok := shade.Find(a.catalog, id)
	a.mu.RUnlock()
	if !ok {
		return shade.Shade{}, fmt.Errorf("%w: %d", ErrUnknownShade, id)
	}
	return sh, a.SetShade(side, sh)
}

// Compare returns the compare-mode state.
func (a *App) Compare() compare.State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.compare
}

// SetCompareEnabled toggles compare mode. Switching it on recenters the divider.
func (a *App) SetCompareEnabled(on bool) {
	a.mu.Lock()
	a.compare.SetEnabled(on)
	cs := a.compare
	a.mu.Unlock()
	a.persistCompare(cs)
}

// SetSplitRatio moves the divider. The ratio is clamped so both halves stay visible.
func (a *App) SetSplitRatio(ratio float64) {
	a.mu.Lock()
	a.compare.SetSplitRatio(ratio, a.cfg.Compare)
	cs := a.compare
	a.mu.Unlock()
	a.persistCompare(cs)
}

// DragSplit moves the divider as a drag on the handle does, turning
// compare mode on if needed.
func (a *App) DragSplit(ratio float64) {
	a.mu.Lock()
	a.compare.DragTo(ratio, a.cfg.Compare)
	cs := a.compare
	a.mu.Unlock()
	a.persistCompare(cs)
}

func (a *App) persistCompare(cs compare.State) {
	if a.store == nil {
		return
	}
	if err := a.store.Settings().SetJSON(store.SettingCompare, cs); err != nil {
		log.Warn("failed to save compare setting", "err", err)
	}
}

func (a *App) persist(key, value string) {
	if a.store == nil {
		return
	}
	if err := a.store.Settings().Set(key, value); err != nil {
		log.Warn("failed to save setting", "key", key, "err", err)
	}
}

// CaptureSnapshot returns the last presented frame at source resolution.
func (a *App) CaptureSnapshot() (*image.RGBA, error) {
	a.mu.RLock()
	last, size := a.last, a.srcSize
	a.mu.RUnlock()
	if last == nil {
		return nil, ErrNoFrame
	}

	dst := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
	if last.Rect.Size() == size {
		draw.Draw(dst, dst.Rect, last, last.Rect.Min, draw.Src)
		return dst, nil
	}
	draw.CatmullRom.Scale(dst, dst.Rect, last, last.Rect, draw.Src, nil)
	return dst, nil
}

// LastReport returns the report of the most recent frame.
func (a *App) LastReport() pipeline.Report {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.report
}

// Subscribe returns a channel of per-frame reports. A slow reader only
// sees the latest report. Call cancel to unsubscribe.
func (a *App) Subscribe() (<-chan pipeline.Report, func()) {
	ch := make(chan pipeline.Report, 1)
	a.subMu.Lock()
	id := a.nextSub
	a.nextSub++
	a.subs[id] = ch
	a.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			a.subMu.Lock()
			delete(a.subs, id)
			a.subMu.Unlock()
		})
	}
}

func (a *App) publish(rep pipeline.Report) {
	a.subMu.Lock()
	defer a.subMu.Unlock()
	for _, ch := range a.subs {
		select {
		case ch <- rep:
			continue
		default:
		}
		// Drop the stale report so the newest one fits.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- rep:
		default:
		}
	}
}

// Close stops processing and releases the detectors.
func (a *App) Close() error {
	a.StopProcessing()

	var errs []error
	if a.face != nil {
		if err := a.face.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close face detector: %w", err))
		}
	}
	if a.hands != nil {
		if err := a.hands.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close hand detector: %w", err))
		}
	}
	return errors.Join(errs...)
}
