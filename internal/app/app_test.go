package app

import (
	"errors"
	"image/color"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/ayusman/lipstick/internal/capture"
	"github.com/ayusman/lipstick/internal/config"
	"github.com/ayusman/lipstick/internal/detector"
	"github.com/ayusman/lipstick/internal/pipeline"
	"github.com/ayusman/lipstick/internal/shade"
	"github.com/ayusman/lipstick/internal/store"
	"github.com/ayusman/lipstick/internal/surface"
	"github.com/ayusman/lipstick/internal/tint"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	_, err = store.SeedShades(s, shade.DefaultCatalog())
	require.NoError(t, err)
	return s
}

func newTestApp(t *testing.T, s *store.Store) (*App, *detector.MockFaceDetector, *detector.MockHandDetector) {
	t.Helper()
	cfg := config.Default()
	face := detector.NewMockFaceDetector()
	hands := detector.NewMockHandDetector()
	a := New(Config{
		Config:    cfg,
		Store:     s,
		Face:      face,
		Hands:     hands,
		Processor: pipeline.NewProcessorWith(cfg, tint.NewCompositorWithBlur(cfg, nil)),
	})
	t.Cleanup(func() { a.Close() })
	return a, face, hands
}

func TestApp_Defaults(t *testing.T) {
	a, _, _ := newTestApp(t, nil)

	sel := a.Shades()
	assert.Equal(t, shade.DefaultLeftID, sel.Left.ID)
	assert.True(t, sel.Right.IsNone())
	assert.Len(t, a.Catalog(), 24)
	assert.False(t, a.Compare().Enabled)
	assert.False(t, a.Running())
}

func TestApp_SetShade(t *testing.T) {
	a, _, _ := newTestApp(t, nil)

	t.Run("by id", func(t *testing.T) {
		sh, err := a.SetShadeByID(shade.Right, 7)
		require.NoError(t, err)
		assert.Equal(t, sh, a.Shades().Right)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := a.SetShadeByID(shade.Left, 999)
		assert.True(t, errors.Is(err, ErrUnknownShade))
	})

	t.Run("invalid color is rejected", func(t *testing.T) {
		before := a.Shades()
		err := a.SetShade(shade.Left, shade.Shade{ID: 50, ColorHex: "#12"})
		assert.True(t, errors.Is(err, shade.ErrInvalidColor))
		assert.Equal(t, before, a.Shades())
	})

	t.Run("unknown side", func(t *testing.T) {
		assert.Error(t, a.SetShade(shade.Side("middle"), shade.Shade{ColorHex: shade.None}))
	})
}

func TestApp_Compare(t *testing.T) {
	a, _, _ := newTestApp(t, nil)

	a.SetSplitRatio(0.3)
	a.SetCompareEnabled(true)
	assert.Equal(t, 0.5, a.Compare().SplitRatio, "enabling recenters the divider")

	a.SetSplitRatio(0)
	assert.Equal(t, config.Default().Compare.MinRatio, a.Compare().SplitRatio)

	a.SetCompareEnabled(false)
	a.DragSplit(0.7)
	assert.True(t, a.Compare().Enabled)
	assert.InDelta(t, 0.7, a.Compare().SplitRatio, 1e-9)
}

func TestApp_RestoresSettings(t *testing.T) {
	s := newTestStore(t)

	first, _, _ := newTestApp(t, s)
	_, err := first.SetShadeByID(shade.Left, 4)
	require.NoError(t, err)
	_, err = first.SetShadeByID(shade.Right, 9)
	require.NoError(t, err)
	first.DragSplit(0.35)

	second, _, _ := newTestApp(t, s)
	assert.Equal(t, 4, second.Shades().Left.ID)
	assert.Equal(t, 9, second.Shades().Right.ID)
	assert.True(t, second.Compare().Enabled)
	assert.InDelta(t, 0.35, second.Compare().SplitRatio, 1e-9)
}

func TestApp_SnapshotBeforeFirstFrame(t *testing.T) {
	a, _, _ := newTestApp(t, nil)
	_, err := a.CaptureSnapshot()
	assert.True(t, errors.Is(err, ErrNoFrame))
}

func TestApp_StartWithoutSource(t *testing.T) {
	a, _, _ := newTestApp(t, nil)
	assert.True(t, errors.Is(a.StartProcessing(nil, nil), ErrNoSource))
	assert.False(t, a.Running())
}

func TestApp_SubscribeKeepsLatest(t *testing.T) {
	a, _, _ := newTestApp(t, nil)
	ch, cancel := a.Subscribe()

	a.publish(pipeline.Report{Frame: 1})
	a.publish(pipeline.Report{Frame: 2})

	select {
	case rep := <-ch:
		assert.Equal(t, uint64(2), rep.Frame)
	default:
		t.Fatal("expected a report")
	}

	cancel()
	cancel()
	a.publish(pipeline.Report{Frame: 3})
	select {
	case <-ch:
		t.Fatal("cancelled subscriber received a report")
	default:
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestApp_ProcessingLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping OpenCV-backed test in short mode")
	}

	s := newTestStore(t)
	a, face, _ := newTestApp(t, s)
	f := detector.SyntheticFace(0.5, 0.6, 0.1, 0.04)
	face.SetFace(&f)

	frame := capture.SolidFrame(320, 240, color.RGBA{R: 200, G: 150, B: 130, A: 255})
	defer frame.Close()
	cam := capture.NewMockCamera([]*gocv.Mat{&frame}, true)
	out := surface.NewBuffer()

	require.NoError(t, a.StartProcessing(cam, out))
	require.NoError(t, a.StartProcessing(cam, out), "second start is a no-op")
	assert.True(t, a.Running())
	session := a.Status().Session
	require.NotEmpty(t, session)

	waitFor(t, 3*time.Second, func() bool { return a.LastReport().Tinted })
	st := a.Status()
	assert.Positive(t, st.Face.Results, "face landmarks were published")
	assert.Positive(t, st.Hands.Results, "hand results were published")

	img, seq := out.Latest()
	require.NotNil(t, img)
	assert.Positive(t, seq)

	snap, err := a.CaptureSnapshot()
	require.NoError(t, err)
	assert.Equal(t, 320, snap.Rect.Dx())
	assert.Equal(t, 240, snap.Rect.Dy())

	a.SetCompareEnabled(true)
	a.StopProcessing()
	assert.False(t, a.Running())
	assert.False(t, cam.IsOpen())
	assert.False(t, a.Compare().Enabled, "stopping turns compare off")
	assert.Zero(t, a.Status().Face.Results, "stopping clears landmark results")
	_, err = a.CaptureSnapshot()
	assert.True(t, errors.Is(err, ErrNoFrame))

	sess, err := s.Sessions().GetByID(session)
	require.NoError(t, err)
	assert.NotNil(t, sess.StoppedAt)
	assert.Positive(t, sess.Frames)
	assert.Equal(t, 320, sess.Width)
}

func TestApp_PauseResume(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping OpenCV-backed test in short mode")
	}

	a, _, _ := newTestApp(t, nil)
	frame := capture.SolidFrame(64, 48, color.RGBA{R: 90, G: 60, B: 50, A: 255})
	defer frame.Close()
	cam := capture.NewMockCamera([]*gocv.Mat{&frame}, true)

	require.NoError(t, a.Resume(), "resume without a pause does nothing")
	assert.False(t, a.Running())

	require.NoError(t, a.StartProcessing(cam, nil))
	a.Pause()
	assert.False(t, a.Running())
	assert.True(t, a.Status().Paused)

	require.NoError(t, a.Resume())
	assert.True(t, a.Running())
	a.StopProcessing()

	require.NoError(t, a.Resume(), "resume after stop does nothing")
	assert.False(t, a.Running())
}
