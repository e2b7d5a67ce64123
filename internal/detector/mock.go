package detector

import (
	"math"
	"sync"

	"gocv.io/x/gocv"
)

// MockFaceDetector is a test implementation of FaceDetector.
// It allows tests to control the detection results.
type MockFaceDetector struct {
	mu    sync.Mutex
	face  *FaceLandmarks
	err   error
	calls int
}

// NewMockFaceDetector creates a new MockFaceDetector that finds no face.
func NewMockFaceDetector() *MockFaceDetector {
	return &MockFaceDetector{}
}

// SetFace sets the face returned by DetectFace. Nil means no face.
func (m *MockFaceDetector) SetFace(face *FaceLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if face == nil {
		m.face = nil
		return
	}
	f := *face
	m.face = &f
}

// SetError sets the error that will be returned by DetectFace.
func (m *MockFaceDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times DetectFace has been called.
func (m *MockFaceDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// DetectFace returns the pre-configured face or error.
func (m *MockFaceDetector) DetectFace(frame *gocv.Mat) (*FaceLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if m.face == nil {
		return nil, nil
	}
	f := *m.face
	return &f, nil
}

// Close is a no-op for the mock detector.
func (m *MockFaceDetector) Close() error {
	return nil
}

// MockHandDetector is a test implementation of HandDetector.
type MockHandDetector struct {
	mu    sync.Mutex
	hands []HandLandmarks
	err   error
	calls int
}

// NewMockHandDetector creates a new MockHandDetector that finds no hands.
func NewMockHandDetector() *MockHandDetector {
	return &MockHandDetector{}
}

// SetHands sets the hands that will be returned by DetectHands.
func (m *MockHandDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = append([]HandLandmarks(nil), hands...)
}

// SetError sets the error that will be returned by DetectHands.
func (m *MockHandDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times DetectHands has been called.
func (m *MockHandDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// DetectHands returns the pre-configured hands or error.
func (m *MockHandDetector) DetectHands(frame *gocv.Mat) ([]HandLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if m.hands == nil {
		return nil, nil
	}
	return append([]HandLandmarks(nil), m.hands...), nil
}

// Close is a no-op for the mock detector.
func (m *MockHandDetector) Close() error {
	return nil
}

// SyntheticFace returns a face whose mouth is centered at (cx, cy) with
// half-width rx and half-height ry, all in normalized units. The lip
// contours lie on ellipses; every other mesh point sits on a coarse grid
// around the mouth.
func SyntheticFace(cx, cy, rx, ry float64) FaceLandmarks {
	face := FaceLandmarks{Score: 0.98}

	for i := range face.Points {
		col := float64(i%22) / 21
		row := float64(i/22) / 21
		face.Points[i] = Point3D{
			X: cx + (col-0.5)*rx*5,
			Y: cy + (row-0.7)*ry*8,
		}
	}

	placeHalf(&face, UpperLipOuter, cx, cy, rx, ry, true)
	placeHalf(&face, LowerLipOuter, cx, cy, rx, ry, false)
	placeHalf(&face, UpperLipInner, cx, cy, rx*0.8, ry*0.3, true)
	placeHalf(&face, LowerLipInner, cx, cy, rx*0.8, ry*0.3, false)

	return face
}

// placeHalf lays indices from the left corner to the right corner along the
// upper or lower half of an ellipse.
func placeHalf(face *FaceLandmarks, indices []int, cx, cy, rx, ry float64, upper bool) {
	n := len(indices)
	for k, idx := range indices {
		var theta float64
		if upper {
			theta = math.Pi - math.Pi*float64(k)/float64(n-1)
		} else {
			theta = math.Pi + math.Pi*float64(k+1)/float64(n)
		}
		face.Points[idx] = Point3D{
			X: cx + rx*math.Cos(theta),
			Y: cy - ry*math.Sin(theta),
		}
	}
}

// OpenPalmLandmarks returns a preset HandLandmarks representing an open palm.
// All fingers are extended outward.
func OpenPalmLandmarks() HandLandmarks {
	landmarks := HandLandmarks{
		Handedness: "Right",
		Score:      0.95,
	}

	// Wrist at base
	landmarks.Points[Wrist] = Point3D{X: 0.5, Y: 0.8, Z: 0.0}

	// Thumb extended to the side
	landmarks.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.75, Z: 0.02}
	landmarks.Points[ThumbMCP] = Point3D{X: 0.62, Y: 0.70, Z: 0.03}
	landmarks.Points[ThumbIP] = Point3D{X: 0.68, Y: 0.65, Z: 0.03}
	landmarks.Points[ThumbTip] = Point3D{X: 0.73, Y: 0.60, Z: 0.03}

	// Index finger extended upward
	landmarks.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.68, Z: 0.0}
	landmarks.Points[IndexPIP] = Point3D{X: 0.57, Y: 0.55, Z: 0.0}
	landmarks.Points[IndexDIP] = Point3D{X: 0.58, Y: 0.45, Z: 0.0}
	landmarks.Points[IndexTip] = Point3D{X: 0.58, Y: 0.35, Z: 0.0}

	// Middle finger extended upward (slightly longer)
	landmarks.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.66, Z: 0.0}
	landmarks.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.52, Z: 0.0}
	landmarks.Points[MiddleDIP] = Point3D{X: 0.50, Y: 0.40, Z: 0.0}
	landmarks.Points[MiddleTip] = Point3D{X: 0.50, Y: 0.28, Z: 0.0}

	// Ring finger extended upward
	landmarks.Points[RingMCP] = Point3D{X: 0.45, Y: 0.68, Z: 0.0}
	landmarks.Points[RingPIP] = Point3D{X: 0.43, Y: 0.55, Z: 0.0}
	landmarks.Points[RingDIP] = Point3D{X: 0.42, Y: 0.45, Z: 0.0}
	landmarks.Points[RingTip] = Point3D{X: 0.42, Y: 0.35, Z: 0.0}

	// Pinky finger extended upward
	landmarks.Points[PinkyMCP] = Point3D{X: 0.40, Y: 0.70, Z: 0.0}
	landmarks.Points[PinkyPIP] = Point3D{X: 0.37, Y: 0.60, Z: 0.0}
	landmarks.Points[PinkyDIP] = Point3D{X: 0.35, Y: 0.50, Z: 0.0}
	landmarks.Points[PinkyTip] = Point3D{X: 0.34, Y: 0.42, Z: 0.0}

	return landmarks
}

// HandAt returns an open palm whose middle knuckle sits at (x, y).
func HandAt(x, y float64) HandLandmarks {
	h := OpenPalmLandmarks()
	mcp := h.Points[MiddleMCP]
	return h.Translate(x-mcp.X, y-mcp.Y)
}
