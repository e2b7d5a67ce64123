// Package detector provides the face and hand landmark detector interfaces
// and the landmark types they publish.
package detector

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// NumFaceLandmarks is the size of a refined MediaPipe face mesh (468 mesh points plus 10 iris points).
const NumFaceLandmarks = 478

// Lip contour indices into the face mesh. Each half runs from the left mouth
// corner to the right one; the upper and lower halves share their last index.
var (
	UpperLipOuter = []int{61, 185, 40, 39, 37, 0, 267, 269, 270, 409, 291}
	LowerLipOuter = []int{146, 91, 181, 84, 17, 314, 405, 321, 375, 291}
	UpperLipInner = []int{78, 191, 80, 81, 82, 13, 312, 311, 310, 415, 308}
	LowerLipInner = []int{95, 88, 178, 87, 14, 317, 402, 318, 324, 308}
)

// Point3D is a normalized landmark: x and y in [0,1] of the frame, z relative depth.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandLandmarks represents the 21 hand landmarks detected by MediaPipe.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// FaceLandmarks is one tracked face. It is published whole and never mutated
// after publication.
type FaceLandmarks struct {
	Points [NumFaceLandmarks]Point3D `json:"points"`
	Score  float64                   `json:"score"`
}

// Translate returns a copy of the hand shifted by (dx, dy) in normalized units.
func (h HandLandmarks) Translate(dx, dy float64) HandLandmarks {
	for i := range h.Points {
		h.Points[i].X += dx
		h.Points[i].Y += dy
	}
	return h
}

// Translate returns a copy of the face shifted by (dx, dy) in normalized units.
func (f FaceLandmarks) Translate(dx, dy float64) FaceLandmarks {
	for i := range f.Points {
		f.Points[i].X += dx
		f.Points[i].Y += dy
	}
	return f
}
