package detector

import (
	"errors"

	"gocv.io/x/gocv"
)

// ErrUnavailable is returned when a detector backend cannot be started.
// Callers keep running without landmarks.
var ErrUnavailable = errors.New("detector unavailable")

// FaceDetector finds at most one face per frame.
type FaceDetector interface {
	// DetectFace analyzes a video frame and returns the tracked face,
	// or nil if no face was found.
	DetectFace(frame *gocv.Mat) (*FaceLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// HandDetector finds zero or more hands per frame.
type HandDetector interface {
	// DetectHands analyzes a video frame and returns detected hand landmarks.
	// Returns an empty slice if no hands are detected.
	DetectHands(frame *gocv.Mat) ([]HandLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}
