package detector

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/lipstick/internal/config"
	"github.com/ayusman/lipstick/internal/log"
)

const serviceScript = "mediapipe_service.py"

// mode selects which MediaPipe solution the Python service runs.
type mode string

const (
	modeFace  mode = "face"
	modeHands mode = "hands"
)

// service is one Python MediaPipe subprocess. Frames are sent as a 4-byte
// big-endian length followed by JPEG bytes; each reply is one JSON line.
type service struct {
	mode      mode
	args      []string
	idle      time.Duration
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	mu        sync.Mutex
	started   bool
	idleTimer *time.Timer
}

func newService(m mode, args []string, idle time.Duration) (*service, error) {
	if findMediaPipeScript() == "" {
		return nil, fmt.Errorf("%s not found: %w", serviceScript, ErrUnavailable)
	}
	if idle <= 0 {
		idle = 30 * time.Second
	}
	return &service{mode: m, args: args, idle: idle}, nil
}

// roundTrip sends one frame and returns the raw JSON reply.
func (s *service) roundTrip(frame *gocv.Mat) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureStarted(); err != nil {
		return nil, err
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	data := buf.GetBytes()

	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(data)))

	if _, err := s.stdin.Write(length); err != nil {
		return nil, fmt.Errorf("write length: %w", err)
	}
	if _, err := s.stdin.Write(data); err != nil {
		return nil, fmt.Errorf("write data: %w", err)
	}

	line, err := s.stdout.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", s.mode, err)
	}

	s.resetIdleTimer()
	return line, nil
}

func (s *service) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdown()
}

func (s *service) ensureStarted() error {
	if s.started {
		return nil
	}

	scriptPath := findMediaPipeScript()
	if scriptPath == "" {
		return fmt.Errorf("%s not found: %w", serviceScript, ErrUnavailable)
	}

	// Use virtual environment Python if available
	pythonPath := findVenvPython()
	if pythonPath == "" {
		pythonPath = "python3"
	}

	args := append([]string{scriptPath, "--mode", string(s.mode)}, s.args...)
	s.cmd = exec.Command(pythonPath, args...)

	stdin, err := s.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := s.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	s.cmd.Stderr = os.Stderr

	if err := s.cmd.Start(); err != nil {
		return fmt.Errorf("start mediapipe %s service: %w: %w", s.mode, ErrUnavailable, err)
	}

	s.stdin = stdin
	s.stdout = bufio.NewReader(stdout)
	s.started = true
	log.Info("mediapipe service started", "mode", s.mode, "pid", s.cmd.Process.Pid)

	return nil
}

func (s *service) shutdown() error {
	if !s.started {
		return nil
	}

	if s.idleTimer != nil {
		s.idleTimer.Stop()
		s.idleTimer = nil
	}

	if s.stdin != nil {
		s.stdin.Close()
	}

	err := s.cmd.Wait()
	s.started = false
	s.cmd = nil
	s.stdin = nil
	s.stdout = nil

	return err
}

func (s *service) resetIdleTimer() {
	if s.idleTimer != nil {
		s.idleTimer.Stop()
	}
	s.idleTimer = time.AfterFunc(s.idle, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		log.Debug("mediapipe service idle, stopping", "mode", s.mode)
		s.shutdown()
	})
}

// MediaPipeFaceDetector implements FaceDetector using the face mesh solution.
type MediaPipeFaceDetector struct {
	svc *service
}

// NewMediaPipeFaceDetector creates a face detector.
// The Python process is started lazily on first detection.
func NewMediaPipeFaceDetector(cfg config.DetectorConfig) (*MediaPipeFaceDetector, error) {
	args := []string{
		"--max-faces", strconv.Itoa(cfg.MaxFaces),
		"--min-detection", strconv.FormatFloat(cfg.FaceMinDetectionConf, 'f', -1, 64),
		"--min-tracking", strconv.FormatFloat(cfg.FaceMinTrackingConf, 'f', -1, 64),
	}
	if cfg.RefineLandmarks {
		args = append(args, "--refine")
	}
	svc, err := newService(modeFace, args, cfg.IdleShutdown)
	if err != nil {
		return nil, err
	}
	return &MediaPipeFaceDetector{svc: svc}, nil
}

// DetectFace returns the first face in the frame, or nil.
func (d *MediaPipeFaceDetector) DetectFace(frame *gocv.Mat) (*FaceLandmarks, error) {
	line, err := d.svc.roundTrip(frame)
	if err != nil {
		return nil, err
	}

	var response struct {
		Faces []jsonLandmarks `json:"faces"`
	}
	if err := json.Unmarshal(line, &response); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if len(response.Faces) == 0 {
		return nil, nil
	}

	face := response.Faces[0].toFaceLandmarks()
	return &face, nil
}

// Close shuts down the Python process.
func (d *MediaPipeFaceDetector) Close() error {
	return d.svc.close()
}

// MediaPipeHandDetector implements HandDetector using the hands solution.
type MediaPipeHandDetector struct {
	svc *service
}

// NewMediaPipeHandDetector creates a hand detector.
// The Python process is started lazily on first detection.
func NewMediaPipeHandDetector(cfg config.DetectorConfig) (*MediaPipeHandDetector, error) {
	args := []string{
		"--max-hands", strconv.Itoa(cfg.MaxHands),
		"--min-detection", strconv.FormatFloat(cfg.HandMinDetectionConf, 'f', -1, 64),
		"--min-tracking", strconv.FormatFloat(cfg.HandMinTrackingConf, 'f', -1, 64),
	}
	svc, err := newService(modeHands, args, cfg.IdleShutdown)
	if err != nil {
		return nil, err
	}
	return &MediaPipeHandDetector{svc: svc}, nil
}

// DetectHands returns every hand found in the frame.
func (d *MediaPipeHandDetector) DetectHands(frame *gocv.Mat) ([]HandLandmarks, error) {
	line, err := d.svc.roundTrip(frame)
	if err != nil {
		return nil, err
	}

	var response struct {
		Hands []jsonLandmarks `json:"hands"`
	}
	if err := json.Unmarshal(line, &response); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	result := make([]HandLandmarks, len(response.Hands))
	for i, h := range response.Hands {
		result[i] = h.toHandLandmarks()
	}
	return result, nil
}

// Close shuts down the Python process.
func (d *MediaPipeHandDetector) Close() error {
	return d.svc.close()
}

func findMediaPipeScript() string {
	execPath, err := os.Executable()
	var execDir string
	if err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		filepath.Join("scripts", serviceScript),
		filepath.Join("..", "scripts", serviceScript),
		filepath.Join(execDir, "scripts", serviceScript),
		filepath.Join(os.Getenv("HOME"), ".lipstick", "scripts", serviceScript),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}

// findVenvPython looks for a Python interpreter in a virtual environment.
func findVenvPython() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	execDir := filepath.Dir(execPath)

	candidates := []string{
		"venv/bin/python",
		"../venv/bin/python",
		"../../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
		filepath.Join(os.Getenv("HOME"), ".lipstick/venv/bin/python"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}

// jsonLandmarks is one face or hand as emitted by the Python service.
type jsonLandmarks struct {
	Points     []Point3D `json:"points"`
	Handedness string    `json:"handedness,omitempty"`
	Score      float64   `json:"score"`
}

func (j jsonLandmarks) toHandLandmarks() HandLandmarks {
	lm := HandLandmarks{
		Handedness: j.Handedness,
		Score:      j.Score,
	}
	copy(lm.Points[:], j.Points)
	return lm
}

func (j jsonLandmarks) toFaceLandmarks() FaceLandmarks {
	lm := FaceLandmarks{Score: j.Score}
	copy(lm.Points[:], j.Points)
	return lm
}
