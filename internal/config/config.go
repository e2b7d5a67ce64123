// Package config holds the single immutable configuration value that is
// threaded through every stage of the lipstick pipeline.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// OcclusionPolicy selects how hard occlusion is decided.
type OcclusionPolicy string

const (
	// PolicyHandOnly hides the overlay only when a hand covers the mouth.
	PolicyHandOnly OcclusionPolicy = "hand"
	// PolicySoft also treats area collapse, centroid jitter and depth noise as occlusion.
	PolicySoft OcclusionPolicy = "soft"
)

// Config is constructed once at startup and passed by value.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Camera    CameraConfig    `yaml:"camera"`
	Detector  DetectorConfig  `yaml:"detector"`
	Smoothing SmoothingConfig `yaml:"smoothing"`
	Contour   ContourConfig   `yaml:"contour"`
	Trust     TrustConfig     `yaml:"trust"`
	Visible   VisibleConfig   `yaml:"visibility"`
	Occlusion OcclusionConfig `yaml:"occlusion"`
	Mask      MaskConfig      `yaml:"mask"`
	Recolor   RecolorConfig   `yaml:"recolor"`
	Fade      FadeConfig      `yaml:"fade"`
	Compare   CompareConfig   `yaml:"compare"`
	Render    RenderConfig    `yaml:"render"`
	LogLevel  string          `yaml:"log_level"`
}

type ServerConfig struct {
	Addr      string `yaml:"addr"`
	StaticDir string `yaml:"static_dir"`
	DBPath    string `yaml:"db_path"`
}

type CameraConfig struct {
	DeviceID int `yaml:"device_id"`
	Width    int `yaml:"width"`
	Height   int `yaml:"height"`
	FPS      int `yaml:"fps"`
}

// DetectorConfig configures the two external landmark detectors.
type DetectorConfig struct {
	MaxFaces             int     `yaml:"max_faces"`
	RefineLandmarks      bool    `yaml:"refine_landmarks"`
	FaceMinDetectionConf float64 `yaml:"face_min_detection_conf"`
	FaceMinTrackingConf  float64 `yaml:"face_min_tracking_conf"`
	MaxHands             int     `yaml:"max_hands"`
	HandMinDetectionConf float64 `yaml:"hand_min_detection_conf"`
	HandMinTrackingConf  float64 `yaml:"hand_min_tracking_conf"`
	// IdleShutdown stops the detector subprocess after this long without requests.
	IdleShutdown time.Duration `yaml:"idle_shutdown"`
}

// SmoothingConfig tunes the per-landmark exponential moving average.
type SmoothingConfig struct {
	Base          float64 `yaml:"base"`
	MinLip        float64 `yaml:"min_lip"`
	MaxLip        float64 `yaml:"max_lip"`
	SnapThreshold float64 `yaml:"snap_threshold"`
	// LagCompensation is the fraction of the raw delta added on top of the blend.
	LagCompensation float64 `yaml:"lag_compensation"`
}

// ContourConfig tunes how rings are built and stabilized.
type ContourConfig struct {
	OuterScale     float64 `yaml:"outer_scale"`
	InnerScale     float64 `yaml:"inner_scale"`
	UpperBiasMaxPx float64 `yaml:"upper_bias_max_px"`
	UpperBiasFrac  float64 `yaml:"upper_bias_frac"`
	StabilizeMin   float64 `yaml:"stabilize_min_scale"`
	StabilizeMax   float64 `yaml:"stabilize_max_scale"`
	StabilizePrevW float64 `yaml:"stabilize_prev_weight"`
	EaseAlpha      float64 `yaml:"ease_alpha"`
}

type TrustConfig struct {
	// MaxJumpNorm is the largest centroid shift, as a fraction of the frame diagonal,
	// accepted between consecutive visible frames.
	MaxJumpNorm float64 `yaml:"max_jump_norm"`
}

type VisibleConfig struct {
	MinRingPoints int     `yaml:"min_ring_points"`
	MinBoxPx      float64 `yaml:"min_box_px"`
	BleedPx       float64 `yaml:"bleed_px"`
	MaxAspect     float64 `yaml:"max_aspect"`
	MinAreaPct    float64 `yaml:"min_area_pct"`
	MaxAreaPct    float64 `yaml:"max_area_pct"`
	MinOnMult     float64 `yaml:"min_on_mult"`
	MinOffMult    float64 `yaml:"min_off_mult"`
	MaxOnMult     float64 `yaml:"max_on_mult"`
	MaxOffMult    float64 `yaml:"max_off_mult"`
	OnFrames      int     `yaml:"on_frames"`
	OffFrames     int     `yaml:"off_frames"`
	HoldFrames    int     `yaml:"hold_frames"`
}

type OcclusionConfig struct {
	Policy           OcclusionPolicy `yaml:"policy"`
	HandOverlapRatio float64         `yaml:"hand_overlap_ratio"`
	HandBoxPadPx     float64         `yaml:"hand_box_pad_px"`
	HandOnFrames     int             `yaml:"hand_on_frames"`
	HandFreeFrames   int             `yaml:"hand_free_frames"`
	AreaEMAAlpha     float64         `yaml:"area_ema_alpha"`
	CentroidEMAAlpha float64         `yaml:"centroid_ema_alpha"`
	AreaDrop         float64         `yaml:"area_drop"`
	JitterThresh     float64         `yaml:"jitter_thresh"`
	ZStdThresh       float64         `yaml:"z_std_thresh"`
	MinFrames        int             `yaml:"min_frames"`
	HeadVelThresh    float64         `yaml:"head_vel_thresh"`
}

type MaskConfig struct {
	PadFrac         float64 `yaml:"pad_frac"`
	MinPadPx        float64 `yaml:"min_pad_px"`
	MaxPadPx        float64 `yaml:"max_pad_px"`
	FeatherFrac     float64 `yaml:"feather_frac"`
	FeatherMinPx    float64 `yaml:"feather_min_px"`
	FeatherMaxPx    float64 `yaml:"feather_max_px"`
	SoftEdgeBoost   float64 `yaml:"soft_edge_boost"`
	FeatherEMAAlpha float64 `yaml:"feather_ema_alpha"`
}

type RecolorConfig struct {
	BaseOpacity  float64 `yaml:"base_opacity"`
	ShadowBoost  float64 `yaml:"shadow_boost"`
	MinMaskAlpha float64 `yaml:"min_mask_alpha"`
	// DrawThreshold skips the recolor passes while both current and target alpha are below it.
	DrawThreshold float64 `yaml:"draw_threshold"`
}

type FadeConfig struct {
	In  time.Duration `yaml:"in"`
	Out time.Duration `yaml:"out"`
}

type CompareConfig struct {
	MinRatio     float64 `yaml:"min_ratio"`
	MaxRatio     float64 `yaml:"max_ratio"`
	DividerPx    float64 `yaml:"divider_px"`
	HandleRadius float64 `yaml:"handle_radius"`
}

type RenderConfig struct {
	// Scale renders the composite at Scale times the source resolution.
	Scale float64 `yaml:"scale"`
	// FPS paces the frame scheduler when the source does not pace itself.
	FPS int `yaml:"fps"`
}

// Default returns the tuned defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr: ":8080",
		},
		Camera: CameraConfig{
			DeviceID: 0,
			Width:    1280,
			Height:   720,
			FPS:      30,
		},
		Detector: DetectorConfig{
			MaxFaces:             1,
			RefineLandmarks:      true,
			FaceMinDetectionConf: 0.5,
			FaceMinTrackingConf:  0.72,
			MaxHands:             2,
			HandMinDetectionConf: 0.6,
			HandMinTrackingConf:  0.6,
			IdleShutdown:         30 * time.Second,
		},
		Smoothing: SmoothingConfig{
			Base:            0.85,
			MinLip:          0.72,
			MaxLip:          0.992,
			SnapThreshold:   0.0025,
			LagCompensation: 0.08,
		},
		Contour: ContourConfig{
			OuterScale:     1.025,
			InnerScale:     0.985,
			UpperBiasMaxPx: 2.0,
			UpperBiasFrac:  0.02,
			StabilizeMin:   0.9,
			StabilizeMax:   1.15,
			StabilizePrevW: 0.4,
			EaseAlpha:      0.86,
		},
		Trust: TrustConfig{
			MaxJumpNorm: 0.12,
		},
		Visible: VisibleConfig{
			MinRingPoints: 8,
			MinBoxPx:      4,
			BleedPx:       2,
			MaxAspect:     28,
			MinAreaPct:    0.00012,
			MaxAreaPct:    0.12,
			MinOnMult:     1.05,
			MinOffMult:    0.9,
			MaxOnMult:     0.95,
			MaxOffMult:    1.05,
			OnFrames:      2,
			OffFrames:     2,
			HoldFrames:    16,
		},
		Occlusion: OcclusionConfig{
			Policy:           PolicyHandOnly,
			HandOverlapRatio: 0.035,
			HandBoxPadPx:     36,
			HandOnFrames:     2,
			HandFreeFrames:   2,
			AreaEMAAlpha:     0.18,
			CentroidEMAAlpha: 0.25,
			AreaDrop:         0.55,
			JitterThresh:     0.05,
			ZStdThresh:       0.02,
			MinFrames:        3,
			HeadVelThresh:    0.03,
		},
		Mask: MaskConfig{
			PadFrac:         0.06,
			MinPadPx:        2,
			MaxPadPx:        12,
			FeatherFrac:     0.005,
			FeatherMinPx:    1.2,
			FeatherMaxPx:    2.6,
			SoftEdgeBoost:   0.4,
			FeatherEMAAlpha: 0.25,
		},
		Recolor: RecolorConfig{
			BaseOpacity:   0.84,
			ShadowBoost:   0.2,
			MinMaskAlpha:  0.01,
			DrawThreshold: 0.02,
		},
		Fade: FadeConfig{
			In:  80 * time.Millisecond,
			Out: 90 * time.Millisecond,
		},
		Compare: CompareConfig{
			MinRatio:     0.07,
			MaxRatio:     0.93,
			DividerPx:    1.5,
			HandleRadius: 11,
		},
		Render: RenderConfig{
			Scale: 1,
			FPS:   30,
		},
		LogLevel: "info",
	}
}

// Load returns the defaults overlaid with the YAML file at path (if non-empty)
// and then with LIPSTICK_* environment variables.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("LIPSTICK_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("LIPSTICK_DB"); v != "" {
		c.Server.DBPath = v
	}
	if v := os.Getenv("LIPSTICK_STATIC_DIR"); v != "" {
		c.Server.StaticDir = v
	}
	if v := os.Getenv("LIPSTICK_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("LIPSTICK_OCCLUSION_POLICY"); v != "" {
		c.Occlusion.Policy = OcclusionPolicy(v)
	}
	c.Camera.DeviceID = envInt("LIPSTICK_CAMERA", c.Camera.DeviceID)
}

// envInt reads an environment variable and parses it as a non-negative integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		return n
	}
	return defaultVal
}

// Validate rejects settings that would break the pipeline's invariants.
func (c Config) Validate() error {
	var errs []error

	if c.Smoothing.MinLip > c.Smoothing.MaxLip {
		errs = append(errs, errors.New("smoothing: min_lip exceeds max_lip"))
	}
	if c.Smoothing.SnapThreshold <= 0 {
		errs = append(errs, errors.New("smoothing: snap_threshold must be positive"))
	}
	if c.Contour.StabilizeMin <= 0 || c.Contour.StabilizeMin > c.Contour.StabilizeMax {
		errs = append(errs, errors.New("contour: invalid stabilize scale band"))
	}
	if c.Visible.MinRingPoints < 8 || c.Visible.MinRingPoints%2 != 0 {
		errs = append(errs, errors.New("visibility: min_ring_points must be even and at least 8"))
	}
	if c.Visible.MinAreaPct*c.Visible.MinOnMult >= c.Visible.MaxAreaPct*c.Visible.MaxOnMult {
		errs = append(errs, errors.New("visibility: empty enter band"))
	}
	if c.Visible.MinOffMult > c.Visible.MinOnMult || c.Visible.MaxOffMult < c.Visible.MaxOnMult {
		errs = append(errs, errors.New("visibility: exit band must be wider than enter band"))
	}
	if c.Visible.HoldFrames < 0 {
		errs = append(errs, errors.New("visibility: hold_frames must not be negative"))
	}
	if c.Occlusion.Policy != PolicyHandOnly && c.Occlusion.Policy != PolicySoft {
		errs = append(errs, fmt.Errorf("occlusion: unknown policy %q", c.Occlusion.Policy))
	}
	if c.Occlusion.HandOnFrames < 2 {
		errs = append(errs, errors.New("occlusion: hand_on_frames must be at least 2"))
	}
	if c.Occlusion.HandFreeFrames < 2 {
		errs = append(errs, errors.New("occlusion: hand_free_frames must be at least 2"))
	}
	if c.Fade.In <= 0 || c.Fade.Out <= 0 {
		errs = append(errs, errors.New("fade: time constants must be positive"))
	}
	if c.Compare.MinRatio <= 0 || c.Compare.MaxRatio >= 1 || c.Compare.MinRatio >= c.Compare.MaxRatio {
		errs = append(errs, errors.New("compare: ratio bounds must satisfy 0 < min < max < 1"))
	}
	if c.Render.Scale < 1 || c.Render.Scale > 2 {
		errs = append(errs, errors.New("render: scale must be within [1, 2]"))
	}
	if c.Render.FPS <= 0 {
		errs = append(errs, errors.New("render: fps must be positive"))
	}

	return errors.Join(errs...)
}
