package detector

import (
	"time"

	"gocv.io/x/gocv"
)

// Detector defines the interface for body pose detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns the landmarks of the most prominent person.
	// Returns nil if nobody is detected.
	Detect(frame *gocv.Mat) (*Pose, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for pose detection.
type Config struct {
	// ModelComplexity selects the MediaPipe pose model (0, 1 or 2).
	ModelComplexity int `yaml:"model_complexity"`

	// SmoothLandmarks enables MediaPipe's temporal landmark smoothing.
	SmoothLandmarks bool `yaml:"smooth_landmarks"`

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64 `yaml:"min_confidence"`

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64 `yaml:"min_tracking_confidence"`

	// Segmentation asks the pose service for a person mask with every pose.
	Segmentation bool `yaml:"segmentation"`

	// MaskWidth downscales the returned mask to this width.
	MaskWidth int `yaml:"mask_width"`

	// Python and Script override the interpreter and pose service lookup.
	Python string `yaml:"python"`
	Script string `yaml:"script"`

	// InputWidth downscales frames to this width before inference. Zero sends them as captured.
	InputWidth int `yaml:"input_width"`

	// IdleTimeout stops the pose service after this long without frames.
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		ModelComplexity: 1,
		SmoothLandmarks: true,
		MinConfidence:   0.6,
		MinTrackingConf: 0.6,
		Segmentation:    true,
		MaskWidth:       160,
		InputWidth:      640,
		IdleTimeout:     30 * time.Second,
	}
}
