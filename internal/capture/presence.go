package capture

import (
	"image"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

const (
	// blurSize is the Gaussian kernel used before differencing frames.
	blurSize = 21
	// diffThreshold is the per-pixel intensity change counted as movement.
	diffThreshold = 25
)

// PresenceConfig tunes the presence gate.
type PresenceConfig struct {
	// Threshold is the percentage of changed pixels that counts as movement.
	Threshold float64 `yaml:"threshold"`
	// IdleAfter is how long the scene must stay still before the gate closes.
	IdleAfter time.Duration `yaml:"idle_after"`
	// IdleFPS is the camera rate used while the gate is closed.
	IdleFPS int `yaml:"idle_fps"`
}

// DefaultPresenceConfig returns the kiosk's presence gate settings.
func DefaultPresenceConfig() PresenceConfig {
	return PresenceConfig{
		Threshold: 1.0,
		IdleAfter: 10 * time.Second,
		IdleFPS:   5,
	}
}

// PresenceGate decides whether someone is in front of the kiosk by
// differencing consecutive blurred grayscale frames. Once movement is seen
// the gate stays open until the scene has been still for IdleAfter.
type PresenceGate struct {
	config      PresenceConfig
	prevGray    gocv.Mat
	initialized bool
	open        bool
	lastMotion  time.Time
	mu          sync.Mutex
}

// NewPresenceGate creates a closed PresenceGate.
func NewPresenceGate(config PresenceConfig) *PresenceGate {
	def := DefaultPresenceConfig()
	if config.Threshold <= 0 {
		config.Threshold = def.Threshold
	}
	if config.IdleAfter <= 0 {
		config.IdleAfter = def.IdleAfter
	}
	if config.IdleFPS <= 0 {
		config.IdleFPS = def.IdleFPS
	}
	return &PresenceGate{
		config:   config,
		prevGray: gocv.NewMat(),
	}
}

// Config returns the gate configuration.
func (g *PresenceGate) Config() PresenceConfig {
	return g.config
}

// Observe feeds one frame taken at now and reports whether the gate is open
// along with the percentage of pixels that changed since the previous frame.
func (g *PresenceGate) Observe(frame *gocv.Mat, now time.Time) (bool, float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if frame == nil || frame.Empty() {
		return g.open, 0
	}

	change := g.difference(frame)
	if change > g.config.Threshold {
		g.open = true
		g.lastMotion = now
	} else if g.open && now.Sub(g.lastMotion) >= g.config.IdleAfter {
		g.open = false
	}
	return g.open, change
}

// difference returns the changed-pixel percentage against the previous frame
// and stores frame as the new baseline. The first frame returns 0.
func (g *PresenceGate) difference(frame *gocv.Mat) float64 {
	gray := gocv.NewMat()
	defer gray.Close()

	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: blurSize, Y: blurSize}, 0, 0, gocv.BorderDefault)

	if !g.initialized || blurred.Rows() != g.prevGray.Rows() || blurred.Cols() != g.prevGray.Cols() {
		blurred.CopyTo(&g.prevGray)
		g.initialized = true
		return 0
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, g.prevGray, &diff)

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.Threshold(diff, &thresh, diffThreshold, 255, gocv.ThresholdBinary)

	changed := gocv.CountNonZero(thresh)
	total := thresh.Rows() * thresh.Cols()

	blurred.CopyTo(&g.prevGray)

	return float64(changed) / float64(total) * 100.0
}

// IsOpen reports whether a visitor is currently considered present.
func (g *PresenceGate) IsOpen() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.open
}

// Reset closes the gate and drops the baseline frame.
func (g *PresenceGate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.prevGray.Empty() {
		g.prevGray.Close()
		g.prevGray = gocv.NewMat()
	}
	g.initialized = false
	g.open = false
	g.lastMotion = time.Time{}
}

// Close releases resources used by the gate.
func (g *PresenceGate) Close() {
	g.Reset()
}
