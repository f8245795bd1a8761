// Package burst schedules, ages and retires the timed groups of overlay
// entities spawned for each recognized gesture.
package burst

import (
	"time"

	"gonum.org/v1/gonum/spatial/r2"
)

// Config holds the timing and geometry of bursts. Distances are in canvas units.
type Config struct {
	FadeIn  time.Duration `yaml:"fade_in"`
	Hold    time.Duration `yaml:"hold"`
	FadeOut time.Duration `yaml:"fade_out"`

	// CompletionBuffer is added to the entity lifetime before a burst may complete.
	CompletionBuffer time.Duration `yaml:"completion_buffer"`

	EntitiesPerBurst int           `yaml:"entities_per_burst"`
	SpawnInterval    time.Duration `yaml:"spawn_interval"`
	MaxEntities      int           `yaml:"max_entities"`

	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`

	SizeFactor   float64 `yaml:"size_factor"`
	SpawnJitter  float64 `yaml:"spawn_jitter"`  // full width of the anchor jitter square
	OffsetRadius float64 `yaml:"offset_radius"` // max initial offset from the jittered anchor
	DriftSpeed   float64 `yaml:"drift_speed"`   // max offset change per tick on each axis
	DriftLimit   float64 `yaml:"drift_limit"`
	LinkDistance float64 `yaml:"link_distance"`

	// DrawOffset shifts entity boxes away from the anchor when rendered.
	DrawOffset r2.Vec `yaml:"-"`
}

// DefaultConfig returns the kiosk's burst timings for a 1280x720 canvas.
func DefaultConfig() Config {
	return Config{
		FadeIn:           140 * time.Millisecond,
		Hold:             520 * time.Millisecond,
		FadeOut:          520 * time.Millisecond,
		CompletionBuffer: 80 * time.Millisecond,
		EntitiesPerBurst: 8,
		SpawnInterval:    70 * time.Millisecond,
		MaxEntities:      28,
		Width:            1280,
		Height:           720,
		SizeFactor:       0.12,
		SpawnJitter:      70,
		OffsetRadius:     45,
		DriftSpeed:       0.35,
		DriftLimit:       26,
		LinkDistance:     170,
		DrawOffset:       r2.Vec{X: -30, Y: 30},
	}
}

// Lifetime is the total visible life of one entity.
func (c Config) Lifetime() time.Duration {
	return c.FadeIn + c.Hold + c.FadeOut
}

// DefaultAnchor is where bursts center when no pose anchor is available.
func (c Config) DefaultAnchor() r2.Vec {
	return r2.Vec{X: c.Width * 0.64, Y: c.Height * 0.55}
}

// ToCanvas converts a normalized frame point to canvas units.
func (c Config) ToCanvas(p r2.Vec) r2.Vec {
	return r2.Vec{X: p.X * c.Width, Y: p.Y * c.Height}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func smoothstep(t float64) float64 {
	t = clamp(t, 0, 1)
	return t * t * (3 - 2*t)
}

// Opacity returns the eased alpha of an entity of the given age.
func (c Config) Opacity(age time.Duration) float64 {
	switch {
	case age < 0 || age >= c.Lifetime():
		return 0
	case age < c.FadeIn:
		return smoothstep(float64(age) / float64(c.FadeIn))
	case age < c.FadeIn+c.Hold:
		return 1
	default:
		out := age - c.FadeIn - c.Hold
		return 1 - smoothstep(float64(out)/float64(c.FadeOut))
	}
}
