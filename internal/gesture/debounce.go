package gesture

// DebounceConfig sets how many consecutive frames flip a filtered flag.
type DebounceConfig struct {
	OnFrames  int `yaml:"on_frames"`
	OffFrames int `yaml:"off_frames"`
}

// DefaultDebounceConfig arms after 4 frames and disarms after 7.
func DefaultDebounceConfig() DebounceConfig {
	return DebounceConfig{
		OnFrames:  4,
		OffFrames: 7,
	}
}

// Debouncer is a hysteresis filter over one gesture's raw per-frame signal.
// It must be fed exactly once per inference cycle.
type Debouncer struct {
	config     DebounceConfig
	onCounter  int
	offCounter int
	filtered   bool
}

// NewDebouncer creates a Debouncer. Non-positive thresholds fall back to the defaults.
func NewDebouncer(config DebounceConfig) *Debouncer {
	def := DefaultDebounceConfig()
	if config.OnFrames <= 0 {
		config.OnFrames = def.OnFrames
	}
	if config.OffFrames <= 0 {
		config.OffFrames = def.OffFrames
	}
	return &Debouncer{config: config}
}

// Apply feeds one raw observation and returns the filtered flag.
func (d *Debouncer) Apply(raw bool) bool {
	if raw {
		d.onCounter++
		d.offCounter = 0
		if d.onCounter >= d.config.OnFrames {
			d.filtered = true
		}
	} else {
		d.offCounter++
		d.onCounter = 0
		if d.offCounter >= d.config.OffFrames {
			d.filtered = false
		}
	}
	return d.filtered
}

// Filtered returns the current debounced state.
func (d *Debouncer) Filtered() bool {
	return d.filtered
}

// Counters returns the consecutive on- and off-frame counts.
func (d *Debouncer) Counters() (on, off int) {
	return d.onCounter, d.offCounter
}

// Reset clears the counters and the filtered flag.
func (d *Debouncer) Reset() {
	d.onCounter = 0
	d.offCounter = 0
	d.filtered = false
}
