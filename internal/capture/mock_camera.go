package capture

import (
	"errors"
	"sync"

	"gocv.io/x/gocv"
)

// ErrNoMoreFrames is returned by MockCamera when a non-looping script is exhausted.
var ErrNoMoreFrames = errors.New("no more frames")

// MockCamera plays back a script of solid-color frames. Each entry is a gray
// level; a negative entry makes that read fail, which simulates a dropped frame.
type MockCamera struct {
	width, height int
	script        []int
	index         int
	loop          bool
	reads         int
	fps           int
	mu            sync.Mutex
	running       bool
}

// NewMockCamera creates a MockCamera producing width x height BGR frames.
func NewMockCamera(width, height int, script []int, loop bool) *MockCamera {
	return &MockCamera{
		width:  width,
		height: height,
		script: script,
		loop:   loop,
		fps:    30,
	}
}

func (c *MockCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = true
	c.index = 0
	return nil
}

func (c *MockCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	return nil
}

func (c *MockCamera) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return nil, ErrCameraNotOpen
	}
	if len(c.script) == 0 {
		return nil, ErrNoMoreFrames
	}
	if c.index >= len(c.script) {
		if !c.loop {
			return nil, ErrNoMoreFrames
		}
		c.index = 0
	}

	level := c.script[c.index]
	c.index++
	c.reads++

	if level < 0 {
		return nil, errors.New("simulated frame drop")
	}

	v := float64(level)
	mat := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(v, v, v, 0), c.height, c.width, gocv.MatTypeCV8UC3)
	return &mat, nil
}

func (c *MockCamera) SetFPS(fps int) {
	if fps <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fps = fps
}

func (c *MockCamera) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

func (c *MockCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Reads returns how many frames have been requested since creation.
func (c *MockCamera) Reads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}

// SetScript replaces the frame script and restarts playback.
func (c *MockCamera) SetScript(script []int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.script = script
	c.index = 0
}
