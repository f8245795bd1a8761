// Package capture reads kiosk camera frames with GoCV (OpenCV), gates
// inference on visitor presence and renders the end-of-session composite.
package capture

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"gocv.io/x/gocv"
)

var (
	// ErrCameraNotOpen is returned when trying to read from a camera that is not open.
	ErrCameraNotOpen = errors.New("camera is not open")
	// ErrReadFailed is returned when the device delivers no usable frame.
	ErrReadFailed = errors.New("camera read failed")
)

// reopenAfter is the number of consecutive failed reads after which the
// device is closed and opened again. USB webcams on a kiosk drop out.
const reopenAfter = 15

// Config describes the capture device.
type Config struct {
	Device int `yaml:"device"`
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
	FPS    int `yaml:"fps"`
}

// DefaultConfig returns the kiosk's 720p webcam settings.
func DefaultConfig() Config {
	return Config{
		Device: 0,
		Width:  1280,
		Height: 720,
		FPS:    30,
	}
}

// Camera is a frame source for the kiosk pipeline.
type Camera interface {
	Open() error
	Close() error
	// ReadFrame returns the next frame. The caller closes it.
	ReadFrame() (*gocv.Mat, error)
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
}

// DeviceCamera captures from a local video device through GoCV.
type DeviceCamera struct {
	config Config

	mu       sync.Mutex
	capture  *gocv.VideoCapture
	fps      int
	failures int
}

// NewCamera creates a Camera for the configured device. Missing resolution
// or rate fall back to DefaultConfig.
func NewCamera(config Config) Camera {
	def := DefaultConfig()
	if config.Width <= 0 || config.Height <= 0 {
		config.Width, config.Height = def.Width, def.Height
	}
	if config.FPS <= 0 {
		config.FPS = def.FPS
	}
	return &DeviceCamera{config: config, fps: config.FPS}
}

// Open opens the device and requests the configured resolution and rate.
func (c *DeviceCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture != nil {
		return nil
	}
	return c.open()
}

func (c *DeviceCamera) open() error {
	vc, err := gocv.OpenVideoCapture(c.config.Device)
	if err != nil {
		return fmt.Errorf("open camera %d: %w", c.config.Device, err)
	}
	vc.Set(gocv.VideoCaptureFrameWidth, float64(c.config.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(c.config.Height))
	vc.Set(gocv.VideoCaptureFPS, float64(c.fps))

	c.capture = vc
	c.failures = 0
	return nil
}

// Close releases the device. Closing a closed camera is a no-op.
func (c *DeviceCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.close()
}

func (c *DeviceCamera) close() error {
	if c.capture == nil {
		return nil
	}
	err := c.capture.Close()
	c.capture = nil
	return err
}

// ReadFrame reads one frame. After reopenAfter consecutive failures the
// device is reopened before the error is returned.
func (c *DeviceCamera) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if c.capture.Read(&mat) && !mat.Empty() {
		c.failures = 0
		return &mat, nil
	}
	mat.Close()

	c.failures++
	if c.failures >= reopenAfter {
		log.Printf("Camera %d stopped delivering frames, reopening", c.config.Device)
		c.close()
		if err := c.open(); err != nil {
			return nil, err
		}
	}
	return nil, ErrReadFailed
}

// SetFPS changes the requested capture rate. Non-positive values are ignored.
func (c *DeviceCamera) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.fps = fps
	if c.capture != nil {
		c.capture.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

// FPS returns the requested capture rate.
func (c *DeviceCamera) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

// IsOpen reports whether the device is open.
func (c *DeviceCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.capture != nil
}
