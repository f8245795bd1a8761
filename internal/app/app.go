// Package app runs the kiosk: it owns the camera, the pose detector and the
// visitor session, and connects them to storage, uploads and the UI.
package app

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"gocv.io/x/gocv"

	"github.com/ayusman/howlong/internal/capture"
	"github.com/ayusman/howlong/internal/detector"
	"github.com/ayusman/howlong/internal/metrics"
	"github.com/ayusman/howlong/internal/session"
	"github.com/ayusman/howlong/internal/store"
	"github.com/ayusman/howlong/internal/upload"
)

// Publisher receives every session snapshot produced by the render loop.
type Publisher interface {
	Publish(out session.FrameOutput)
}

// Config holds configuration options for the application.
type Config struct {
	Camera    capture.Config
	Presence  capture.PresenceConfig
	Detector  detector.Config
	Session   session.Config
	RenderFPS int
	ShotsDir  string
	// RestartAfter starts a new session this long after navigation. Zero disables it.
	RestartAfter time.Duration

	Store     *store.Store
	Uploader  *upload.Uploader
	Metrics   *metrics.Metrics
	Publisher Publisher
	// Observers receive the events of every visit, e.g. plugin dispatch.
	Observers []session.Observer
}

// Option customizes an App.
type Option func(*App)

// WithCamera replaces the camera device.
func WithCamera(c capture.Camera) Option {
	return func(a *App) { a.camera = c }
}

// WithDetector replaces the pose detector.
func WithDetector(d detector.Detector) Option {
	return func(a *App) { a.detector = d }
}

// App is the main application that orchestrates capture, detection and the session.
type App struct {
	config   Config
	camera   capture.Camera
	gate     *capture.PresenceGate
	detector detector.Detector

	mu      sync.RWMutex
	paused  bool
	stopCh  chan struct{}
	loops   sync.WaitGroup
	tasks   sync.WaitGroup
	onLevel func(level int)

	poses  poseSlot
	frames *frameSlot
	detect chan *gocv.Mat

	sessMu    sync.Mutex
	visit     *visit
	poseSeq   uint64 // last pose sequence seen by the render loop
	lastLevel int
}

// New creates a new App instance with the given configuration.
func New(config Config, opts ...Option) *App {
	if config.RenderFPS <= 0 {
		config.RenderFPS = 30
	}
	if config.Camera.Width <= 0 || config.Camera.Height <= 0 {
		config.Camera = capture.DefaultConfig()
	}

	a := &App{
		config:    config,
		gate:      capture.NewPresenceGate(config.Presence),
		frames:    newFrameSlot(),
		detect:    make(chan *gocv.Mat, 1),
		lastLevel: -1,
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.camera == nil {
		a.camera = capture.NewCamera(config.Camera)
	}

	// Try MediaPipe first, fall back to mock detector
	if a.detector == nil {
		if mp, err := detector.NewMediaPipeDetector(config.Detector); err == nil {
			a.detector = mp
			log.Println("Using MediaPipe pose detection")
		} else {
			log.Printf("MediaPipe not available (%v), using mock detector", err)
			a.detector = detector.NewMockDetector()
		}
	}

	a.sessMu.Lock()
	a.visit = a.newVisit()
	a.sessMu.Unlock()
	return a
}

// visit is one visitor session together with its persisted identity.
type visit struct {
	id       string
	sess     *session.Session
	events   *eventLog
	present  bool // the presence gate opened during this visit
	finished time.Time
}

// newVisit creates a session and registers it in the store. Callers hold sessMu.
func (a *App) newVisit() *visit {
	v := &visit{id: uuid.New().String()}
	v.events = &eventLog{sessionID: v.id}

	observers := session.Observers{v.events}
	observers = append(observers, a.config.Observers...)
	if a.config.Metrics != nil {
		a.config.Metrics.SessionStarted()
		observers = append(observers, a.config.Metrics)
	}
	v.sess = session.New(a.config.Session, session.WithObserver(observers))

	if a.config.Store != nil {
		if err := a.config.Store.Sessions().Create(&store.Session{ID: v.id}); err != nil {
			log.Printf("Failed to store session %s: %v", v.id, err)
		}
	}
	return v
}

// Start opens the camera and begins the capture, detection and render loops.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Don't start if already running
	if a.stopCh != nil {
		return nil
	}

	if err := a.camera.Open(); err != nil {
		return err
	}
	a.camera.SetFPS(a.gate.Config().IdleFPS)

	a.stopCh = make(chan struct{})
	a.loops.Add(3)
	go a.captureLoop(a.stopCh)
	go a.detectLoop(a.stopCh)
	go a.renderLoop(a.stopCh)

	log.Println("Kiosk pipeline started")
	return nil
}

// Stop halts the loops, waits for pending uploads and releases resources.
func (a *App) Stop() {
	a.mu.Lock()
	if a.stopCh != nil {
		close(a.stopCh)
		a.stopCh = nil
	}
	a.mu.Unlock()

	a.loops.Wait()
	select {
	case frame := <-a.detect:
		frame.Close()
	default:
	}

	a.sessMu.Lock()
	a.persistEvents(a.visit)
	a.sessMu.Unlock()
	a.tasks.Wait()

	if err := a.camera.Close(); err != nil {
		log.Printf("Error closing camera: %v", err)
	}
	a.gate.Close()
	a.frames.close()

	if a.detector != nil {
		if err := a.detector.Close(); err != nil {
			log.Printf("Error closing detector: %v", err)
		}
	}

	log.Println("Kiosk pipeline stopped")
}

// SetPaused suspends or resumes detection and session updates.
func (a *App) SetPaused(paused bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.paused = paused
}

// Paused reports whether the kiosk is paused.
func (a *App) Paused() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.paused
}

// Restart abandons the current visit and starts a fresh session.
func (a *App) Restart() {
	a.sessMu.Lock()
	defer a.sessMu.Unlock()
	a.restartLocked()
}

func (a *App) restartLocked() {
	old := a.visit
	a.persistEvents(old)
	if old.finished.IsZero() && a.config.Store != nil {
		if err := a.config.Store.Sessions().End(old.id, time.Now()); err != nil {
			log.Printf("Failed to end session %s: %v", old.id, err)
		}
	}
	a.visit = a.newVisit()
	a.gate.Reset()
	log.Printf("Session %s started", a.visit.id)
}

// OnLevel registers a callback invoked when the engagement level changes.
func (a *App) OnLevel(fn func(level int)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onLevel = fn
}

// SessionID returns the id of the current visit.
func (a *App) SessionID() string {
	a.sessMu.Lock()
	defer a.sessMu.Unlock()
	return a.visit.id
}

// LatestJPEG returns the most recent camera frame for the MJPEG stream.
func (a *App) LatestJPEG() ([]byte, uint64, bool) {
	return a.frames.latestJPEG()
}

// Camera returns the camera instance.
func (a *App) Camera() capture.Camera {
	return a.camera
}

// Detector returns the pose detector.
func (a *App) Detector() detector.Detector {
	return a.detector
}
