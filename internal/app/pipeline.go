package app

import (
	"log"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/howlong/internal/burst"
	"github.com/ayusman/howlong/internal/capture"
	"github.com/ayusman/howlong/internal/detector"
	"github.com/ayusman/howlong/internal/session"
	"github.com/ayusman/howlong/internal/store"
)

// streamQuality is the JPEG quality of MJPEG preview frames.
const streamQuality = 75

// poseSlot holds the latest detector result. seq increments on every result,
// including "nobody found", so the render loop can tell fresh from stale.
type poseSlot struct {
	mu   sync.Mutex
	pose *detector.Pose
	seq  uint64
}

func (s *poseSlot) store(p *detector.Pose) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pose = p
	s.seq++
}

func (s *poseSlot) load() (*detector.Pose, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pose, s.seq
}

// frameSlot keeps the latest camera frame for the composite shot and its
// JPEG encoding for the preview stream, along with the latest person mask.
type frameSlot struct {
	mu   sync.Mutex
	mat  gocv.Mat
	mask *detector.Mask
	jpeg []byte
	seq  uint64
}

func newFrameSlot() *frameSlot {
	return &frameSlot{mat: gocv.NewMat()}
}

func (s *frameSlot) store(m *gocv.Mat) {
	data, err := capture.EncodeJPEG(*m, streamQuality)

	s.mu.Lock()
	defer s.mu.Unlock()
	m.CopyTo(&s.mat)
	if err != nil {
		log.Printf("Error encoding preview frame: %v", err)
		return
	}
	s.jpeg = data
	s.seq++
}

func (s *frameSlot) latestJPEG() ([]byte, uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jpeg, s.seq, s.jpeg != nil
}

// setMask records the segmentation of the latest detected frame. A nil mask
// clears it.
func (s *frameSlot) setMask(m *detector.Mask) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mask = m
}

// clone returns a copy of the latest frame and the latest mask. The caller
// must Close the frame.
func (s *frameSlot) clone() (gocv.Mat, *detector.Mask, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mat.Empty() {
		return gocv.NewMat(), nil, false
	}
	return s.mat.Clone(), s.mask, true
}

func (s *frameSlot) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mat.Close()
	s.mat = gocv.NewMat()
}

func fpsInterval(fps int) time.Duration {
	if fps <= 0 {
		fps = 1
	}
	return time.Second / time.Duration(fps)
}

// captureLoop reads camera frames, runs the presence gate and hands frames
// to the detector while someone is present.
//
// The camera idles at the gate's IdleFPS and switches to the configured rate
// once movement opens the gate, mirroring it back when the scene goes still.
func (a *App) captureLoop(stop <-chan struct{}) {
	defer a.loops.Done()

	present := false
	ticker := time.NewTicker(fpsInterval(a.gate.Config().IdleFPS))
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		frame, err := a.camera.ReadFrame()
		if err != nil {
			log.Printf("Error reading frame: %v", err)
			continue
		}

		open, _ := a.gate.Observe(frame, time.Now())
		if open != present {
			present = open
			fps := a.gate.Config().IdleFPS
			if present {
				fps = a.config.Camera.FPS
				log.Println("Visitor present, switched to active mode")
			} else {
				log.Println("Scene idle, switched to idle mode")
			}
			a.camera.SetFPS(fps)
			ticker.Reset(fpsInterval(fps))
		}

		a.frames.store(frame)

		if !present || a.Paused() {
			frame.Close()
			continue
		}

		// Drop the frame if the detector is still busy with the previous one.
		select {
		case a.detect <- frame:
		default:
			frame.Close()
		}
	}
}

// detectLoop runs pose inference off the render path and publishes results
// to the pose slot. Inference errors count as no new frame.
func (a *App) detectLoop(stop <-chan struct{}) {
	defer a.loops.Done()

	for {
		select {
		case <-stop:
			return
		case frame := <-a.detect:
			pose, err := a.detector.Detect(frame)
			frame.Close()
			if err != nil {
				log.Printf("Error detecting pose: %v", err)
				continue
			}
			a.poses.store(pose)
			var mask *detector.Mask
			if pose != nil {
				mask = pose.Mask
			}
			a.frames.setMask(mask)
		}
	}
}

// renderLoop advances the session at the display rate and publishes snapshots.
func (a *App) renderLoop(stop <-chan struct{}) {
	defer a.loops.Done()

	ticker := time.NewTicker(fpsInterval(a.config.RenderFPS))
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			out := a.render(now)
			if a.config.Publisher != nil {
				a.config.Publisher.Publish(out)
			}
		}
	}
}

// render performs one display tick. It never blocks on the detector: the
// latest cached pose is used and marked fresh only if it is new.
func (a *App) render(now time.Time) session.FrameOutput {
	pose, seq := a.poses.load()
	fresh := seq != a.poseSeq
	a.poseSeq = seq

	a.sessMu.Lock()
	v := a.visit
	if a.gate.IsOpen() {
		v.present = true
	}

	// The session clock starts with the first visitor.
	if !v.present || a.Paused() {
		out := v.sess.Last()
		a.sessMu.Unlock()
		return out
	}

	out := v.sess.Step(now, pose, fresh)
	if out.Navigation != nil && v.finished.IsZero() {
		v.finished = now
		a.finish(v, out)
	}
	if !v.finished.IsZero() && a.shouldRestart(v, now) {
		a.restartLocked()
	}
	a.sessMu.Unlock()

	a.notifyLevel(out.Level)
	return out
}

// shouldRestart reports whether a finished visit should give way to a new one.
func (a *App) shouldRestart(v *visit, now time.Time) bool {
	if a.config.RestartAfter > 0 && now.Sub(v.finished) >= a.config.RestartAfter {
		return true
	}
	// The visitor walked away from the result screen.
	return v.present && !a.gate.IsOpen() && a.camera.IsOpen()
}

func (a *App) notifyLevel(level int) {
	if level == a.lastLevel {
		return
	}
	a.lastLevel = level

	a.mu.RLock()
	fn := a.onLevel
	a.mu.RUnlock()
	if fn != nil {
		fn(level)
	}
}

// eventLog buffers completed bursts of one visit until they are persisted.
type eventLog struct {
	session.NopObserver
	sessionID string
	pending   []store.BurstEvent
}

func (l *eventLog) BurstCompleted(c burst.Completion, level int) {
	l.pending = append(l.pending, store.BurstEvent{
		SessionID:   l.sessionID,
		BurstID:     c.BurstID,
		Gesture:     c.Type.String(),
		Level:       level,
		CompletedAt: c.At,
	})
}

// persistEvents writes the buffered burst events of v. Callers hold sessMu.
func (a *App) persistEvents(v *visit) {
	if a.config.Store == nil {
		v.events.pending = nil
		return
	}
	for i := range v.events.pending {
		if err := a.config.Store.Events().Record(&v.events.pending[i]); err != nil {
			log.Printf("Failed to record burst event: %v", err)
		}
	}
	v.events.pending = nil
}
