package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu    sync.Mutex
	poses []*Pose
	index int
	err   error
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetPose sets a single pose that will be returned by every Detect call.
func (m *MockDetector) SetPose(p *Pose) {
	m.SetSequence([]*Pose{p})
}

// SetSequence sets poses returned by successive Detect calls.
// The last pose repeats once the sequence is exhausted.
func (m *MockDetector) SetSequence(poses []*Pose) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.poses = poses
	m.index = 0
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Detect returns the pre-configured pose or error.
func (m *MockDetector) Detect(frame *gocv.Mat) (*Pose, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	if len(m.poses) == 0 {
		return nil, nil
	}

	p := m.poses[m.index]
	if m.index < len(m.poses)-1 {
		m.index++
	}
	return p, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// NeutralPose returns a standing person facing the camera with arms relaxed at the sides.
// Every keypoint is fully visible.
func NeutralPose() *Pose {
	p := &Pose{Score: 0.95}
	for i := range p.Points {
		p.Points[i] = Landmark{X: 0.5, Y: 0.5, Visibility: 0.99}
	}

	// Subject's left side appears on the image right.
	p.Points[Nose] = Landmark{X: 0.50, Y: 0.18, Visibility: 0.99}
	p.Points[LeftShoulder] = Landmark{X: 0.60, Y: 0.30, Visibility: 0.99}
	p.Points[RightShoulder] = Landmark{X: 0.40, Y: 0.30, Visibility: 0.99}
	p.Points[LeftElbow] = Landmark{X: 0.64, Y: 0.45, Visibility: 0.99}
	p.Points[RightElbow] = Landmark{X: 0.36, Y: 0.45, Visibility: 0.99}
	p.Points[LeftWrist] = Landmark{X: 0.66, Y: 0.60, Visibility: 0.99}
	p.Points[RightWrist] = Landmark{X: 0.34, Y: 0.60, Visibility: 0.99}
	p.Points[LeftHip] = Landmark{X: 0.57, Y: 0.60, Visibility: 0.99}
	p.Points[RightHip] = Landmark{X: 0.43, Y: 0.60, Visibility: 0.99}
	p.Points[LeftKnee] = Landmark{X: 0.58, Y: 0.75, Visibility: 0.99}
	p.Points[RightKnee] = Landmark{X: 0.42, Y: 0.75, Visibility: 0.99}
	p.Points[LeftAnkle] = Landmark{X: 0.58, Y: 0.92, Visibility: 0.99}
	p.Points[RightAnkle] = Landmark{X: 0.42, Y: 0.92, Visibility: 0.99}

	return p
}

// NeckTouchPose returns a pose with the right hand resting on the neck.
func NeckTouchPose() *Pose {
	p := NeutralPose()
	p.Points[RightElbow] = Landmark{X: 0.38, Y: 0.40, Visibility: 0.99}
	p.Points[RightWrist] = Landmark{X: 0.48, Y: 0.31, Visibility: 0.99}
	return p
}

// HandsAtChestPose returns a pose with one hand on the chest, below the neck band.
// It must not be classified as a neck touch.
func HandsAtChestPose() *Pose {
	p := NeutralPose()
	p.Points[RightElbow] = Landmark{X: 0.38, Y: 0.45, Visibility: 0.99}
	p.Points[RightWrist] = Landmark{X: 0.49, Y: 0.42, Visibility: 0.99}
	return p
}

// CrossedArmsPose returns a pose with both forearms folded across the chest.
func CrossedArmsPose() *Pose {
	p := NeutralPose()
	p.Points[LeftElbow] = Landmark{X: 0.58, Y: 0.43, Visibility: 0.99}
	p.Points[RightElbow] = Landmark{X: 0.42, Y: 0.43, Visibility: 0.99}
	p.Points[LeftWrist] = Landmark{X: 0.45, Y: 0.41, Visibility: 0.99}
	p.Points[RightWrist] = Landmark{X: 0.55, Y: 0.41, Visibility: 0.99}
	return p
}

// CrossedLegsPose returns a standing pose with the ankles crossed over.
func CrossedLegsPose() *Pose {
	p := NeutralPose()
	p.Points[LeftKnee] = Landmark{X: 0.54, Y: 0.75, Visibility: 0.99}
	p.Points[RightKnee] = Landmark{X: 0.46, Y: 0.75, Visibility: 0.99}
	p.Points[LeftAnkle] = Landmark{X: 0.47, Y: 0.92, Visibility: 0.99}
	p.Points[RightAnkle] = Landmark{X: 0.53, Y: 0.92, Visibility: 0.99}
	return p
}

// OccludedPose returns a pose whose hips are out of frame.
func OccludedPose() *Pose {
	p := CrossedArmsPose()
	p.Points[LeftHip].Visibility = 0.2
	p.Points[RightHip].Visibility = 0.2
	return p
}
