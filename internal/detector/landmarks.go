// Package detector provides body pose detection interfaces and types for gesture recognition.
package detector

import "gonum.org/v1/gonum/spatial/r2"

// Body landmark indices following the MediaPipe Pose convention.
// See: https://developers.google.com/mediapipe/solutions/vision/pose_landmarker
const (
	Nose          = 0
	LeftShoulder  = 11
	RightShoulder = 12
	LeftElbow     = 13
	RightElbow    = 14
	LeftWrist     = 15
	RightWrist    = 16
	LeftHip       = 23
	RightHip      = 24
	LeftKnee      = 25
	RightKnee     = 26
	LeftAnkle     = 27
	RightAnkle    = 28
	NumLandmarks  = 33
)

// Visibility thresholds used when deciding whether a keypoint can be trusted.
const (
	// MinVisibility is the default confidence a keypoint needs to take part in classification.
	MinVisibility = 0.55
	// MinNoseVisibility is looser because the nose is often partly hidden by a hand.
	MinNoseVisibility = 0.4
)

// Landmark is a single body keypoint in normalized frame space (0..1).
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

// Pose represents the 33 body landmarks detected for one person in one frame.
type Pose struct {
	Points [NumLandmarks]Landmark `json:"points"`
	Score  float64                `json:"score"`
	// Mask is the person segmentation of the same frame, when the detector produces one.
	Mask   *Mask                  `json:"mask,omitempty"`
}

// Mask is a single-channel person segmentation in frame orientation.
// Data holds Width*Height bytes row by row; 255 is person, 0 is background.
type Mask struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Data   []byte `json:"data"`
}

// Valid reports whether the mask dimensions match its data.
func (m *Mask) Valid() bool {
	return m != nil && m.Width > 0 && m.Height > 0 && len(m.Data) == m.Width*m.Height
}

// Vec returns the 2D position of the landmark.
func (l Landmark) Vec() r2.Vec {
	return r2.Vec{X: l.X, Y: l.Y}
}

// Visible reports whether the landmark confidence meets threshold.
func (l Landmark) Visible(threshold float64) bool {
	return l.Visibility >= threshold
}

// Visible reports whether every listed landmark meets MinVisibility.
func (p *Pose) Visible(indices ...int) bool {
	if p == nil {
		return false
	}
	for _, i := range indices {
		if !p.Points[i].Visible(MinVisibility) {
			return false
		}
	}
	return true
}
