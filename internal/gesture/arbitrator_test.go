package gesture

import (
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/ayusman/howlong/internal/detector"
)

func signals(raw map[Type]r2.Vec) Signals {
	s := Signals{Valid: true}
	for t, anchor := range raw {
		s.Set(t, Signal{Raw: true, Anchor: anchor})
	}
	return s
}

func TestArbitrator_PriorityFeedsOnlyCandidate(t *testing.T) {
	a := NewArbitrator(DefaultDebounceConfig())

	both := signals(map[Type]r2.Vec{
		Arms: {X: 0.5, Y: 0.4},
		Neck: {X: 0.5, Y: 0.3},
	})
	a.Step(both)

	if on, _ := a.Counters(Arms); on != 1 {
		t.Errorf("arms on-counter = %d, want 1", on)
	}
	if on, off := a.Counters(Neck); on != 0 || off != 1 {
		t.Errorf("neck counters = %d/%d, want 0/1", on, off)
	}
}

// Arms takes the display from a held neck as soon as its own filter arms,
// while neck is still filtered true.
func TestArbitrator_ArmsPreemptsHeldNeck(t *testing.T) {
	a := NewArbitrator(DefaultDebounceConfig())
	neck := signals(map[Type]r2.Vec{Neck: {X: 0.5, Y: 0.3}})
	both := signals(map[Type]r2.Vec{Arms: {X: 0.5, Y: 0.4}, Neck: {X: 0.5, Y: 0.3}})

	for i := 0; i < 10; i++ {
		a.Step(neck)
	}

	// A single arms blip does not change what is shown.
	if st := a.Step(both); st.Type != Neck {
		t.Fatalf("state after one arms frame = %v, want neck", st.Type)
	}

	var st PoseState
	for i := 0; i < 3; i++ {
		st = a.Step(both)
	}
	if !a.Filtered(Neck) {
		t.Fatal("neck should still be filtered after 4 false frames")
	}
	if st.Type != Arms {
		t.Errorf("state = %v, want arms once its filter armed", st.Type)
	}
}

func TestArbitrator_NeckBeatsLegs(t *testing.T) {
	a := NewArbitrator(DefaultDebounceConfig())
	in := signals(map[Type]r2.Vec{
		Neck: {X: 0.5, Y: 0.3},
		Legs: {X: 0.5, Y: 0.9},
	})

	var st PoseState
	for i := 0; i < 4; i++ {
		st = a.Step(in)
	}
	if st.Type != Neck {
		t.Fatalf("state = %v, want neck", st.Type)
	}
	if a.Filtered(Legs) {
		t.Error("legs should never arm while neck is the candidate")
	}
}

func TestArbitrator_AnchorSurvivesRawFlicker(t *testing.T) {
	a := NewArbitrator(DefaultDebounceConfig())
	anchor := r2.Vec{X: 0.48, Y: 0.31}
	on := signals(map[Type]r2.Vec{Neck: anchor})
	off := Signals{Valid: true}

	for i := 0; i < 4; i++ {
		a.Step(on)
	}

	st := a.Step(off)
	if st.Type != Neck {
		t.Fatalf("state = %v, want neck during flicker", st.Type)
	}
	if !st.HasAnchor || st.Anchor != anchor {
		t.Errorf("anchor = %+v (has=%v), want cached %+v", st.Anchor, st.HasAnchor, anchor)
	}
}

func TestArbitrator_InvalidInputIsHardReset(t *testing.T) {
	a := NewArbitrator(DefaultDebounceConfig())
	for i := 0; i < 4; i++ {
		a.Update(detector.CrossedArmsPose())
	}
	if a.State().Type != Arms {
		t.Fatalf("state = %v, want arms", a.State().Type)
	}

	st := a.Update(detector.OccludedPose())
	if st.Type != None || st.HasAnchor {
		t.Errorf("state = %+v, want none without anchor", st)
	}
	if _, off := a.Counters(Arms); off != 1 {
		t.Errorf("arms off-counter = %d, want 1 after invalid frame", off)
	}

	// Valid frames resume from the debounced state, not from scratch.
	if st := a.Update(detector.NeutralPose()); st.Type != Arms {
		t.Errorf("state = %v, want arms while filter is still armed", st.Type)
	}
}

func TestArbitrator_AnchorNonNullInvariant(t *testing.T) {
	a := NewArbitrator(DefaultDebounceConfig())
	poses := []*detector.Pose{
		detector.NeckTouchPose(), detector.NeckTouchPose(), detector.CrossedArmsPose(),
		detector.NeckTouchPose(), detector.NeckTouchPose(), detector.NeutralPose(),
		detector.CrossedLegsPose(), nil, detector.CrossedLegsPose(), detector.CrossedArmsPose(),
	}

	for round := 0; round < 5; round++ {
		for i, p := range poses {
			st := a.Update(p)
			if st.Type != None && !st.HasAnchor {
				t.Fatalf("round %d frame %d: state %v without anchor", round, i, st.Type)
			}
		}
	}
}

func TestArbitrator_FromLandmarks(t *testing.T) {
	tests := []struct {
		name string
		pose *detector.Pose
		want Type
	}{
		{"neck", detector.NeckTouchPose(), Neck},
		{"arms", detector.CrossedArmsPose(), Arms},
		{"legs", detector.CrossedLegsPose(), Legs},
		{"neutral", detector.NeutralPose(), None},
		{"chest", detector.HandsAtChestPose(), None},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewArbitrator(DefaultDebounceConfig())
			var st PoseState
			for i := 0; i < 4; i++ {
				st = a.Update(tt.pose)
			}
			if st.Type != tt.want {
				t.Errorf("state = %v, want %v", st.Type, tt.want)
			}
		})
	}
}

func TestArbitrator_Reset(t *testing.T) {
	a := NewArbitrator(DefaultDebounceConfig())
	for i := 0; i < 4; i++ {
		a.Update(detector.CrossedLegsPose())
	}
	a.Reset()

	if a.State().Type != None {
		t.Error("Reset should clear the state")
	}
	for _, g := range Types {
		if a.Filtered(g) {
			t.Errorf("%v still filtered after Reset", g)
		}
	}
}
