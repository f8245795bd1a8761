package gesture

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/ayusman/howlong/internal/detector"
)

// Classification thresholds. Distances are in normalized frame units and are
// scaled by torso height or body width so they hold at any camera distance.
const (
	minTorsoHeight = 0.12
	chestFactor    = 0.35 // chest line below the neck, fraction of torso height

	neckRadiusFactor = 0.55
	neckRadiusMin    = 0.045
	neckRadiusMax    = 0.1
	neckGateFactor   = 0.18 // wrist must be above neck.y + this * torso height
	neckBandFactor   = 0.3

	minBodyWidth     = 0.1
	armsWristBand    = 0.28
	armsElbowBand    = 0.38
	armsWristSpread  = 0.75
	armsWristMin     = 0.1
	armsElbowSpread  = 0.95
	armsElbowMin     = 0.12
	legsAnkleSpread  = 0.55
	legsAnkleMin     = 0.06
	legsKneeSpread   = 0.75
	legsKneeMin      = 0.08
	legsLevelMaxDiff = 0.1
)

// Signal is the raw, single-frame classification of one gesture.
type Signal struct {
	Raw    bool
	Anchor r2.Vec // only meaningful when Raw is true
}

// Signals holds the raw classification of every gesture for one frame.
type Signals struct {
	// Valid is false when shoulders or hips are not visible; every Raw is then false.
	Valid bool

	signals  [4]Signal
	defaults [4]r2.Vec
}

// Get returns the signal for t.
func (s Signals) Get(t Type) Signal {
	return s.signals[t]
}

// Default returns the landmark-derived anchor used when t has never been seen raw.
func (s Signals) Default(t Type) r2.Vec {
	return s.defaults[t]
}

// Set overrides the signal for t. Used to build synthetic inputs.
func (s *Signals) Set(t Type, sig Signal) {
	s.signals[t] = sig
}

func dist(a, b r2.Vec) float64 {
	return r2.Norm(r2.Sub(a, b))
}

func mid(a, b r2.Vec) r2.Vec {
	return r2.Scale(0.5, r2.Add(a, b))
}

// Classify computes the raw NECK, ARMS and LEGS signals for a single pose.
// A nil pose, or one without visible shoulders and hips, yields an invalid result.
func Classify(p *detector.Pose) Signals {
	var out Signals
	if p == nil || !p.Visible(detector.LeftShoulder, detector.RightShoulder, detector.LeftHip, detector.RightHip) {
		return out
	}
	out.Valid = true

	lm := p.Points
	lSho, rSho := lm[detector.LeftShoulder].Vec(), lm[detector.RightShoulder].Vec()
	lHip, rHip := lm[detector.LeftHip].Vec(), lm[detector.RightHip].Vec()
	lWri, rWri := lm[detector.LeftWrist].Vec(), lm[detector.RightWrist].Vec()
	lElb, rElb := lm[detector.LeftElbow].Vec(), lm[detector.RightElbow].Vec()
	lKne, rKne := lm[detector.LeftKnee].Vec(), lm[detector.RightKnee].Vec()
	lAnk, rAnk := lm[detector.LeftAnkle].Vec(), lm[detector.RightAnkle].Vec()
	nose := lm[detector.Nose].Vec()

	shoulderW := math.Abs(lSho.X - rSho.X)
	hipW := math.Abs(lHip.X - rHip.X)
	scaleW := math.Max(minBodyWidth, math.Max(hipW, shoulderW))

	neck := mid(lSho, rSho)
	hipMid := mid(lHip, rHip)
	torsoH := math.Max(minTorsoHeight, math.Abs(hipMid.Y-neck.Y))
	chestY := neck.Y + torsoH*chestFactor

	out.defaults[Neck] = neck
	out.defaults[Arms] = mid(lWri, rWri)
	out.defaults[Legs] = mid(lAnk, rAnk)

	lWriOK := lm[detector.LeftWrist].Visible(detector.MinVisibility)
	rWriOK := lm[detector.RightWrist].Visible(detector.MinVisibility)

	// Neck touch: a wrist tight against the neck or face, never merely at the chest.
	if (lWriOK || rWriOK) && lm[detector.Nose].Visible(detector.MinNoseVisibility) {
		radius := math.Max(neckRadiusMin, math.Min(neckRadiusMax, torsoH*neckRadiusFactor))
		gate := neck.Y + torsoH*neckGateFactor
		band := torsoH * neckBandFactor

		qualifies := func(ok bool, w r2.Vec) bool {
			return ok &&
				w.Y < gate &&
				math.Abs(w.Y-neck.Y) < band &&
				(dist(w, neck) < radius || dist(w, nose) < radius)
		}
		lOK := qualifies(lWriOK, lWri)
		rOK := qualifies(rWriOK, rWri)

		switch {
		case lOK && rOK:
			anchor := rWri
			if dist(lWri, neck) <= dist(rWri, neck) {
				anchor = lWri
			}
			out.signals[Neck] = Signal{Raw: true, Anchor: anchor}
		case lOK:
			out.signals[Neck] = Signal{Raw: true, Anchor: lWri}
		case rOK:
			out.signals[Neck] = Signal{Raw: true, Anchor: rWri}
		}
	}

	// Crossed arms: both forearms folded at chest height, each wrist on the far side.
	if lWriOK && rWriOK && p.Visible(detector.LeftElbow, detector.RightElbow) {
		wristBand := torsoH * armsWristBand
		elbowBand := torsoH * armsElbowBand

		wristsNearChest := math.Abs(lWri.Y-chestY) < wristBand && math.Abs(rWri.Y-chestY) < wristBand
		elbowsNearChest := math.Abs(lElb.Y-chestY) < elbowBand && math.Abs(rElb.Y-chestY) < elbowBand
		crossed := dist(lWri, rSho)+dist(rWri, lSho) < dist(lWri, lSho)+dist(rWri, rSho)
		wristsClose := dist(lWri, rWri) < math.Max(armsWristMin, scaleW*armsWristSpread)
		elbowsClose := dist(lElb, rElb) < math.Max(armsElbowMin, scaleW*armsElbowSpread)

		if wristsNearChest && elbowsNearChest && crossed && wristsClose && elbowsClose {
			out.signals[Arms] = Signal{Raw: true, Anchor: mid(lWri, rWri)}
		}
	}

	// Crossed legs: knees and ankles tucked together with the left/right order swapped.
	if p.Visible(detector.LeftKnee, detector.RightKnee, detector.LeftAnkle, detector.RightAnkle) {
		anklesClose := dist(lAnk, rAnk) < math.Max(legsAnkleMin, scaleW*legsAnkleSpread)
		kneesClose := dist(lKne, rKne) < math.Max(legsKneeMin, scaleW*legsKneeSpread)
		orderFlip := (lAnk.X > rAnk.X) != (lKne.X > rKne.X)
		anklesLevel := math.Abs(lAnk.Y-rAnk.Y) < legsLevelMaxDiff
		kneesLevel := math.Abs(lKne.Y-rKne.Y) < legsLevelMaxDiff
		anatomy := lAnk.Y > lKne.Y && rAnk.Y > rKne.Y

		if anklesClose && kneesClose && (orderFlip || anklesClose) && anklesLevel && kneesLevel && anatomy {
			out.signals[Legs] = Signal{Raw: true, Anchor: mid(lAnk, rAnk)}
		}
	}

	return out
}
