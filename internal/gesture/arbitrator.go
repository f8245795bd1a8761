package gesture

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/ayusman/howlong/internal/detector"
)

// PoseState is the single dominant gesture exposed to the UI for one cycle.
// Anchor is defined whenever Type is not None.
type PoseState struct {
	Type      Type
	Anchor    r2.Vec
	HasAnchor bool
}

// Arbitrator picks one dominant gesture per cycle from the three debounced
// signals and keeps a stable anchor for it.
//
// Priority is ARMS > NECK > LEGS, applied twice: once to choose which raw
// signal may advance its debounce counter, and once to choose which filtered
// flag is exposed.
type Arbitrator struct {
	filters     [4]*Debouncer
	lastAnchors [4]r2.Vec
	hasLast     [4]bool
	state       PoseState
}

// NewArbitrator creates an Arbitrator with one debouncer per gesture.
func NewArbitrator(config DebounceConfig) *Arbitrator {
	a := &Arbitrator{}
	for _, t := range Types {
		a.filters[t] = NewDebouncer(config)
	}
	return a
}

// Update classifies the pose and advances the arbitration by one cycle.
func (a *Arbitrator) Update(p *detector.Pose) PoseState {
	return a.Step(Classify(p))
}

// Step advances the arbitration with already classified signals.
func (a *Arbitrator) Step(sig Signals) PoseState {
	if !sig.Valid {
		for _, t := range Types {
			a.filters[t].Apply(false)
		}
		a.state = PoseState{Type: None}
		return a.state
	}

	candidate := None
	for _, t := range Types {
		if sig.Get(t).Raw {
			candidate = t
			break
		}
	}

	for _, t := range Types {
		a.filters[t].Apply(t == candidate)
	}

	for _, t := range Types {
		if s := sig.Get(t); s.Raw {
			a.lastAnchors[t] = s.Anchor
			a.hasLast[t] = true
		}
	}

	a.state = PoseState{Type: None}
	for _, t := range Types {
		if !a.filters[t].Filtered() {
			continue
		}
		a.state = PoseState{Type: t, Anchor: a.anchorFor(t, sig), HasAnchor: true}
		break
	}
	return a.state
}

// anchorFor returns the cached anchor, then the fresh one, then the landmark default.
func (a *Arbitrator) anchorFor(t Type, sig Signals) r2.Vec {
	if a.hasLast[t] {
		return a.lastAnchors[t]
	}
	if s := sig.Get(t); s.Raw {
		return s.Anchor
	}
	return sig.Default(t)
}

// State returns the state computed by the most recent cycle.
func (a *Arbitrator) State() PoseState {
	return a.state
}

// Filtered returns the debounced flag for t.
func (a *Arbitrator) Filtered(t Type) bool {
	if !t.Valid() {
		return false
	}
	return a.filters[t].Filtered()
}

// Counters exposes the debounce counters for t.
func (a *Arbitrator) Counters(t Type) (on, off int) {
	if !t.Valid() {
		return 0, 0
	}
	return a.filters[t].Counters()
}

// Reset clears every filter, cached anchor and the exposed state.
func (a *Arbitrator) Reset() {
	for _, t := range Types {
		a.filters[t].Reset()
		a.hasLast[t] = false
	}
	a.state = PoseState{Type: None}
}
