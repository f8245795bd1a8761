package session

import (
	"github.com/ayusman/howlong/internal/burst"
	"github.com/ayusman/howlong/internal/engagement"
	"github.com/ayusman/howlong/internal/gesture"
)

// Observer receives session events as they happen inside Step.
// Implementations must not block; they run on the frame loop.
type Observer interface {
	GestureEdge(t gesture.Type)
	BurstStarted(b burst.Burst)
	BurstQueued(t gesture.Type)
	BurstCompleted(c burst.Completion, level int)
	Evicted(n int)
	Navigated(nav engagement.Navigation)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) GestureEdge(gesture.Type)             {}
func (NopObserver) BurstStarted(burst.Burst)             {}
func (NopObserver) BurstQueued(gesture.Type)             {}
func (NopObserver) BurstCompleted(burst.Completion, int) {}
func (NopObserver) Evicted(int)                          {}
func (NopObserver) Navigated(engagement.Navigation)      {}

// Recorder is an Observer that keeps every event, for tests and diagnostics.
type Recorder struct {
	Edges       []gesture.Type
	Started     []burst.Burst
	Queued      []gesture.Type
	Completed   []burst.Completion
	EvictedN    int
	Navigations []engagement.Navigation
}

func (r *Recorder) GestureEdge(t gesture.Type) { r.Edges = append(r.Edges, t) }
func (r *Recorder) BurstStarted(b burst.Burst) { r.Started = append(r.Started, b) }
func (r *Recorder) BurstQueued(t gesture.Type) { r.Queued = append(r.Queued, t) }
func (r *Recorder) BurstCompleted(c burst.Completion, _ int) {
	r.Completed = append(r.Completed, c)
}
func (r *Recorder) Evicted(n int) { r.EvictedN += n }
func (r *Recorder) Navigated(nav engagement.Navigation) {
	r.Navigations = append(r.Navigations, nav)
}

// Observers fans events out to several observers in order.
type Observers []Observer

func (o Observers) GestureEdge(t gesture.Type) {
	for _, x := range o {
		x.GestureEdge(t)
	}
}

func (o Observers) BurstStarted(b burst.Burst) {
	for _, x := range o {
		x.BurstStarted(b)
	}
}

func (o Observers) BurstQueued(t gesture.Type) {
	for _, x := range o {
		x.BurstQueued(t)
	}
}

func (o Observers) BurstCompleted(c burst.Completion, level int) {
	for _, x := range o {
		x.BurstCompleted(c, level)
	}
}

func (o Observers) Evicted(n int) {
	for _, x := range o {
		x.Evicted(n)
	}
}

func (o Observers) Navigated(nav engagement.Navigation) {
	for _, x := range o {
		x.Navigated(nav)
	}
}
