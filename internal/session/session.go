// Package session is the per-visitor context that wires the gesture
// arbitrator, the burst scheduler and the engagement aggregator together
// and advances them one frame at a time.
package session

import (
	"math/rand/v2"
	"time"

	"github.com/ayusman/howlong/internal/burst"
	"github.com/ayusman/howlong/internal/detector"
	"github.com/ayusman/howlong/internal/engagement"
	"github.com/ayusman/howlong/internal/gesture"
)

// edgeOrder is the order in which same-frame filtered edges request cycles.
var edgeOrder = [...]gesture.Type{gesture.Neck, gesture.Arms, gesture.Legs}

// Config groups the tunables of every stage.
type Config struct {
	Debounce   gesture.DebounceConfig `yaml:"debounce"`
	Burst      burst.Config           `yaml:"burst"`
	Engagement engagement.Config      `yaml:"engagement"`
}

// DefaultConfig returns the kiosk defaults for every stage.
func DefaultConfig() Config {
	return Config{
		Debounce:   gesture.DefaultDebounceConfig(),
		Burst:      burst.DefaultConfig(),
		Engagement: engagement.DefaultConfig(),
	}
}

// Option customizes a Session.
type Option func(*Session)

// WithObserver registers an observer for session events.
func WithObserver(o Observer) Option {
	return func(s *Session) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithRand sets the random source used for entity placement.
func WithRand(rng *rand.Rand) Option {
	return func(s *Session) {
		s.rng = rng
	}
}

// Session holds all mutable state of one visitor session. It is not safe
// for concurrent use: a single frame loop owns it.
type Session struct {
	config   Config
	observer Observer
	rng      *rand.Rand

	arb   *gesture.Arbitrator
	sched *burst.Scheduler
	agg   *engagement.Aggregator
	nav   *engagement.Navigator

	started   bool
	startedAt time.Time
	pose      gesture.PoseState
	prev      [4]bool
	last      FrameOutput
}

// New creates a Session. The session clock starts on the first Step.
func New(config Config, opts ...Option) *Session {
	s := &Session{
		config:   config,
		observer: NopObserver{},
	}
	for _, opt := range opts {
		opt(s)
	}

	s.arb = gesture.NewArbitrator(config.Debounce)
	s.sched = burst.NewScheduler(config.Burst, s.rng)
	s.agg = engagement.NewAggregator(config.Engagement)
	s.nav = engagement.NewNavigator(config.Engagement)
	return s
}

// Config returns the session configuration.
func (s *Session) Config() Config {
	return s.config
}

// Elapsed returns the session time at now.
func (s *Session) Elapsed(now time.Time) time.Duration {
	if !s.started {
		return 0
	}
	return now.Sub(s.startedAt)
}

// Done reports whether navigation has fired.
func (s *Session) Done() bool {
	_, ok := s.nav.Fired()
	return ok
}

// Step advances the session by one frame. pose is the latest detector
// result and fresh reports whether it arrived since the previous Step; stale
// results do not advance the debouncers. After navigation the session is
// frozen and Step returns the final snapshot.
func (s *Session) Step(now time.Time, pose *detector.Pose, fresh bool) FrameOutput {
	if !s.started {
		s.started = true
		s.startedAt = now
	}
	if s.Done() {
		return s.last
	}

	if fresh {
		s.pose = s.arb.Update(pose)
	}

	for _, t := range edgeOrder {
		on := s.arb.Filtered(t)
		if on && !s.prev[t] {
			s.observer.GestureEdge(t)
			s.RequestCycle(t, now)
		}
		s.prev[t] = on
	}

	if n := s.sched.Tick(now, s.agg.Level()); n > 0 {
		s.observer.Evicted(n)
	}

	completions := s.sched.Cleanup(now)
	for _, c := range completions {
		next, queued := s.agg.Complete(c.Type)
		s.observer.BurstCompleted(c, s.agg.Level())
		if queued {
			s.trigger(next, now)
		}
	}

	if nav, ok := s.nav.Check(s.Elapsed(now), s.agg); ok {
		s.observer.Navigated(nav)
	}

	s.last = s.snapshot(now, completions)
	return s.last
}

// RequestCycle asks for a burst of type t. While any burst is running the
// request is queued, replacing an earlier queued one.
func (s *Session) RequestCycle(t gesture.Type, now time.Time) {
	if s.Done() {
		return
	}
	if !t.Valid() {
		t = gesture.Neck
	}
	if s.sched.Active() {
		s.agg.Enqueue(t)
		s.observer.BurstQueued(t)
		return
	}
	s.trigger(t, now)
}

func (s *Session) trigger(t gesture.Type, now time.Time) {
	cfg := s.sched.Config()
	anchor := cfg.DefaultAnchor()
	if s.pose.Type == t && s.pose.HasAnchor {
		anchor = cfg.ToCanvas(s.pose.Anchor)
	}
	b := s.sched.Trigger(t, anchor, now)
	s.observer.BurstStarted(b)
}

// PoseState returns the arbitrated pose of the most recent fresh frame.
func (s *Session) PoseState() gesture.PoseState {
	return s.pose
}

// Aggregate returns the current engagement aggregate.
func (s *Session) Aggregate() engagement.Snapshot {
	return s.agg.Snapshot()
}

// Last returns the snapshot produced by the most recent Step.
func (s *Session) Last() FrameOutput {
	return s.last
}
