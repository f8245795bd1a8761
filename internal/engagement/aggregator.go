// Package engagement counts completed bursts and derives the engagement level,
// the waiting index and the session's navigation trigger from them.
package engagement

import (
	"time"

	"github.com/ayusman/howlong/internal/gesture"
)

const (
	// MaxLevel is the highest engagement level.
	MaxLevel = 4
	// CyclesPerLevel is the number of completed bursts per level step.
	CyclesPerLevel = 5
	// CountCap saturates per-gesture counts and the waiting index.
	CountCap = 99
)

// Config holds the aggregation and navigation thresholds.
type Config struct {
	WaitingStep    int           `yaml:"waiting_step"`
	MaxExtraCycles int           `yaml:"max_extra_cycles"`
	TimeLimit      time.Duration `yaml:"time_limit"`
}

// DefaultConfig returns the kiosk's thresholds.
func DefaultConfig() Config {
	return Config{
		WaitingStep:    3,
		MaxExtraCycles: 5,
		TimeLimit:      7 * time.Minute,
	}
}

// LevelFor returns the engagement level reached after n completed bursts.
func LevelFor(n int) int {
	if n < 0 {
		return 0
	}
	return min(MaxLevel, n/CyclesPerLevel)
}

// Aggregator is the engagement state machine. It changes only on burst completions.
type Aggregator struct {
	config Config

	total        int
	counts       [4]int
	waiting      int
	maxEnteredAt int
	hasMax       bool
	current      gesture.Type

	queued gesture.Type
}

// NewAggregator creates an empty Aggregator.
func NewAggregator(config Config) *Aggregator {
	if config.WaitingStep <= 0 {
		config.WaitingStep = DefaultConfig().WaitingStep
	}
	if config.MaxExtraCycles <= 0 {
		config.MaxExtraCycles = DefaultConfig().MaxExtraCycles
	}
	return &Aggregator{config: config, current: gesture.Neck}
}

// Config returns the aggregator configuration.
func (a *Aggregator) Config() Config {
	return a.config
}

// Enqueue stores t as the pending trigger. A later call overwrites an earlier one.
func (a *Aggregator) Enqueue(t gesture.Type) {
	if !t.Valid() {
		t = gesture.Neck
	}
	a.queued = t
}

// Pending returns the queued trigger, if any.
func (a *Aggregator) Pending() (gesture.Type, bool) {
	return a.queued, a.queued != gesture.None
}

// Complete records one finished burst of type t. When a trigger was queued
// it is cleared and returned so the caller can start it immediately.
func (a *Aggregator) Complete(t gesture.Type) (gesture.Type, bool) {
	if !t.Valid() {
		t = gesture.Neck
	}

	a.total++
	a.counts[t] = min(CountCap, a.counts[t]+1)
	a.waiting = min(CountCap, a.waiting+a.config.WaitingStep)
	a.current = t

	if LevelFor(a.total) >= MaxLevel {
		if !a.hasMax {
			a.maxEnteredAt = a.total
			a.hasMax = true
		}
	} else {
		a.hasMax = false
	}

	next, ok := a.Pending()
	a.queued = gesture.None
	return next, ok
}

// Level returns the current engagement level.
func (a *Aggregator) Level() int { return LevelFor(a.total) }

// Total returns the number of completed bursts.
func (a *Aggregator) Total() int { return a.total }

// Count returns the saturated number of completed bursts of type t.
func (a *Aggregator) Count(t gesture.Type) int {
	if !t.Valid() {
		return 0
	}
	return a.counts[t]
}

// WaitingPct returns the waiting index percentage.
func (a *Aggregator) WaitingPct() int { return a.waiting }

// MaxEnteredAt returns the total at which MaxLevel was first reached.
func (a *Aggregator) MaxEnteredAt() (int, bool) { return a.maxEnteredAt, a.hasMax }

// CurrentAction returns the type of the most recently completed burst.
// It is Neck before any completion.
func (a *Aggregator) CurrentAction() gesture.Type { return a.current }

// Snapshot is a read-only copy of the aggregate.
type Snapshot struct {
	Total      int                  `json:"totalBursts"`
	Level      int                  `json:"engagementLevel"`
	WaitingPct int                  `json:"waitingIndexPct"`
	Counts     map[gesture.Type]int `json:"perGestureCounts"`
	Action     gesture.Type         `json:"actionType"`
}

// Snapshot returns the current aggregate.
func (a *Aggregator) Snapshot() Snapshot {
	counts := make(map[gesture.Type]int, len(gesture.Types))
	for _, t := range gesture.Types {
		counts[t] = a.counts[t]
	}
	return Snapshot{
		Total:      a.total,
		Level:      a.Level(),
		WaitingPct: a.waiting,
		Counts:     counts,
		Action:     a.current,
	}
}
