package engagement

import (
	"fmt"
	"time"
)

// Navigation reasons.
const (
	ReasonTimeLimit = "time>=7min"
	ReasonWaiting   = "pct==99"
)

// Navigation is the one-shot end-of-session signal.
type Navigation struct {
	Reason  string        `json:"reason"`
	Elapsed time.Duration `json:"elapsed"`
	Summary Summary       `json:"summary"`
}

// Navigator evaluates the end-of-session predicate and fires at most once.
type Navigator struct {
	config Config
	fired  bool
	last   Navigation
}

// NewNavigator creates a Navigator for the given thresholds.
func NewNavigator(config Config) *Navigator {
	if config.TimeLimit <= 0 {
		config.TimeLimit = DefaultConfig().TimeLimit
	}
	if config.MaxExtraCycles <= 0 {
		config.MaxExtraCycles = DefaultConfig().MaxExtraCycles
	}
	return &Navigator{config: config}
}

// Check returns a Navigation the first time one of the end conditions holds.
// Every later call returns false.
func (n *Navigator) Check(elapsed time.Duration, a *Aggregator) (Navigation, bool) {
	if n.fired {
		return Navigation{}, false
	}

	reason := n.reason(elapsed, a)
	if reason == "" {
		return Navigation{}, false
	}

	n.fired = true
	n.last = Navigation{
		Reason:  reason,
		Elapsed: elapsed,
		Summary: Summarize(a, elapsed),
	}
	return n.last, true
}

func (n *Navigator) reason(elapsed time.Duration, a *Aggregator) string {
	if elapsed >= n.config.TimeLimit {
		return ReasonTimeLimit
	}
	if a.WaitingPct() >= CountCap {
		return ReasonWaiting
	}
	if at, ok := a.MaxEnteredAt(); ok && a.Level() >= MaxLevel && a.Total()-at >= n.config.MaxExtraCycles {
		return fmt.Sprintf("MAX +%d cycles", n.config.MaxExtraCycles)
	}
	return ""
}

// Fired reports whether navigation has been requested, and with what.
func (n *Navigator) Fired() (Navigation, bool) {
	return n.last, n.fired
}
