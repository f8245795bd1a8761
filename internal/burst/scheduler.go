package burst

import (
	"image/color"
	"math"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/ayusman/howlong/internal/gesture"
)

// Burst is one gesture-triggered animation cycle.
type Burst struct {
	ID          string
	Type        gesture.Type
	CreatedAt   time.Time
	Anchor      r2.Vec // fixed at creation
	Spawned     int
	NextSpawnAt time.Time
	Done        bool
}

// Entity is one spawned overlay shape belonging to a burst.
type Entity struct {
	ID       string
	BurstID  string
	Type     gesture.Type
	Label    string
	Anchor   r2.Vec
	Offset   r2.Vec
	Velocity r2.Vec
	Width    float64
	Height   float64
	Color    color.RGBA
	Born     time.Time
}

// Position returns the entity's current center in canvas units.
func (e Entity) Position() r2.Vec {
	return r2.Add(e.Anchor, e.Offset)
}

// Age returns how long the entity has been alive at now.
func (e Entity) Age(now time.Time) time.Duration {
	return now.Sub(e.Born)
}

// Completion reports that every entity of a burst has finished rendering.
type Completion struct {
	BurstID string
	Type    gesture.Type
	At      time.Time
}

// Link joins two entities of the same burst that are close enough to be drawn connected.
type Link struct {
	BurstID string
	From    r2.Vec
	To      r2.Vec
	Color   color.RGBA
}

// Scheduler owns the active bursts and their entities.
// It is not safe for concurrent use; the owning frame loop serializes all calls.
type Scheduler struct {
	config   Config
	rng      *rand.Rand
	bursts   []*Burst
	entities []*Entity
}

// NewScheduler creates a Scheduler. A nil rng is replaced by a time-seeded source.
func NewScheduler(config Config, rng *rand.Rand) *Scheduler {
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1))
	}
	return &Scheduler{
		config: config,
		rng:    rng,
	}
}

// Config returns the scheduler configuration.
func (s *Scheduler) Config() Config {
	return s.config
}

// Trigger starts a new burst at anchor. Existing bursts are left untouched.
func (s *Scheduler) Trigger(t gesture.Type, anchor r2.Vec, now time.Time) Burst {
	if !t.Valid() {
		t = gesture.Neck
	}

	b := &Burst{
		ID:          uuid.New().String(),
		Type:        t,
		CreatedAt:   now,
		Anchor:      anchor,
		NextSpawnAt: now,
	}
	s.bursts = append(s.bursts, b)
	return *b
}

// Tick spawns due entities for every burst and advances entity drift.
// level selects the palette for newly spawned entities.
// It returns the number of entities evicted to respect MaxEntities.
func (s *Scheduler) Tick(now time.Time, level int) int {
	evicted := 0
	for _, b := range s.bursts {
		for b.Spawned < s.config.EntitiesPerBurst && !now.Before(b.NextSpawnAt) {
			evicted += s.evictFor(1)
			s.spawn(b, now, level)
			b.Spawned++
			b.NextSpawnAt = b.NextSpawnAt.Add(s.config.SpawnInterval)
		}
	}

	for _, e := range s.entities {
		e.Offset.X = clamp(e.Offset.X+e.Velocity.X, -s.config.DriftLimit, s.config.DriftLimit)
		e.Offset.Y = clamp(e.Offset.Y+e.Velocity.Y, -s.config.DriftLimit, s.config.DriftLimit)
	}
	return evicted
}

// evictFor drops the oldest entities so that n more fit under MaxEntities.
func (s *Scheduler) evictFor(n int) int {
	if s.config.MaxEntities <= 0 {
		return 0
	}
	excess := len(s.entities) + n - s.config.MaxEntities
	if excess <= 0 {
		return 0
	}
	if excess > len(s.entities) {
		excess = len(s.entities)
	}
	s.entities = append(s.entities[:0], s.entities[excess:]...)
	return excess
}

func (s *Scheduler) spawn(b *Burst, now time.Time, level int) {
	jitter := s.config.SpawnJitter
	anchor := r2.Vec{
		X: b.Anchor.X + (s.rng.Float64()-0.5)*jitter,
		Y: b.Anchor.Y + (s.rng.Float64()-0.5)*jitter,
	}

	angle := s.rng.Float64() * 2 * math.Pi
	radius := s.rng.Float64() * s.config.OffsetRadius

	base := math.Min(s.config.Width, s.config.Height) * s.config.SizeFactor
	h := base * (0.9 + s.rng.Float64()*0.5)

	s.entities = append(s.entities, &Entity{
		ID:      uuid.New().String(),
		BurstID: b.ID,
		Type:    b.Type,
		Label:   b.Type.Label(),
		Anchor:  anchor,
		Offset:  r2.Vec{X: math.Cos(angle) * radius, Y: math.Sin(angle) * radius},
		Velocity: r2.Vec{
			X: (s.rng.Float64() - 0.5) * s.config.DriftSpeed * 2,
			Y: (s.rng.Float64() - 0.5) * s.config.DriftSpeed * 2,
		},
		Width:  h * 2,
		Height: h,
		Color:  LevelColor(level),
		Born:   now,
	})
}

// Cleanup prunes expired entities and completes drained bursts.
// A burst completes once all its entities have spawned and expired and its
// age has passed Lifetime plus CompletionBuffer. Each burst completes exactly once.
func (s *Scheduler) Cleanup(now time.Time) []Completion {
	lifetime := s.config.Lifetime()

	alive := s.entities[:0]
	for _, e := range s.entities {
		if e.Age(now) < lifetime {
			alive = append(alive, e)
		}
	}
	for i := len(alive); i < len(s.entities); i++ {
		s.entities[i] = nil
	}
	s.entities = alive

	live := make(map[string]bool, len(s.bursts))
	for _, e := range s.entities {
		live[e.BurstID] = true
	}

	var done []Completion
	remaining := s.bursts[:0]
	for _, b := range s.bursts {
		drained := !live[b.ID] && b.Spawned >= s.config.EntitiesPerBurst
		timeUp := now.Sub(b.CreatedAt) >= lifetime+s.config.CompletionBuffer
		if drained && timeUp && !b.Done {
			b.Done = true
			done = append(done, Completion{BurstID: b.ID, Type: b.Type, At: now})
			continue
		}
		remaining = append(remaining, b)
	}
	for i := len(remaining); i < len(s.bursts); i++ {
		s.bursts[i] = nil
	}
	s.bursts = remaining

	return done
}

// Active reports whether any burst is still running.
func (s *Scheduler) Active() bool {
	return len(s.bursts) > 0
}

// Bursts returns a copy of the active bursts.
func (s *Scheduler) Bursts() []Burst {
	out := make([]Burst, len(s.bursts))
	for i, b := range s.bursts {
		out[i] = *b
	}
	return out
}

// Entities returns a copy of the live entities, oldest first.
func (s *Scheduler) Entities() []Entity {
	out := make([]Entity, len(s.entities))
	for i, e := range s.entities {
		out[i] = *e
	}
	return out
}

// Groups returns live entities keyed by burst id.
func (s *Scheduler) Groups() map[string][]Entity {
	groups := make(map[string][]Entity, len(s.bursts))
	for _, e := range s.entities {
		groups[e.BurstID] = append(groups[e.BurstID], *e)
	}
	return groups
}

// Links returns the connections between entities of the same burst that lie
// within LinkDistance of each other.
func (s *Scheduler) Links() []Link {
	var links []Link
	for i := 0; i < len(s.entities); i++ {
		for j := i + 1; j < len(s.entities); j++ {
			a, b := s.entities[i], s.entities[j]
			if a.BurstID != b.BurstID {
				continue
			}
			from, to := a.Position(), b.Position()
			if r2.Norm(r2.Sub(from, to)) < s.config.LinkDistance {
				links = append(links, Link{BurstID: a.BurstID, From: from, To: to, Color: a.Color})
			}
		}
	}
	return links
}

// Placement returns the top-left corner of e's box on the canvas, clamped inside it.
func (c Config) Placement(e Entity) r2.Vec {
	p := r2.Add(e.Position(), c.DrawOffset)
	return r2.Vec{
		X: clamp(p.X, 0, math.Max(0, c.Width-e.Width)),
		Y: clamp(p.Y, 0, math.Max(0, c.Height-e.Height)),
	}
}
