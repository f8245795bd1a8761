package burst

import (
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/ayusman/howlong/internal/gesture"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func newTestScheduler() *Scheduler {
	return NewScheduler(DefaultConfig(), rand.New(rand.NewPCG(1, 2)))
}

// run ticks the scheduler every step from start until end and collects completions.
func run(s *Scheduler, start, end time.Time, step time.Duration) []Completion {
	var done []Completion
	for now := start; !now.After(end); now = now.Add(step) {
		s.Tick(now, 0)
		done = append(done, s.Cleanup(now)...)
	}
	return done
}

func TestOpacity(t *testing.T) {
	c := DefaultConfig()
	tests := []struct {
		age  time.Duration
		want float64
	}{
		{-time.Millisecond, 0},
		{0, 0},
		{70 * time.Millisecond, 0.5},
		{140 * time.Millisecond, 1},
		{400 * time.Millisecond, 1},
		{659 * time.Millisecond, 1},
		{920 * time.Millisecond, 0.5},
		{1180 * time.Millisecond, 0},
		{2 * time.Second, 0},
	}
	for _, tt := range tests {
		if got := c.Opacity(tt.age); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Opacity(%v) = %v, want %v", tt.age, got, tt.want)
		}
	}
}

func TestOpacity_Monotonic(t *testing.T) {
	c := DefaultConfig()
	prev := 0.0
	for age := time.Duration(0); age <= c.FadeIn; age += 5 * time.Millisecond {
		o := c.Opacity(age)
		if o < prev {
			t.Fatalf("fade-in not monotonic at %v: %v < %v", age, o, prev)
		}
		prev = o
	}
	for age := c.FadeIn + c.Hold; age < c.Lifetime(); age += 5 * time.Millisecond {
		o := c.Opacity(age)
		if o > prev {
			t.Fatalf("fade-out not monotonic at %v: %v > %v", age, o, prev)
		}
		prev = o
	}
}

func TestScheduler_TrickleSpawn(t *testing.T) {
	s := newTestScheduler()
	s.Trigger(gesture.Neck, r2.Vec{X: 600, Y: 300}, t0)

	s.Tick(t0, 0)
	if n := len(s.Entities()); n != 1 {
		t.Fatalf("entities at t0 = %d, want 1", n)
	}

	s.Tick(t0.Add(69*time.Millisecond), 0)
	if n := len(s.Entities()); n != 1 {
		t.Fatalf("entities at 69ms = %d, want 1", n)
	}

	s.Tick(t0.Add(70*time.Millisecond), 0)
	if n := len(s.Entities()); n != 2 {
		t.Fatalf("entities at 70ms = %d, want 2", n)
	}

	// A late tick catches up on every due spawn but never exceeds the quota.
	s.Tick(t0.Add(5*time.Second), 0)
	if n := len(s.Entities()); n != 8 {
		t.Fatalf("entities after catch-up = %d, want 8", n)
	}
	if b := s.Bursts()[0]; b.Spawned != 8 {
		t.Errorf("spawned = %d, want 8", b.Spawned)
	}
}

func TestScheduler_EntityProperties(t *testing.T) {
	s := newTestScheduler()
	anchor := r2.Vec{X: 600, Y: 300}
	s.Trigger(gesture.Arms, anchor, t0)
	run(s, t0, t0.Add(600*time.Millisecond), 10*time.Millisecond)

	c := s.Config()
	base := math.Min(c.Width, c.Height) * c.SizeFactor
	for _, e := range s.Entities() {
		if e.Label != "- ( HANDS ) -" {
			t.Errorf("label = %q", e.Label)
		}
		if e.Width != 2*e.Height {
			t.Errorf("aspect = %v x %v, want 2:1", e.Width, e.Height)
		}
		if e.Height < base*0.9 || e.Height > base*1.4 {
			t.Errorf("height %v out of range", e.Height)
		}
		if math.Abs(e.Anchor.X-anchor.X) > c.SpawnJitter/2 || math.Abs(e.Anchor.Y-anchor.Y) > c.SpawnJitter/2 {
			t.Errorf("jittered anchor %v too far from %v", e.Anchor, anchor)
		}
		if math.Abs(e.Offset.X) > c.DriftLimit || math.Abs(e.Offset.Y) > c.DriftLimit {
			t.Errorf("offset %v exceeds drift limit", e.Offset)
		}
	}
}

func TestScheduler_CompletesExactlyOnce(t *testing.T) {
	s := newTestScheduler()
	b := s.Trigger(gesture.Neck, s.Config().DefaultAnchor(), t0)

	done := run(s, t0, t0.Add(4*time.Second), 16*time.Millisecond)
	if len(done) != 1 {
		t.Fatalf("completions = %d, want 1", len(done))
	}
	if done[0].BurstID != b.ID || done[0].Type != gesture.Neck {
		t.Errorf("completion = %+v", done[0])
	}

	// Last entity spawns at 490ms and lives 1180ms.
	if at := done[0].At.Sub(t0); at < 1670*time.Millisecond {
		t.Errorf("completed after %v, before the last entity expired", at)
	}
	if s.Active() {
		t.Error("scheduler still active after completion")
	}
}

func TestScheduler_NotCompletedBeforeBuffer(t *testing.T) {
	c := DefaultConfig()
	c.EntitiesPerBurst = 1
	s := NewScheduler(c, rand.New(rand.NewPCG(1, 2)))
	s.Trigger(gesture.Legs, c.DefaultAnchor(), t0)
	s.Tick(t0, 0)

	// The only entity has expired but the buffer has not elapsed.
	if done := s.Cleanup(t0.Add(c.Lifetime())); len(done) != 0 {
		t.Fatalf("completed at lifetime, want to wait for the buffer")
	}
	if done := s.Cleanup(t0.Add(c.Lifetime() + c.CompletionBuffer)); len(done) != 1 {
		t.Fatalf("completions = %d, want 1 after the buffer", len(done))
	}
}

func TestScheduler_OverlappingBursts(t *testing.T) {
	s := newTestScheduler()
	first := s.Trigger(gesture.Neck, r2.Vec{X: 300, Y: 300}, t0)
	second := s.Trigger(gesture.Arms, r2.Vec{X: 900, Y: 300}, t0.Add(200*time.Millisecond))
	if first.ID == second.ID {
		t.Fatal("bursts share an id")
	}

	done := run(s, t0, t0.Add(5*time.Second), 16*time.Millisecond)
	if len(done) != 2 {
		t.Fatalf("completions = %d, want 2", len(done))
	}
	if done[0].BurstID != first.ID || done[1].BurstID != second.ID {
		t.Errorf("completion order = %s, %s", done[0].BurstID, done[1].BurstID)
	}
}

func TestScheduler_EntityCap(t *testing.T) {
	s := newTestScheduler()
	for i := 0; i < 4; i++ {
		s.Trigger(gesture.Legs, r2.Vec{X: 640, Y: 360}, t0)
	}

	evicted := s.Tick(t0.Add(time.Second), 0)
	if n := len(s.Entities()); n != 28 {
		t.Fatalf("entities = %d, want cap of 28", n)
	}
	if evicted != 4 {
		t.Errorf("evicted = %d, want 4", evicted)
	}

	// The first burst lost its oldest entities.
	groups := s.Groups()
	if n := len(groups[s.Bursts()[0].ID]); n != 4 {
		t.Errorf("first burst keeps %d entities, want 4", n)
	}

	// Evicted bursts still complete once time is up.
	done := run(s, t0.Add(time.Second), t0.Add(4*time.Second), 16*time.Millisecond)
	if len(done) != 4 {
		t.Errorf("completions = %d, want 4", len(done))
	}
}

func TestScheduler_LevelColor(t *testing.T) {
	s := newTestScheduler()
	s.Trigger(gesture.Neck, r2.Vec{X: 640, Y: 360}, t0)
	s.Tick(t0, 4)

	if got := s.Entities()[0].Color; got != LevelColor(4) {
		t.Errorf("color = %v, want max-level color", got)
	}
	if got := Hex(LevelColor(4)); got != "#E4FF1C" {
		t.Errorf("Hex = %s", got)
	}
	if LevelColor(-1) != LevelColor(0) || LevelColor(9) != LevelColor(MaxLevel) {
		t.Error("LevelColor should clamp out-of-range levels")
	}
}

func TestScheduler_Links(t *testing.T) {
	s := newTestScheduler()
	s.Trigger(gesture.Neck, r2.Vec{X: 200, Y: 200}, t0)
	s.Trigger(gesture.Arms, r2.Vec{X: 1100, Y: 600}, t0)
	s.Tick(t0.Add(time.Second), 0)

	links := s.Links()
	if len(links) == 0 {
		t.Fatal("expected links between clustered entities")
	}
	for _, l := range links {
		if d := r2.Norm(r2.Sub(l.From, l.To)); d >= s.Config().LinkDistance {
			t.Errorf("link of length %v exceeds link distance", d)
		}
	}

	// Two far-apart clusters produce no cross links.
	bursts := s.Bursts()
	groups := s.Groups()
	within := 0
	for _, b := range bursts {
		n := len(groups[b.ID])
		within += n * (n - 1) / 2
	}
	if len(links) > within {
		t.Errorf("links = %d, more than the %d same-burst pairs", len(links), within)
	}
}

func TestConfig_Placement(t *testing.T) {
	c := DefaultConfig()
	e := Entity{Anchor: r2.Vec{X: 5, Y: 700}, Width: 160, Height: 80}

	p := c.Placement(e)
	if p.X != 0 {
		t.Errorf("x = %v, want clamped to 0", p.X)
	}
	if p.Y != c.Height-e.Height {
		t.Errorf("y = %v, want clamped to %v", p.Y, c.Height-e.Height)
	}
}

func TestParseHex(t *testing.T) {
	for level := 0; level <= MaxLevel; level++ {
		c := LevelColor(level)
		got, err := ParseHex(Hex(c))
		if err != nil {
			t.Fatalf("ParseHex(%s): %v", Hex(c), err)
		}
		if got != c {
			t.Errorf("ParseHex(%s) = %v, want %v", Hex(c), got, c)
		}
	}
	if _, err := ParseHex("white"); err == nil {
		t.Error("expected an error for a non-hex color")
	}
}
