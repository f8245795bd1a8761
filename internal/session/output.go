package session

import (
	"time"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/ayusman/howlong/internal/burst"
	"github.com/ayusman/howlong/internal/engagement"
	"github.com/ayusman/howlong/internal/gesture"
)

// linkAlpha is the opacity of lines joining entities of one burst.
const linkAlpha = 0.65

// Point is a 2D position in JSON-friendly form.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func pointOf(v r2.Vec) Point { return Point{X: v.X, Y: v.Y} }

// Vec converts p back to an r2.Vec.
func (p Point) Vec() r2.Vec { return r2.Vec{X: p.X, Y: p.Y} }

// EntityView is one entity ready to draw: a box in canvas units with its
// current opacity. Source is the center of the video patch shown inside it.
type EntityView struct {
	ID        string       `json:"id"`
	BurstID   string       `json:"burstId"`
	Type      gesture.Type `json:"type"`
	Label     string       `json:"label"`
	Box       Rect         `json:"box"`
	Source    Point        `json:"source"`
	Opacity   float64      `json:"opacity"`
	Color     string       `json:"color"`
	TextColor string       `json:"textColor"`
}

// Rect is an axis-aligned box in canvas units.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// LinkView is one connecting line between two entities of the same burst.
type LinkView struct {
	From    Point   `json:"from"`
	To      Point   `json:"to"`
	Color   string  `json:"color"`
	Opacity float64 `json:"opacity"`
}

// FrameOutput is the immutable per-frame snapshot read by the UI.
// Slices are freshly allocated for every frame.
type FrameOutput struct {
	At        time.Time     `json:"at"`
	Elapsed   time.Duration `json:"-"`
	ElapsedMs int64         `json:"elapsedMs"`
	MMSS      string        `json:"mmss"`

	PoseState  gesture.Type `json:"poseState"`
	PoseAnchor *Point       `json:"poseAnchor,omitempty"` // normalized frame space

	engagement.Snapshot

	Active   bool         `json:"active"`
	Queued   gesture.Type `json:"queued"`
	Entities []EntityView `json:"entities"`
	Links    []LinkView   `json:"links"`

	Completions []burst.Completion     `json:"-"`
	Navigation  *engagement.Navigation `json:"navigation,omitempty"`
}

func (s *Session) snapshot(now time.Time, completions []burst.Completion) FrameOutput {
	cfg := s.sched.Config()
	elapsed := s.Elapsed(now)

	out := FrameOutput{
		At:          now,
		Elapsed:     elapsed,
		ElapsedMs:   elapsed.Milliseconds(),
		MMSS:        engagement.FormatMMSS(elapsed),
		PoseState:   s.pose.Type,
		Snapshot:    s.agg.Snapshot(),
		Active:      s.sched.Active(),
		Completions: completions,
	}
	if s.pose.Type != gesture.None && s.pose.HasAnchor {
		p := pointOf(s.pose.Anchor)
		out.PoseAnchor = &p
	}
	if q, ok := s.agg.Pending(); ok {
		out.Queued = q
	}
	if nav, ok := s.nav.Fired(); ok {
		out.Navigation = &nav
	}

	entities := s.sched.Entities()
	out.Entities = make([]EntityView, 0, len(entities))
	for _, e := range entities {
		alpha := cfg.Opacity(e.Age(now))
		if alpha <= 0 {
			continue
		}
		top := cfg.Placement(e)
		out.Entities = append(out.Entities, EntityView{
			ID:        e.ID,
			BurstID:   e.BurstID,
			Type:      e.Type,
			Label:     e.Label,
			Box:       Rect{X: top.X, Y: top.Y, W: e.Width, H: e.Height},
			Source:    pointOf(e.Anchor),
			Opacity:   alpha,
			Color:     burst.Hex(e.Color),
			TextColor: burst.Hex(burst.TextColor),
		})
	}

	links := s.sched.Links()
	out.Links = make([]LinkView, 0, len(links))
	for _, l := range links {
		out.Links = append(out.Links, LinkView{
			From:    pointOf(r2.Add(l.From, cfg.DrawOffset)),
			To:      pointOf(r2.Add(l.To, cfg.DrawOffset)),
			Color:   burst.Hex(l.Color),
			Opacity: linkAlpha,
		})
	}
	return out
}
