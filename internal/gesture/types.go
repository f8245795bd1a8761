// Package gesture turns per-frame body landmarks into debounced, arbitrated gesture states.
package gesture

import "fmt"

// Type identifies one of the recognized body gestures.
// None is only meaningful as a pose state; it never triggers a burst.
type Type int

const (
	None Type = iota
	Neck
	Arms
	Legs
)

// Types lists the triggerable gestures in arbitration priority order.
var Types = [...]Type{Arms, Neck, Legs}

// String returns the lowercase wire name of the gesture.
func (t Type) String() string {
	switch t {
	case Neck:
		return "neck"
	case Arms:
		return "arms"
	case Legs:
		return "legs"
	default:
		return "none"
	}
}

// Label returns the text drawn next to burst entities for this gesture.
func (t Type) Label() string {
	switch t {
	case Arms:
		return "- ( HANDS ) -"
	case Legs:
		return "- ( LEGS ) -"
	default:
		return "- ( NECK ) -"
	}
}

// Valid reports whether t is one of the triggerable gestures.
func (t Type) Valid() bool {
	return t == Neck || t == Arms || t == Legs
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(b []byte) error {
	parsed, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseType converts a wire name back to a Type.
func ParseType(s string) (Type, error) {
	switch s {
	case "none", "":
		return None, nil
	case "neck":
		return Neck, nil
	case "arms":
		return Arms, nil
	case "legs":
		return Legs, nil
	}
	return None, fmt.Errorf("unknown gesture type %q", s)
}
