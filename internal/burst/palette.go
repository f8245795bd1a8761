package burst

import (
	"fmt"
	"image/color"
)

// MaxLevel is the highest engagement level the palette knows about.
const MaxLevel = 4

var levelColors = [MaxLevel + 1]color.RGBA{
	{R: 0xA4, G: 0x8A, B: 0x70, A: 0xFF}, // none
	{R: 0x4D, G: 0x4D, B: 0x4D, A: 0xFF}, // low
	{R: 0xAF, G: 0xAF, B: 0xAF, A: 0xFF}, // med
	{R: 0xF4, G: 0xF4, B: 0xF4, A: 0xFF}, // high
	{R: 0xE4, G: 0xFF, B: 0x1C, A: 0xFF}, // max
}

// LevelColor returns the entity color for an engagement level, clamped to 0..MaxLevel.
func LevelColor(level int) color.RGBA {
	if level < 0 {
		level = 0
	}
	if level > MaxLevel {
		level = MaxLevel
	}
	return levelColors[level]
}

// TextColor is the label color drawn on top of entity badges.
var TextColor = color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}

// Hex formats c as #RRGGBB.
func Hex(c color.RGBA) string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

// ParseHex parses a #RRGGBB color as produced by Hex.
func ParseHex(s string) (color.RGBA, error) {
	c := color.RGBA{A: 0xFF}
	if _, err := fmt.Sscanf(s, "#%02x%02x%02x", &c.R, &c.G, &c.B); err != nil {
		return color.RGBA{}, fmt.Errorf("parse color %q: %w", s, err)
	}
	return c, nil
}
