package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// ErrInvalidColor indicates a color literal other than #rrggbb.
var ErrInvalidColor = errors.New("invalid color")

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Color is a 24-bit RGB color.
type Color struct {
	R, G, B uint8
}

// RGBColor builds a color from channels.
func RGBColor(r, g, b uint8) Color {
	return Color{R: r, G: g, B: b}
}

// ParseColor parses a #rrggbb literal.
func ParseColor(s string) (Color, error) {
	if !colorPattern.MatchString(s) {
		return Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	return Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

// MustParseColor is ParseColor for literals known to be valid.
func MustParseColor(s string) Color {
	c, err := ParseColor(s)
	if err != nil {
		panic(err)
	}
	return c
}

// String returns the lower-case #rrggbb form.
func (c Color) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// MarshalJSON encodes the #rrggbb string.
func (c Color) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON decodes a #rrggbb string.
func (c *Color) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseColor(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
