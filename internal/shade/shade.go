// Package shade defines lipstick shades, the default catalog, and parsing of
// shade colors.
package shade

import (
	"errors"
	"fmt"
	"image/color"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// None is the sentinel color of a shade that applies no tint.
const None = "none"

// ErrInvalidColor is returned for color strings that are neither hex nor a sentinel.
var ErrInvalidColor = errors.New("invalid shade color")

// Shade is one catalog entry. ColorHex is "#rrggbb" or None.
type Shade struct {
	ID          int    `json:"id"`
	Code        string `json:"code"`
	DisplayName string `json:"display_name"`
	ColorHex    string `json:"color_hex"`
}

// IsNone reports whether the shade applies no tint.
func (s Shade) IsNone() bool {
	return isSentinel(s.ColorHex)
}

// Label formats the shade for display as "<code> - <name>". The no-tint
// shade is shown as "Natural Finish".
func (s Shade) Label() string {
	name := s.DisplayName
	if s.ID == NoneID {
		name = "Natural Finish"
	}
	code := strings.TrimSpace(s.Code)
	if code == "" {
		return name
	}
	return code + " - " + name
}

// Color parses the shade's color.
func (s Shade) Color() (color.RGBA, error) {
	return ParseColor(s.ColorHex)
}

func isSentinel(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", None, "transparent":
		return true
	}
	return false
}

// ParseColor parses 3- or 6-digit hex colors with or without a leading "#".
// The sentinels "none" and "transparent" parse to a fully transparent color.
func ParseColor(v string) (color.RGBA, error) {
	if isSentinel(v) {
		return color.RGBA{}, nil
	}

	h := strings.TrimPrefix(strings.TrimSpace(v), "#")
	if len(h) != 3 && len(h) != 6 {
		return color.RGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, v)
	}
	for _, r := range h {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return color.RGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, v)
		}
	}

	c, err := colorful.Hex("#" + strings.ToLower(h))
	if err != nil {
		return color.RGBA{}, fmt.Errorf("%w: %q: %w", ErrInvalidColor, v, err)
	}
	r, g, b := c.Clamped().RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}

// Normalize returns "#rrggbb" for a hex color, None for a sentinel.
func Normalize(v string) (string, error) {
	if isSentinel(v) {
		return None, nil
	}
	c, err := ParseColor(v)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B), nil
}
