package shade

import (
	"fmt"
	"strings"
)

// Catalog ids of the shades selected when a session starts.
const (
	NoneID         = 0
	DefaultLeftID  = 13
	DefaultRightID = NoneID
)

var defaultCatalog = []Shade{
	{ID: 0, Code: "", DisplayName: "NA", ColorHex: None},
	{ID: 1, Code: "601", DisplayName: "Scarlet Siren", ColorHex: "#B82229"},
	{ID: 2, Code: "602", DisplayName: "Rouge Eternelle", ColorHex: "#8D1D27"},
	{ID: 3, Code: "603", DisplayName: "Power Play", ColorHex: "#631820"},
	{ID: 4, Code: "604", DisplayName: "Spiced Silk", ColorHex: "#A64D3E"},
	{ID: 5, Code: "605", DisplayName: "Bare Bloom", ColorHex: "#D18A68"},
	{ID: 6, Code: "606", DisplayName: "Peach Tantra", ColorHex: "#F2A36E"},
	{ID: 7, Code: "607", DisplayName: "Rose Flame", ColorHex: "#C95A6C"},
	{ID: 8, Code: "608", DisplayName: "Whisper Nude", ColorHex: "#C79082"},
	{ID: 9, Code: "609", DisplayName: "Bloom Creme", ColorHex: "#D24E71"},
	{ID: 10, Code: "610", DisplayName: "Berry Amour", ColorHex: "#8A3832"},
	{ID: 11, Code: "611", DisplayName: "Cinnamon Saffron", ColorHex: "#B64A29"},
	{ID: 12, Code: "612", DisplayName: "Oud Royale", ColorHex: "#431621"},
	{ID: 13, Code: "613", DisplayName: "Velvet Crush", ColorHex: "#C22A2D"},
	{ID: 14, Code: "614", DisplayName: "Spiced Ember", ColorHex: "#A03529"},
	{ID: 15, Code: "615", DisplayName: "Creme Blush", ColorHex: "#CF5F4C"},
	{ID: 16, Code: "616", DisplayName: "Caramel Eclair", ColorHex: "#C77444"},
	{ID: 17, Code: "617", DisplayName: "Rose Fantasy", ColorHex: "#C25D6A"},
	{ID: 18, Code: "618", DisplayName: "Mauve Memoir", ColorHex: "#A86267"},
	{ID: 19, Code: "619", DisplayName: "Rouge Mistral", ColorHex: "#94373F"},
	{ID: 20, Code: "620", DisplayName: "Flushed Fig", ColorHex: "#9A4140"},
	{ID: 21, Code: "621", DisplayName: "Terracotta Dream", ColorHex: "#C5552F"},
	{ID: 22, Code: "622", DisplayName: "Nude Myth", ColorHex: "#AF705A"},
	{ID: 23, Code: "623", DisplayName: "Runway Rani", ColorHex: "#D13864"},
}

// DefaultCatalog returns a copy of the built-in catalog.
func DefaultCatalog() []Shade {
	return append([]Shade(nil), defaultCatalog...)
}

// Find returns the shade with the given id from catalog.
func Find(catalog []Shade, id int) (Shade, bool) {
	for _, s := range catalog {
		if s.ID == id {
			return s, true
		}
	}
	return Shade{}, false
}

// Side names one half of the compare view.
type Side string

const (
	Left  Side = "left"
	Right Side = "right"
)

// ParseSide accepts "left" or "right" in any case.
func ParseSide(v string) (Side, error) {
	switch Side(strings.ToLower(strings.TrimSpace(v))) {
	case Left:
		return Left, nil
	case Right:
		return Right, nil
	}
	return "", fmt.Errorf("unknown side %q", v)
}

// Selection is the pair of shades currently chosen for each side.
type Selection struct {
	Left  Shade `json:"left"`
	Right Shade `json:"right"`
}

// DefaultSelection returns the selection a new session starts with.
func DefaultSelection() Selection {
	l, _ := Find(defaultCatalog, DefaultLeftID)
	r, _ := Find(defaultCatalog, DefaultRightID)
	return Selection{Left: l, Right: r}
}

// Any reports whether at least one pass will tint. In single view only the
// left shade counts.
func (s Selection) Any(compare bool) bool {
	if compare {
		return !s.Left.IsNone() || !s.Right.IsNone()
	}
	return !s.Left.IsNone()
}

// PassColors returns the colors the left and right recolor passes use.
// In single view both passes use the left shade. In compare view a right
// side set to none falls back to the left shade, so the right half still
// shows a tint.
func (s Selection) PassColors(compare bool) (left, right string) {
	left = s.Left.ColorHex
	if !compare || s.Right.IsNone() {
		return left, left
	}
	return left, s.Right.ColorHex
}
