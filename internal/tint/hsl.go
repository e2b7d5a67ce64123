package tint

import "github.com/lucasb-eyer/go-colorful"

// RGBToHSL converts 8-bit RGB to hue in degrees [0,360) and saturation and
// lightness in [0,1]. Achromatic colors have zero hue and saturation.
func RGBToHSL(r, g, b uint8) (h, s, l float64) {
	c := colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
	return c.Hsl()
}

// HSLToRGB is the inverse of RGBToHSL, rounded to the nearest 8-bit value.
func HSLToRGB(h, s, l float64) (r, g, b uint8) {
	return colorful.Hsl(h, s, l).Clamped().RGB255()
}

// lightness is the HSL lightness of an 8-bit pixel, without computing hue.
func lightness(r, g, b uint8) float64 {
	hi := max(r, g, b)
	lo := min(r, g, b)
	return (float64(hi) + float64(lo)) / 510
}
