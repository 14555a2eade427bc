// SPDX-License-Identifier: MIT
package render

import (
	"math"

	"vibe/internal/analysis"

	colorful "github.com/lucasb-eyer/go-colorful"
)

const (
	// Fraction of the half-extent a full-intensity spoke reaches.
	radiusScale = 0.9
	// Share of the radius every spoke gets regardless of intensity.
	minSpoke = 0.2
	// Hue of the highest band; band 0 is red at 0 degrees.
	maxHue = 300.0
)

// Intensity glyphs, quietest first.
var glyphs = [...]rune{'░', '▒', '▓', '█'}

// MaxRadius returns the longest spoke for a canvas. Cells are about twice as
// tall as they are wide, so the vertical extent counts double.
func MaxRadius(width, height int) float64 {
	rx := float64(width / 2)
	ry := float64(height/2) * 2
	return math.Min(rx, ry) * radiusScale
}

// SpokeLength returns the length of a spoke for intensity within maxRadius.
func SpokeLength(maxRadius float64, intensity float32) float64 {
	return maxRadius * (minSpoke + (1-minSpoke)*clamp01(intensity))
}

// Radial clears the canvas and draws one spoke per band from the centre,
// band 0 pointing right and bands advancing counter-clockwise.
func Radial(c *Canvas, bands analysis.Bands) {
	c.Clear()

	cx, cy := c.Width()/2, c.Height()/2
	maxRadius := MaxRadius(c.Width(), c.Height())

	for band, intensity := range bands {
		angle := float64(band) / analysis.NumBands * 2 * math.Pi
		cos, sin := math.Cos(angle), math.Sin(angle)
		length := SpokeLength(maxRadius, intensity)
		glyph := IntensityGlyph(intensity)
		color := BandColor(band, intensity)

		steps := max(int(length), 1)
		for step := 0; step < steps; step++ {
			r := float64(step)
			x := float64(cx) + cos*r
			y := float64(cy) - sin*r/2
			c.Set(int(math.Round(x)), int(math.Round(y)), glyph, color)
		}
	}
}

// IntensityGlyph picks a shade block by intensity quartile.
func IntensityGlyph(intensity float32) rune {
	v := clamp01(intensity)
	switch {
	case v < 0.25:
		return glyphs[0]
	case v < 0.5:
		return glyphs[1]
	case v < 0.75:
		return glyphs[2]
	}
	return glyphs[3]
}

// BandColor maps a band to a rainbow from red (bass) to violet (treble);
// intensity raises the lightness from 0.3 to 0.7.
func BandColor(band int, intensity float32) colorful.Color {
	hue := float64(band) / analysis.NumBands * maxHue
	return colorful.Hsl(hue, 0.9, 0.3+0.4*clamp01(intensity))
}

func clamp01(v float32) float64 {
	f := float64(v)
	if math.IsNaN(f) {
		return 0
	}
	return math.Min(1, math.Max(0, f))
}
