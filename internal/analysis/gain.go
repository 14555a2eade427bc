// SPDX-License-Identifier: MIT
package analysis

import "math"

// GainMode selects the normalization reference.
type GainMode string

const (
	// GainFrame normalizes by the loudest band of the current frame, so the
	// display is self-calibrating every 46 ms.
	GainFrame GainMode = "frame"
	// GainRolling normalizes by a peak that decays slowly across frames, so
	// quiet passages stay quiet instead of being stretched to full scale.
	GainRolling GainMode = "rolling"
)

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithRollingGain switches normalization to a rolling peak that is multiplied
// by decay every frame and raised to the frame maximum whenever exceeded.
// decay must be in (0, 1); other values leave per-frame normalization in place.
func WithRollingGain(decay float64) Option {
	return func(a *Analyzer) {
		if decay <= 0 || decay >= 1 {
			return
		}
		a.gain = gainControl{mode: GainRolling, decay: decay}
	}
}

// WithGate treats any window whose peak absolute amplitude is below threshold
// as silence. The value is clamped to [0, 1]; 0 disables the gate.
func WithGate(threshold float64) Option {
	return func(a *Analyzer) {
		a.gate = math.Min(1, math.Max(0, threshold))
	}
}

type gainControl struct {
	mode  GainMode
	decay float64
	peak  float64
}

// reference returns the divisor for this frame given the frame maximum.
func (g *gainControl) reference(frameMax float64) float64 {
	if g.mode != GainRolling {
		return frameMax
	}
	g.peak = math.Max(frameMax, g.peak*g.decay)
	return g.peak
}

func (g gainControl) String() string {
	if g.mode == "" {
		return string(GainFrame)
	}
	return string(g.mode)
}

// peakAmplitude returns the largest absolute finite sample value.
func peakAmplitude(samples []float32) float64 {
	var peak float64
	for _, s := range samples {
		v := math.Abs(float64(s))
		if v > peak && !math.IsInf(v, 0) {
			peak = v
		}
	}
	return peak
}
