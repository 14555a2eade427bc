// SPDX-License-Identifier: MIT
/*
Package analysis turns a window of mono samples into a smoothed set of
logarithmically spaced band intensities.

Each call to Process runs the same pipeline on a copied window:

 1. Hann window, w(i) = 0.5 * (1 - cos(2*pi*i/N))
 2. forward FFT, keeping the first N/2 bins
 3. complex modulus per bin
 4. mean magnitude per log-spaced band between 20 Hz and 16 kHz
 5. normalization by the frame's loudest band
 6. fast-attack / slow-decay smoothing against the previous frame

The previous frame is the only state carried between calls. An Analyzer is
owned by a single goroutine and is not safe for concurrent use.
*/
package analysis

import (
	"math"
	"math/cmplx"

	applog "vibe/internal/log"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
)

// Smoothing weights for the new value. The previous value gets the remainder.
const (
	attackWeight = 0.7
	decayWeight  = 0.15
)

// Pre-allocated buffers for one frame.
type workspace struct {
	input     []float64    // windowed samples
	fftOutput []complex128 // N/2+1 coefficients from the real FFT
	magnitude []float64    // first N/2 magnitudes
	window    []float64    // Hann coefficients
	raw       [NumBands]float64
}

// Analyzer is a stateful spectrum analyzer. Create one per frame loop.
type Analyzer struct {
	fft        *fourier.FFT
	sampleRate float64
	ranges     [NumBands]BinRange
	workspace  workspace
	smoothed   Bands

	gain gainControl
	gate float64
}

// New creates an Analyzer for samples captured at sampleRate. A non-positive
// rate falls back to DefaultSampleRate.
func New(sampleRate float64, opts ...Option) *Analyzer {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}

	a := &Analyzer{
		fft:        fourier.NewFFT(WindowSize),
		sampleRate: sampleRate,
		ranges:     bandRanges(sampleRate),
		workspace: workspace{
			input:     make([]float64, WindowSize),
			fftOutput: make([]complex128, WindowSize/2+1),
			magnitude: make([]float64, NumBins),
			window:    hannWindow(WindowSize),
		},
	}
	for _, opt := range opts {
		opt(a)
	}

	applog.Infof("Analysis: Initializing Analyzer (Window: %d, Bands: %d, SampleRate: %.1f Hz, Gain: %s)",
		WindowSize, NumBands, sampleRate, a.gain)
	return a
}

// hannWindow returns the periodic Hann window of length n.
func hannWindow(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n)))
	}
	return w
}

// SampleRate returns the rate the band ranges were computed for.
func (a *Analyzer) SampleRate() float64 {
	return a.sampleRate
}

// Ranges returns the bin range of every band.
func (a *Analyzer) Ranges() [NumBands]BinRange {
	return a.ranges
}

// Current returns the last smoothed frame without processing anything.
func (a *Analyzer) Current() Bands {
	return a.smoothed
}

// Process analyzes the most recent WindowSize samples and returns the smoothed
// band set. With fewer than WindowSize samples the previous result is returned
// unchanged. Non-finite samples are treated as silence.
func (a *Analyzer) Process(samples []float32) Bands {
	if len(samples) < WindowSize {
		return a.smoothed
	}
	samples = samples[len(samples)-WindowSize:]

	raw := a.workspace.raw[:]
	if a.gate > 0 && peakAmplitude(samples) < a.gate {
		clear(raw)
	} else {
		a.spectrum(samples)
		a.aggregate(raw)
	}

	a.normalize(raw)

	for i, v := range raw {
		a.smoothed[i] = float32(smooth(float64(a.smoothed[i]), v))
	}
	return a.smoothed
}

// spectrum fills the magnitude workspace from a full window.
func (a *Analyzer) spectrum(samples []float32) {
	ws := &a.workspace
	for i, s := range samples {
		v := float64(s)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
		}
		ws.input[i] = v * ws.window[i]
	}

	a.fft.Coefficients(ws.fftOutput, ws.input)

	for i := range ws.magnitude {
		ws.magnitude[i] = cmplx.Abs(ws.fftOutput[i])
	}
}

// aggregate averages magnitudes over each band's bin range.
func (a *Analyzer) aggregate(raw []float64) {
	for b, r := range a.ranges {
		if r.Len() == 0 {
			raw[b] = 0
			continue
		}
		raw[b] = floats.Sum(a.workspace.magnitude[r.Start:r.End]) / float64(r.Len())
	}
}

// normalize scales raw so the reference peak maps to 1. A zero peak leaves the
// values untouched.
func (a *Analyzer) normalize(raw []float64) {
	peak := a.gain.reference(floats.Max(raw))
	if peak > 0 {
		floats.Scale(1/peak, raw)
	}
}

// smooth blends next into prev with a fast attack and a slow decay, clamped to
// [0, 1].
func smooth(prev, next float64) float64 {
	var v float64
	if next > prev {
		v = prev*(1-attackWeight) + next*attackWeight
	} else {
		v = prev*(1-decayWeight) + next*decayWeight
	}
	return math.Min(1, math.Max(0, v))
}
