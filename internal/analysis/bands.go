// SPDX-License-Identifier: MIT
package analysis

import "math"

// Pipeline constants. These are fixed at compile time; nothing in the
// configuration surface changes them.
const (
	WindowSize        = 2048           // samples per analysis window (power of 2)
	NumBins           = WindowSize / 2 // non-redundant bins up to Nyquist
	NumBands          = 64             // output bands, lowest frequency first
	MinFrequency      = 20.0           // Hz, lower edge of band 0
	MaxFrequency      = 16000.0        // Hz, upper edge of the last band
	DefaultSampleRate = 44100.0        // Hz
)

// Bands is one frame of band intensities, each in [0, 1]. It is an array so
// every hand-off to a renderer or transport is a copy.
type Bands [NumBands]float32

// Max returns the largest intensity in the set.
func (b Bands) Max() float32 {
	var m float32
	for _, v := range b {
		if v > m {
			m = v
		}
	}
	return m
}

// BinRange is a half-open range [Start, End) of FFT bins.
type BinRange struct {
	Start int
	End   int
}

// Len returns the number of bins in the range.
func (r BinRange) Len() int {
	if r.End <= r.Start {
		return 0
	}
	return r.End - r.Start
}

// BandEdge returns the lower edge frequency of band b. BandEdge(NumBands) is the
// upper edge of the last band. Edges are spaced evenly on a log scale.
func BandEdge(b int) float64 {
	logMin := math.Log(MinFrequency)
	logMax := math.Log(MaxFrequency)
	return math.Exp(logMin + (float64(b)/NumBands)*(logMax-logMin))
}

// BandForFrequency returns the band whose frequency range contains freq, or -1
// when freq lies outside [MinFrequency, MaxFrequency).
func BandForFrequency(freq float64) int {
	if freq < MinFrequency || freq >= MaxFrequency {
		return -1
	}
	pos := math.Log(freq/MinFrequency) / math.Log(MaxFrequency/MinFrequency)
	b := int(pos * NumBands)
	if b >= NumBands {
		b = NumBands - 1
	}
	return b
}

// BandRange maps band b onto the bin range covering its frequency edges for
// the given sample rate, clamped to NumBins. Low bands may be empty: below a
// few hundred Hz the bins are wider than the bands.
func BandRange(b int, sampleRate float64) BinRange {
	freqPerBin := sampleRate / (2 * NumBins)
	start := int(BandEdge(b) / freqPerBin)
	end := int(BandEdge(b+1) / freqPerBin)
	return BinRange{Start: min(start, NumBins), End: min(end, NumBins)}
}

// bandRanges precomputes BandRange for every band.
func bandRanges(sampleRate float64) [NumBands]BinRange {
	var ranges [NumBands]BinRange
	for b := range ranges {
		ranges[b] = BandRange(b, sampleRate)
	}
	return ranges
}
