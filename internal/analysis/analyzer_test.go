// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"testing"

	"vibe/pkg/utils"
)

const testSampleRate = DefaultSampleRate

func assertInUnitRange(t *testing.T, bands Bands) {
	t.Helper()
	for b, v := range bands {
		if v < 0 || v > 1 || math.IsNaN(float64(v)) {
			t.Fatalf("band %d = %v, outside [0, 1]", b, v)
		}
	}
}

func processN(a *Analyzer, samples []float32, n int) Bands {
	var out Bands
	for i := 0; i < n; i++ {
		out = a.Process(samples)
	}
	return out
}

func TestBandRanges_MonotonicAndCovering(t *testing.T) {
	ranges := bandRanges(testSampleRate)

	if ranges[0].Start > 1 {
		t.Errorf("band 0 starts at bin %d, want near 0", ranges[0].Start)
	}
	for b := 1; b < NumBands; b++ {
		if ranges[b].Start < ranges[b-1].Start {
			t.Errorf("band %d start %d < band %d start %d", b, ranges[b].Start, b-1, ranges[b-1].Start)
		}
		if ranges[b].Start != ranges[b-1].End {
			t.Errorf("gap between band %d end %d and band %d start %d", b-1, ranges[b-1].End, b, ranges[b].Start)
		}
	}

	last := ranges[NumBands-1]
	if last.End > NumBins {
		t.Errorf("last band ends at %d beyond %d bins", last.End, NumBins)
	}
	// 16 kHz of a 22.05 kHz Nyquist range.
	if last.End < 700 {
		t.Errorf("last band ends at bin %d, want close to the 16 kHz bin", last.End)
	}
}

func TestBandRange_ClampsToNyquist(t *testing.T) {
	// At 8 kHz the upper bands lie above Nyquist.
	r := BandRange(NumBands-1, 8000)
	if r.Start > NumBins || r.End > NumBins {
		t.Errorf("range %+v not clamped to %d", r, NumBins)
	}
	if r.Len() != 0 {
		t.Errorf("band above Nyquist has %d bins, want 0", r.Len())
	}
}

func TestBandForFrequency(t *testing.T) {
	tests := []struct {
		freq float64
		want int
	}{
		{MinFrequency, 0},
		{440, 29},
		{MaxFrequency - 1, NumBands - 1},
		{19, -1},
		{MaxFrequency, -1},
	}
	for _, tt := range tests {
		if got := BandForFrequency(tt.freq); got != tt.want {
			t.Errorf("BandForFrequency(%v) = %d, want %d", tt.freq, got, tt.want)
		}
	}

	b := BandForFrequency(440)
	if lo, hi := BandEdge(b), BandEdge(b+1); 440 < lo || 440 >= hi {
		t.Errorf("band %d edges [%v, %v) do not contain 440 Hz", b, lo, hi)
	}
}

func TestHannWindow(t *testing.T) {
	w := hannWindow(WindowSize)
	if w[0] != 0 {
		t.Errorf("w[0] = %v, want 0", w[0])
	}
	if math.Abs(w[WindowSize/2]-1) > 1e-12 {
		t.Errorf("w[N/2] = %v, want 1", w[WindowSize/2])
	}
	// Periodic window: w[i] == w[N-i].
	if math.Abs(w[1]-w[WindowSize-1]) > 1e-12 {
		t.Errorf("window not periodic-symmetric: %v vs %v", w[1], w[WindowSize-1])
	}
}

func TestProcess_StaysInUnitRange(t *testing.T) {
	square := make([]float32, WindowSize)
	loud := make([]float32, WindowSize)
	withNaN := utils.GenerateNoise(WindowSize, 3)
	for i := range square {
		square[i] = 1
		if (i/50)%2 == 0 {
			square[i] = -1
		}
		loud[i] = 8 * square[i]
	}
	withNaN[10] = float32(math.NaN())
	withNaN[20] = float32(math.Inf(1))

	inputs := map[string][]float32{
		"silence":      make([]float32, WindowSize),
		"noise":        utils.GenerateNoise(WindowSize, 1),
		"full scale":   square,
		"out of range": loud,
		"non finite":   withNaN,
		"sine":         utils.GenerateSineWave(WindowSize, testSampleRate, 440),
		"harmonics":    utils.GenerateComplexWave(WindowSize, testSampleRate),
	}

	for name, samples := range inputs {
		t.Run(name, func(t *testing.T) {
			a := New(testSampleRate)
			for i := 0; i < 10; i++ {
				assertInUnitRange(t, a.Process(samples))
			}
		})
	}
}

func TestProcess_SineIsolatesItsBand(t *testing.T) {
	a := New(testSampleRate)
	bands := processN(a, utils.GenerateSineWave(WindowSize, testSampleRate, 440), 20)

	target := BandForFrequency(440)
	if peak := utils.FindPeak(bands[:], 0, NumBands-1); peak != target {
		t.Errorf("peak band = %d, want %d", peak, target)
	}
	if bands[target] < 0.9 {
		t.Errorf("band %d = %v, want >= 0.9", target, bands[target])
	}
	for b, v := range bands {
		if (b < target-9 || b > target+11) && v > 0.1 {
			t.Errorf("distant band %d = %v, want < 0.1", b, v)
		}
	}
}

func TestProcess_SilenceDecaysMonotonically(t *testing.T) {
	a := New(testSampleRate)
	prev := processN(a, utils.GenerateNoise(WindowSize, 5), 10)
	silence := make([]float32, WindowSize)

	for frame := 0; frame < 60; frame++ {
		next := a.Process(silence)
		for b := range next {
			if next[b] > prev[b] {
				t.Fatalf("frame %d band %d rose from %v to %v on silence", frame, b, prev[b], next[b])
			}
		}
		prev = next
	}
	if m := prev.Max(); m > 0.01 {
		t.Errorf("max after 60 silent frames = %v, want < 0.01", m)
	}
}

func TestProcess_ShortWindowIsIdempotent(t *testing.T) {
	a := New(testSampleRate)
	primed := processN(a, utils.GenerateSineWave(WindowSize, testSampleRate, 1000), 3)

	short := utils.GenerateNoise(WindowSize-1, 9)
	for i := 0; i < 5; i++ {
		if got := a.Process(short); got != primed {
			t.Fatalf("call %d with %d samples changed the output", i, len(short))
		}
		if got := a.Process(nil); got != primed {
			t.Fatalf("call %d with no samples changed the output", i)
		}
	}
	if a.Current() != primed {
		t.Error("Current() differs from the last processed frame")
	}
}

func TestProcess_UsesTrailingWindow(t *testing.T) {
	sine := utils.GenerateSineWave(WindowSize, testSampleRate, 2000)
	long := append(utils.GenerateNoise(WindowSize, 11), sine...)

	if got, want := New(testSampleRate).Process(long), New(testSampleRate).Process(sine); got != want {
		t.Error("a longer input was not reduced to its trailing window")
	}
}

func TestProcess_ReturnsCopy(t *testing.T) {
	a := New(testSampleRate)
	out := a.Process(utils.GenerateSineWave(WindowSize, testSampleRate, 440))
	out[0] = 0.5
	out[1] = 0.5
	if a.Current() == out {
		t.Error("mutating the result changed the analyzer state")
	}
}

func TestSmooth_AttackFasterThanDecay(t *testing.T) {
	rise := smooth(0, 1) - 0
	fall := 1 - smooth(1, 0)

	if math.Abs(rise-attackWeight) > 1e-12 {
		t.Errorf("rise = %v, want %v", rise, attackWeight)
	}
	if math.Abs(fall-decayWeight) > 1e-12 {
		t.Errorf("fall = %v, want %v", fall, decayWeight)
	}
	if rise <= fall {
		t.Errorf("attack step %v is not larger than decay step %v", rise, fall)
	}
}

func TestWithGate(t *testing.T) {
	quiet := utils.GenerateSineWave(WindowSize, testSampleRate, 440)
	for i := range quiet {
		quiet[i] *= 0.01
	}

	gated := New(testSampleRate, WithGate(0.05))
	if m := processN(gated, quiet, 5).Max(); m != 0 {
		t.Errorf("gated quiet input produced max %v, want 0", m)
	}

	loud := utils.GenerateSineWave(WindowSize, testSampleRate, 440)
	if m := gated.Process(loud).Max(); m == 0 {
		t.Error("loud input was gated")
	}

	ungated := New(testSampleRate)
	if m := ungated.Process(quiet).Max(); m == 0 {
		t.Error("quiet input produced nothing without a gate")
	}
}

func TestWithRollingGain(t *testing.T) {
	loud := utils.GenerateSineWave(WindowSize, testSampleRate, 440)
	quiet := make([]float32, WindowSize)
	for i := range quiet {
		quiet[i] = loud[i] * 0.1
	}
	target := BandForFrequency(440)

	frame := New(testSampleRate)
	rolling := New(testSampleRate, WithRollingGain(0.999))
	processN(frame, loud, 10)
	processN(rolling, loud, 10)

	frameOut := processN(frame, quiet, 15)
	rollingOut := processN(rolling, quiet, 15)

	if frameOut[target] < 0.9 {
		t.Errorf("per-frame gain: band %d = %v, want it to stay near 1", target, frameOut[target])
	}
	if rollingOut[target] > 0.5 {
		t.Errorf("rolling gain: band %d = %v, want it to follow the level drop", target, rollingOut[target])
	}
	assertInUnitRange(t, rollingOut)
}

func TestWithRollingGain_InvalidDecayKeepsFrameMode(t *testing.T) {
	for _, decay := range []float64{0, 1, -0.5, 2} {
		if a := New(testSampleRate, WithRollingGain(decay)); a.gain.mode == GainRolling {
			t.Errorf("decay %v enabled rolling gain", decay)
		}
	}
}

func TestNew_DefaultsSampleRate(t *testing.T) {
	if got := New(0).SampleRate(); got != DefaultSampleRate {
		t.Errorf("SampleRate = %v, want %v", got, DefaultSampleRate)
	}
	if got := New(48000).Ranges()[NumBands-1]; got != BandRange(NumBands-1, 48000) {
		t.Errorf("ranges not computed for 48 kHz: %+v", got)
	}
}

func TestProcessHotPath(t *testing.T) {
	a := New(testSampleRate)
	samples := utils.GenerateComplexWave(WindowSize, testSampleRate)

	a.Process(samples)
	allocs := testing.AllocsPerRun(100, func() {
		a.Process(samples)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in Process hot path, got %.1f", allocs)
	}
}

func BenchmarkProcess(b *testing.B) {
	a := New(testSampleRate)
	samples := utils.GenerateComplexWave(WindowSize, testSampleRate)

	b.ReportAllocs()
	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		a.Process(samples)
	}
}
