// SPDX-License-Identifier: MIT
/*
Package buffer holds the only state shared between the audio callback and the
frame loop: a bounded, oldest-first queue of mono samples.

One writer (the capture callback) appends chunks; one reader (the scheduler)
copies out the trailing analysis window. Both sides hold the lock only for a
copy, so the callback never waits on analysis work. Growth is bounded by a
high-water mark; when it is crossed the oldest samples are dropped in one batch
rather than per sample.
*/
package buffer

import "sync"

const (
	highWaterFactor = 4 // trim once length exceeds highWaterFactor * window
	trimFactor      = 2 // drop trimFactor * window oldest samples per trim
)

// SampleBuffer is a bounded queue of mono samples shared by exactly one
// writer and one reader.
type SampleBuffer struct {
	mu        sync.Mutex
	samples   []float32
	highWater int
	trim      int
}

// New returns a buffer sized for analysis windows of the given length.
// Non-positive windows are treated as 1.
func New(window int) *SampleBuffer {
	if window < 1 {
		window = 1
	}
	return &SampleBuffer{
		// Headroom for one more callback chunk before the first trim.
		samples:   make([]float32, 0, (highWaterFactor+1)*window),
		highWater: highWaterFactor * window,
		trim:      trimFactor * window,
	}
}

// Append adds samples to the tail. Called from the audio callback, so it does
// nothing beyond a copy and, when over the high-water mark, a front trim.
func (b *SampleBuffer) Append(samples []float32) {
	if len(samples) == 0 {
		return
	}

	b.mu.Lock()
	b.samples = append(b.samples, samples...)
	if n := len(b.samples); n > b.highWater {
		// A single oversized chunk can overshoot by more than one batch.
		drop := b.trim
		for n-drop > b.highWater {
			drop += b.trim
		}
		if drop > n {
			drop = n
		}
		kept := copy(b.samples, b.samples[drop:])
		b.samples = b.samples[:kept]
	}
	b.mu.Unlock()
}

// Latest returns a copy of the most recent n samples, or all samples if fewer
// than n are buffered. The result is oldest-first.
func (b *SampleBuffer) Latest(n int) []float32 {
	if n <= 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if n > len(b.samples) {
		n = len(b.samples)
	}
	out := make([]float32, n)
	copy(out, b.samples[len(b.samples)-n:])
	return out
}

// LatestInto copies the most recent len(dst) samples into dst and returns the
// number copied. It lets the frame loop reuse one window slice.
func (b *SampleBuffer) LatestInto(dst []float32) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := len(dst)
	if n > len(b.samples) {
		n = len(b.samples)
	}
	return copy(dst[:n], b.samples[len(b.samples)-n:])
}

// Len returns the number of buffered samples.
func (b *SampleBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.samples)
}

// HighWater returns the length above which Append trims.
func (b *SampleBuffer) HighWater() int {
	return b.highWater
}

// Reset drops all buffered samples.
func (b *SampleBuffer) Reset() {
	b.mu.Lock()
	b.samples = b.samples[:0]
	b.mu.Unlock()
}
