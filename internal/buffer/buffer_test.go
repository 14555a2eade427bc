// SPDX-License-Identifier: MIT
package buffer

import (
	"sync"
	"testing"
)

const testWindow = 2048

func ramp(start, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(start + i)
	}
	return out
}

func TestLatest_Empty(t *testing.T) {
	b := New(testWindow)
	if got := b.Latest(testWindow); len(got) != 0 {
		t.Errorf("Latest on empty buffer returned %d samples", len(got))
	}
	if got := b.Latest(0); got != nil {
		t.Errorf("Latest(0) = %v, want nil", got)
	}
}

func TestLatest_FewerThanRequested(t *testing.T) {
	b := New(testWindow)
	b.Append(ramp(0, 100))

	got := b.Latest(testWindow)
	if len(got) != 100 {
		t.Fatalf("len = %d, want 100", len(got))
	}
	if got[0] != 0 || got[99] != 99 {
		t.Errorf("unexpected contents: first=%v last=%v", got[0], got[99])
	}
}

func TestLatest_ReturnsMostRecent(t *testing.T) {
	b := New(testWindow)
	b.Append(ramp(0, 3000))
	b.Append(ramp(3000, 500))

	got := b.Latest(testWindow)
	if len(got) != testWindow {
		t.Fatalf("len = %d, want %d", len(got), testWindow)
	}
	if first, want := got[0], float32(3500-testWindow); first != want {
		t.Errorf("first sample = %v, want %v", first, want)
	}
	if last := got[len(got)-1]; last != 3499 {
		t.Errorf("last sample = %v, want 3499", last)
	}
}

func TestLatest_IsACopy(t *testing.T) {
	b := New(testWindow)
	b.Append(ramp(0, 10))

	got := b.Latest(10)
	got[9] = -1
	if again := b.Latest(1); again[0] != 9 {
		t.Errorf("mutating the result changed the buffer: %v", again[0])
	}
}

func TestAppend_TrimsInBatches(t *testing.T) {
	b := New(testWindow)

	b.Append(ramp(0, b.HighWater()))
	if got := b.Len(); got != b.HighWater() {
		t.Fatalf("Len at high water = %d, want %d", got, b.HighWater())
	}

	// One more sample crosses the mark and drops 2x window at once.
	b.Append([]float32{float32(b.HighWater())})
	if got, want := b.Len(), b.HighWater()+1-2*testWindow; got != want {
		t.Errorf("Len after trim = %d, want %d", got, want)
	}
	if last := b.Latest(1)[0]; last != float32(b.HighWater()) {
		t.Errorf("trim lost the newest sample, got %v", last)
	}
}

func TestAppend_BoundedUnderSustainedWrites(t *testing.T) {
	b := New(testWindow)
	next := 0
	for i := 0; i < 1000; i++ {
		b.Append(ramp(next, 441))
		next += 441
		if b.Len() > b.HighWater() {
			t.Fatalf("Len %d exceeded high water %d", b.Len(), b.HighWater())
		}
	}

	got := b.Latest(testWindow)
	if last := got[len(got)-1]; last != float32(next-1) {
		t.Errorf("last sample = %v, want %v", last, next-1)
	}
}

func TestAppend_OversizedChunk(t *testing.T) {
	b := New(testWindow)
	b.Append(ramp(0, 20*testWindow))

	if b.Len() > b.HighWater() {
		t.Errorf("Len %d exceeded high water %d", b.Len(), b.HighWater())
	}
	got := b.Latest(testWindow)
	if last := got[len(got)-1]; last != float32(20*testWindow-1) {
		t.Errorf("last sample = %v, want %v", last, 20*testWindow-1)
	}
}

func TestLatestInto(t *testing.T) {
	b := New(testWindow)
	dst := make([]float32, testWindow)

	if n := b.LatestInto(dst); n != 0 {
		t.Errorf("LatestInto on empty buffer = %d", n)
	}

	b.Append(ramp(0, 5000))
	if n := b.LatestInto(dst); n != testWindow {
		t.Fatalf("LatestInto = %d, want %d", n, testWindow)
	}
	if dst[testWindow-1] != 4999 {
		t.Errorf("last = %v, want 4999", dst[testWindow-1])
	}
}

func TestReset(t *testing.T) {
	b := New(testWindow)
	b.Append(ramp(0, 10))
	b.Reset()
	if b.Len() != 0 {
		t.Errorf("Len after Reset = %d", b.Len())
	}
}

func TestConcurrentWriterReader(t *testing.T) {
	b := New(testWindow)
	chunk := ramp(0, 512)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 2000; i++ {
			b.Append(chunk)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 2000; i++ {
			if got := b.Latest(testWindow); len(got) > testWindow {
				t.Errorf("Latest returned %d samples", len(got))
				return
			}
		}
	}()
	wg.Wait()

	if b.Len() > b.HighWater() {
		t.Errorf("Len %d exceeded high water %d", b.Len(), b.HighWater())
	}
}

func TestAppendHotPath(t *testing.T) {
	b := New(testWindow)
	chunk := make([]float32, 512)

	// Fill past the first trim so the backing array has reached its final size.
	for i := 0; i < 20; i++ {
		b.Append(chunk)
	}
	allocs := testing.AllocsPerRun(100, func() {
		b.Append(chunk)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in Append, got %.1f", allocs)
	}
}

func BenchmarkAppend(b *testing.B) {
	buf := New(testWindow)
	chunk := make([]float32, 512)
	b.ReportAllocs()
	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		buf.Append(chunk)
	}
}
