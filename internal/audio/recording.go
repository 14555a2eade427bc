// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sync"
	"sync/atomic"

	applog "vibe/internal/log"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// recorderQueue is the number of chunks that may wait for the writer before
// new chunks are dropped.
const recorderQueue = 64

// Recorder encodes mono float32 chunks to a PCM WAV file from its own
// goroutine. Write never blocks.
type Recorder struct {
	path     string
	file     *os.File
	encoder  *wav.Encoder
	bitDepth int

	mu     sync.RWMutex
	closed bool
	chunks chan []float32
	done   chan struct{}
	err    error

	written atomic.Uint64
	dropped atomic.Uint64
}

// NewRecorder creates path and starts the writer goroutine.
func NewRecorder(path string, sampleRate, bitDepth int) (*Recorder, error) {
	if bitDepth != 16 && bitDepth != 24 {
		return nil, fmt.Errorf("unsupported recording bit depth: %d", bitDepth)
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create recording file: %w", err)
	}

	r := &Recorder{
		path:     path,
		file:     file,
		encoder:  wav.NewEncoder(file, sampleRate, bitDepth, 1, 1),
		bitDepth: bitDepth,
		chunks:   make(chan []float32, recorderQueue),
		done:     make(chan struct{}),
	}
	go r.run(sampleRate)

	applog.Infof("Recording: Writing %d-bit mono WAV at %d Hz to %s", bitDepth, sampleRate, path)
	return r, nil
}

// Path returns the output file path.
func (r *Recorder) Path() string {
	return r.path
}

// Write queues a copy of samples. When the writer falls behind the chunk is
// dropped and counted.
func (r *Recorder) Write(samples []float32) {
	if len(samples) == 0 {
		return
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}

	chunk := make([]float32, len(samples))
	copy(chunk, samples)
	select {
	case r.chunks <- chunk:
	default:
		r.dropped.Add(1)
	}
}

// Dropped returns the number of chunks discarded because the queue was full.
func (r *Recorder) Dropped() uint64 {
	return r.dropped.Load()
}

// Written returns the number of samples encoded so far.
func (r *Recorder) Written() uint64 {
	return r.written.Load()
}

func (r *Recorder) run(sampleRate int) {
	defer close(r.done)

	scale := float64(int64(1)<<(r.bitDepth-1)) - 1
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		SourceBitDepth: r.bitDepth,
	}

	for chunk := range r.chunks {
		if r.err != nil {
			continue
		}
		if cap(buf.Data) < len(chunk) {
			buf.Data = make([]int, len(chunk))
		}
		buf.Data = buf.Data[:len(chunk)]
		for i, s := range chunk {
			v := math.Max(-1, math.Min(1, float64(s)))
			if math.IsNaN(v) {
				v = 0
			}
			buf.Data[i] = int(math.Round(v * scale))
		}
		if err := r.encoder.Write(buf); err != nil {
			r.err = fmt.Errorf("failed to encode recording: %w", err)
			applog.Errorf("Recording: %v", r.err)
			continue
		}
		r.written.Add(uint64(len(chunk)))
	}
}

// Close drains queued chunks, finalizes the WAV header and closes the file.
// Calling Close more than once is a no-op.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.chunks)
	r.mu.Unlock()

	<-r.done

	err := r.err
	if cerr := r.encoder.Close(); cerr != nil {
		err = errors.Join(err, fmt.Errorf("failed to finalize recording: %w", cerr))
	}
	if cerr := r.file.Close(); cerr != nil {
		err = errors.Join(err, fmt.Errorf("failed to close recording file: %w", cerr))
	}

	applog.Infof("Recording: Closed %s (%d samples, %d chunks dropped)", r.path, r.Written(), r.Dropped())
	return err
}

// recordTap lets a source hand each mono chunk to an optional Recorder.
type recordTap struct {
	sampleRate int
	recorder   atomic.Pointer[Recorder]
}

// StartRecording begins writing captured mono audio to path.
func (t *recordTap) StartRecording(path string, bitDepth int) error {
	if t.recorder.Load() != nil {
		return fmt.Errorf("already recording")
	}
	r, err := NewRecorder(path, t.sampleRate, bitDepth)
	if err != nil {
		return err
	}
	if !t.recorder.CompareAndSwap(nil, r) {
		_ = r.Close()
		_ = os.Remove(path)
		return fmt.Errorf("already recording")
	}
	return nil
}

// StopRecording finalizes the active recording, if any.
func (t *recordTap) StopRecording() error {
	r := t.recorder.Swap(nil)
	if r == nil {
		return nil
	}
	return r.Close()
}

// Recording reports whether a recording is active.
func (t *recordTap) Recording() bool {
	return t.recorder.Load() != nil
}

func (t *recordTap) tap(samples []float32) {
	if r := t.recorder.Load(); r != nil {
		r.Write(samples)
	}
}
