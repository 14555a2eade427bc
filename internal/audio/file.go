// SPDX-License-Identifier: MIT
package audio

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"vibe/internal/buffer"
	applog "vibe/internal/log"
	"vibe/pkg/bitint"
)

// FileSource plays a decoded clip into a sample buffer at real-time pace,
// looping at the end.
type FileSource struct {
	recordTap
	faults

	name   string
	clip   *Clip
	buf    *buffer.SampleBuffer
	chunk  int
	period time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// NewFileSource decodes path and starts feeding buf.
func NewFileSource(path string, buf *buffer.SampleBuffer) (*FileSource, error) {
	clip, err := DecodeFile(path)
	if err != nil {
		return nil, err
	}

	s := newFileSource(filepath.Base(path), clip, buf)
	s.start()

	applog.Infof("File: Playing %q (%.1fs, SampleRate: %d Hz, Chunk: %d samples every %v)",
		s.name, clip.Duration(), clip.SampleRate, s.chunk, s.period)
	return s, nil
}

func newFileSource(name string, clip *Clip, buf *buffer.SampleBuffer) *FileSource {
	// About 10 ms per chunk, rounded up to a power of two.
	chunk := bitint.NextPowerOfTwo(clip.SampleRate / 100)
	return &FileSource{
		recordTap: recordTap{sampleRate: clip.SampleRate},
		faults:    newFaults(),
		name:      name,
		clip:      clip,
		buf:       buf,
		chunk:     chunk,
		period:    time.Duration(float64(chunk) / float64(clip.SampleRate) * float64(time.Second)),
	}
}

func (s *FileSource) start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.wg.Add(1)
	go s.run(ctx)
}

func (s *FileSource) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	pos := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pos = s.feed(pos)
		}
	}
}

// feed appends the next chunk starting at pos and returns the new position,
// wrapping to the start of the clip.
func (s *FileSource) feed(pos int) int {
	samples := s.clip.Samples
	if pos >= len(samples) {
		pos = 0
	}
	end := min(pos+s.chunk, len(samples))
	chunk := samples[pos:end]
	s.buf.Append(chunk)
	s.tap(chunk)
	return end
}

// Name returns the base name of the file.
func (s *FileSource) Name() string {
	return s.name
}

// SampleRate returns the clip sample rate.
func (s *FileSource) SampleRate() float64 {
	return float64(s.clip.SampleRate)
}

// Close stops playback and waits for the feeding goroutine to exit.
func (s *FileSource) Close() error {
	var err error
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		s.wg.Wait()
		err = s.StopRecording()
	})
	return err
}
