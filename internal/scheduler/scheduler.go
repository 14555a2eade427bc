// SPDX-License-Identifier: MIT

// Package scheduler drives the analysis loop at a fixed frame rate and fans
// each frame out to its sinks.
package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"vibe/internal/analysis"
	applog "vibe/internal/log"
)

// FrameRate is the target number of frames per second.
const FrameRate = 60

// Period is the frame budget.
const Period = time.Second / FrameRate

// Frame is one analyzed frame. It is passed to sinks by value.
type Frame struct {
	Seq   uint64         `json:"seq"`
	Time  time.Time      `json:"time"`
	Bands analysis.Bands `json:"bands"`
}

// WindowSource supplies the most recent samples.
type WindowSource interface {
	// LatestInto copies the newest len(dst) samples into dst, oldest first,
	// and returns how many were available.
	LatestInto(dst []float32) int
}

// Sink consumes frames. Send is called from the scheduler goroutine and must
// not block for long.
type Sink interface {
	Send(frame Frame) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Frame) error

// Send calls f(frame).
func (f SinkFunc) Send(frame Frame) error {
	return f(frame)
}

// Stats are counters maintained by the frame loop.
type Stats struct {
	Frames     uint64
	Overruns   uint64
	SinkErrors uint64
}

// Scheduler pulls a window per tick, analyzes it and forwards the result. The
// analyzer is owned by the goroutine calling Run or Tick.
type Scheduler struct {
	source   WindowSource
	analyzer *analysis.Analyzer
	sinks    []Sink
	period   time.Duration

	window []float32
	seq    uint64

	frames     atomic.Uint64
	overruns   atomic.Uint64
	sinkErrors atomic.Uint64
}

// New creates a Scheduler. Nil sinks are ignored.
func New(source WindowSource, analyzer *analysis.Analyzer, sinks ...Sink) *Scheduler {
	s := &Scheduler{
		source:   source,
		analyzer: analyzer,
		period:   Period,
		window:   make([]float32, analysis.WindowSize),
	}
	for _, sink := range sinks {
		if sink != nil {
			s.sinks = append(s.sinks, sink)
		}
	}
	return s
}

// Tick runs one frame stamped with now and returns it.
func (s *Scheduler) Tick(now time.Time) Frame {
	n := s.source.LatestInto(s.window)

	s.seq++
	frame := Frame{
		Seq:   s.seq,
		Time:  now,
		Bands: s.analyzer.Process(s.window[:n]),
	}

	for i, sink := range s.sinks {
		if err := sink.Send(frame); err != nil {
			if s.sinkErrors.Add(1) == 1 {
				applog.Warnf("Scheduler: Sink %d (%T) failed on frame %d: %v", i, sink, frame.Seq, err)
			} else {
				applog.Debugf("Scheduler: Sink %d (%T) failed on frame %d: %v", i, sink, frame.Seq, err)
			}
		}
	}

	s.frames.Add(1)
	return frame
}

// Run ticks every Period until ctx is cancelled, then returns nil. A tick that
// overruns its budget is followed immediately by the next one; missed ticks
// are not made up.
func (s *Scheduler) Run(ctx context.Context) error {
	applog.Infof("Scheduler: Running at %d fps (Window: %d, Sinks: %d)", FrameRate, analysis.WindowSize, len(s.sinks))

	timer := time.NewTimer(s.period)
	defer timer.Stop()

	for {
		if ctx.Err() != nil {
			break
		}

		start := time.Now()
		s.Tick(start)

		remaining := s.period - time.Since(start)
		if remaining <= 0 {
			s.overruns.Add(1)
			continue
		}

		timer.Reset(remaining)
		select {
		case <-ctx.Done():
		case <-timer.C:
		}
	}

	st := s.Stats()
	applog.Infof("Scheduler: Stopped after %d frames (%d overruns, %d sink errors)", st.Frames, st.Overruns, st.SinkErrors)
	return nil
}

// Stats returns the loop counters. Safe for concurrent use.
func (s *Scheduler) Stats() Stats {
	return Stats{
		Frames:     s.frames.Load(),
		Overruns:   s.overruns.Load(),
		SinkErrors: s.sinkErrors.Load(),
	}
}
