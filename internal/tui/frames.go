// SPDX-License-Identifier: MIT
package tui

import (
	"sync"

	"vibe/internal/scheduler"

	tea "github.com/charmbracelet/bubbletea"
)

// FrameSink hands frames from the scheduler to the TUI. It holds at most one
// pending frame; a newer frame replaces one the UI has not picked up yet, so
// Send never blocks the frame loop.
type FrameSink struct {
	ch   chan scheduler.Frame
	once sync.Once
}

// NewFrameSink returns an empty sink.
func NewFrameSink() *FrameSink {
	return &FrameSink{ch: make(chan scheduler.Frame, 1)}
}

// Send implements scheduler.Sink.
func (s *FrameSink) Send(f scheduler.Frame) error {
	select {
	case s.ch <- f:
		return nil
	default:
	}
	// Drop the stale frame.
	select {
	case <-s.ch:
	default:
	}
	select {
	case s.ch <- f:
	default:
	}
	return nil
}

// Frames returns the receive side.
func (s *FrameSink) Frames() <-chan scheduler.Frame {
	return s.ch
}

// Close ends the stream. Call it only after the scheduler has stopped.
func (s *FrameSink) Close() error {
	s.once.Do(func() { close(s.ch) })
	return nil
}

type frameMsg scheduler.Frame

// framesClosedMsg is delivered once the sink is closed.
type framesClosedMsg struct{}

func waitForFrame(ch <-chan scheduler.Frame) tea.Cmd {
	return func() tea.Msg {
		f, ok := <-ch
		if !ok {
			return framesClosedMsg{}
		}
		return frameMsg(f)
	}
}

var _ scheduler.Sink = (*FrameSink)(nil)
