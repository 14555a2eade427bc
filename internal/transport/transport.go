// SPDX-License-Identifier: MIT

// Package transport publishes analyzed frames outside the process. Every
// transport is a scheduler sink: Send is called once per frame from the frame
// loop and must not block.
package transport

import (
	"time"

	"vibe/internal/scheduler"
)

// Transport is a closable frame sink.
// Implementations should be thread-safe.
type Transport interface {
	scheduler.Sink
	Close() error
}

// FrameMessage is the JSON form of a frame.
type FrameMessage struct {
	Seq       uint64    `json:"seq"`
	Timestamp int64     `json:"timestamp"` // Unix milliseconds
	Bands     []float32 `json:"bands"`
}

// NewFrameMessage converts a frame for encoding.
func NewFrameMessage(f scheduler.Frame) FrameMessage {
	bands := make([]float32, len(f.Bands))
	copy(bands, f.Bands[:])
	return FrameMessage{
		Seq:       f.Seq,
		Timestamp: f.Time.UnixMilli(),
		Bands:     bands,
	}
}

// Time returns the frame timestamp.
func (m FrameMessage) Time() time.Time {
	return time.UnixMilli(m.Timestamp)
}
