// SPDX-License-Identifier: MIT

// Package audio produces mono float32 samples for the analyzer, either from a
// PortAudio capture stream or from a decoded audio file, and appends them to a
// shared sample buffer.
package audio

import (
	"vibe/internal/buffer"
	"vibe/internal/config"
)

// errorQueue bounds the stream fault channel. Faults beyond it are dropped.
const errorQueue = 8

// Source feeds a sample buffer until it is closed.
type Source interface {
	// Name identifies the device or file.
	Name() string
	// SampleRate is the rate of the samples written to the buffer.
	SampleRate() float64
	// Errors delivers stream faults. It is never closed.
	Errors() <-chan error
	StartRecording(path string, bitDepth int) error
	StopRecording() error
	Recording() bool
	// Close stops delivery. No samples are appended after it returns.
	Close() error
}

// Open starts the source selected by cfg: a file when InputFile is set,
// live capture otherwise.
func Open(cfg config.AudioConfig, buf *buffer.SampleBuffer) (Source, error) {
	if cfg.InputFile != "" {
		src, err := NewFileSource(cfg.InputFile, buf)
		if err != nil {
			return nil, err
		}
		return src, nil
	}
	src, err := NewCapture(cfg, buf)
	if err != nil {
		return nil, err
	}
	return src, nil
}

// faults is a non-blocking error channel shared by sources.
type faults struct {
	errs chan error
}

func newFaults() faults {
	return faults{errs: make(chan error, errorQueue)}
}

// Errors returns the stream fault channel.
func (f faults) Errors() <-chan error {
	return f.errs
}

func (f faults) report(err error) {
	select {
	case f.errs <- err:
	default:
	}
}
