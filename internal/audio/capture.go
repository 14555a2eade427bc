// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"sync"

	"vibe/internal/buffer"
	"vibe/internal/config"
	applog "vibe/internal/log"

	"github.com/gordonklaus/portaudio"
)

// Capture owns a PortAudio input stream. Its callback downmixes each chunk to
// mono and appends it to the sample buffer; no analysis happens there.
type Capture struct {
	recordTap
	faults

	buf        *buffer.SampleBuffer
	device     *portaudio.DeviceInfo
	stream     *portaudio.Stream
	format     SampleFormat
	channels   int
	sampleRate float64
	mono       []float32 // callback scratch

	mu     sync.Mutex
	closed bool
}

// NewCapture selects a device per cfg and starts capturing into buf.
// PortAudio must already be initialized. Device and format failures wrap
// ErrNoDevice and ErrUnsupportedFormat.
func NewCapture(cfg config.AudioConfig, buf *buffer.SampleBuffer) (*Capture, error) {
	format, err := ParseSampleFormat(cfg.SampleFormat)
	if err != nil {
		return nil, err
	}

	device, err := SelectDevice(cfg.InputDevice)
	if err != nil {
		return nil, err
	}

	channels := device.MaxInputChannels
	if cfg.MaxChannels > 0 && channels > cfg.MaxChannels {
		channels = cfg.MaxChannels
	}

	framesPerBuffer := cfg.FramesPerBuffer
	if framesPerBuffer <= 0 {
		framesPerBuffer = config.DefaultFramesPerBuffer
	}

	c := newCapture(buf, format, channels, device.DefaultSampleRate, framesPerBuffer)
	c.device = device

	latency := device.DefaultHighInputLatency
	if cfg.LowLatency {
		latency = device.DefaultLowInputLatency
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: channels,
			Latency:  latency,
		},
		FramesPerBuffer: framesPerBuffer,
		SampleRate:      device.DefaultSampleRate,
	}

	stream, err := portaudio.OpenStream(params, c.callback())
	if err != nil {
		return nil, fmt.Errorf("failed to open stream on %q: %w", device.Name, err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return nil, fmt.Errorf("failed to start stream on %q: %w", device.Name, err)
	}
	c.stream = stream

	applog.Infof("Capture: Streaming from %q (Channels: %d, Format: %s, SampleRate: %.0f Hz, FramesPerBuffer: %d, Latency: %v)",
		device.Name, channels, format, device.DefaultSampleRate, framesPerBuffer, latency)
	return c, nil
}

func newCapture(buf *buffer.SampleBuffer, format SampleFormat, channels int, sampleRate float64, framesPerBuffer int) *Capture {
	return &Capture{
		recordTap:  recordTap{sampleRate: int(sampleRate)},
		faults:     newFaults(),
		buf:        buf,
		format:     format,
		channels:   channels,
		sampleRate: sampleRate,
		mono:       make([]float32, framesPerBuffer),
	}
}

// callback returns a PortAudio callback typed for the capture format.
func (c *Capture) callback() any {
	switch c.format {
	case FormatInt32:
		return func(in []int32, _ portaudio.StreamCallbackTimeInfo, flags portaudio.StreamCallbackFlags) {
			c.deliver(downmix(c.mono, in, c.channels, int32Sample), flags)
		}
	case FormatInt16:
		return func(in []int16, _ portaudio.StreamCallbackTimeInfo, flags portaudio.StreamCallbackFlags) {
			c.deliver(downmix(c.mono, in, c.channels, int16Sample), flags)
		}
	case FormatInt8:
		return func(in []int8, _ portaudio.StreamCallbackTimeInfo, flags portaudio.StreamCallbackFlags) {
			c.deliver(downmix(c.mono, in, c.channels, int8Sample), flags)
		}
	case FormatUint8:
		return func(in []uint8, _ portaudio.StreamCallbackTimeInfo, flags portaudio.StreamCallbackFlags) {
			c.deliver(downmix(c.mono, in, c.channels, uint8Sample), flags)
		}
	}
	return func(in []float32, _ portaudio.StreamCallbackTimeInfo, flags portaudio.StreamCallbackFlags) {
		c.deliver(downmix(c.mono, in, c.channels, float32Sample), flags)
	}
}

// deliver runs on the PortAudio thread.
func (c *Capture) deliver(mono []float32, flags portaudio.StreamCallbackFlags) {
	if flags&portaudio.InputOverflow != 0 {
		c.report(ErrInputOverflow)
	}
	if flags&portaudio.InputUnderflow != 0 {
		c.report(ErrInputUnderflow)
	}
	c.mono = mono
	c.buf.Append(mono)
	c.tap(mono)
}

// Name returns the capture device name.
func (c *Capture) Name() string {
	if c.device == nil {
		return "capture"
	}
	return c.device.Name
}

// SampleRate returns the stream sample rate.
func (c *Capture) SampleRate() float64 {
	return c.sampleRate
}

// Channels returns the number of captured channels before downmixing.
func (c *Capture) Channels() int {
	return c.channels
}

// Close stops then closes the stream and finalizes any recording. Once Close
// returns the callback no longer fires. Further calls return nil.
func (c *Capture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	var errs []error
	if c.stream != nil {
		if err := c.stream.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop stream: %w", err))
		}
		if err := c.stream.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close stream: %w", err))
		}
	}
	if err := c.StopRecording(); err != nil {
		errs = append(errs, err)
	}

	err := errors.Join(errs...)
	if err != nil {
		c.report(err)
		applog.Errorf("Capture: Close %q: %v", c.Name(), err)
	}
	return err
}
