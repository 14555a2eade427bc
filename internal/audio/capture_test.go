// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"path/filepath"
	"testing"

	"vibe/internal/buffer"
	"vibe/internal/config"

	"github.com/gordonklaus/portaudio"
)

const (
	testSampleRate = 44100
	testFrameSize  = 512
	testWindow     = 2048
)

func newTestCapture(format SampleFormat, channels int) (*Capture, *buffer.SampleBuffer) {
	buf := buffer.New(testWindow)
	return newCapture(buf, format, channels, testSampleRate, testFrameSize), buf
}

func TestCaptureCallback_Formats(t *testing.T) {
	tests := []struct {
		format SampleFormat
		invoke func(cb any)
	}{
		{FormatFloat32, func(cb any) {
			cb.(func([]float32, portaudio.StreamCallbackTimeInfo, portaudio.StreamCallbackFlags))(
				[]float32{0.5, 0.5, -0.5, -0.5}, portaudio.StreamCallbackTimeInfo{}, 0)
		}},
		{FormatInt32, func(cb any) {
			cb.(func([]int32, portaudio.StreamCallbackTimeInfo, portaudio.StreamCallbackFlags))(
				[]int32{1 << 30, 1 << 30, -(1 << 30), -(1 << 30)}, portaudio.StreamCallbackTimeInfo{}, 0)
		}},
		{FormatInt16, func(cb any) {
			cb.(func([]int16, portaudio.StreamCallbackTimeInfo, portaudio.StreamCallbackFlags))(
				[]int16{16384, 16384, -16384, -16384}, portaudio.StreamCallbackTimeInfo{}, 0)
		}},
		{FormatInt8, func(cb any) {
			cb.(func([]int8, portaudio.StreamCallbackTimeInfo, portaudio.StreamCallbackFlags))(
				[]int8{64, 64, -64, -64}, portaudio.StreamCallbackTimeInfo{}, 0)
		}},
		{FormatUint8, func(cb any) {
			cb.(func([]uint8, portaudio.StreamCallbackTimeInfo, portaudio.StreamCallbackFlags))(
				[]uint8{192, 192, 64, 64}, portaudio.StreamCallbackTimeInfo{}, 0)
		}},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			c, buf := newTestCapture(tt.format, 2)
			tt.invoke(c.callback())

			got := buf.Latest(2)
			if len(got) != 2 || got[0] != 0.5 || got[1] != -0.5 {
				t.Errorf("buffer = %v, want [0.5 -0.5]", got)
			}
		})
	}
}

func TestCaptureDeliver_ReportsFaults(t *testing.T) {
	c, buf := newTestCapture(FormatFloat32, 1)

	c.deliver([]float32{0.1}, portaudio.InputOverflow)
	c.deliver([]float32{0.2}, portaudio.InputUnderflow)

	for _, want := range []error{ErrInputOverflow, ErrInputUnderflow} {
		select {
		case err := <-c.Errors():
			if !errors.Is(err, want) {
				t.Errorf("got %v, want %v", err, want)
			}
		default:
			t.Fatalf("expected %v on the error channel", want)
		}
	}

	if buf.Len() != 2 {
		t.Errorf("faulted chunks still belong in the buffer, got %d samples", buf.Len())
	}
}

func TestCaptureDeliver_NeverBlocksOnFaults(t *testing.T) {
	c, _ := newTestCapture(FormatFloat32, 1)

	for i := 0; i < errorQueue*4; i++ {
		c.deliver([]float32{0}, portaudio.InputOverflow)
	}
	if n := len(c.Errors()); n != errorQueue {
		t.Errorf("queued %d faults, want %d", n, errorQueue)
	}
}

func TestCaptureDeliverHotPath(t *testing.T) {
	c, _ := newTestCapture(FormatInt16, 2)
	cb := c.callback().(func([]int16, portaudio.StreamCallbackTimeInfo, portaudio.StreamCallbackFlags))
	in := make([]int16, testFrameSize*2)

	allocs := testing.AllocsPerRun(100, func() {
		cb(in, portaudio.StreamCallbackTimeInfo{}, 0)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in capture callback, got %.1f", allocs)
	}
}

func TestCaptureClose_Idempotent(t *testing.T) {
	c, _ := newTestCapture(FormatFloat32, 1)

	if err := c.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestCaptureClose_FinalizesRecording(t *testing.T) {
	c, _ := newTestCapture(FormatFloat32, 1)
	path := filepath.Join(t.TempDir(), "capture.wav")

	if err := c.StartRecording(path, 16); err != nil {
		t.Fatalf("StartRecording: %v", err)
	}
	c.deliver(make([]float32, testFrameSize), 0)

	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if c.Recording() {
		t.Error("recording still active after Close")
	}

	clip, err := DecodeFile(path)
	if err != nil {
		t.Fatalf("DecodeFile: %v", err)
	}
	if len(clip.Samples) != testFrameSize {
		t.Errorf("recorded %d samples, want %d", len(clip.Samples), testFrameSize)
	}
}

func TestNewCapture_UnsupportedFormat(t *testing.T) {
	cfg := config.AudioConfig{InputDevice: -1, SampleFormat: "int24"}
	if _, err := NewCapture(cfg, buffer.New(testWindow)); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestNewCapture_NoDevice(t *testing.T) {
	mockDevices(t, []*portaudio.DeviceInfo{testMic}, testSpeakers)

	cfg := config.AudioConfig{InputDevice: -1, SampleFormat: "float32"}
	if _, err := NewCapture(cfg, buffer.New(testWindow)); !errors.Is(err, ErrNoDevice) {
		t.Errorf("expected ErrNoDevice, got %v", err)
	}
}
