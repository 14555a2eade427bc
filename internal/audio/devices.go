// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"io"
	"strings"
	"time"

	"vibe/internal/config"

	"github.com/gordonklaus/portaudio"
)

// Device is a flattened view of a PortAudio device.
type Device struct {
	ID                int
	Name              string
	HostAPI           string
	MaxInputChannels  int
	MaxOutputChannels int
	DefaultSampleRate float64
	LowInputLatency   time.Duration
	HighInputLatency  time.Duration
	IsDefaultOutput   bool
	IsLoopback        bool
}

// CanCapture reports whether the device exposes any capture channels.
func (d Device) CanCapture() bool {
	return d.MaxInputChannels > 0
}

// Type describes the device direction.
func (d Device) Type() string {
	switch {
	case d.MaxInputChannels > 0 && d.MaxOutputChannels > 0:
		return "Input/Output"
	case d.MaxInputChannels > 0:
		return "Input"
	case d.MaxOutputChannels > 0:
		return "Output"
	}
	return "None"
}

// Name fragments that mark a capture device as a loopback of system output.
var loopbackMarkers = []string{"loopback", "monitor", "stereo mix", "what u hear"}

var (
	paLibInitialize     = portaudio.Initialize
	paLibTerminate      = portaudio.Terminate
	paDevicesFunc       = portaudio.Devices
	paDefaultOutputFunc = portaudio.DefaultOutputDevice
)

// Initialize sets up the PortAudio subsystem.
// This must be called before any audio operations and paired with a Terminate() call.
func Initialize() error {
	if err := paLibInitialize(); err != nil {
		return fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return nil
}

// Terminate cleanly shuts down the PortAudio subsystem.
// Call it only after every Source opened on PortAudio has been closed.
func Terminate() error {
	if err := paLibTerminate(); err != nil {
		return fmt.Errorf("failed to terminate PortAudio: %w", err)
	}
	return nil
}

// IsLoopbackName reports whether a device name marks it as a loopback of the
// system output.
func IsLoopbackName(name string) bool {
	lower := strings.ToLower(name)
	for _, marker := range loopbackMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// SelectDevice picks the capture device for deviceID.
//
// A non-negative deviceID must name a capture-capable device. Otherwise the
// first capture-capable loopback device wins, then the default output device
// if it exposes capture channels. Failures wrap ErrNoDevice.
func SelectDevice(deviceID int) (*portaudio.DeviceInfo, error) {
	devices, err := paDevices()
	if err != nil {
		return nil, err
	}

	if deviceID > config.MinDeviceID {
		if deviceID >= len(devices) {
			return nil, fmt.Errorf("%w: invalid device ID: %d", ErrNoDevice, deviceID)
		}
		d := devices[deviceID]
		if d.MaxInputChannels < 1 {
			return nil, fmt.Errorf("%w: device %d (%s) has no capture channels", ErrNoDevice, deviceID, d.Name)
		}
		return d, nil
	}

	if d := findLoopback(devices); d != nil {
		return d, nil
	}

	out, err := paDefaultOutputFunc()
	if err != nil || out == nil {
		return nil, fmt.Errorf("%w: no loopback device and no default output", ErrNoDevice)
	}
	if out.MaxInputChannels < 1 {
		return nil, fmt.Errorf("%w: no loopback device and default output %q has no capture channels",
			ErrNoDevice, out.Name)
	}
	return out, nil
}

func findLoopback(devices []*portaudio.DeviceInfo) *portaudio.DeviceInfo {
	for _, d := range devices {
		if d != nil && d.MaxInputChannels > 0 && IsLoopbackName(d.Name) {
			return d
		}
	}
	return nil
}

// HostDevices returns every PortAudio device with its index as ID.
func HostDevices() ([]Device, error) {
	devices, err := paDevices()
	if err != nil {
		return nil, err
	}

	var defaultName string
	if out, err := paDefaultOutputFunc(); err == nil && out != nil {
		defaultName = out.Name
	}

	result := make([]Device, 0, len(devices))
	for i, d := range devices {
		if d == nil {
			continue
		}
		dev := Device{
			ID:                i,
			Name:              d.Name,
			MaxInputChannels:  d.MaxInputChannels,
			MaxOutputChannels: d.MaxOutputChannels,
			DefaultSampleRate: d.DefaultSampleRate,
			LowInputLatency:   d.DefaultLowInputLatency,
			HighInputLatency:  d.DefaultHighInputLatency,
			IsDefaultOutput:   defaultName != "" && d.Name == defaultName,
			IsLoopback:        d.MaxInputChannels > 0 && IsLoopbackName(d.Name),
		}
		if d.HostApi != nil {
			dev.HostAPI = d.HostApi.Name
		}
		result = append(result, dev)
	}
	return result, nil
}

// ListDevices writes information about all available audio devices to w.
// For each device, it shows:
// - Device ID and name
// - Device type (Input/Output/Input+Output)
// - Channel count
// - Default sample rate
// - Latency ranges
func ListDevices(w io.Writer) error {
	devices, err := HostDevices()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "\nAvailable Audio Devices\n\n")

	for _, d := range devices {
		marker := ""
		if d.IsLoopback {
			marker = " [loopback]"
		}
		if d.IsDefaultOutput {
			marker += " [default output]"
		}

		fmt.Fprintf(w, "[%d] %s (%s)%s\n", d.ID, d.Name, d.Type(), marker)
		fmt.Fprintf(w, "    Input channels: %d, Output channels: %d\n", d.MaxInputChannels, d.MaxOutputChannels)
		fmt.Fprintf(w, "    Default sample rate: %.0f Hz\n", d.DefaultSampleRate)
		fmt.Fprintf(w, "    Latency: Low=%.2fms, High=%.2fms\n",
			d.LowInputLatency.Seconds()*1000,
			d.HighInputLatency.Seconds()*1000)
		fmt.Fprintln(w)
	}

	return nil
}

// paDevices returns all available PortAudio devices, never a nil slice on
// success.
func paDevices() ([]*portaudio.DeviceInfo, error) {
	devices, err := paDevicesFunc()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}
	if devices == nil {
		devices = []*portaudio.DeviceInfo{}
	}
	return devices, nil
}
