// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	applog "vibe/internal/log"
	"vibe/pkg/bitint"

	"gopkg.in/yaml.v3"
)

// Defaults for everything that is not a compile-time constant of the analysis
// pipeline. Window size, band count, frame rate and frequency range live in the
// analysis and scheduler packages and are deliberately not configurable.
const (
	DefaultPath = "vibe.yaml"

	DefaultLogLevel        = "info"
	DefaultDeviceID        = MinDeviceID
	DefaultSampleFormat    = "float32"
	DefaultMaxChannels     = 8
	DefaultFramesPerBuffer = 512

	DefaultGainMode  = GainFrame
	DefaultGainDecay = 0.995

	DefaultRecordingFile     = ""
	DefaultRecordingBitDepth = 16

	DefaultUDPTargetAddress = "127.0.0.1:9090"
	DefaultUDPSendInterval  = 33 * time.Millisecond
	DefaultWebSocketAddress = "127.0.0.1:8080"

	MinDeviceID     = -1 // -1 selects a loopback or default output device
	MaxBufferFrames = 8192
)

// Gain modes for band normalization.
const (
	GainFrame   = "frame"   // divide by the current frame's maximum
	GainRolling = "rolling" // divide by a slowly decaying peak
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config represents the application configuration, loaded from YAML and then
// overridden by environment variables and command line flags.
type Config struct {
	LogLevel string `yaml:"log_level"` // debug, info, warn, error
	LogFile  string `yaml:"log_file"`  // log destination while the TUI owns the terminal

	Path    string `yaml:"-"` // file the configuration was read from, empty for defaults
	Command string `yaml:"-"` // one-off command to execute instead of the visualizer
	TUIMode bool   `yaml:"-"`

	Audio     AudioConfig     `yaml:"audio"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Display   DisplayConfig   `yaml:"display"`
	Recording RecordingConfig `yaml:"recording"`
	Transport TransportConfig `yaml:"transport"`
}

// AudioConfig selects and opens the sample source.
type AudioConfig struct {
	InputDevice     int    `yaml:"input_device"`      // PortAudio device index, -1 for automatic selection
	InputFile       string `yaml:"input_file"`        // play a wav/mp3/ogg file instead of capturing
	SampleFormat    string `yaml:"sample_format"`     // float32, int32, int16, int8 or uint8
	MaxChannels     int    `yaml:"max_channels"`      // upper bound on channels opened before downmixing
	FramesPerBuffer int    `yaml:"frames_per_buffer"` // frames delivered per callback
	LowLatency      bool   `yaml:"low_latency"`       // request the device's low input latency
	Required        bool   `yaml:"required"`          // exit when no source can be opened
	Retry           bool   `yaml:"retry"`             // one reconnect attempt after a failed open
}

// AnalysisConfig holds the opt-in analyzer behaviours.
type AnalysisConfig struct {
	Gain          string  `yaml:"gain"`           // frame or rolling
	GainDecay     float64 `yaml:"gain_decay"`     // per-frame decay of the rolling peak
	GateThreshold float64 `yaml:"gate_threshold"` // peak amplitude below which a window counts as silence, 0 disables
}

// DisplayConfig controls the terminal renderer.
type DisplayConfig struct {
	ShowStatus bool `yaml:"show_status"`
}

// RecordingConfig controls recording of the captured mono signal.
type RecordingConfig struct {
	Enabled    bool   `yaml:"enabled"`
	OutputFile string `yaml:"output_file"` // empty means recording-<timestamp>.wav
	BitDepth   int    `yaml:"bit_depth"`   // 16 or 24
}

// TransportConfig holds settings for streaming band frames off the machine.
type TransportConfig struct {
	UDPEnabled       bool          `yaml:"udp_enabled"`
	UDPTargetAddress string        `yaml:"udp_target_address"`
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`
	WebSocketEnabled bool          `yaml:"websocket_enabled"`
	WebSocketAddress string        `yaml:"websocket_address"`
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		Audio: AudioConfig{
			InputDevice:     DefaultDeviceID,
			SampleFormat:    DefaultSampleFormat,
			MaxChannels:     DefaultMaxChannels,
			FramesPerBuffer: DefaultFramesPerBuffer,
		},
		Analysis: AnalysisConfig{
			Gain:      DefaultGainMode,
			GainDecay: DefaultGainDecay,
		},
		Display: DisplayConfig{
			ShowStatus: true,
		},
		Recording: RecordingConfig{
			OutputFile: DefaultRecordingFile,
			BitDepth:   DefaultRecordingBitDepth,
		},
		Transport: TransportConfig{
			UDPTargetAddress: DefaultUDPTargetAddress,
			UDPSendInterval:  DefaultUDPSendInterval,
			WebSocketAddress: DefaultWebSocketAddress,
		},
	}
}

// LoadConfig loads configuration from the YAML file at path. If path is empty it
// looks for DefaultPath in the working directory and falls back to built-in
// defaults when that is missing. Environment overrides are applied after the
// file and the result is validated.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		if _, err := os.Stat(DefaultPath); err != nil {
			cfg.applyEnvOverrides()
			if err := cfg.Validate(); err != nil {
				return nil, fmt.Errorf("invalid default configuration: %w", err)
			}
			return cfg, nil
		}
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.Path = path

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks value ranges. The sample format is left to the audio package,
// which reports unsupported encodings when the stream is opened.
func (c *Config) Validate() error {
	if _, ok := applog.ParseLevel(c.LogLevel); !ok {
		return fmt.Errorf("%w: unknown log_level %q", ErrInvalidConfig, c.LogLevel)
	}
	if c.Audio.InputDevice < MinDeviceID {
		return fmt.Errorf("%w: audio.input_device must be >= %d", ErrInvalidConfig, MinDeviceID)
	}
	if c.Audio.MaxChannels < 1 {
		return fmt.Errorf("%w: audio.max_channels must be positive", ErrInvalidConfig)
	}
	if !bitint.IsPowerOfTwo(c.Audio.FramesPerBuffer) || c.Audio.FramesPerBuffer > MaxBufferFrames {
		return fmt.Errorf("%w: audio.frames_per_buffer must be a power of two in [1, %d]", ErrInvalidConfig, MaxBufferFrames)
	}

	switch c.Analysis.Gain {
	case GainFrame:
	case GainRolling:
		if c.Analysis.GainDecay <= 0 || c.Analysis.GainDecay >= 1 {
			return fmt.Errorf("%w: analysis.gain_decay must be in (0, 1)", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown analysis.gain %q", ErrInvalidConfig, c.Analysis.Gain)
	}
	if c.Analysis.GateThreshold < 0 || c.Analysis.GateThreshold >= 1 {
		return fmt.Errorf("%w: analysis.gate_threshold must be in [0, 1)", ErrInvalidConfig)
	}

	if c.Recording.Enabled && c.Recording.BitDepth != 16 && c.Recording.BitDepth != 24 {
		return fmt.Errorf("%w: recording.bit_depth must be 16 or 24", ErrInvalidConfig)
	}

	if c.Transport.UDPEnabled {
		if !strings.Contains(c.Transport.UDPTargetAddress, ":") {
			return fmt.Errorf("%w: transport.udp_target_address %q is missing a port", ErrInvalidConfig, c.Transport.UDPTargetAddress)
		}
		if c.Transport.UDPSendInterval <= 0 {
			return fmt.Errorf("%w: transport.udp_send_interval must be positive", ErrInvalidConfig)
		}
	}
	if c.Transport.WebSocketEnabled && !strings.Contains(c.Transport.WebSocketAddress, ":") {
		return fmt.Errorf("%w: transport.websocket_address %q is missing a port", ErrInvalidConfig, c.Transport.WebSocketAddress)
	}
	return nil
}

// RecordingPath returns the configured recording file or a timestamped default.
func (c *Config) RecordingPath(now time.Time) string {
	if c.Recording.OutputFile != "" {
		return c.Recording.OutputFile
	}
	return "recording-" + now.UTC().Format("02-01-2006-150405") + ".wav"
}

// applyEnvOverrides applies VIBE_* environment variables on top of file values.
func (c *Config) applyEnvOverrides() {
	if val, ok := os.LookupEnv("VIBE_LOG_LEVEL"); ok {
		c.LogLevel = val
		applog.Debugf("Config: Overriding log_level from env: %s", val)
	}
	if val, ok := os.LookupEnv("VIBE_LOG_FILE"); ok {
		c.LogFile = val
	}

	// VIBE_DEVICE, VIBE_INPUT
	if val, ok := os.LookupEnv("VIBE_DEVICE"); ok {
		if id, err := strconv.Atoi(val); err == nil {
			c.Audio.InputDevice = id
			applog.Debugf("Config: Overriding audio.input_device from env: %d", id)
		}
	}
	if val, ok := os.LookupEnv("VIBE_INPUT"); ok {
		c.Audio.InputFile = val
	}

	// VIBE_UDP_*
	if val, ok := os.LookupEnv("VIBE_UDP_ENABLED"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Transport.UDPEnabled = b
			applog.Debugf("Config: Overriding transport.udp_enabled from env: %v", b)
		}
	}
	if val, ok := os.LookupEnv("VIBE_UDP_TARGET_ADDRESS"); ok {
		c.Transport.UDPTargetAddress = val
	}
	if val, ok := os.LookupEnv("VIBE_UDP_SEND_INTERVAL"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			c.Transport.UDPSendInterval = dur
		}
	}

	// VIBE_WS_*
	if val, ok := os.LookupEnv("VIBE_WS_ENABLED"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Transport.WebSocketEnabled = b
		}
	}
	if val, ok := os.LookupEnv("VIBE_WS_ADDRESS"); ok {
		c.Transport.WebSocketAddress = val
	}
}
