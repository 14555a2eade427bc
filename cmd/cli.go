// SPDX-License-Identifier: MIT
package cmd

import (
	"os"

	"vibe/internal/config"
	"vibe/pkg/build"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Commands that run instead of the visualizer.
const (
	CommandList    = "list"
	CommandDevices = "devices"
)

// flagValues holds raw flag values. Only flags the user set are copied onto
// the loaded configuration, so file and environment values survive defaults.
type flagValues struct {
	configPath string

	device          int
	input           string
	format          string
	maxChannels     int
	framesPerBuffer int
	lowLatency      bool
	required        bool
	retry           bool

	gain string
	gate float64

	record   bool
	output   string
	bitDepth int

	udp     bool
	udpAddr string
	ws      bool
	wsAddr  string

	logLevel string
	logFile  string
	noStatus bool
}

// ParseArgs parses the command line and returns the resulting configuration.
// A nil configuration without error means help or version output was printed.
func ParseArgs() (*config.Config, error) {
	return parseArgs(os.Args[1:])
}

func parseArgs(args []string) (*config.Config, error) {
	buildInfo := build.GetBuildFlags()
	var (
		options *config.Config
		f       flagValues
	)

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(f.configPath)
			if err != nil {
				return err
			}
			f.apply(cmd.Flags(), cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			options = cfg
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			options.TUIMode = true
			return nil
		},
	}

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	rootCmd.AddCommand(&cobra.Command{
		Use:   CommandList,
		Short: "List available audio devices",
		Run: func(cmd *cobra.Command, args []string) {
			options.Command = CommandList
		},
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   CommandDevices,
		Short: "Pick a capture device interactively, then start the visualizer",
		Run: func(cmd *cobra.Command, args []string) {
			options.Command = CommandDevices
			options.TUIMode = true
		},
	})

	flags := rootCmd.PersistentFlags()

	flags.StringVarP(&f.configPath, "config", "c", "",
		"Configuration file. Defaults to "+config.DefaultPath+" when present")

	// Audio Source Configuration
	flags.IntVarP(&f.device, "device", "d", config.DefaultDeviceID,
		"Input device ID, -1 picks a loopback or the default output. Use 'list' to see devices")
	flags.StringVarP(&f.input, "input", "i", "",
		"Play a wav, mp3 or ogg file instead of capturing")
	flags.StringVar(&f.format, "format", config.DefaultSampleFormat,
		"Sample format: float32, int32, int16, int8 or uint8")
	flags.IntVar(&f.maxChannels, "max-channels", config.DefaultMaxChannels,
		"Maximum channels opened before downmixing to mono")
	flags.IntVarP(&f.framesPerBuffer, "frames-per-buffer", "b", config.DefaultFramesPerBuffer,
		"Frames per callback, a power of two")
	flags.BoolVarP(&f.lowLatency, "low-latency", "l", false,
		"Request the device's low input latency")
	flags.BoolVar(&f.required, "required", false,
		"Exit when no audio source can be opened instead of showing silence")
	flags.BoolVar(&f.retry, "retry", false,
		"Retry opening the audio source once after a failure")

	// Analysis Configuration
	flags.StringVar(&f.gain, "gain", config.DefaultGainMode,
		"Normalization: frame or rolling")
	flags.Float64Var(&f.gate, "gate", 0,
		"Peak amplitude below which a window counts as silence, 0 disables")

	// Recording Configuration
	flags.BoolVarP(&f.record, "record", "r", false,
		"Record the mono input signal")
	flags.StringVarP(&f.output, "output", "o", config.DefaultRecordingFile,
		"Recording file name. Default is recording-DD-MM-YYYY-HHMMSS.wav")
	flags.IntVar(&f.bitDepth, "bit-depth", config.DefaultRecordingBitDepth,
		"Recording bit depth, 16 or 24")

	// Transport Configuration
	flags.BoolVar(&f.udp, "udp", false, "Stream band frames over UDP")
	flags.StringVar(&f.udpAddr, "udp-addr", config.DefaultUDPTargetAddress, "UDP target address")
	flags.BoolVar(&f.ws, "ws", false, "Serve band frames over WebSocket")
	flags.StringVar(&f.wsAddr, "ws-addr", config.DefaultWebSocketAddress, "WebSocket listen address")

	// Logging and Display
	flags.StringVar(&f.logLevel, "log-level", config.DefaultLogLevel, "Log level: debug, info, warn or error")
	flags.StringVar(&f.logFile, "log-file", "", "Write logs to this file while the visualizer runs")
	flags.BoolVar(&f.noStatus, "no-status", false, "Hide the status line")

	// Execute the CLI
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}

	return options, nil
}

// apply copies every flag the user set onto cfg.
func (f *flagValues) apply(fs *pflag.FlagSet, cfg *config.Config) {
	set := func(name string, fn func()) {
		if fs.Changed(name) {
			fn()
		}
	}

	set("device", func() { cfg.Audio.InputDevice = f.device })
	set("input", func() { cfg.Audio.InputFile = f.input })
	set("format", func() { cfg.Audio.SampleFormat = f.format })
	set("max-channels", func() { cfg.Audio.MaxChannels = f.maxChannels })
	set("frames-per-buffer", func() { cfg.Audio.FramesPerBuffer = f.framesPerBuffer })
	set("low-latency", func() { cfg.Audio.LowLatency = f.lowLatency })
	set("required", func() { cfg.Audio.Required = f.required })
	set("retry", func() { cfg.Audio.Retry = f.retry })

	set("gain", func() { cfg.Analysis.Gain = f.gain })
	set("gate", func() { cfg.Analysis.GateThreshold = f.gate })

	set("record", func() { cfg.Recording.Enabled = f.record })
	set("output", func() { cfg.Recording.OutputFile = f.output })
	set("bit-depth", func() { cfg.Recording.BitDepth = f.bitDepth })

	set("udp", func() { cfg.Transport.UDPEnabled = f.udp })
	set("udp-addr", func() { cfg.Transport.UDPTargetAddress = f.udpAddr })
	set("ws", func() { cfg.Transport.WebSocketEnabled = f.ws })
	set("ws-addr", func() { cfg.Transport.WebSocketAddress = f.wsAddr })

	set("log-level", func() { cfg.LogLevel = f.logLevel })
	set("log-file", func() { cfg.LogFile = f.logFile })
	set("no-status", func() { cfg.Display.ShowStatus = !f.noStatus })
}
