// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"vibe/cmd"
	"vibe/internal/analysis"
	"vibe/internal/audio"
	"vibe/internal/buffer"
	"vibe/internal/config"
	applog "vibe/internal/log"
	"vibe/internal/scheduler"
	"vibe/internal/transport"
	"vibe/internal/transport/udp"
	"vibe/internal/tui"
	"vibe/pkg/build"
)

// retryDelay is the pause before the single reconnect attempt.
const retryDelay = time.Second

// main is the entry point for the visualizer.
// The program flow is divided into three phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Parse command line arguments and load configuration
//   - Initialize PortAudio
//   - Execute one-off commands if requested
//
// 2. Concurrent Phase (Hot Path):
//   - Open the capture device or file source
//   - Run the frame scheduler and its sinks
//   - Show the radial visualizer
//
// 3. Shutdown Phase (Cold Path):
//   - Stop the scheduler
//   - Close the source, finishing any recording
//   - Terminate PortAudio and close the sinks
func main() {
	// ==================== STARTUP PHASE (Cold Path) ====================

	if err := build.Initialize(); err != nil {
		log.Fatal(err)
	}

	cfg, err := cmd.ParseArgs()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", build.GetBuildFlags().Name, err)
		os.Exit(2)
	}
	// Help or version was printed.
	if cfg == nil {
		return
	}
	applog.SetLevelString(cfg.LogLevel)

	if err := audio.Initialize(); err != nil {
		if cfg.Audio.InputFile == "" {
			applog.Fatalf("Main: %v", err)
		}
		applog.Warnf("Main: %v", err)
	}

	switch cfg.Command {
	case cmd.CommandList:
		err := audio.ListDevices(os.Stdout)
		audio.Terminate()
		if err != nil {
			applog.Fatalf("Main: %v", err)
		}
		return
	case cmd.CommandDevices:
		device, ok, err := tui.PickDevice()
		if err != nil || !ok {
			audio.Terminate()
			if err != nil {
				applog.Fatalf("Main: %v", err)
			}
			return
		}
		cfg.Audio.InputDevice = device.ID
		cfg.Audio.InputFile = ""
	}

	if !cfg.TUIMode {
		audio.Terminate()
		return
	}

	if err := run(cfg); err != nil {
		applog.Fatalf("Main: %v", err)
	}
}

// run executes the concurrent and shutdown phases. PortAudio must already be
// initialized; run terminates it.
func run(cfg *config.Config) error {
	// ==================== CONCURRENT PHASE (Hot Path) ====================

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The TUI owns the terminal, so logs go to a file or nowhere.
	closeLog, err := redirectLogs(cfg.LogFile)
	if err != nil {
		audio.Terminate()
		return err
	}
	defer closeLog()

	buf := buffer.New(analysis.WindowSize)

	src, err := openSource(cfg, buf)
	if err != nil {
		if cfg.Audio.Required {
			audio.Terminate()
			return err
		}
		applog.Errorf("Main: No audio source, showing silence: %v", err)
	}

	status := tui.Status{Source: "no input", Gain: cfg.Analysis.Gain}
	sampleRate := analysis.DefaultSampleRate
	var toggle tui.RecordToggle
	if src != nil {
		status.Source = src.Name()
		sampleRate = src.SampleRate()
		toggle = recordToggle(cfg, src)
		go logFaults(ctx, src)

		if cfg.Recording.Enabled {
			path := cfg.RecordingPath(time.Now())
			if err := src.StartRecording(path, cfg.Recording.BitDepth); err != nil {
				applog.Errorf("Main: %v", err)
			}
		}
	}

	analyzer := analysis.New(sampleRate, analyzerOptions(cfg.Analysis)...)

	frames := tui.NewFrameSink()
	transports := openTransports(cfg.Transport)
	sinks := []scheduler.Sink{frames}
	for _, t := range transports {
		sinks = append(sinks, t)
	}
	sched := scheduler.New(buf, analyzer, sinks...)

	if cfg.Path != "" {
		err := config.Watch(ctx, cfg.Path, func(c *config.Config) {
			if applog.SetLevelString(c.LogLevel) {
				applog.Infof("Main: Log level is now %s", c.LogLevel)
			}
		})
		if err != nil {
			applog.Warnf("Main: %v", err)
		}
	}

	schedCtx, cancelSched := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := sched.Run(schedCtx); err != nil {
			applog.Errorf("Main: Scheduler stopped: %v", err)
		}
	}()

	uiErr := tui.Run(ctx, frames, status, cfg.Display.ShowStatus, toggle)

	// ==================== SHUTDOWN PHASE (Cold Path) ====================

	cancelSched()
	wg.Wait()

	var errs []error
	if src != nil {
		if src.Recording() {
			applog.Infof("Main: Finishing recording")
		}
		errs = append(errs, src.Close())
	}
	errs = append(errs, audio.Terminate())

	errs = append(errs, frames.Close())
	for _, t := range transports {
		errs = append(errs, t.Close())
	}

	stats := sched.Stats()
	applog.Infof("Main: %d frames, %d overruns, %d sink errors", stats.Frames, stats.Overruns, stats.SinkErrors)

	if err := errors.Join(errs...); err != nil {
		applog.Errorf("Main: Shutdown: %v", err)
	}
	return uiErr
}

// openSource opens the configured source, retrying once when enabled. The
// PortAudio device list is refreshed before a capture retry so a device that
// reappeared can be found.
func openSource(cfg *config.Config, buf *buffer.SampleBuffer) (audio.Source, error) {
	src, err := audio.Open(cfg.Audio, buf)
	if err == nil || !cfg.Audio.Retry || errors.Is(err, audio.ErrUnsupportedFormat) {
		return src, err
	}

	applog.Warnf("Main: Opening audio source failed, retrying in %s: %v", retryDelay, err)
	time.Sleep(retryDelay)

	if cfg.Audio.InputFile == "" {
		if err := audio.Terminate(); err != nil {
			applog.Warnf("Main: %v", err)
		}
		if err := audio.Initialize(); err != nil {
			return nil, err
		}
	}
	return audio.Open(cfg.Audio, buf)
}

func analyzerOptions(cfg config.AnalysisConfig) []analysis.Option {
	var opts []analysis.Option
	if cfg.Gain == config.GainRolling {
		opts = append(opts, analysis.WithRollingGain(cfg.GainDecay))
	}
	if cfg.GateThreshold > 0 {
		opts = append(opts, analysis.WithGate(cfg.GateThreshold))
	}
	return opts
}

// openTransports starts every enabled transport. A transport that fails to
// start is logged and skipped.
func openTransports(cfg config.TransportConfig) []transport.Transport {
	var out []transport.Transport

	if applog.Enabled(applog.LevelDebug) {
		out = append(out, transport.NewLoggingTransport())
	}

	if cfg.UDPEnabled {
		sender, err := udp.NewUDPSender(cfg.UDPTargetAddress)
		if err != nil {
			applog.Errorf("Main: UDP disabled: %v", err)
		} else if pub, err := udp.NewUDPPublisher(cfg.UDPSendInterval, sender); err != nil {
			sender.Close()
			applog.Errorf("Main: UDP disabled: %v", err)
		} else {
			pub.Start()
			out = append(out, pub)
		}
	}

	if cfg.WebSocketEnabled {
		ws, err := transport.NewWebSocketTransport(cfg.WebSocketAddress)
		if err != nil {
			applog.Errorf("Main: WebSocket disabled: %v", err)
		} else {
			out = append(out, ws)
		}
	}
	return out
}

func recordToggle(cfg *config.Config, src audio.Source) tui.RecordToggle {
	return func() (bool, error) {
		if src.Recording() {
			return false, src.StopRecording()
		}
		if err := src.StartRecording(cfg.RecordingPath(time.Now()), cfg.Recording.BitDepth); err != nil {
			return false, err
		}
		return true, nil
	}
}

func logFaults(ctx context.Context, src audio.Source) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-src.Errors():
			applog.Warnf("Main: Stream fault on %s: %v", src.Name(), err)
		}
	}
}

// redirectLogs points the logger at path, or discards output when path is
// empty. The returned function restores stderr.
func redirectLogs(path string) (func(), error) {
	if path == "" {
		applog.SetOutput(io.Discard)
		return func() { applog.SetOutput(os.Stderr) }, nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	applog.SetOutput(f)
	return func() {
		applog.SetOutput(os.Stderr)
		f.Close()
	}, nil
}
