// SPDX-License-Identifier: MIT
package transport

import (
	applog "vibe/internal/log"
	"vibe/internal/scheduler"
	"vibe/pkg/utils"
)

// LoggingTransport logs a one-line summary of every frame at debug level.
type LoggingTransport struct{}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport() *LoggingTransport {
	applog.Infof("Transport: Using LoggingTransport")
	return &LoggingTransport{}
}

// Send logs the frame's strongest band.
func (lt *LoggingTransport) Send(f scheduler.Frame) error {
	if !applog.Enabled(applog.LevelDebug) {
		return nil
	}
	peak := utils.FindPeak(f.Bands[:], 0, len(f.Bands)-1)
	applog.Debugf("LOG_TRANSPORT: Frame %d peak band %d (%.2f)", f.Seq, peak, f.Bands[peak])
	return nil
}

// Close is a no-op for LoggingTransport.
func (lt *LoggingTransport) Close() error {
	applog.Debugf("LOG_TRANSPORT: Close called.")
	return nil
}

// Ensure LoggingTransport satisfies the interface at compile time.
var _ Transport = (*LoggingTransport)(nil)
