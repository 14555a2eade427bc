// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"vibe/internal/analysis"
	applog "vibe/internal/log"
	"vibe/internal/scheduler"
)

// UDPPublisher keeps the latest frame handed to it by the scheduler and, on
// its own ticker, packs that frame into a binary packet and sends it with a
// UDPSender. A frame is sent at most once.
type UDPPublisher struct {
	sender   *UDPSender    // The underlying UDP sender instance.
	interval time.Duration // The interval at which packets are sent.

	ticker   *time.Ticker   // Ticker that triggers packet sending.
	doneChan chan struct{}  // Channel used to signal the publisher goroutine to stop.
	stopOnce sync.Once      // Ensures the stop logic runs only once per Start/Stop cycle.
	wg       sync.WaitGroup // Waits for the publisher goroutine to finish during Stop.
	mu       sync.Mutex     // Protects access to ticker and doneChan during Start/Stop.

	frameMu sync.Mutex
	latest  scheduler.Frame
	sentSeq uint64

	// Reused by buildAndSendPacket, which only runs on the publisher goroutine.
	packetBuffer *bytes.Buffer
	sent         uint64
}

// NewUDPPublisher creates and initializes a new UDPPublisher.
// If the provided interval is invalid (<= 0), it defaults to the frame period.
func NewUDPPublisher(interval time.Duration, sender *UDPSender) (*UDPPublisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("UDPPublisher: UDP sender cannot be nil")
	}

	if interval <= 0 {
		interval = scheduler.Period
		applog.Warnf("UDPPublisher: Invalid interval provided, defaulting to %s", interval)
	}

	applog.Infof("UDPPublisher: Initializing (Interval: %s, Bands: %d, Target: %s)",
		interval, analysis.NumBands, sender.Target())

	buf := new(bytes.Buffer)
	buf.Grow(HeaderSize + analysis.NumBands*4)

	return &UDPPublisher{
		sender:       sender,
		interval:     interval,
		packetBuffer: buf,
	}, nil
}

// Send records f as the frame for the next tick. It never blocks on the
// network.
func (p *UDPPublisher) Send(f scheduler.Frame) error {
	p.frameMu.Lock()
	p.latest = f
	p.frameMu.Unlock()
	return nil
}

// Start begins the periodic publishing process.
// It launches a goroutine that ticks at the configured interval, calling
// buildAndSendPacket on each tick until Stop is called.
// It is safe to call Start multiple times; subsequent calls are no-ops if already started.
func (p *UDPPublisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		applog.Warnf("UDPPublisher: Start called but already running.")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	// Local copies keep the goroutine off p.ticker/p.doneChan.
	ticker := p.ticker
	doneChan := p.doneChan

	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		applog.Infof("UDPPublisher: Publisher goroutine started (Interval: %s)", p.interval)
		for {
			select {
			case <-ticker.C:
				p.buildAndSendPacket()
			case <-doneChan:
				applog.Infof("UDPPublisher: Publisher goroutine received stop signal.")
				return
			}
		}
	}()
}

// Stop gracefully signals the publisher goroutine to terminate and waits for it to exit.
// It is safe to call Stop multiple times; subsequent calls are no-ops.
func (p *UDPPublisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		applog.Debugf("UDPPublisher: Stop called but not running.")
		return nil
	}

	p.stopOnce.Do(func() {
		applog.Infof("UDPPublisher: Initiating stop sequence...")
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})

	p.mu.Unlock()

	p.wg.Wait()
	applog.Infof("UDPPublisher: Publisher goroutine finished (%d packets sent).", p.sent)
	return nil
}

// buildAndSendPacket packs the latest unsent frame and sends it.
func (p *UDPPublisher) buildAndSendPacket() {
	p.frameMu.Lock()
	f := p.latest
	fresh := f.Seq != 0 && f.Seq != p.sentSeq
	p.sentSeq = f.Seq
	p.frameMu.Unlock()

	if !fresh {
		return
	}

	p.packetBuffer.Reset()
	if err := AppendPacket(p.packetBuffer, uint32(f.Seq), f.Time.UnixNano(), f.Bands[:]); err != nil {
		applog.Errorf("UDPPublisher: Error packing data into binary buffer: %v", err)
		return
	}

	packetBytes := p.packetBuffer.Bytes()
	if err := p.sender.Send(packetBytes); err != nil {
		// Connection refused is routine when nobody listens yet.
		return
	}
	p.sent++
	applog.Debugf("UDPPublisher: Sent frame %d (%d bytes)", f.Seq, len(packetBytes))
}

// Close stops the publisher goroutine and closes the sender.
func (p *UDPPublisher) Close() error {
	applog.Debugf("UDPPublisher: Close called, stopping publisher...")
	if err := p.Stop(); err != nil {
		return err
	}
	return p.sender.Close()
}

var _ scheduler.Sink = (*UDPPublisher)(nil)
