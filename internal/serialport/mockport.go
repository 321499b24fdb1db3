package serialport

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// mockPort simulates a LoRa module for development. It echoes written lines
// back together with the diagnostics a real module prints, and a remote peer
// sends a message every peerInterval.
type mockPort struct {
	// Channel to send data to the reading process
	rxChan       chan []byte
	rest         []byte
	readTimeout  time.Duration
	peerInterval time.Duration
	// Context to handle closing the port
	ctx    context.Context
	cancel context.CancelFunc
}

func newMockPort(readTimeout, peerInterval time.Duration) *mockPort {
	// A context is used to gracefully shut down the goroutine.
	ctx, cancel := context.WithCancel(context.Background())

	m := &mockPort{
		rxChan:       make(chan []byte, 64),
		readTimeout:  readTimeout,
		peerInterval: peerInterval,
		ctx:          ctx,
		cancel:       cancel,
	}

	m.push("ESP32 LoRa module ready")
	m.push("State -> IDLE")

	if peerInterval > 0 {
		go m.runPeer()
	}

	return m
}

// This goroutine simulates a remote device sending data periodically.
func (m *mockPort) runPeer() {
	ticker := time.NewTicker(m.peerInterval)
	defer ticker.Stop()

	count := 0
	for {
		select {
		case <-ticker.C:
			rssi := -40 - count%30
			m.push(fmt.Sprintf("Received: RSSI %d MSG;Hello from mock peer! Count: %d", rssi, count))
			count++
		case <-m.ctx.Done():
			// If the context is cancelled (by Close()), exit the goroutine.
			return
		}
	}
}

func (m *mockPort) push(line string) {
	select {
	case m.rxChan <- []byte(line + "\r\n"):
	case <-m.ctx.Done():
	}
}

// Read blocks until data is available, the read timeout expires or the port
// is closed. A timeout returns 0 bytes and no error, like go.bug.st/serial.
func (m *mockPort) Read(p []byte) (n int, err error) {
	if len(m.rest) > 0 {
		n = copy(p, m.rest)
		m.rest = m.rest[n:]
		return n, nil
	}

	var timeout <-chan time.Time
	if m.readTimeout > 0 {
		timer := time.NewTimer(m.readTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case data := <-m.rxChan:
		// We have data, copy it to the buffer p.
		n = copy(p, data)
		// keep the rest for the next read
		m.rest = data[n:]
		return n, nil
	case <-timeout:
		return 0, nil
	case <-m.ctx.Done():
		// The port was closed, return EOF.
		return 0, io.EOF
	}
}

// Write simulates the module transmitting the line.
func (m *mockPort) Write(p []byte) (n int, err error) {
	if m.ctx.Err() != nil {
		return 0, io.ErrClosedPipe
	}

	text := strings.TrimRight(string(p), "\r\n")
	log.Debug().Str("data", text).Msg("mock port write")

	go func() {
		m.push("Sending custom message: " + text)
		m.push("State -> TX")
		m.push(text)
		m.push("State -> IDLE")
	}()

	return len(p), nil
}

// Close stops the mock port's internal goroutine.
func (m *mockPort) Close() error {
	log.Debug().Msg("mock port closing")
	m.cancel() // This will trigger the ctx.Done() in Read and the goroutine.
	return nil
}

// OpenMock is a convenient wrapper to create a connection on a simulated module.
func OpenMock(settings Settings) *Conn {
	return NewConn(newMockPort(settings.ReadTimeout, 5*time.Second), settings)
}
