package chat

import (
	"strings"
	"sync"
	"time"

	"github.com/mahlburgc/lorachat/internal/serialport"
	"github.com/rs/zerolog/log"
)

// ErrDeviceUnavailable is returned by Send if the bridge has no serial device.
var ErrDeviceUnavailable = serialport.ErrDeviceUnavailable

type LineWriter interface {
	WriteLine(text string) error
}

type Option func(*Bridge)

func WithFilter(f Filter) Option {
	return func(b *Bridge) { b.filter = f }
}

// WithSink adds a sink that receives every display event.
func WithSink(s Sink) Option {
	return func(b *Bridge) { b.sinks = append(b.sinks, s) }
}

func WithClock(now func() time.Time) Option {
	return func(b *Bridge) { b.now = now }
}

// Bridge mediates between the user and the serial device. It remembers the
// last sent line to suppress the device echoing it back.
type Bridge struct {
	mu       sync.Mutex
	w        LineWriter
	filter   Filter
	sinks    []Sink
	now      func() time.Time
	lastSent string
	hasSent  bool
}

// New creates a bridge writing to w. A nil w leaves the bridge without a
// device, Send then fails with ErrDeviceUnavailable.
func New(w LineWriter, opts ...Option) *Bridge {
	b := &Bridge{
		w:      w,
		filter: DefaultFilter(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Bridge) Available() bool {
	return b.w != nil
}

func (b *Bridge) LastSent() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastSent, b.hasSent
}

// Send writes text to the device and emits a sent event. Blank text is ignored.
func (b *Bridge) Send(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if b.w == nil {
		return ErrDeviceUnavailable
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastSent = text
	b.hasSent = true

	if err := b.w.WriteLine(text); err != nil {
		log.Error().Err(err).Str("text", text).Msg("send failed")
		return err
	}

	b.emit(DisplayEvent{Text: text, Direction: Sent, Time: b.now()})
	return nil
}

// Receive filters one raw line read from the device. It returns false if the
// line is a diagnostic, an echo of the last sent line or empty.
func (b *Bridge) Receive(raw []byte) (DisplayEvent, bool) {
	text, keep := b.filter.Apply(b.filter.Decode(raw))
	if !keep {
		log.Debug().Bytes("raw", raw).Msg("diagnostic line discarded")
		return DisplayEvent{}, false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.hasSent && text == b.lastSent {
		log.Debug().Str("text", text).Msg("loopback suppressed")
		return DisplayEvent{}, false
	}
	if text == "" {
		return DisplayEvent{}, false
	}

	ev := DisplayEvent{Text: text, Direction: Received, Time: b.now()}
	b.emit(ev)
	return ev, true
}

// Clear empties the display sequence of every sink.
func (b *Bridge) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, s := range b.sinks {
		s.Clear()
	}
}

// must hold b.mu
func (b *Bridge) emit(ev DisplayEvent) {
	for _, s := range b.sinks {
		s.Append(ev)
	}
}
