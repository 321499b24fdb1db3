package serialport

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

var (
	ErrDeviceUnavailable = errors.New("serial device unavailable")
	ErrWriteFailed       = errors.New("serial write failed")
	ErrReadFailed        = errors.New("serial read failed")
)

// Port is an interface that matches io.ReadWriteCloser.
// Both serial.Port and the mock port implement this interface.
type Port io.ReadWriteCloser

// Line endings appended to outgoing lines.
const (
	LineEndingLF   = "lf"
	LineEndingCRLF = "crlf"
	LineEndingNone = "none"
)

type Settings struct {
	Path        string
	Baud        int
	ReadTimeout time.Duration
	LineEnding  string
}

func (s Settings) terminator() string {
	switch s.LineEnding {
	case LineEndingCRLF:
		return "\r\n"
	case LineEndingNone:
		return ""
	default:
		return "\n"
	}
}

// MaxLineLength bounds the unterminated input kept between reads. A device
// that never sends a newline gets its data cut into lines of this size.
const MaxLineLength = 4096

// Conn is a line oriented connection to a serial device.
// Writes are expected from one goroutine and reads from another one.
type Conn struct {
	port     Port
	settings Settings

	wmu sync.Mutex

	rbuf    []byte
	pending []byte
}

func NewConn(port Port, settings Settings) *Conn {
	return &Conn{
		port:     port,
		settings: settings,
		rbuf:     make([]byte, 256),
	}
}

// Open a serial port with the given settings.
func Open(settings Settings) (*Conn, error) {
	mode := serial.Mode{
		BaudRate: settings.Baud,
	}
	port, err := serial.Open(settings.Path, &mode)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDeviceUnavailable, settings.Path, err)
	}

	if settings.ReadTimeout > 0 {
		if err := port.SetReadTimeout(settings.ReadTimeout); err != nil {
			port.Close()
			return nil, fmt.Errorf("%w: %s: set read timeout: %w", ErrDeviceUnavailable, settings.Path, err)
		}
	}

	log.Info().Str("port", settings.Path).Int("baud", settings.Baud).
		Dur("timeout", settings.ReadTimeout).Msg("serial port opened")

	return NewConn(port, settings), nil
}

func (c *Conn) Path() string {
	return c.settings.Path
}

// WriteLine sends text followed by the configured line ending.
func (c *Conn) WriteLine(text string) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	_, err := c.port.Write([]byte(text + c.settings.terminator()))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	return nil
}

// TryReadLine returns the next complete line without its terminator.
// It performs at most one read on the port, so it blocks no longer than
// the configured read timeout. Partial lines are kept for the next call.
func (c *Conn) TryReadLine() ([]byte, bool, error) {
	if line, ok := c.nextLine(); ok {
		return line, true, nil
	}

	n, err := c.port.Read(c.rbuf)
	if n > 0 {
		c.pending = append(c.pending, c.rbuf[:n]...)
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrReadFailed, err)
	}

	line, ok := c.nextLine()
	return line, ok, nil
}

func (c *Conn) nextLine() ([]byte, bool) {
	i := bytes.IndexByte(c.pending, '\n')
	if i < 0 {
		if len(c.pending) < MaxLineLength {
			return nil, false
		}
		out := make([]byte, MaxLineLength)
		copy(out, c.pending)
		c.pending = c.pending[MaxLineLength:]
		log.Debug().Str("port", c.settings.Path).Int("len", MaxLineLength).
			Msg("no line ending received, flushing partial line")
		return out, true
	}

	line := bytes.TrimSuffix(c.pending[:i], []byte{'\r'})
	out := make([]byte, len(line))
	copy(out, line)
	c.pending = c.pending[i+1:]

	return out, true
}

func (c *Conn) Close() error {
	log.Info().Str("port", c.settings.Path).Msg("closing serial port")
	return c.port.Close()
}

// Print out a list of all available ports.
func ListPorts(w io.Writer) error {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return err
	}

	if len(ports) == 0 {
		fmt.Fprintln(w, "No serial ports found!")
		return nil
	}

	for _, port := range ports {
		fmt.Fprintf(w, "Found port: %s\n", port.Name)
		if port.IsUSB {
			fmt.Fprintf(w, "   USB ID     %s:%s\n", port.VID, port.PID)
			fmt.Fprintf(w, "   USB serial %s\n", port.SerialNumber)
		}
	}
	return nil
}
