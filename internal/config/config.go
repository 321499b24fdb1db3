package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mahlburgc/lorachat/internal/chat"
	"github.com/mahlburgc/lorachat/internal/serialport"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port        string        `yaml:"port"`
	Baud        int           `yaml:"baud"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
	LineEnding  string        `yaml:"line_ending"`
	Charset     string        `yaml:"charset"`
	Mock        bool          `yaml:"-"`
	Markers     Markers       `yaml:"markers"`
	Display     Display       `yaml:"display"`
	Relay       Relay         `yaml:"relay"`
	Log         Log           `yaml:"log"`
}

// Markers are the line prefixes the module firmware prints on its console.
type Markers struct {
	StripPrefix string   `yaml:"strip_prefix"`
	Delimiter   string   `yaml:"delimiter"`
	Discard     []string `yaml:"discard"`
}

type Display struct {
	Timestamp   bool `yaml:"timestamp"`
	ShowEscapes bool `yaml:"show_escapes"`
	LogLimit    int  `yaml:"log_limit"`
}

type Relay struct {
	// Listen address of the websocket relay, e.g. ":4000". Empty disables it.
	Listen string `yaml:"listen"`
	// Position of this station, sent to web clients with every location report.
	Receiver *Position `yaml:"receiver"`
}

type Position struct {
	Lat float64 `yaml:"lat"`
	Lng float64 `yaml:"lng"`
}

type Log struct {
	File  string `yaml:"file"`
	Level string `yaml:"level"`
}

func Default() Config {
	return Config{
		Port:        "/dev/ttyUSB0",
		Baud:        115200,
		ReadTimeout: time.Second,
		LineEnding:  serialport.LineEndingLF,
		Charset:     "utf-8",
		Markers: Markers{
			StripPrefix: chat.DefaultStripPrefix,
			Delimiter:   chat.DefaultDelimiter,
			Discard:     append([]string(nil), chat.DefaultDiscard...),
		},
		Display: Display{
			Timestamp: true,
			LogLimit:  1000,
		},
		Log: Log{
			Level: "debug",
		},
	}
}

// DefaultPath returns ~/.config/lorachat/config.yaml.
func DefaultPath() (string, error) {
	homedir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homedir, ".config", "lorachat", "config.yaml"), nil
}

// Load reads the config file at path on top of the defaults.
// A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port cannot be empty")
	}

	if c.Baud <= 0 {
		return fmt.Errorf("invalid baud rate: %d", c.Baud)
	}

	if c.ReadTimeout < 0 {
		return fmt.Errorf("read timeout cannot be negative")
	}

	switch c.LineEnding {
	case serialport.LineEndingLF, serialport.LineEndingCRLF, serialport.LineEndingNone:
	default:
		return fmt.Errorf("invalid line ending %q: must be lf, crlf or none", c.LineEnding)
	}

	if !chat.IsCharset(c.Charset) {
		return fmt.Errorf("unsupported charset %q", c.Charset)
	}

	if c.Markers.StripPrefix != "" && c.Markers.Delimiter == "" {
		return fmt.Errorf("markers: delimiter cannot be empty if strip_prefix is set")
	}

	if c.Display.LogLimit < 1 {
		return fmt.Errorf("display: log limit must be at least 1, got: %d", c.Display.LogLimit)
	}

	if p := c.Relay.Receiver; p != nil && (p.Lat < -90 || p.Lat > 90 || p.Lng < -180 || p.Lng > 180) {
		return fmt.Errorf("relay: receiver position out of range: %g,%g", p.Lat, p.Lng)
	}

	return nil
}

func (c Config) SerialSettings() serialport.Settings {
	return serialport.Settings{
		Path:        c.Port,
		Baud:        c.Baud,
		ReadTimeout: c.ReadTimeout,
		LineEnding:  c.LineEnding,
	}
}

func (c Config) Filter() (chat.Filter, error) {
	return chat.NewFilter(c.Charset, c.Markers.StripPrefix, c.Markers.Delimiter, c.Markers.Discard)
}
