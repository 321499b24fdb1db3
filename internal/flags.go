package internal

import (
	"time"

	"github.com/mahlburgc/lorachat/internal/config"
	"github.com/spf13/cobra"
)

// Flags holds the command line arguments. Flags override the config file
// only if they were set explicitly.
type Flags struct {
	ConfigPath  string
	Port        string
	Baud        int
	Timeout     time.Duration
	LineEnding  string
	Timestamp   bool
	ShowEscapes bool
	Mock        bool
	Relay       string
	LogFile     string
}

func (f *Flags) register(cmd *cobra.Command) {
	def := config.Default()

	fs := cmd.Flags()
	fs.StringVar(&f.ConfigPath, "config", "", "config file (default ~/.config/lorachat/config.yaml)")
	fs.StringVarP(&f.Port, "port", "p", def.Port, "serial port")
	fs.IntVarP(&f.Baud, "baud", "b", def.Baud, "baud rate")
	fs.DurationVar(&f.Timeout, "timeout", def.ReadTimeout, "serial read timeout, 0 blocks")
	fs.StringVar(&f.LineEnding, "line-ending", def.LineEnding, "line ending of sent messages (lf, crlf, none)")
	fs.BoolVarP(&f.Timestamp, "timestamp", "t", def.Display.Timestamp, "show timestamp")
	fs.BoolVarP(&f.ShowEscapes, "escapes", "e", def.Display.ShowEscapes, "show escape characters")
	fs.BoolVar(&f.Mock, "mock", false, "use a simulated LoRa module")
	fs.StringVar(&f.Relay, "relay", "", "websocket relay listen address, e.g. :4000")
	fs.StringVar(&f.LogFile, "log-file", "", "write debug log to file")
}

// apply copies every explicitly set flag into cfg.
func (f Flags) apply(cmd *cobra.Command, cfg *config.Config) {
	fs := cmd.Flags()

	if fs.Changed("port") {
		cfg.Port = f.Port
	}
	if fs.Changed("baud") {
		cfg.Baud = f.Baud
	}
	if fs.Changed("timeout") {
		cfg.ReadTimeout = f.Timeout
	}
	if fs.Changed("line-ending") {
		cfg.LineEnding = f.LineEnding
	}
	if fs.Changed("timestamp") {
		cfg.Display.Timestamp = f.Timestamp
	}
	if fs.Changed("escapes") {
		cfg.Display.ShowEscapes = f.ShowEscapes
	}
	if fs.Changed("relay") {
		cfg.Relay.Listen = f.Relay
	}
	if fs.Changed("log-file") {
		cfg.Log.File = f.LogFile
	}
	cfg.Mock = f.Mock
}

// loadConfig reads the config file and applies the flags on top.
func (f Flags) loadConfig(cmd *cobra.Command) (config.Config, error) {
	path := f.ConfigPath
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return config.Config{}, err
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}

	f.apply(cmd, &cfg)

	return cfg, cfg.Validate()
}
