package logging

import (
	"fmt"
	"io"
	stdlog "log"
	"os"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// EnvVar enables debug logging to the default file if set.
const EnvVar = "LORACHAT_LOG"

const defaultFile = "lorachat_debug.log"

// Start opens (or creates if not existing) a log file for debug logging.
// The TUI owns the terminal, so without a file all logging is discarded.
// The returned file is nil if logging is disabled.
func Start(file string, level string) (*os.File, error) {
	if file == "" && len(os.Getenv(EnvVar)) > 0 {
		file = defaultFile
	}

	if file == "" {
		log.Logger = zerolog.Nop()
		stdlog.SetOutput(io.Discard)
		return nil, nil
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	f, err := os.OpenFile(file, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	log.Logger = zerolog.New(f).Level(lvl).With().Timestamp().Logger()
	// libraries logging through the standard logger end up in the same file
	stdlog.SetFlags(0)
	stdlog.SetOutput(log.Logger)

	return f, nil
}

// LogMsgType logs the type of a tea message to the debug file.
func LogMsgType(msg any) {
	switch msg.(type) {
	case cursor.BlinkMsg:
		// avoid logging on spamming messages
	default:
		log.Debug().Msgf("Update Msg: Type: %T Value: %v", msg, msg)
	}
}
