package events

import "github.com/mahlburgc/lorachat/internal/chat"

// defines all shared event messages

// The user submitted a line to send.
type SendMsg struct {
	Data string
}

// A line was successfully written to the serial port.
type SentMsg string

// Display updates drained from the bridge queue.
type DisplayMsg []chat.Update

// State change of the background serial reader.
type StatusMsg chat.Status

// The serial port could not be opened on startup.
type UnavailableMsg struct {
	Err error
}

type ErrMsg error

type InfoMsg string

// Indicates a command from the command history was selected.
type HistCmdSelected string

// New filter string for the message log.
type MsgLogFilterStringMsg string
