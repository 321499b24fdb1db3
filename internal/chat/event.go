package chat

import "time"

type Direction int

const (
	Sent Direction = iota
	Received
)

func (d Direction) String() string {
	switch d {
	case Sent:
		return "sent"
	case Received:
		return "received"
	default:
		return "unknown"
	}
}

// DisplayEvent is one line of the conversation as shown to the user.
type DisplayEvent struct {
	Text      string
	Direction Direction
	Time      time.Time
}

// Sink receives display events in order. Clear empties everything appended so far.
type Sink interface {
	Append(ev DisplayEvent)
	Clear()
}
