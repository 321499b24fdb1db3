package relay

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/mahlburgc/lorachat/internal/chat"
)

// Payload prefixes the field units put in front of their messages.
const (
	locationPrefix = "LOC:"
	sosPrefix      = "SOS:"
	messagePrefix  = "MSG:"
)

var (
	receivedPrefixes = regexp.MustCompile(`(?i)^(received:\s*)+`)
	textPrefix       = regexp.MustCompile(`(?i)^(sos:|msg:)\s*`)
)

// wireEvent converts a display event into the message sent to web clients.
// Received lines carrying a LOC: payload become a CoordMessage, SOS: and MSG:
// payloads a MessageEvent with the prefix removed. It returns false for
// payloads without content.
func wireEvent(ev chat.DisplayEvent) (any, bool) {
	msg := newMessageEvent(ev)
	if ev.Direction != chat.Received {
		return msg, true
	}

	raw := strings.TrimSpace(receivedPrefixes.ReplaceAllString(ev.Text, ""))

	switch {
	case strings.HasPrefix(raw, locationPrefix):
		coord, ok := parseLocation(raw)
		if !ok {
			msg.Text = raw
			return msg, true
		}
		coord.Ts = msg.Ts
		return coord, true

	case strings.HasPrefix(raw, sosPrefix), strings.HasPrefix(raw, messagePrefix):
		msg.Alert = strings.HasPrefix(raw, sosPrefix)
		msg.Text = strings.TrimSpace(textPrefix.ReplaceAllString(raw, ""))
		if msg.Text == "" {
			return nil, false
		}
		return msg, true
	}

	msg.Text = raw
	if raw == "" {
		return nil, false
	}
	return msg, true
}

// parseLocation reads "LOC:lat,lng[,alt[,time]]".
func parseLocation(raw string) (CoordMessage, bool) {
	parts := strings.Split(strings.TrimPrefix(raw, locationPrefix), ",")
	if len(parts) < 2 {
		return CoordMessage{}, false
	}

	lat, ok := parseCoordinate(parts[0], 90)
	if !ok {
		return CoordMessage{}, false
	}
	lng, ok := parseCoordinate(parts[1], 180)
	if !ok {
		return CoordMessage{}, false
	}

	coord := CoordMessage{
		Type:   "coord",
		Sender: LatLng{Lat: lat, Lng: lng},
		Raw:    raw,
	}
	if len(parts) > 2 {
		if alt, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64); err == nil && !math.IsNaN(alt) && !math.IsInf(alt, 0) {
			coord.Alt = &alt
		}
	}
	if len(parts) > 3 {
		coord.Time = strings.TrimSpace(parts[3])
	}
	return coord, true
}

func parseCoordinate(s string, limit float64) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > limit {
		return 0, false
	}
	return v, true
}

// messageHistory converts the stored display sequence for the hello
// snapshot. Positions are left out, the last one is sent separately.
func messageHistory(events []chat.DisplayEvent) []MessageEvent {
	out := make([]MessageEvent, 0, len(events))
	for _, ev := range events {
		wire, ok := wireEvent(ev)
		if !ok {
			continue
		}
		if msg, isMsg := wire.(MessageEvent); isMsg {
			out = append(out, msg)
		}
	}
	return out
}
