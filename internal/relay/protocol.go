package relay

import "github.com/mahlburgc/lorachat/internal/chat"

// MessageEvent mirrors one chat.DisplayEvent.
type MessageEvent struct {
	Type      string `json:"type"`
	Direction string `json:"direction"`
	Text      string `json:"text"`
	Ts        int64  `json:"ts"`
	Alert     bool   `json:"alert,omitempty"`
}

type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// CoordMessage carries a position reported by the remote unit.
type CoordMessage struct {
	Type     string   `json:"type"`
	Sender   LatLng   `json:"sender"`
	Receiver *LatLng  `json:"receiver"`
	Alt      *float64 `json:"alt,omitempty"`
	Time     string   `json:"time,omitempty"`
	Raw      string   `json:"raw"`
	Ts       int64    `json:"ts"`
}

// HelloMessage is the first message every client receives.
type HelloMessage struct {
	Type      string         `json:"type"`
	ClientID  string         `json:"client_id"`
	Port      string         `json:"port"`
	Available bool           `json:"available"`
	Receiver  *LatLng        `json:"receiver"`
	Sender    *LatLng        `json:"sender"`
	History   []MessageEvent `json:"history"`
}

type ClearMessage struct {
	Type string `json:"type"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type ClientMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type StatusResponse struct {
	Port      string `json:"port"`
	Available bool   `json:"available"`
	Clients   int    `json:"clients"`
	Messages  int    `json:"messages"`
}

func newMessageEvent(ev chat.DisplayEvent) MessageEvent {
	return MessageEvent{
		Type:      "msg",
		Direction: ev.Direction.String(),
		Text:      ev.Text,
		Ts:        ev.Time.UnixMilli(),
	}
}
