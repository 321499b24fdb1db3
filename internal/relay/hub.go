package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/mahlburgc/lorachat/internal/chat"
	"github.com/rs/zerolog/log"
	"nhooyr.io/websocket"
)

// Sender is the part of chat.Bridge the relay uses.
type Sender interface {
	Send(text string) error
	Available() bool
}

// Hub mirrors the conversation to websocket clients. It is a chat.Sink and
// keeps the history it is given up to date, so hello snapshots and
// broadcasts are taken from the same sequence.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan outbound
	history    *chat.History
	sender     Sender
	portName   string
	receiver   *LatLng
	mu         sync.RWMutex
	running    atomic.Bool

	// feedMu orders history updates against hello snapshots
	feedMu     sync.Mutex
	seq        uint64
	lastSender *LatLng
}

// outbound is a broadcast tagged with its position in the feed.
type outbound struct {
	seq  uint64
	data []byte
}

func NewHub(history *chat.History, sender Sender, portName string) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client, 16),
		unregister: make(chan *Client, 16),
		broadcast:  make(chan outbound, 256),
		history:    history,
		sender:     sender,
		portName:   portName,
	}
}

func (h *Hub) Run(ctx context.Context) {
	h.running.Store(true)
	defer h.running.Store(false)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for _, c := range h.clients {
				close(c.send)
			}
			h.clients = make(map[string]*Client)
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.addClient(client)
			go client.writePump(ctx)
			go client.readPump(ctx)
			log.Info().Str("client", client.id).Int("total", h.ClientCount()).Msg("relay client connected")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.id]; ok {
				delete(h.clients, client.id)
				close(client.send)
			}
			h.mu.Unlock()
			log.Info().Str("client", client.id).Int("total", h.ClientCount()).Msg("relay client disconnected")

		case out := <-h.broadcast:
			h.dispatch(out)
		}
	}
}

// addClient queues the hello snapshot and starts delivering broadcasts
// that were appended after it.
func (h *Hub) addClient(client *Client) {
	hello := h.hello(client)
	data, err := json.Marshal(hello)
	if err != nil {
		log.Error().Err(err).Msg("error marshaling hello message")
	}

	h.mu.Lock()
	h.clients[client.id] = client
	if err == nil {
		client.send <- data
	}
	h.mu.Unlock()
}

func (h *Hub) dispatch(out outbound) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.clients {
		if out.seq <= c.since {
			// already part of the hello snapshot
			continue
		}
		select {
		case c.send <- out.data:
		default:
			log.Warn().Str("client", c.id).Msg("client send buffer full, dropping message")
		}
	}
}

func (h *Hub) hello(client *Client) HelloMessage {
	// the bridge calls Append with its lock held, ask it before taking feedMu
	available := h.sender != nil && h.sender.Available()

	h.feedMu.Lock()
	defer h.feedMu.Unlock()

	client.since = h.seq
	msg := HelloMessage{
		Type:      "hello",
		ClientID:  client.id,
		Port:      h.portName,
		Available: available,
		Receiver:  h.receiver,
		Sender:    h.lastSender,
		History:   []MessageEvent{},
	}
	if h.history != nil {
		msg.History = messageHistory(h.history.Events())
	}
	return msg
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		log.Error().Err(err).Msg("websocket accept error")
		return
	}

	client := newClient(conn, h)

	select {
	case h.register <- client:
	default:
		log.Warn().Msg("hub not accepting connections")
		conn.Close(websocket.StatusTryAgainLater, "server busy")
	}
}

// Append records a display event and broadcasts it. It never blocks.
func (h *Hub) Append(ev chat.DisplayEvent) {
	h.feedMu.Lock()
	defer h.feedMu.Unlock()

	if h.history != nil {
		h.history.Append(ev)
	}
	msg, ok := wireEvent(ev)
	if !ok {
		return
	}
	if coord, isCoord := msg.(CoordMessage); isCoord {
		coord.Receiver = h.receiver
		sender := coord.Sender
		h.lastSender = &sender
		msg = coord
	}
	h.sendBroadcast(msg)
}

// Clear empties the history and tells all clients to empty their view.
func (h *Hub) Clear() {
	h.feedMu.Lock()
	defer h.feedMu.Unlock()

	if h.history != nil {
		h.history.Clear()
	}
	h.sendBroadcast(ClearMessage{Type: "clear"})
}

// sendBroadcast must be called with feedMu held.
func (h *Hub) sendBroadcast(msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Msg("error marshaling broadcast message")
		return
	}
	h.seq++
	select {
	case h.broadcast <- outbound{seq: h.seq, data: data}:
	default:
		log.Warn().Msg("broadcast channel full, dropping message")
	}
}

// SendError reports a failure to one client. Clients that are no longer
// registered are skipped, their send channel may already be closed.
func (h *Hub) SendError(client *Client, message string) {
	data, err := json.Marshal(ErrorMessage{Type: "error", Message: message})
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.clients[client.id] != client {
		return
	}
	select {
	case client.send <- data:
	default:
		log.Warn().Str("client", client.id).Msg("client send buffer full, dropping error")
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SetSender sets where client messages are sent to. Call it before Run.
func (h *Hub) SetSender(s Sender) {
	h.sender = s
}

// SetReceiver sets the fixed position of the local station sent along
// with every coord message.
func (h *Hub) SetReceiver(p LatLng) {
	h.feedMu.Lock()
	h.receiver = &p
	h.feedMu.Unlock()
}

func (h *Hub) handleSend(c *Client, text string) {
	if h.sender == nil {
		h.SendError(c, chat.ErrDeviceUnavailable.Error())
		return
	}
	if err := h.sender.Send(text); err != nil {
		h.SendError(c, err.Error())
	}
}

func (h *Hub) unregisterClient(c *Client) {
	if !h.running.Load() {
		c.conn.Close(websocket.StatusNormalClosure, "")
		return
	}
	select {
	case h.unregister <- c:
	default:
		log.Warn().Str("client", c.id).Msg("unregister channel full, forcing close")
		c.conn.Close(websocket.StatusNormalClosure, "")
	}
}
