package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mahlburgc/lorachat/internal/chat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
)

type fakeWriter struct {
	mu    sync.Mutex
	lines []string
	err   error
}

func (w *fakeWriter) WriteLine(text string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.lines = append(w.lines, text)
	return nil
}

func (w *fakeWriter) Lines() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.lines...)
}

type testEnv struct {
	bridge  *chat.Bridge
	history *chat.History
	hub     *Hub
	writer  *fakeWriter
	server  *httptest.Server
}

func newTestEnv(t *testing.T, writer *fakeWriter) *testEnv {
	t.Helper()

	history := chat.NewHistory(0)
	hub := NewHub(history, nil, "COM11")

	var w chat.LineWriter
	if writer != nil {
		w = writer
	}
	bridge := chat.New(w, chat.WithSink(hub))
	hub.SetSender(bridge)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	server := httptest.NewServer(NewServer("", hub).Handler())
	t.Cleanup(func() {
		server.Close()
		cancel()
	})

	return &testEnv{bridge: bridge, history: history, hub: hub, writer: writer, server: server}
}

func (e *testEnv) dial(t *testing.T) *websocket.Conn {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(e.server.URL, "http") + "/ws"
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, v))
}

func writeJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, conn.Write(ctx, websocket.MessageText, data))
}

func waitForClientCount(t *testing.T, hub *Hub, want int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.ClientCount() == want }, time.Second, 10*time.Millisecond)
}

func TestHub_HelloContainsHistory(t *testing.T) {
	env := newTestEnv(t, &fakeWriter{})
	require.NoError(t, env.bridge.Send("first"))
	env.bridge.Receive([]byte("Received:MSG;second"))

	conn := env.dial(t)

	var hello HelloMessage
	readJSON(t, conn, &hello)
	assert.Equal(t, "hello", hello.Type)
	assert.NotEmpty(t, hello.ClientID)
	assert.Equal(t, "COM11", hello.Port)
	assert.True(t, hello.Available)
	require.Len(t, hello.History, 2)
	assert.Equal(t, "sent", hello.History[0].Direction)
	assert.Equal(t, "first", hello.History[0].Text)
	assert.Equal(t, "received", hello.History[1].Direction)
	assert.Equal(t, "second", hello.History[1].Text)
}

func TestHub_BroadcastsEventsAndClear(t *testing.T) {
	env := newTestEnv(t, &fakeWriter{})

	conns := []*websocket.Conn{env.dial(t), env.dial(t)}
	for _, conn := range conns {
		var hello HelloMessage
		readJSON(t, conn, &hello)
		assert.Empty(t, hello.History)
	}
	waitForClientCount(t, env.hub, 2)

	require.NoError(t, env.bridge.Send("ping"))
	env.bridge.Receive([]byte("ping"))
	env.bridge.Receive([]byte("pong"))
	env.bridge.Clear()

	for _, conn := range conns {
		var sent, received MessageEvent
		readJSON(t, conn, &sent)
		readJSON(t, conn, &received)
		assert.Equal(t, MessageEvent{Type: "msg", Direction: "sent", Text: "ping", Ts: sent.Ts}, sent)
		assert.Equal(t, "pong", received.Text)
		assert.Equal(t, "received", received.Direction)

		var clear ClearMessage
		readJSON(t, conn, &clear)
		assert.Equal(t, "clear", clear.Type)
	}
}

func TestHub_LocationAndAlertPayloads(t *testing.T) {
	env := newTestEnv(t, &fakeWriter{})
	env.hub.SetReceiver(LatLng{Lat: 26.636844, Lng: 87.985256})
	conn := env.dial(t)

	var hello HelloMessage
	readJSON(t, conn, &hello)
	assert.Nil(t, hello.Sender)
	require.NotNil(t, hello.Receiver)
	waitForClientCount(t, env.hub, 1)

	env.bridge.Receive([]byte("Received: RSSI -71 MSG;LOC:26.640120,87.990011,112.5,10:42:07"))
	env.bridge.Receive([]byte("Received:MSG;SOS: trapped near bridge"))
	env.bridge.Receive([]byte("Received:MSG;Received: MSG:all good"))

	var coord CoordMessage
	readJSON(t, conn, &coord)
	assert.Equal(t, "coord", coord.Type)
	assert.Equal(t, LatLng{Lat: 26.640120, Lng: 87.990011}, coord.Sender)
	assert.Equal(t, &LatLng{Lat: 26.636844, Lng: 87.985256}, coord.Receiver)
	require.NotNil(t, coord.Alt)
	assert.Equal(t, 112.5, *coord.Alt)
	assert.Equal(t, "10:42:07", coord.Time)

	var sos MessageEvent
	readJSON(t, conn, &sos)
	assert.Equal(t, "trapped near bridge", sos.Text)
	assert.True(t, sos.Alert)

	var msg MessageEvent
	readJSON(t, conn, &msg)
	assert.Equal(t, "all good", msg.Text)
	assert.False(t, msg.Alert)

	// late clients get the last position, the history holds only messages
	late := env.dial(t)
	readJSON(t, late, &hello)
	assert.Equal(t, &LatLng{Lat: 26.640120, Lng: 87.990011}, hello.Sender)
	require.Len(t, hello.History, 2)
	assert.Equal(t, "trapped near bridge", hello.History[0].Text)
}

func TestHub_HelloDoesNotRepeatQueuedEvents(t *testing.T) {
	hub := NewHub(chat.NewHistory(0), nil, "COM11")
	hub.Append(chat.DisplayEvent{Text: "queued", Direction: chat.Received, Time: time.Now()})

	client := &Client{id: "c1", send: make(chan []byte, 4), hub: hub}
	hub.addClient(client)
	hub.dispatch(<-hub.broadcast)

	hub.Append(chat.DisplayEvent{Text: "after", Direction: chat.Received, Time: time.Now()})
	hub.dispatch(<-hub.broadcast)

	require.Len(t, client.send, 2)
	var hello HelloMessage
	require.NoError(t, json.Unmarshal(<-client.send, &hello))
	require.Len(t, hello.History, 1)
	assert.Equal(t, "queued", hello.History[0].Text)

	var next MessageEvent
	require.NoError(t, json.Unmarshal(<-client.send, &next))
	assert.Equal(t, "after", next.Text)
}

func TestHub_QueuedClearKeepsSnapshot(t *testing.T) {
	hub := NewHub(chat.NewHistory(0), nil, "COM11")
	hub.Clear()
	hub.Append(chat.DisplayEvent{Text: "fresh", Direction: chat.Sent, Time: time.Now()})

	client := &Client{id: "c1", send: make(chan []byte, 4), hub: hub}
	hub.addClient(client)
	hub.dispatch(<-hub.broadcast)
	hub.dispatch(<-hub.broadcast)

	assert.Len(t, client.send, 1)
}

func TestHub_SendErrorAfterShutdown(t *testing.T) {
	hub := NewHub(chat.NewHistory(0), nil, "COM11")
	client := &Client{id: "c1", send: make(chan []byte, 4), hub: hub}
	hub.addClient(client)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()
	cancel()
	<-done

	assert.Zero(t, hub.ClientCount())
	assert.NotPanics(t, func() { hub.SendError(client, "late") })
	assert.NotPanics(t, func() { hub.handleSend(client, "late") })
}

func TestHub_ClientSend(t *testing.T) {
	writer := &fakeWriter{}
	env := newTestEnv(t, writer)
	conn := env.dial(t)

	var hello HelloMessage
	readJSON(t, conn, &hello)

	writeJSON(t, conn, ClientMessage{Type: "send", Text: "from web"})

	var echo MessageEvent
	readJSON(t, conn, &echo)
	assert.Equal(t, "from web", echo.Text)
	assert.Equal(t, "sent", echo.Direction)
	assert.Equal(t, []string{"from web"}, writer.Lines())
}

func TestHub_ClientErrors(t *testing.T) {
	writer := &fakeWriter{err: errors.New("port closed")}
	env := newTestEnv(t, writer)
	conn := env.dial(t)

	var hello HelloMessage
	readJSON(t, conn, &hello)

	writeJSON(t, conn, ClientMessage{Type: "send", Text: "lost"})
	var errMsg ErrorMessage
	readJSON(t, conn, &errMsg)
	assert.Equal(t, "error", errMsg.Type)
	assert.Contains(t, errMsg.Message, "port closed")

	writeJSON(t, conn, ClientMessage{Type: "bogus"})
	readJSON(t, conn, &errMsg)
	assert.Equal(t, "unknown message type: bogus", errMsg.Message)
}

func TestHub_Unregister(t *testing.T) {
	env := newTestEnv(t, &fakeWriter{})
	conn := env.dial(t)
	waitForClientCount(t, env.hub, 1)

	conn.Close(websocket.StatusNormalClosure, "")
	waitForClientCount(t, env.hub, 0)
}

func TestServer_REST(t *testing.T) {
	writer := &fakeWriter{}
	env := newTestEnv(t, writer)
	handler := NewServer("", env.hub).Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/messages", bytes.NewBufferString(`{"text":"hi"}`)))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"hi"}, writer.Lines())

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/messages", bytes.NewBufferString(`{"text":"  "}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/history", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var history []MessageEvent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Len(t, history, 1)
	assert.Equal(t, "hi", history[0].Text)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var status StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, StatusResponse{Port: "COM11", Available: true, Clients: 0, Messages: 1}, status)
}

func TestServer_SendWithoutDevice(t *testing.T) {
	env := newTestEnv(t, nil)
	handler := NewServer("", env.hub).Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/messages", bytes.NewBufferString(`{"text":"hi"}`)))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestServer_RunStopsOnCancel(t *testing.T) {
	hub := NewHub(chat.NewHistory(0), nil, "COM11")
	srv := NewServer("127.0.0.1:0", hub)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}
