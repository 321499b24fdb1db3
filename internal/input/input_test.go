package input

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mahlburgc/lorachat/events"
	"github.com/mahlburgc/lorachat/internal/chat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// msgsOf runs cmd and flattens batches into the produced messages.
func msgsOf(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, msgsOf(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func filterStrings(msgs []tea.Msg) []string {
	var out []string
	for _, msg := range msgs {
		if f, ok := msg.(events.MsgLogFilterStringMsg); ok {
			out = append(out, string(f))
		}
	}
	return out
}

func typeText(m Model, text string) Model {
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return m
}

func TestEnterSendsValue(t *testing.T) {
	m := New()
	m = typeText(m, "hello")

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	require.NotNil(t, cmd)
	assert.Equal(t, events.SendMsg{Data: "hello"}, cmd())
	assert.Empty(t, m.Ta.Value())
	assert.True(t, m.Sending())

	m, _ = m.Update(events.SentMsg("hello"))
	assert.False(t, m.Sending())
	assert.Empty(t, m.Ta.Value())
}

func TestEnterWhileSendingIsIgnored(t *testing.T) {
	m := New()
	m = typeText(m, "hello")
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	m = typeText(m, "next")
	m, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Equal(t, "next", m.Ta.Value())

	m, _ = m.Update(events.SentMsg("hello"))
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, events.SendMsg{Data: "next"}, cmd())
}

func TestFailedSendRestoresLine(t *testing.T) {
	m := New()
	m = typeText(m, "hello")
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.Empty(t, m.Ta.Value())

	m, _ = m.Update(events.ErrMsg(errors.New("send failed: timeout")))
	assert.False(t, m.Sending())
	assert.Equal(t, "hello", m.Ta.Value())
}

func TestFailedSendKeepsNewTyping(t *testing.T) {
	m := New()
	m = typeText(m, "hello")
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = typeText(m, "other")

	m, _ = m.Update(events.ErrMsg(errors.New("send failed: timeout")))
	assert.Equal(t, "other", m.Ta.Value())
}

func TestErrorWithoutSendIsIgnored(t *testing.T) {
	m := New()
	m = typeText(m, "typing")

	m, _ = m.Update(events.ErrMsg(errors.New("editor failed")))
	assert.Equal(t, "typing", m.Ta.Value())
}

func TestEnterIgnoresBlankInput(t *testing.T) {
	m := New()
	m = typeText(m, "   ")

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	for _, msg := range msgsOf(cmd) {
		assert.NotEqual(t, events.SendMsg{Data: "   "}, msg)
	}
	assert.Empty(t, m.Ta.Value())
}

func TestUnavailableDisablesInput(t *testing.T) {
	m := New()
	m, _ = m.Update(events.UnavailableMsg{Err: errors.New("no such file or directory")})

	assert.False(t, m.Ta.Focused())
	assert.Equal(t, "Serial unavailable", m.Ta.Placeholder)

	m = typeText(m, "hi")
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Empty(t, m.Ta.Value())
}

func TestFailedReaderKeepsInputEnabled(t *testing.T) {
	m := New()
	m, _ = m.Update(events.StatusMsg{State: chat.Failed, Err: errors.New("EOF")})

	assert.True(t, m.Ta.Focused())
	assert.Equal(t, "Receiving stopped, send a message...", m.Ta.Placeholder)

	m = typeText(m, "still here")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, events.SendMsg{Data: "still here"}, cmd())
}

func TestHistCmdSelected(t *testing.T) {
	m := New()

	m, _ = m.Update(events.HistCmdSelected("from history"))
	assert.Equal(t, "from history", m.Ta.Value())

	m, _ = m.Update(events.HistCmdSelected(""))
	assert.Empty(t, m.Ta.Value())
}

func TestSearchMode(t *testing.T) {
	m := New()
	m = typeText(m, "draft")

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlF})
	require.True(t, m.SearchMode())
	assert.Empty(t, m.Ta.Value())
	assert.Equal(t, []string{""}, filterStrings(msgsOf(cmd)))

	m, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("rssi")})
	assert.Equal(t, []string{"rssi"}, filterStrings(msgsOf(cmd)))

	m, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEscape})
	assert.False(t, m.SearchMode())
	assert.Equal(t, []string{""}, filterStrings(msgsOf(cmd)))
	assert.Equal(t, "draft", m.Ta.Value())
}

func TestSearchEnterKeepsFilter(t *testing.T) {
	m := New()
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlF})
	m = typeText(m, "peer")

	// enter does not send while searching
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.False(t, m.SearchMode())
	for _, msg := range msgsOf(cmd) {
		assert.IsNotType(t, events.SendMsg{}, msg)
		assert.IsNotType(t, events.MsgLogFilterStringMsg(""), msg)
	}
}
