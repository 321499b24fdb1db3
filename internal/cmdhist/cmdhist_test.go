package cmdhist

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"
	"github.com/mahlburgc/lorachat/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	zone.NewGlobal()
	m.Run()
}

func selected(t *testing.T, cmd tea.Cmd) string {
	t.Helper()
	require.NotNil(t, cmd)
	msg, ok := cmd().(events.HistCmdSelected)
	require.True(t, ok)
	return string(msg)
}

func TestNew_SkipsBlankEntries(t *testing.T) {
	m := New([]string{"a", "", "  ", "b"})

	assert.Equal(t, []string{"a", "b"}, m.GetCmdHist())
	assert.False(t, m.Selected())
}

func TestSentMsgAddsToHistory(t *testing.T) {
	m := New(nil)
	m.SetSize(30, 10)

	m, _ = m.Update(events.SentMsg("a"))
	m, _ = m.Update(events.SentMsg("b"))
	m, _ = m.Update(events.SentMsg(" "))
	// resending moves the message to the end
	m, _ = m.Update(events.SentMsg("a"))

	assert.Equal(t, []string{"b", "a"}, m.GetCmdHist())
	assert.Equal(t, 2, m.GetIndex())
}

func TestNavigation(t *testing.T) {
	m := New([]string{"first", "second"})
	m.SetSize(30, 10)

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, "second", selected(t, cmd))

	m, cmd = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, "first", selected(t, cmd))

	// stays at the oldest entry
	m, cmd = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, "first", selected(t, cmd))

	m, cmd = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, "second", selected(t, cmd))

	// leaving the history empties the input
	m, cmd = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, "", selected(t, cmd))
	assert.False(t, m.Selected())

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Nil(t, cmd)
}

func TestNavigationOnEmptyHistory(t *testing.T) {
	m := New(nil)
	m.SetSize(30, 10)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Nil(t, cmd)
}

func TestDeleteSelected(t *testing.T) {
	m := New([]string{"keep", "drop"})
	m.SetSize(30, 10)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	require.True(t, m.Selected())

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlD})
	assert.Equal(t, "", selected(t, cmd))
	assert.Equal(t, []string{"keep"}, m.GetCmdHist())
	assert.False(t, m.Selected())

	// nothing selected, nothing deleted
	m, cmd = m.Update(tea.KeyMsg{Type: tea.KeyCtrlD})
	assert.Nil(t, cmd)
	assert.Equal(t, []string{"keep"}, m.GetCmdHist())
}
