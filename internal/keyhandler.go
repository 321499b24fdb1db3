package internal

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mahlburgc/lorachat/internal/keymap"
)

// Handle all key events in the bubbletea update loop.
func (m *model) handleKeys(msg tea.KeyMsg) tea.Cmd {
	var cmd tea.Cmd
	k := keymap.Default

	switch {
	case key.Matches(msg, k.QuitKey):
		return tea.Quit

	case key.Matches(msg, k.HelpKey):
		m.showHelp = !m.showHelp
		return nil

	case m.showHelp && key.Matches(msg, k.CloseKey):
		m.showHelp = false
		return nil

	case key.Matches(msg, k.ToggleHistKey):
		m.showHist = !m.showHist
		m.setSize(m.width, m.height)
		return nil

	case key.Matches(msg, k.ClearLogKey):
		// the cleared update reaches the log through the display queue
		m.bridge.Clear()
		return nil

	case key.Matches(msg, k.HistUpKey, k.HistDownKey, k.DeleteCmdKey):
		if m.input.SearchMode() {
			return nil
		}
		m.cmdhist, cmd = m.cmdhist.Update(msg)
		return cmd

	case key.Matches(msg, k.LogUpKey, k.LogDownKey, k.LogLeftKey, k.LogRightKey,
		k.LogUpFastKey, k.LogDownFastKey, k.LogTopKey, k.LogBottomKey, k.OpenEditorKey):
		m.msglog, cmd = m.msglog.Update(msg)
		return cmd
	}

	m.input, cmd = m.input.Update(msg)
	return cmd
}
