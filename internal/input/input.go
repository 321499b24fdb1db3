package input

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mahlburgc/lorachat/events"
	"github.com/mahlburgc/lorachat/internal/chat"
	"github.com/mahlburgc/lorachat/internal/keymap"
	"github.com/mahlburgc/lorachat/internal/styles"
)

const (
	sendPlaceholder        = "Send a message..."
	searchPlaceholder      = "Search chat..."
	unavailablePlaceholder = "Serial unavailable"
	stoppedPlaceholder     = "Receiving stopped, send a message..."
)

type Model struct {
	Ta          textarea.Model
	searchMode  bool
	unavailable bool
	placeholder string // placeholder of the send mode
	draft       string // send input stashed while searching
	sending     bool
	inFlight    string // line handed to the bridge, restored if the write fails
}

// New creates a new model with default settings.
// Input text area contains text field to send messages to the serial port.
func New() (m Model) {
	m.Ta = textarea.New()
	m.Ta.SetWidth(30)
	m.Ta.SetHeight(1)
	m.placeholder = sendPlaceholder
	m.Ta.Placeholder = m.placeholder
	m.Ta.Focus()
	m.Ta.Prompt = "> "
	m.Ta.CharLimit = 256
	m.Ta.ShowLineNumbers = false
	m.Ta.KeyMap.InsertNewline.SetEnabled(false)
	m.Ta.Cursor.Style = styles.CursorStyle
	m.Ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	m.Ta.FocusedStyle.Placeholder = styles.PlaceholderStyle
	m.Ta.FocusedStyle.Prompt = styles.PromptStyle
	m.Ta.BlurredStyle.Prompt = styles.BlurredPromptStyle
	m.Ta.FocusedStyle.Base = styles.BorderStyle
	m.Ta.BlurredStyle.Base = styles.BorderStyle

	return m
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {

	case events.UnavailableMsg:
		m.unavailable = true
		m.placeholder = unavailablePlaceholder
		if !m.searchMode {
			m.Ta.Reset()
			m.Ta.Placeholder = m.placeholder
			m.Ta.Blur()
		}
		return m, nil

	case events.StatusMsg:
		// sending still works if the reader failed
		if msg.State == chat.Failed && !m.unavailable {
			m.placeholder = stoppedPlaceholder
			if !m.searchMode {
				m.Ta.Placeholder = m.placeholder
			}
		}
		return m, nil

	case events.SentMsg:
		m.sending = false
		m.inFlight = ""
		return m, nil

	case events.ErrMsg:
		if !m.sending {
			return m, nil
		}
		m.sending = false
		line := m.inFlight
		m.inFlight = ""
		switch {
		case m.searchMode && m.draft == "":
			m.draft = line
		case !m.searchMode && m.Ta.Value() == "":
			m.SetValue(line)
		}
		return m, nil

	case events.HistCmdSelected:
		if m.searchMode || m.unavailable {
			return m, nil
		}
		if string(msg) == "" {
			return m, m.Reset()
		}
		m.SetValue(string(msg))
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.Ta, cmd = m.Ta.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keymap.Default.SearchKey):
		if m.searchMode {
			return m, m.leaveSearch()
		}
		return m, m.enterSearch()

	case m.searchMode && key.Matches(msg, keymap.Default.CloseKey):
		return m, m.leaveSearch()

	case m.searchMode && key.Matches(msg, keymap.Default.SendKey):
		// keep the filter, go back to typing messages
		m.searchMode = false
		return m, m.restoreSendMode()

	case key.Matches(msg, keymap.Default.ResetKey):
		m.Ta.Reset()
		if m.searchMode {
			return m, filterCmd("")
		}
		return m, nil

	case key.Matches(msg, keymap.Default.SendKey):
		if m.unavailable || m.sending {
			return m, nil
		}
		if strings.TrimSpace(m.Ta.Value()) == "" {
			return m, m.Reset()
		}
		data := m.Ta.Value()
		m.sending = true
		m.inFlight = data
		m.Ta.Reset()
		return m, func() tea.Msg {
			return events.SendMsg{Data: data}
		}
	}

	if !m.searchMode {
		var cmd tea.Cmd
		m.Ta, cmd = m.Ta.Update(msg)
		return m, cmd
	}

	before := m.Ta.Value()
	var cmd tea.Cmd
	m.Ta, cmd = m.Ta.Update(msg)
	if m.Ta.Value() != before {
		return m, tea.Batch(cmd, filterCmd(m.Ta.Value()))
	}
	return m, cmd
}

func (m Model) View() string {
	return m.Ta.View()
}

func (m Model) SearchMode() bool {
	return m.searchMode
}

// Sending reports whether a line is waiting for the write result.
func (m Model) Sending() bool {
	return m.sending
}

func (m *Model) SetValue(value string) {
	m.Ta.SetValue(value)
}

func (m *Model) SetWidth(w int) {
	m.Ta.SetWidth(w)
}

// Reset clears the input and focuses it for the next message.
func (m *Model) Reset() tea.Cmd {
	m.Ta.Reset()
	m.Ta.Placeholder = m.placeholder
	if m.unavailable {
		m.Ta.Blur()
		return nil
	}
	return m.Ta.Focus()
}

func (m *Model) enterSearch() tea.Cmd {
	m.searchMode = true
	m.draft = m.Ta.Value()
	m.Ta.Reset()
	m.Ta.Prompt = "/ "
	m.Ta.FocusedStyle.Prompt = styles.SearchPromptStyle
	m.Ta.Placeholder = searchPlaceholder
	return tea.Batch(m.Ta.Focus(), filterCmd(""))
}

func (m *Model) leaveSearch() tea.Cmd {
	m.searchMode = false
	return tea.Batch(m.restoreSendMode(), filterCmd(""))
}

func (m *Model) restoreSendMode() tea.Cmd {
	m.Ta.Prompt = "> "
	m.Ta.FocusedStyle.Prompt = styles.PromptStyle
	draft := m.draft
	m.draft = ""
	cmd := m.Reset()
	if draft != "" && !m.unavailable {
		m.SetValue(draft)
	}
	return cmd
}

func filterCmd(query string) tea.Cmd {
	return func() tea.Msg {
		return events.MsgLogFilterStringMsg(query)
	}
}
