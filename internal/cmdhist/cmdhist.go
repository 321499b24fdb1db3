package cmdhist

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"
	"github.com/mahlburgc/lorachat/events"
	"github.com/mahlburgc/lorachat/internal/keymap"
	"github.com/mahlburgc/lorachat/internal/styles"
	"github.com/rs/zerolog/log"
)

// Model keeps the messages sent in this session. The history lives in memory only.
type Model struct {
	Vp           viewport.Model
	cmdHist      []string
	cmdHistIndex int
}

// New creates a new model with default settings.
// Command history can be passed to start with existing messages.
func New(cmdHist []string) (m Model) {
	m.Vp = viewport.New(30, 5)

	for _, cmd := range cmdHist {
		if strings.TrimSpace(cmd) != "" {
			m.cmdHist = append(m.cmdHist, cmd)
		}
	}
	m.cmdHistIndex = len(m.cmdHist)
	return m
}

func (m Model) GetIndex() int {
	return m.cmdHistIndex
}

func (m Model) GetHistLen() int {
	return len(m.cmdHist)
}

// Selected reports whether a message of the history is currently selected.
func (m Model) Selected() bool {
	return m.cmdHistIndex != len(m.cmdHist)
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case events.SentMsg:
		if strings.TrimSpace(string(msg)) == "" {
			return m, nil
		}
		m.AddCmd(string(msg))
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keymap.Default.DeleteCmdKey):
			return m, m.deleteCmd()

		case key.Matches(msg, keymap.Default.HistUpKey):
			return m, m.scrollUp()

		case key.Matches(msg, keymap.Default.HistDownKey):
			return m, m.scrollDown()

		default:
			return m, nil
		}

	case tea.MouseMsg:
		if msg.Button != tea.MouseButtonLeft {
			return m, nil
		}

		clicked := -1
		for i := range m.cmdHist {
			if zone.Get(strconv.Itoa(i)).InBounds(msg) {
				clicked = i
			}
		}
		if clicked == -1 {
			return m, nil
		}

		m.cmdHistIndex = clicked
		c := m.updateCmdHistView()

		if msg.Action == tea.MouseActionRelease {
			return m, SendCmdExecutedMsg(m.cmdHist[m.cmdHistIndex])
		}
		return m, c

	default:
		return m, nil
	}
}

// Returns a Tea command to put the selected message into the input.
func SendCmdSelectedMsg(cmd string) tea.Cmd {
	return func() tea.Msg {
		return events.HistCmdSelected(cmd)
	}
}

// Returns a Tea command to send the clicked message again.
func SendCmdExecutedMsg(cmd string) tea.Cmd {
	return func() tea.Msg {
		return events.SendMsg{Data: cmd}
	}
}

// View renders the model's view.
func (m Model) View() string {
	return styles.Frame(m.Vp, "Sent", "")
}

// Scroll up cmd view.
func (m *Model) scrollUp() tea.Cmd {
	if len(m.cmdHist) == 0 {
		return nil
	}
	if m.cmdHistIndex > 0 {
		m.cmdHistIndex--
	}
	if m.cmdHistIndex < m.Vp.YOffset {
		m.Vp.ScrollUp(1)
	}
	return m.updateCmdHistView()
}

// Scroll down cmd view.
func (m *Model) scrollDown() (c tea.Cmd) {
	if m.cmdHistIndex < len(m.cmdHist) {
		m.cmdHistIndex++
		if m.cmdHistIndex < len(m.cmdHist) {
			// The bottom-most visible line is at YOffset + Height - 1.
			bottomEdge := m.Vp.YOffset + m.Vp.Height - 1
			// If the selection is now below the visible area of the viewport,
			// scroll the viewport down to keep it in view.
			if m.cmdHistIndex > bottomEdge {
				m.Vp.ScrollDown(1)
			}
		}
		c = m.updateCmdHistView()
	}
	return c
}

func (m *Model) updateCmdHistView() tea.Cmd {
	// leaving the history at the bottom empties the input
	c := SendCmdSelectedMsg("")

	cmdHistLines := make([]string, len(m.cmdHist))
	for i, cmd := range m.cmdHist {
		if i == m.cmdHistIndex {
			cmdHistLines[i] = zone.Mark(strconv.Itoa(i), styles.SelectedCmdStyle.Render("> "+cmd))
			c = SendCmdSelectedMsg(cmd)
		} else {
			cmdHistLines[i] = zone.Mark(strconv.Itoa(i), cmd)
		}
	}
	m.Vp.SetContent(lipgloss.NewStyle().Render(strings.Join(cmdHistLines, "\n")))

	return c
}

// Delete cmd from command history and reset cmd hist index.
func (m *Model) deleteCmd() (c tea.Cmd) {
	if m.Selected() {
		deleted := m.cmdHist[m.cmdHistIndex]
		m.cmdHist = append(m.cmdHist[:m.cmdHistIndex], m.cmdHist[m.cmdHistIndex+1:]...)
		c = m.ResetVp()
		log.Debug().Str("message", deleted).Int("remaining", len(m.cmdHist)).Msg("removed from history")
	}
	return c
}

func (m *Model) ResetVp() (c tea.Cmd) {
	m.cmdHistIndex = len(m.cmdHist)
	c = m.updateCmdHistView()
	if m.Vp.Height > 0 {
		m.Vp.GotoBottom()
	}
	return c
}

// Add a new message to the history. The message will only be added, if not
// already existing in the hist. If it is found, it will be moved to the end.
func (m *Model) AddCmd(newCmd string) {
	foundIndex := -1
	for i, cmd := range m.cmdHist {
		if cmd == newCmd {
			foundIndex = i
			break
		}
	}

	if foundIndex != -1 {
		m.cmdHist = append(m.cmdHist[:foundIndex], m.cmdHist[foundIndex+1:]...)
	}
	m.cmdHist = append(m.cmdHist, newCmd)

	m.ResetVp()
}

func (m *Model) SetSize(width, height int) {
	borderWidth, borderHeight := styles.BorderStyle.GetFrameSize()
	m.Vp.Width = max(0, width-borderWidth)
	m.Vp.Height = max(0, height-borderHeight)
	m.ResetVp()
}

func (m Model) GetCmdHist() []string {
	return m.cmdHist
}
