package help

import (
	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mahlburgc/lorachat/internal/keymap"
	"github.com/mahlburgc/lorachat/internal/styles"
)

const title = "lorachat keybindings"

var titleStyle = lipgloss.NewStyle().Bold(true).MarginBottom(1)

// Model renders every binding of keymap.Default in a bordered box that is
// laid over the chat screen.
type Model struct {
	keys help.Model
}

func New() Model {
	keys := help.New()
	keys.ShowAll = true
	keys.Styles.FullKey = styles.HelpKey
	keys.Styles.FullDesc = styles.HelpDesc
	keys.Styles.FullSeparator = styles.HelpSep
	return Model{keys: keys}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if size, ok := msg.(tea.WindowSizeMsg); ok {
		// border and padding take four columns
		m.keys.Width = max(0, size.Width-4)
	}
	return m, nil
}

func (m Model) View() string {
	body := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(title),
		m.keys.View(keymap.Default),
	)
	return styles.HelpOverlayBorderStyle.Render(body)
}
