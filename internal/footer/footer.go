package footer

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
	"github.com/mahlburgc/lorachat/internal/keymap"
	"github.com/mahlburgc/lorachat/internal/styles"
)

type Model struct {
	width int
	help  help.Model
}

func New() (m Model) {
	m.help = help.New()
	m.help.Styles.ShortKey = styles.HelpKey
	m.help.Styles.ShortDesc = styles.HelpDesc
	m.help.Styles.ShortSeparator = styles.HelpSep
	return m
}

func (m *Model) SetWidth(w int) {
	m.width = w
}

// View renders the session status followed by the short help.
func (m Model) View(sessionView string, histSelected bool) string {
	helpText := m.help.ShortHelpView(keymap.Default.ShortHelp())
	if histSelected {
		helpText += styles.HelpSep.Render(" • ") + m.help.ShortHelpView([]key.Binding{keymap.Default.DeleteCmdKey})
	}

	return lipgloss.NewStyle().MaxWidth(m.width).Render(sessionView + styles.FooterStyle.Render(" | ") + helpText)
}
