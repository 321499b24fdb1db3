package session

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"
	"github.com/mahlburgc/lorachat/events"
	"github.com/mahlburgc/lorachat/internal/chat"
	"github.com/mahlburgc/lorachat/internal/styles"
)

const (
	starting = iota
	listening
	stopped
	failed
	unavailable
)

// Model shows the state of the serial session in the footer.
type Model struct {
	portName string
	status   int
	lastErr  error
}

func New(portName string) Model {
	return Model{
		portName: portName,
		status:   starting,
	}
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {

	case events.StatusMsg:
		switch msg.State {
		case chat.Listening:
			m.status = listening
		case chat.Stopped:
			m.status = stopped
		case chat.Failed:
			m.status = failed
			m.lastErr = msg.Err
		}

	case events.UnavailableMsg:
		m.status = unavailable
		m.lastErr = msg.Err

	case events.ErrMsg:
		m.lastErr = msg

	case events.SentMsg:
		// a successful write clears a previous write error
		if m.status == listening {
			m.lastErr = nil
		}
	}

	return m, nil
}

func (m Model) View() string {
	var status string

	switch m.status {
	case listening:
		status = fmt.Sprintf(" %s ", styles.ListeningSymbolStyle.Render("●"))

	case failed, unavailable:
		status = fmt.Sprintf(" %s ", styles.FailedSymbolStyle.Render("●"))

	default:
		status = fmt.Sprintf(" %s ", styles.StoppedSymbolStyle.Render("●"))
	}

	status += styles.FooterStyle.Render(m.portName)

	if m.lastErr != nil {
		status += " " + styles.StatusErrStyle.Render(m.lastErr.Error())
	}

	return zone.Mark("session", status)
}

func (m Model) PortName() string {
	return m.portName
}

func (m Model) Listening() bool {
	return m.status == listening
}

func (m Model) Err() error {
	return m.lastErr
}
