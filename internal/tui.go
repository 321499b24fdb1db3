package internal

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"
	overlay "github.com/rmhubbert/bubbletea-overlay"
	"github.com/rs/zerolog/log"

	"github.com/mahlburgc/lorachat/events"
	"github.com/mahlburgc/lorachat/internal/chat"
	"github.com/mahlburgc/lorachat/internal/cmdhist"
	"github.com/mahlburgc/lorachat/internal/footer"
	help "github.com/mahlburgc/lorachat/internal/help-overlay"
	"github.com/mahlburgc/lorachat/internal/input"
	"github.com/mahlburgc/lorachat/internal/logging"
	"github.com/mahlburgc/lorachat/internal/msglog"
	"github.com/mahlburgc/lorachat/internal/session"
)

type (
	// The display queue has pending updates.
	displayReadyMsg struct{}
	// The poller status channel was closed.
	statusClosedMsg struct{}
)

// Options wires the chat core into the terminal UI.
type Options struct {
	Bridge *chat.Bridge
	Queue  *chat.Queue
	// Status of the background poller, nil if no poller runs.
	Status   <-chan chat.Status
	PortName string
	// OpenErr is set if the serial port could not be opened.
	OpenErr     error
	Timestamp   bool
	ShowEscapes bool
	LogLimit    int
}

type model struct {
	msglog  msglog.Model
	cmdhist cmdhist.Model
	input   input.Model
	session session.Model
	footer  footer.Model
	help    help.Model

	bridge  *chat.Bridge
	queue   *chat.Queue
	status  *statusFeed
	openErr error

	// context of the current program run, cancelled on restart
	runCtx  context.Context
	stopRun context.CancelFunc

	showHelp   bool
	showHist   bool
	restartApp bool
	width      int
	height     int
}

func initialModel(opts Options) model {
	return model{
		msglog:  msglog.New(opts.Timestamp, opts.ShowEscapes, opts.LogLimit),
		cmdhist: cmdhist.New(nil),
		input:   input.New(),
		session: session.New(opts.PortName),
		footer:  footer.New(),
		help:    help.New(),
		bridge:  opts.Bridge,
		queue:   opts.Queue,
		status:  newStatusFeed(opts.Status),
		openErr: opts.OpenErr,
		runCtx:  context.Background(),
	}
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		textarea.Blink,
		// pick up updates pushed while no program was running
		func() tea.Msg { return displayReadyMsg{} },
		waitForStatus(m.runCtx, m.status),
	}
	if m.openErr != nil {
		err := m.openErr
		cmds = append(cmds, func() tea.Msg {
			return events.UnavailableMsg{Err: err}
		})
	}
	return tea.Batch(cmds...)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	logging.LogMsgType(msg)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.help, _ = m.help.Update(msg)
		m.setSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m, m.handleKeys(msg)

	case tea.MouseMsg:
		m.msglog, cmd = m.msglog.Update(msg)
		cmds = append(cmds, cmd)
		if m.showHist {
			m.cmdhist, cmd = m.cmdhist.Update(msg)
			cmds = append(cmds, cmd)
		}

	case displayReadyMsg:
		if updates := m.queue.Drain(); len(updates) > 0 {
			m.msglog, _ = m.msglog.Update(events.DisplayMsg(updates))
		}
		cmds = append(cmds, waitForDisplay(m.runCtx, m.queue))

	case events.StatusMsg:
		m.msglog, _ = m.msglog.Update(msg)
		m.session, _ = m.session.Update(msg)
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd, waitForStatus(m.runCtx, m.status))

	case statusClosedMsg:
		// poller is gone, nothing to wait for

	case events.SendMsg:
		cmds = append(cmds, sendCmd(m.bridge, msg.Data))

	case events.SentMsg:
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
		m.cmdhist, _ = m.cmdhist.Update(msg)
		m.session, _ = m.session.Update(msg)

	case events.UnavailableMsg:
		m.msglog, _ = m.msglog.Update(msg)
		m.session, _ = m.session.Update(msg)
		m.input, _ = m.input.Update(msg)

	case events.ErrMsg:
		m.msglog, _ = m.msglog.Update(msg)
		m.session, _ = m.session.Update(msg)
		m.input, _ = m.input.Update(msg)

	case events.HistCmdSelected:
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)

	case events.MsgLogFilterStringMsg, events.InfoMsg:
		m.msglog, _ = m.msglog.Update(msg)

	case msglog.EditorFinishedMsg:
		m.msglog, _ = m.msglog.Update(msg)
		// workaround bubbletea v1 bug: after executing external command,
		// mouse support is not restored correctly. Therefore we restart bubbletea.
		m.restartApp = true
		if m.stopRun != nil {
			m.stopRun()
		}
		return m, tea.Quit

	default:
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m model) View() string {
	main := m.msglog.View()
	if m.showHist {
		main = lipgloss.JoinHorizontal(lipgloss.Top, main, m.cmdhist.View())
	}

	screen := lipgloss.JoinVertical(
		lipgloss.Left,
		main,
		m.input.View(),
		m.footer.View(m.session.View(), m.showHist && m.cmdhist.Selected()),
	)

	if m.showHelp {
		screen = overlay.Composite(m.help.View(), screen, overlay.Center, overlay.Center, 0, 0)
	}

	return zone.Scan(screen)
}

func (m *model) setSize(width, height int) {
	m.width = width
	m.height = height

	m.input.SetWidth(width)
	m.footer.SetWidth(width)

	const footerHeight = 1
	logHeight := max(0, height-lipgloss.Height(m.input.View())-footerHeight)

	logWidth := width
	if m.showHist {
		logWidth = width / 4 * 3
		m.cmdhist.SetSize(width-logWidth, logHeight)
	}
	m.msglog.SetSize(logWidth, logHeight)
}

// waitForDisplay returns a command that waits until the bridge pushed new
// display updates.
func waitForDisplay(ctx context.Context, q *chat.Queue) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-ctx.Done():
			return nil
		case <-q.Ready():
			if ctx.Err() != nil {
				// the program already quit, leave the signal for the next one
				q.Notify()
				return nil
			}
			return displayReadyMsg{}
		}
	}
}

// statusFeed delivers poller states to the UI. A state read by a program
// that already quit is carried over to the next program.
type statusFeed struct {
	ch    <-chan chat.Status
	carry chan chat.Status
}

func newStatusFeed(ch <-chan chat.Status) *statusFeed {
	if ch == nil {
		return nil
	}
	return &statusFeed{ch: ch, carry: make(chan chat.Status, cap(ch)+1)}
}

func waitForStatus(ctx context.Context, f *statusFeed) tea.Cmd {
	if f == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case <-ctx.Done():
			return nil
		case s := <-f.carry:
			return events.StatusMsg(s)
		case s, ok := <-f.ch:
			if !ok {
				return statusClosedMsg{}
			}
			if ctx.Err() != nil {
				f.carry <- s
				return nil
			}
			return events.StatusMsg(s)
		}
	}
}

// sendCmd returns a command that writes text through the bridge.
func sendCmd(b *chat.Bridge, text string) tea.Cmd {
	return func() tea.Msg {
		if err := b.Send(text); err != nil {
			return events.ErrMsg(fmt.Errorf("send failed: %w", err))
		}
		return events.SentMsg(strings.TrimSpace(text))
	}
}

// RunTui runs the chat UI until the user quits.
func RunTui(opts Options) error {
	zone.NewGlobal()

	m := initialModel(opts)

	for {
		m.runCtx, m.stopRun = context.WithCancel(context.Background())

		p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
		finalModel, err := p.Run()
		m.stopRun()
		if err != nil {
			return fmt.Errorf("tui: %w", err)
		}

		var ok bool
		m, ok = finalModel.(model)
		if !ok {
			return fmt.Errorf("tui: unexpected final model %T", finalModel)
		}

		if !m.restartApp {
			break
		}
		log.Debug().Msg("restarting tui after editor")
		m.restartApp = false
		// the open error was already reported
		m.openErr = nil
	}

	return nil
}
