package msglog

import (
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/acarl005/stripansi"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/icza/gox/stringsx"
	"github.com/mahlburgc/lorachat/events"
	"github.com/mahlburgc/lorachat/internal/chat"
	"github.com/mahlburgc/lorachat/internal/keymap"
	"github.com/mahlburgc/lorachat/internal/styles"
)

type Model struct {
	Vp            viewport.Model
	log           []string
	logFiltered   []string
	showTimestamp bool
	txPrefix      string
	rxPrefix      string
	errPrefix     string
	infoPrefix    string
	showEscapes   bool
	logLimit      int
	msgCnt        int // rx and tx messages since the last clear
	filterString  string
	scrollIndex   int
	needsUpdate   bool
}

// This message is sent when the editor is closed.
type EditorFinishedMsg struct {
	err error
}

const (
	rxMsg = iota
	txMsg
	errMsg
	infoMsg
)

// New creates a new chat log. logLimit is the number of lines kept in the view.
func New(showTimestamp bool, showEscapes bool, logLimit int) (m Model) {
	// The viewport is created without border, the border with title
	// is added manually in View.
	m.Vp = viewport.New(30, 5)
	m.Vp.Style = lipgloss.NewStyle()
	// Scrolling is handled manually, disable all viewport keys.
	m.Vp.KeyMap.Up.SetEnabled(false)
	m.Vp.KeyMap.Down.SetEnabled(false)
	m.Vp.KeyMap.PageUp.SetEnabled(false)
	m.Vp.KeyMap.PageDown.SetEnabled(false)

	m.txPrefix = "You: "
	m.rxPrefix = ""
	m.errPrefix = "ERROR: "
	m.infoPrefix = "INFO: "
	m.showEscapes = showEscapes
	m.showTimestamp = showTimestamp
	m.logLimit = max(logLimit, 1)

	m.log = []string{m.startMsg()}
	m.logFiltered = m.log
	m.needsUpdate = true

	return m
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	// viewport will be managed completely manually,
	// so viewports update function will not be called.

	switch msg := msg.(type) {

	case events.MsgLogFilterStringMsg:
		m.filterString = string(msg)
		m.scrollIndex = 0
		m.filterLog(m.filterString)

	case events.DisplayMsg:
		for _, u := range msg {
			if u.Cleared {
				m.clear()
				continue
			}
			if u.Event.Direction == chat.Sent {
				m.addMsg(u.Event.Text, txMsg, u.Event.Time)
			} else {
				m.addMsg(u.Event.Text, rxMsg, u.Event.Time)
			}
		}

	case events.ErrMsg:
		if msg != nil {
			m.addMsg(msg.Error(), errMsg, time.Now())
		}

	case events.UnavailableMsg:
		m.addMsg(fmt.Sprintf("serial unavailable: %v", msg.Err), errMsg, time.Now())

	case events.StatusMsg:
		switch msg.State {
		case chat.Listening:
			m.addMsg("listening for messages", infoMsg, time.Now())
		case chat.Failed:
			m.addMsg(fmt.Sprintf("receiving stopped: %v", msg.Err), errMsg, time.Now())
		}

	case events.InfoMsg:
		m.addMsg(string(msg), infoMsg, time.Now())

	case EditorFinishedMsg:
		if msg.err != nil {
			m.addMsg(msg.err.Error(), errMsg, time.Now())
		}

	case tea.MouseMsg:
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			m.scrollUp(1)

		case tea.MouseButtonWheelDown:
			m.scrollDown(1)
		}

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keymap.Default.LogLeftKey):
			m.Vp.ScrollLeft(3)

		case key.Matches(msg, keymap.Default.LogRightKey):
			m.Vp.ScrollRight(3)

		case key.Matches(msg, keymap.Default.LogUpKey):
			m.scrollUp(1)

		case key.Matches(msg, keymap.Default.LogDownKey):
			m.scrollDown(1)

		case key.Matches(msg, keymap.Default.LogUpFastKey):
			m.scrollUp(10)

		case key.Matches(msg, keymap.Default.LogDownFastKey):
			m.scrollDown(10)

		case key.Matches(msg, keymap.Default.LogTopKey):
			m.scrollToTop()

		case key.Matches(msg, keymap.Default.LogBottomKey):
			m.scrollToBottom()

		case key.Matches(msg, keymap.Default.OpenEditorKey):
			return m, openEditorCmd(m.logFiltered)
		}

	default:
		return m, nil
	}

	if m.needsUpdate {
		m.needsUpdate = false
		m.UpdateVp()
	}

	return m, nil
}

func (m Model) View() string {
	// mark scroll percentage if we are not at bottom
	borderStyle := styles.FrameLineStyle
	var percentRenderStyle lipgloss.Style
	if m.atBottom() {
		percentRenderStyle = borderStyle
	} else {
		percentRenderStyle = styles.PercentStyle
	}

	scrollPercentageString := percentRenderStyle.Render(fmt.Sprintf("%3d%%", int(m.GetScrollPercent())))

	footer := borderStyle.Render(fmt.Sprintf("%d ", m.msgCnt)) + scrollPercentageString
	return styles.Frame(m.Vp, "Chat", footer)
}

func (m *Model) SetSize(width, height int) {
	borderWidth, borderHeight := styles.BorderStyle.GetFrameSize()

	m.Vp.Width = width - borderWidth
	m.Vp.Height = height - borderHeight

	m.scrollIndex = 0
	m.UpdateVp()
}

func (m *Model) clear() {
	m.log = []string{m.startMsg()}
	m.logFiltered = m.log
	m.msgCnt = 0
	m.scrollIndex = 0
	m.filterLog(m.filterString)
}

func (m *Model) scrollUp(n int) {
	if m.atTop() {
		return
	}

	if m.maxScrollIndex()-m.scrollIndex > n {
		m.scrollIndex = m.scrollIndex + n
	} else {
		m.scrollIndex = m.maxScrollIndex()
	}

	m.needsUpdate = true
}

func (m *Model) maxScrollIndex() int {
	return len(m.logFiltered) - m.Vp.Height
}

func (m *Model) scrollToTop() {
	if m.atTop() {
		return
	}

	m.scrollIndex = m.maxScrollIndex()
	m.needsUpdate = true
}

func (m *Model) scrollToBottom() {
	if m.atBottom() {
		return
	}

	m.scrollIndex = 0
	m.needsUpdate = true
}

func (m *Model) scrollDown(n int) {
	if m.atBottom() {
		return
	}

	if m.scrollIndex-n > 0 {
		m.scrollIndex = m.scrollIndex - n
	} else {
		m.scrollIndex = 0
	}

	m.needsUpdate = true
}

func (m *Model) atTop() bool {
	if len(m.logFiltered) > m.Vp.Height {
		return m.scrollIndex == m.maxScrollIndex()
	}
	return true
}

func (m *Model) atBottom() bool {
	if len(m.logFiltered) > m.Vp.Height {
		return m.scrollIndex == 0
	}
	return true
}

// Log a message to the viewport
func (m *Model) addMsg(msg string, msgType int, t time.Time) {
	var line strings.Builder
	if m.showTimestamp {
		line.WriteString(fmt.Sprintf("[%s] ", t.Format("15:04:05")))
	}

	switch msgType {
	case txMsg:
		line.WriteString(m.txPrefix)
		m.msgCnt++
	case errMsg:
		line.WriteString(m.errPrefix)
	case infoMsg:
		line.WriteString(m.infoPrefix)
	default:
		line.WriteString(m.rxPrefix)
		m.msgCnt++
	}

	if m.showEscapes {
		line.WriteString(fmt.Sprintf("%q", msg))
	} else {
		line.WriteString(stringsx.Clean(msg))
	}

	atBottom := m.atBottom()

	var renderedString string
	switch msgType {
	case txMsg:
		renderedString = styles.SentMsgStyle.Render(line.String())
	case errMsg:
		renderedString = styles.ErrMsgStyle.Render(line.String())
	case infoMsg:
		renderedString = styles.InfoMsgStyle.Render(line.String())
	default:
		renderedString = styles.ReceivedMsgStyle.Render(line.String())
	}

	m.log = append(m.log, renderedString)

	// message history limit, remove oldest if exceeded
	if len(m.log) > m.logLimit+1 {
		m.log = append([]string{m.startMsg()}, m.log[len(m.log)-m.logLimit:]...)
	}

	m.filterLog(m.filterString)

	// always reset vp to bottom if we send new messages or receive info or error messages
	if msgType != rxMsg {
		m.scrollToBottom()
	} else if !atBottom {
		m.scrollUp(1)
	}
}

func (m *Model) startMsg() string {
	return styles.LogStartStyle.Render(
		fmt.Sprintf("Chat start (limit: %d lines)", m.logLimit))
}

func (m *Model) UpdateVp() {
	if m.Vp.Height <= 0 {
		return
	}

	startIndex := m.getFirstViewableElementIndex()
	stopIndex := m.getLastViewableElementIndex()
	content := strings.Join(m.logFiltered[startIndex:stopIndex], "\n")
	m.Vp.SetContent(content)
}

// Lines returns the rendered lines of the log without the start message.
func (m Model) Lines() []string {
	return m.log[1:]
}

func (m Model) MsgCount() int {
	return m.msgCnt
}

func (m *Model) contentFitsInVp() bool {
	return len(m.logFiltered) <= m.Vp.Height
}

func (m *Model) getFirstViewableElementIndex() int {
	if m.contentFitsInVp() {
		return 0
	}
	return m.maxScrollIndex() - m.scrollIndex
}

func (m *Model) getLastViewableElementIndex() int {
	if m.contentFitsInVp() {
		return len(m.logFiltered)
	}
	return len(m.logFiltered) - m.scrollIndex
}

func (m Model) GetScrollPercent() float64 {
	if m.atBottom() {
		return 100
	}

	return 100 - (float64(m.scrollIndex) * 100 / float64(m.maxScrollIndex()))
}

// openEditorCmd creates a tea.Cmd that opens the chat in $EDITOR.
func openEditorCmd(content []string) tea.Cmd {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}

	tmpFile, err := os.CreateTemp("", "lorachat-*.txt")
	if err != nil {
		return func() tea.Msg {
			return EditorFinishedMsg{err: err}
		}
	}

	for _, line := range content {
		if _, err = tmpFile.WriteString(stripansi.Strip(line) + "\n"); err != nil {
			tmpFile.Close()
			return func() tea.Msg {
				return EditorFinishedMsg{err: err}
			}
		}
	}

	// Close the file so the editor can access it.
	if err := tmpFile.Close(); err != nil {
		return func() tea.Msg {
			return EditorFinishedMsg{err: err}
		}
	}

	c := exec.Command(editor, tmpFile.Name())

	// tea.ExecProcess suspends the program while the editor runs.
	return tea.ExecProcess(c, func(err error) tea.Msg {
		if err != nil {
			return EditorFinishedMsg{err: err}
		}
		return EditorFinishedMsg{err: os.Remove(tmpFile.Name())}
	})
}

// filterLog processes the entire log.
func (m *Model) filterLog(query string) {
	if query == "" {
		m.logFiltered = m.log
	} else {
		searchWords := strings.Fields(strings.ToLower(query))
		searchRegexps := getRegexSearch(searchWords)

		filtered := make([]string, 0)
		for i, line := range m.log {
			if i == 0 {
				// first element is start message and should always be included and not be filtered
				filtered = append(filtered, line)
			} else if highlighted, matches := filterMsg(line, searchWords, searchRegexps); matches {
				filtered = append(filtered, highlighted)
			}
		}
		m.logFiltered = filtered
	}
	m.needsUpdate = true
}

// filterMsg checks a single line against all search words and highlights the matches.
func filterMsg(line string, searchWords []string, searchRegexps []*regexp.Regexp) (string, bool) {
	plain := stripansi.Strip(line)
	lowerLine := strings.ToLower(plain)

	for _, word := range searchWords {
		if !strings.Contains(lowerLine, word) {
			return "", false
		}
	}

	highlightedLine := plain
	for _, re := range searchRegexps {
		highlightedLine = re.ReplaceAllStringFunc(highlightedLine, func(s string) string {
			return styles.SearchHighlightStyle.Render(s)
		})
	}

	return highlightedLine, true
}

func getRegexSearch(searchWords []string) (searchRegexps []*regexp.Regexp) {
	for _, word := range searchWords {
		re := regexp.MustCompile("(?i)" + regexp.QuoteMeta(word))
		searchRegexps = append(searchRegexps, re)
	}
	return searchRegexps
}
