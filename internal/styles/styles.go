package styles

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
)

// Palette
var (
	Gray    = lipgloss.AdaptiveColor{Light: "#545454", Dark: "#989898"}
	DimGray = lipgloss.AdaptiveColor{Light: "#858585", Dark: "#5f5f5f"}
	Pink    = lipgloss.AdaptiveColor{Light: "#9f008f", Dark: "#f943e3"}
	Cyan    = lipgloss.AdaptiveColor{Light: "#006362", Dark: "#96ffec"}
	Green   = lipgloss.AdaptiveColor{Light: "#41ab00", Dark: "#6cff11"}
	Red     = lipgloss.AdaptiveColor{Light: "#8f0000", Dark: "#be0000"}
)

// Frames around the chat log, the sent list and the input.
var (
	BorderStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(Gray)
	FrameLineStyle = lipgloss.NewStyle().Foreground(Gray)
	PercentStyle   = lipgloss.NewStyle().Foreground(Cyan)
	LogStartStyle  = lipgloss.NewStyle().Foreground(Gray)
)

// Chat lines
var (
	SentMsgStyle         = lipgloss.NewStyle().Foreground(Pink)
	ReceivedMsgStyle     = lipgloss.NewStyle()
	ErrMsgStyle          = lipgloss.NewStyle().Foreground(Red)
	InfoMsgStyle         = lipgloss.NewStyle().Foreground(Gray)
	SearchHighlightStyle = lipgloss.NewStyle().Foreground(Cyan).Bold(true)
	SelectedCmdStyle     = lipgloss.NewStyle().Foreground(Pink)
)

// Input line
var (
	CursorStyle        = lipgloss.NewStyle().Foreground(Pink)
	PlaceholderStyle   = lipgloss.NewStyle().Foreground(Gray)
	PromptStyle        = lipgloss.NewStyle().Foreground(Pink)
	SearchPromptStyle  = lipgloss.NewStyle().Foreground(Cyan)
	BlurredPromptStyle = lipgloss.NewStyle().Foreground(Gray)
)

// Session line, footer and help
var (
	ListeningSymbolStyle = lipgloss.NewStyle().Foreground(Green)
	FailedSymbolStyle    = lipgloss.NewStyle().Foreground(Red)
	StoppedSymbolStyle   = lipgloss.NewStyle().Foreground(Gray)
	StatusErrStyle       = lipgloss.NewStyle().Foreground(Red)
	FooterStyle          = lipgloss.NewStyle().Foreground(Gray)

	HelpKey                = lipgloss.NewStyle().Foreground(Gray)
	HelpDesc               = lipgloss.NewStyle().Foreground(DimGray)
	HelpSep                = lipgloss.NewStyle().Foreground(DimGray)
	HelpOverlayBorderStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(Cyan).Padding(0, 1, 1)
)

// Frame draws the rounded border around vp with title embedded in the top
// line and footer in the bottom line. The footer is rendered as given.
// Labels that do not fit the width are left out.
func Frame(vp viewport.Model, title, footer string) string {
	b := BorderStyle.GetBorderStyle()
	fill := func(label string) string {
		n := max(0, vp.Width-lipgloss.Width(label)+BorderStyle.GetHorizontalPadding())
		return FrameLineStyle.Render(strings.Repeat(b.Top, n))
	}

	label := ""
	if title != "" {
		label = FrameLineStyle.Render(b.Top + b.MiddleRight + " " + title + " " + b.MiddleLeft)
	}
	if lipgloss.Width(label) > vp.Width {
		label = ""
	}
	top := lipgloss.JoinHorizontal(lipgloss.Left,
		FrameLineStyle.Render(b.TopLeft), label, fill(label), FrameLineStyle.Render(b.TopRight))

	tail := ""
	if footer != "" {
		tail = FrameLineStyle.Render(b.MiddleRight) + " " + footer + " " +
			FrameLineStyle.Render(b.MiddleLeft+b.Bottom)
	}
	if lipgloss.Width(tail) > vp.Width {
		tail = ""
	}
	bottom := lipgloss.JoinHorizontal(lipgloss.Left,
		FrameLineStyle.Render(b.BottomLeft), fill(tail), tail, FrameLineStyle.Render(b.BottomRight))

	body := BorderStyle.BorderTop(false).BorderBottom(false).Render(vp.View())
	return lipgloss.JoinVertical(lipgloss.Left, top, body, bottom)
}
