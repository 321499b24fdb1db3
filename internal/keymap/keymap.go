package keymap

import (
	"reflect"

	"github.com/charmbracelet/bubbles/key"
)

// KeyMap holds all bindings of the chat screen. The group tag decides the
// help column a binding is listed in.
type KeyMap struct {
	HistUpKey      key.Binding `group:"navigation"`
	HistDownKey    key.Binding `group:"navigation"`
	LogUpKey       key.Binding `group:"navigation"`
	LogDownKey     key.Binding `group:"navigation"`
	LogLeftKey     key.Binding `group:"navigation"`
	LogRightKey    key.Binding `group:"navigation"`
	LogUpFastKey   key.Binding `group:"navigation"`
	LogDownFastKey key.Binding `group:"navigation"`
	LogTopKey      key.Binding `group:"navigation"`
	LogBottomKey   key.Binding `group:"navigation"`

	ToggleHistKey key.Binding `group:"actions"`
	OpenEditorKey key.Binding `group:"actions"`
	ClearLogKey   key.Binding `group:"actions"`
	DeleteCmdKey  key.Binding `group:"actions"`
	ResetKey      key.Binding `group:"actions"`
	SendKey       key.Binding `group:"actions"`
	SearchKey     key.Binding `group:"actions"`
	HelpKey       key.Binding `group:"actions"`
	QuitKey       key.Binding `group:"actions"`
	CloseKey      key.Binding `group:"actions"`
}

// helpColumns is the column order of the full help.
var helpColumns = []string{"navigation", "actions"}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.HelpKey, k.QuitKey, k.SendKey, k.ClearLogKey}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	byGroup := make(map[string][]key.Binding, len(helpColumns))

	v := reflect.ValueOf(k)
	for _, field := range reflect.VisibleFields(v.Type()) {
		binding, ok := v.FieldByIndex(field.Index).Interface().(key.Binding)
		if !ok {
			continue
		}
		group := field.Tag.Get("group")
		byGroup[group] = append(byGroup[group], binding)
	}

	columns := make([][]key.Binding, 0, len(helpColumns))
	for _, group := range helpColumns {
		columns = append(columns, byGroup[group])
	}
	return columns
}

var Default = KeyMap{
	HistUpKey: key.NewBinding(
		key.WithKeys("up", "ctrl+k"),
		key.WithHelp("↑/ctrl+k", "previous sent message"),
	),
	HistDownKey: key.NewBinding(
		key.WithKeys("down", "ctrl+j"),
		key.WithHelp("↓/ctrl+j", "next sent message"),
	),
	LogUpKey: key.NewBinding(
		key.WithKeys("ctrl+up", "alt+k"),
		key.WithHelp("ctrl+↑/alt+k", "scroll log up"),
	),
	LogDownKey: key.NewBinding(
		key.WithKeys("ctrl+down", "alt+j"),
		key.WithHelp("ctrl+↓/alt+j", "scroll log down"),
	),
	LogLeftKey: key.NewBinding(
		key.WithKeys("ctrl+left", "alt+h"),
		key.WithHelp("ctrl+left/alt+h", "scroll log left"),
	),
	LogRightKey: key.NewBinding(
		key.WithKeys("ctrl+right", "alt+l"),
		key.WithHelp("ctrl+right/alt+l", "scroll log right"),
	),
	LogUpFastKey: key.NewBinding(
		key.WithKeys("pgup"),
		key.WithHelp("PgUp", "scroll log up fast"),
	),
	LogDownFastKey: key.NewBinding(
		key.WithKeys("pgdown"),
		key.WithHelp("PgDn", "scroll log down fast"),
	),
	LogTopKey: key.NewBinding(
		key.WithKeys("home"),
		key.WithHelp("home", "log goto top"),
	),
	LogBottomKey: key.NewBinding(
		key.WithKeys("end"),
		key.WithHelp("end", "log goto bottom"),
	),
	ToggleHistKey: key.NewBinding(
		key.WithKeys("ctrl+r"),
		key.WithHelp("ctrl+r", "show sent messages"),
	),
	OpenEditorKey: key.NewBinding(
		key.WithKeys("ctrl+e"),
		key.WithHelp("ctrl+e", "open editor"),
	),
	QuitKey: key.NewBinding(
		key.WithKeys("ctrl+q"),
		key.WithHelp("ctrl+q", "quit"),
	),
	ClearLogKey: key.NewBinding(
		key.WithKeys("ctrl+l"),
		key.WithHelp("ctrl+l", "clear chat"),
	),
	HelpKey: key.NewBinding(
		key.WithKeys("ctrl+o"),
		key.WithHelp("ctrl+o", "show help"),
	),
	DeleteCmdKey: key.NewBinding(
		key.WithKeys("ctrl+d"),
		key.WithHelp("ctrl+d", "delete from history"),
	),
	ResetKey: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("ctrl+c", "reset input"),
	),
	CloseKey: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "close menu"),
	),
	SendKey: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "send message"),
	),
	SearchKey: key.NewBinding(
		key.WithKeys("ctrl+f"),
		key.WithHelp("ctrl+f", "search chat"),
	),
}
