package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up         key.Binding
	Down       key.Binding
	VimUp      key.Binding
	VimDown    key.Binding
	PrevGroup  key.Binding
	NextGroup  key.Binding
	Enter      key.Binding
	Focus      key.Binding
	Release    key.Binding
	Disconnect key.Binding
	Escape     key.Binding
	Quit       key.Binding
	CtrlC      key.Binding
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "ctrl+p"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "ctrl+n"),
	),
	VimUp: key.NewBinding(
		key.WithKeys("k"),
	),
	VimDown: key.NewBinding(
		key.WithKeys("j"),
	),
	PrevGroup: key.NewBinding(
		key.WithKeys("left"),
	),
	NextGroup: key.NewBinding(
		key.WithKeys("right"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
	),
	Focus: key.NewBinding(
		key.WithKeys("tab"),
	),
	Release: key.NewBinding(
		key.WithKeys("ctrl+]"),
	),
	Disconnect: key.NewBinding(
		key.WithKeys("ctrl+q"),
	),
	Escape: key.NewBinding(
		key.WithKeys("esc"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q"),
	),
	CtrlC: key.NewBinding(
		key.WithKeys("ctrl+c"),
	),
}
