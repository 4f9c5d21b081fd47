package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the dashboard.
type keyMap struct {
	up     key.Binding
	down   key.Binding
	toggle key.Binding
	start  key.Binding
	pause  key.Binding
	reset  key.Binding
	next   key.Binding
	quit   key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		toggle: key.NewBinding(key.WithKeys(" ", "x"), key.WithHelp("space", "done")),
		start:  key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "start")),
		pause:  key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "pause/resume")),
		reset:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reset")),
		next:   key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next quote")),
		quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.start, k.pause, k.next, k.toggle, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.toggle},
		{k.start, k.pause, k.reset},
		{k.next, k.quit},
	}
}
