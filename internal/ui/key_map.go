package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	prevMonth key.Binding
	nextMonth key.Binding
	prevYear  key.Binding
	nextYear  key.Binding
	wholeYear key.Binding
	tab       key.Binding
	enter     key.Binding
	back      key.Binding
	refresh   key.Binding
	help      key.Binding
	quit      key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		prevMonth: key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "prev month")),
		nextMonth: key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "next month")),
		prevYear:  key.NewBinding(key.WithKeys("["), key.WithHelp("[", "prev year")),
		nextYear:  key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "next year")),
		wholeYear: key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "month/year")),
		tab:       key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch view")),
		enter:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		back:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		refresh:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.tab, k.help, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.prevMonth, k.nextMonth, k.wholeYear},
		{k.prevYear, k.nextYear, k.refresh},
		{k.tab, k.enter, k.back},
		{k.help, k.quit},
	}
}
