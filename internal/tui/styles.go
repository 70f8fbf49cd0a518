package tui

import "github.com/charmbracelet/lipgloss"

// styles groups the lipgloss styles shared by the screens.
type styles struct {
	Title     lipgloss.Style
	Header    lipgloss.Style
	Selected  lipgloss.Style
	Dim       lipgloss.Style
	Sender    lipgloss.Style
	OwnSender lipgloss.Style
	Indicator lipgloss.Style
	Error     lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		Title:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")),
		Header:    lipgloss.NewStyle().Bold(true),
		Selected:  lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true),
		Dim:       lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Sender:    lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true),
		OwnSender: lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
		Indicator: lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Bold(true),
		Error:     lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
}
