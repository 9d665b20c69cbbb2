package tui

import "github.com/charmbracelet/lipgloss"

var (
	accent  = lipgloss.Color("#00E5FF")
	danger  = lipgloss.Color("#FF4D6D")
	muted   = lipgloss.Color("#6C7A89")
	success = lipgloss.Color("#7CFC9A")
)

// Styles groups every style used by the terminal client.
type Styles struct {
	Title      lipgloss.Style
	TitleBeat  lipgloss.Style
	Label      lipgloss.Style
	LabelError lipgloss.Style
	ErrorBox   lipgloss.Style
	Result     lipgloss.Style
	Stats      lipgloss.Style
	Radar      lipgloss.Style
	Help       lipgloss.Style
	Boot       lipgloss.Style
}

func DefaultStyles() Styles {
	return Styles{
		Title:      lipgloss.NewStyle().Bold(true).Foreground(accent),
		TitleBeat:  lipgloss.NewStyle().Bold(true).Foreground(success),
		Label:      lipgloss.NewStyle().Width(36).Foreground(muted),
		LabelError: lipgloss.NewStyle().Width(36).Foreground(danger).Bold(true),
		ErrorBox:   lipgloss.NewStyle().Foreground(danger),
		Result:     lipgloss.NewStyle().Foreground(accent),
		Stats:      lipgloss.NewStyle().Foreground(muted),
		Radar:      lipgloss.NewStyle().Foreground(accent),
		Help:       lipgloss.NewStyle().Foreground(muted).Italic(true),
		Boot:       lipgloss.NewStyle().Foreground(accent).Bold(true).Padding(1, 2),
	}
}
