package tui

import "github.com/charmbracelet/lipgloss"

type styles struct {
	user      lipgloss.Style
	assistant lipgloss.Style
	errText   lipgloss.Style
	card      lipgloss.Style
	cardTitle lipgloss.Style
	countdown lipgloss.Style
	hint      lipgloss.Style
	input     lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		user: lipgloss.NewStyle().
			Foreground(lipgloss.Color("14")).
			Bold(true),
		assistant: lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")),
		errText: lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")),
		card: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("11")).
			Padding(0, 1),
		cardTitle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("11")).
			Bold(true),
		countdown: lipgloss.NewStyle().
			Foreground(lipgloss.Color("11")),
		hint: lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")),
		input: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), true, false, false, false).
			BorderForeground(lipgloss.Color("8")),
	}
}
