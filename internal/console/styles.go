package console

import "github.com/charmbracelet/lipgloss"

// Status styles use the basic ANSI palette so they match the plain front-end.
var (
	InfoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("5"))

	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("2"))

	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("1")).
			Bold(true)

	PromptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("5"))
)
