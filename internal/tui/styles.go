package tui

import (
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

const (
	green = "#A7C080"
	black = "#1E2326"
	grey  = "#384B55"
	white = "#F2EFDF"
	red   = "#E67E80"

	taskTableHeight = 10
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(green)).
			MarginBottom(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(white))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(red))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(grey))

	cursorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(green)).
			Bold(true)

	activeBox = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color(green)).
			Padding(0, 1)

	inactiveBox = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color(grey)).
			Padding(0, 1)
)

var taskColumns = []table.Column{
	{Title: "Task", Width: 6},
	{Title: "Profile", Width: 16},
	{Title: "Status", Width: 12},
	{Title: "Created", Width: 19},
	{Title: "Completed", Width: 19},
	{Title: "Message", Width: 30},
}

func tableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color(green)).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color(black)).
		Background(lipgloss.Color(green)).
		Bold(true)
	return s
}
