package style

import (
	"github.com/charmbracelet/lipgloss"

	"pulse/app/internal/models"
)

var (
	// Colors
	Primary = lipgloss.Color("#7C3AED")
	Green   = lipgloss.Color("#10B981")
	Red     = lipgloss.Color("#EF4444")
	Yellow  = lipgloss.Color("#F59E0B")
	Cyan    = lipgloss.Color("#06B6D4")
	Dim     = lipgloss.Color("#6B7280")
	White   = lipgloss.Color("#F9FAFB")

	Banner = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary).
		MarginBottom(1)

	Bold    = lipgloss.NewStyle().Bold(true).Foreground(White)
	DimText = lipgloss.NewStyle().Foreground(Dim)

	Healthy   = lipgloss.NewStyle().Foreground(Green).Bold(true)
	Unhealthy = lipgloss.NewStyle().Foreground(Red).Bold(true)
	Warning   = lipgloss.NewStyle().Foreground(Yellow)

	TableHeader = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary).
		PaddingRight(2)
)

// ForStatus picks the text style of a probe status
func ForStatus(s models.Status) lipgloss.Style {
	switch s {
	case models.StatusUp:
		return Healthy
	case models.StatusWarning:
		return Warning
	}
	return Unhealthy
}

// Dot renders a colored status indicator
func Dot(s models.Status) string {
	return ForStatus(s).Render("●")
}
