// Package theme holds the colours and shared styles of the contraction timer.
package theme

import "github.com/charmbracelet/lipgloss"

// Catppuccin Mocha, limited to what the timer screens draw with.
var (
	Mantle   = lipgloss.Color("#181825")
	Surface1 = lipgloss.Color("#45475a")
	Text     = lipgloss.Color("#cdd6f4")
	Subtext0 = lipgloss.Color("#a6adc8")
	Lavender = lipgloss.Color("#b4befe")
	Sapphire = lipgloss.Color("#74c7ec")
	Green    = lipgloss.Color("#a6e3a1")
	Peach    = lipgloss.Color("#fab387")
	Red      = lipgloss.Color("#f38ba8")
)

var (
	Title = lipgloss.NewStyle().Foreground(Sapphire).Bold(true)
	Muted = lipgloss.NewStyle().Foreground(Subtext0)

	// Hot marks intensity; Good and Bad mark the contraction pattern.
	Hot  = lipgloss.NewStyle().Foreground(Peach).Bold(true)
	Good = lipgloss.NewStyle().Foreground(Green).Bold(true)
	Bad  = lipgloss.NewStyle().Foreground(Red)

	// Clock renders the running timer; ClockIdle the stopped one.
	Clock = lipgloss.NewStyle().
		Foreground(Peach).
		Bold(true).
		Padding(1, 4).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(Peach)

	ClockIdle = Clock.Foreground(Subtext0).BorderForeground(Surface1)
)
