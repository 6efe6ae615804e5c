// Package tui renders report generation and batch ingestion progress as
// interactive terminal views.
package tui

import "github.com/charmbracelet/lipgloss"

type styles struct {
	Title   lipgloss.Style
	Stage   lipgloss.Style
	StageOK lipgloss.Style
	Body    lipgloss.Style
	Error   lipgloss.Style
	Muted   lipgloss.Style
	Gold    lipgloss.Style
}

func defaultStyles() *styles {
	return &styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
		Stage:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		StageOK: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		Body:    lipgloss.NewStyle().Foreground(lipgloss.Color("7")),
		Error:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		Gold:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11")),
	}
}
