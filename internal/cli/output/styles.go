package output

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/leapstack-labs/relsplit/pkg/core"
)

// Styles holds the lipgloss styles used by text output.
type Styles struct {
	Header1 lipgloss.Style
	Header2 lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Info    lipgloss.Style
	Path    lipgloss.Style
}

// NewStyles returns coloured styles, or plain ones when color is false so
// piped output stays free of escape sequences.
func NewStyles(color bool) *Styles {
	if !color {
		plain := lipgloss.NewStyle()
		return &Styles{
			Header1: plain, Header2: plain, Bold: plain, Muted: plain,
			Success: plain, Warning: plain, Error: plain, Info: plain, Path: plain,
		}
	}
	return &Styles{
		Header1: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		Header2: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14")),
		Bold:    lipgloss.NewStyle().Bold(true),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		Error:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		Info:    lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		Path:    lipgloss.NewStyle().Underline(true),
	}
}

// StatusStyle returns the style for a status level.
func (s *Styles) StatusStyle(st core.Status) lipgloss.Style {
	switch st {
	case core.StatusSuccess:
		return s.Success
	case core.StatusWarning:
		return s.Warning
	case core.StatusError:
		return s.Error
	default:
		return s.Muted
	}
}
