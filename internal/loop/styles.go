package loop

import "github.com/charmbracelet/lipgloss"

// Color constants
const (
	ColorPrimary = "39"  // Blue
	ColorSuccess = "42"  // Green
	ColorWarning = "214" // Orange
	ColorError   = "196" // Red
	ColorMuted   = "245" // Gray
)

// Styles contains the console styles for loop output.
type Styles struct {
	Title    lipgloss.Style
	TaskID   lipgloss.Style
	Success  lipgloss.Style
	Error    lipgloss.Style
	Warning  lipgloss.Style
	Muted    lipgloss.Style
	Duration lipgloss.Style
}

// DefaultStyles returns the default loop styles.
func DefaultStyles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(ColorPrimary)),
		TaskID: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(ColorPrimary)),
		Success: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorSuccess)),
		Error: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorError)),
		Warning: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorWarning)),
		Muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorMuted)),
		Duration: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorMuted)),
	}
}

// Status icons
const (
	IconSuccess = "✓"
	IconFailed  = "✗"
	IconRetry   = "↻"
	IconCommit  = "⏎"
)

// StatusIcon returns the icon for a failure kind.
func StatusIcon(kind FailureKind) string {
	if kind == FailNone {
		return IconSuccess
	}
	return IconFailed
}

// StatusStyle returns the style for a failure kind.
func (s Styles) StatusStyle(kind FailureKind) lipgloss.Style {
	if kind == FailNone {
		return s.Success
	}
	return s.Error
}
