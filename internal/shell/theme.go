package shell

import "github.com/charmbracelet/lipgloss"

var (
	green     = lipgloss.Color("#00FF41")
	darkGreen = lipgloss.Color("#008F11")
	cyan      = lipgloss.Color("#00D4AA")
	gold      = lipgloss.Color("#FFD700")
	red       = lipgloss.Color("#FF4136")
)

// theme holds the styles of one console. Styles come from a renderer bound
// to the console's output, so redirected output carries no escape codes.
type theme struct {
	Prompt  lipgloss.Style
	Intro   lipgloss.Style
	Heading lipgloss.Style
	Command lipgloss.Style
	Confirm lipgloss.Style
	Error   lipgloss.Style
	Muted   lipgloss.Style
}

func newTheme(r *lipgloss.Renderer) theme {
	return theme{
		Prompt:  r.NewStyle().Foreground(green).Bold(true),
		Intro:   r.NewStyle().Foreground(green).Bold(true),
		Heading: r.NewStyle().Foreground(cyan).Bold(true),
		Command: r.NewStyle().Foreground(green),
		Confirm: r.NewStyle().Foreground(gold).Bold(true),
		Error:   r.NewStyle().Foreground(red),
		Muted:   r.NewStyle().Foreground(darkGreen),
	}
}
