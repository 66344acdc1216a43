// Package console renders run progress for a human watching the terminal.
// Styles are bound to the output writer's renderer so color is dropped
// automatically when output is not a terminal.
package console

import "github.com/charmbracelet/lipgloss"

// Palette.
var (
	ColorWhite  = lipgloss.Color("#f9fafb")
	ColorYellow = lipgloss.Color("#eab308")
	ColorGreen  = lipgloss.Color("#22c55e")
	ColorRed    = lipgloss.Color("#dc2626")
	ColorBlack  = lipgloss.Color("#111827")
)

// Theme holds the styles used for each kind of run output line.
type Theme struct {
	Log   lipgloss.Style
	Debug lipgloss.Style
	Warn  lipgloss.Style
	Error lipgloss.Style
	Pass  lipgloss.Style
	Fail  lipgloss.Style
}

// NewTheme builds the styles against r.
func NewTheme(r *lipgloss.Renderer) Theme {
	return Theme{
		Log:   r.NewStyle().Foreground(ColorWhite),
		Debug: r.NewStyle().Foreground(ColorYellow),
		Warn:  r.NewStyle().Background(ColorYellow).Foreground(ColorBlack),
		Error: r.NewStyle().Foreground(ColorRed),
		Pass:  r.NewStyle().Foreground(ColorGreen),
		Fail:  r.NewStyle().Foreground(ColorRed),
	}
}
