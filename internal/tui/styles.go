package tui

import "github.com/charmbracelet/lipgloss"

// palette is the board's color scheme.
var palette = struct {
	Foreground, Dim, Primary, Success, Warning, Error, Selection lipgloss.Color
}{
	Foreground: lipgloss.Color("#c0caf5"),
	Dim:        lipgloss.Color("#565f89"),
	Primary:    lipgloss.Color("#7aa2f7"),
	Success:    lipgloss.Color("#9ece6a"),
	Warning:    lipgloss.Color("#e0af68"),
	Error:      lipgloss.Color("#f7768e"),
	Selection:  lipgloss.Color("#33467c"),
}

type styles struct {
	Title     lipgloss.Style
	Muted     lipgloss.Style
	Selected  lipgloss.Style
	Item      lipgloss.Style
	Done      lipgloss.Style
	Busy      lipgloss.Style
	Error     lipgloss.Style
	Success   lipgloss.Style
	Filter    lipgloss.Style
	Help      lipgloss.Style
	HelpKey   lipgloss.Style
	Priority  map[string]lipgloss.Style
	ErrorCard lipgloss.Style
}

func newStyles() styles {
	return styles{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(palette.Primary),
		Muted:    lipgloss.NewStyle().Foreground(palette.Dim),
		Selected: lipgloss.NewStyle().Background(palette.Selection).Foreground(palette.Foreground),
		Item:     lipgloss.NewStyle().Foreground(palette.Foreground),
		Done:     lipgloss.NewStyle().Foreground(palette.Dim).Strikethrough(true),
		Busy:     lipgloss.NewStyle().Foreground(palette.Warning),
		Error:    lipgloss.NewStyle().Foreground(palette.Error),
		Success:  lipgloss.NewStyle().Foreground(palette.Success),
		Filter:   lipgloss.NewStyle().Foreground(palette.Primary).Italic(true),
		Help:     lipgloss.NewStyle().Foreground(palette.Dim).MarginTop(1),
		HelpKey:  lipgloss.NewStyle().Foreground(palette.Primary).Bold(true),
		Priority: map[string]lipgloss.Style{
			"high":   lipgloss.NewStyle().Foreground(palette.Error),
			"medium": lipgloss.NewStyle().Foreground(palette.Warning),
			"low":    lipgloss.NewStyle().Foreground(palette.Success),
		},
		ErrorCard: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(palette.Error).
			Padding(1, 2),
	}
}
