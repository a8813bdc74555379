package viz

import "github.com/charmbracelet/lipgloss"

// Theme defines color scheme for the TUI
type Theme struct {
	Name   string
	Dots   lipgloss.Color
	Accent lipgloss.Color
	Text   lipgloss.Color
	Muted  lipgloss.Color
}

var (
	ThemeInk = Theme{
		Name:   "ink",
		Dots:   lipgloss.Color("#f5f5f5"),
		Accent: lipgloss.Color("#00ccff"),
		Text:   lipgloss.Color("#ffffff"),
		Muted:  lipgloss.Color("#777777"),
	}

	ThemeRetroGreen = Theme{
		Name:   "retro",
		Dots:   lipgloss.Color("#00ff00"), // Green phosphor
		Accent: lipgloss.Color("#88ff88"),
		Text:   lipgloss.Color("#00ff00"),
		Muted:  lipgloss.Color("#005500"),
	}

	ThemeSepia = Theme{
		Name:   "sepia",
		Dots:   lipgloss.Color("#e8d5b0"),
		Accent: lipgloss.Color("#ff9f43"),
		Text:   lipgloss.Color("#fff5e6"),
		Muted:  lipgloss.Color("#8b7355"),
	}

	CurrentTheme = ThemeInk

	Themes = []Theme{
		ThemeInk,
		ThemeRetroGreen,
		ThemeSepia,
	}
)

// GetTheme returns a theme by name, or the default.
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return ThemeInk
}

func SetTheme(name string) {
	CurrentTheme = GetTheme(name)
}

// NextTheme switches to the theme after the current one.
func NextTheme() {
	for i, t := range Themes {
		if t.Name == CurrentTheme.Name {
			CurrentTheme = Themes[(i+1)%len(Themes)]
			return
		}
	}
	CurrentTheme = ThemeInk
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}
