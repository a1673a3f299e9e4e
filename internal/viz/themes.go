package viz

import "github.com/charmbracelet/lipgloss"

// Theme colors the canvas and the stats panel.
type Theme struct {
	Name     string
	Primary  lipgloss.Color
	Accent   lipgloss.Color
	Muted    lipgloss.Color
	Selected lipgloss.Color
}

var (
	ThemeCyberpunk = Theme{
		Name:     "cyberpunk",
		Primary:  lipgloss.Color("#00ffff"),
		Accent:   lipgloss.Color("#ff00ff"),
		Muted:    lipgloss.Color("#666666"),
		Selected: lipgloss.Color("#ffff00"),
	}

	ThemeRetroGreen = Theme{
		Name:     "retro",
		Primary:  lipgloss.Color("#00ff00"),
		Accent:   lipgloss.Color("#88ff88"),
		Muted:    lipgloss.Color("#005500"),
		Selected: lipgloss.Color("#ffff00"),
	}

	ThemeMinimal = Theme{
		Name:     "minimal",
		Primary:  lipgloss.Color("#ffffff"),
		Accent:   lipgloss.Color("#0088ff"),
		Muted:    lipgloss.Color("#888888"),
		Selected: lipgloss.Color("#0088ff"),
	}

	ThemeOcean = Theme{
		Name:     "ocean",
		Primary:  lipgloss.Color("#00a8cc"),
		Accent:   lipgloss.Color("#ffd700"),
		Muted:    lipgloss.Color("#4488aa"),
		Selected: lipgloss.Color("#ffd700"),
	}

	ThemeSunset = Theme{
		Name:     "sunset",
		Primary:  lipgloss.Color("#ff6b6b"),
		Accent:   lipgloss.Color("#feca57"),
		Muted:    lipgloss.Color("#8b6b8c"),
		Selected: lipgloss.Color("#ff9ff3"),
	}

	Themes = []Theme{
		ThemeCyberpunk,
		ThemeRetroGreen,
		ThemeMinimal,
		ThemeOcean,
		ThemeSunset,
	}
)

// GetTheme returns a theme by name, falling back to cyberpunk.
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return ThemeCyberpunk
}

// NextTheme returns the theme after t, wrapping around.
func NextTheme(t Theme) Theme {
	for i, th := range Themes {
		if th.Name == t.Name {
			return Themes[(i+1)%len(Themes)]
		}
	}
	return Themes[0]
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}
