package doctor

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme defines the colors used in the doctor report.
type Theme struct {
	Primary   lipgloss.Color // title
	Error     lipgloss.Color // failed checks
	Warning   lipgloss.Color // degraded checks
	Success   lipgloss.Color // passing checks
	Text      lipgloss.Color
	TextMuted lipgloss.Color // details
}

// DarkTheme returns the default dark theme.
func DarkTheme() Theme {
	return Theme{
		Primary:   lipgloss.Color("#fab283"),
		Error:     lipgloss.Color("#e06c75"),
		Warning:   lipgloss.Color("#f5a742"),
		Success:   lipgloss.Color("#7fd88f"),
		Text:      lipgloss.Color("#eeeeee"),
		TextMuted: lipgloss.Color("#808080"),
	}
}

// LightTheme returns a theme for bright terminal backgrounds.
func LightTheme() Theme {
	return Theme{
		Primary:   lipgloss.Color("#b35c00"),
		Error:     lipgloss.Color("#cf222e"),
		Warning:   lipgloss.Color("#bf8700"),
		Success:   lipgloss.Color("#116329"),
		Text:      lipgloss.Color("#1f2328"),
		TextMuted: lipgloss.Color("#656d76"),
	}
}

// ThemeByName returns a theme by name. Defaults to dark.
func ThemeByName(name string) Theme {
	switch name {
	case "light":
		return LightTheme()
	default:
		return DarkTheme()
	}
}

type styles struct {
	title  lipgloss.Style
	name   lipgloss.Style
	detail lipgloss.Style
	marks  map[Status]lipgloss.Style
}

func newStyles(t Theme) styles {
	return styles{
		title:  lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		name:   lipgloss.NewStyle().Foreground(t.Text).Width(14),
		detail: lipgloss.NewStyle().Foreground(t.TextMuted),
		marks: map[Status]lipgloss.Style{
			StatusOK:   lipgloss.NewStyle().Foreground(t.Success),
			StatusWarn: lipgloss.NewStyle().Foreground(t.Warning),
			StatusFail: lipgloss.NewStyle().Foreground(t.Error).Bold(true),
		},
	}
}

var marks = map[Status]string{
	StatusOK:   "✓",
	StatusWarn: "!",
	StatusFail: "✗",
}

// Render formats checks as a titled list, one check per line.
func Render(title string, checks []Check, t Theme) string {
	st := newStyles(t)

	var b strings.Builder
	b.WriteString(st.title.Render(title))
	b.WriteString("\n\n")
	for _, c := range checks {
		b.WriteString("  ")
		b.WriteString(st.marks[c.Status].Render(marks[c.Status]))
		b.WriteString(" ")
		b.WriteString(st.name.Render(c.Name))
		b.WriteString(st.detail.Render(c.Detail))
		b.WriteString("\n")
	}
	return b.String()
}
