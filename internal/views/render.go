package views

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// Page is one screen of CLI output.
type Page struct {
	Header string
	Body   string
	Status string
	Footer string
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	panelStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func RenderPage(p Page) string {
	lines := make([]string, 0, 4)
	if p.Header != "" {
		lines = append(lines, headerStyle.Render(p.Header))
	}
	if p.Body != "" {
		lines = append(lines, p.Body)
	}
	if p.Status != "" {
		status := statusStyle.Render(p.Status)
		if strings.Contains(strings.ToLower(p.Status), "error") {
			status = errorStyle.Render(p.Status)
		}
		lines = append(lines, status)
	}
	if p.Footer != "" {
		lines = append(lines, footerStyle.Render(p.Footer))
	}
	return strings.Join(lines, "\n")
}

// SegmentColor is the display colour of a time segment hue.
func SegmentColor(hue int) lipgloss.Color {
	return lipgloss.Color(colorful.Hsv(float64(hue), 0.55, 0.85).Hex())
}

// RenderPanel draws body in a box whose border and title take the hue.
func RenderPanel(title, body string, hue int, width int) string {
	color := SegmentColor(hue)
	heading := lipgloss.NewStyle().Bold(true).Foreground(color).Render(title)
	style := panelStyle.BorderForeground(color)
	if width > 0 {
		style = style.Width(width)
	}
	return style.Render(heading + "\n" + body)
}

func RenderMarkdown(md string) string {
	if strings.TrimSpace(md) == "" {
		return ""
	}
	out, err := glamour.Render(md, "dark")
	if err != nil {
		return md
	}
	return strings.TrimSpace(out)
}
