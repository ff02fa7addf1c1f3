package render

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	labelStyle   = lipgloss.NewStyle().Bold(true)
	cardStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)

// Terminal renders the view for a terminal. The report is printed as its
// markdown source.
func Terminal(v View, width int) string {
	var b strings.Builder

	if v.HasAnalysts() {
		b.WriteString(sectionStyle.Render("Analysts"))
		b.WriteString("\n")
		card := cardStyle
		if width > 4 {
			card = card.Width(width - 2)
		}
		for _, a := range v.Analysts {
			lines := []string{
				labelStyle.Render("Name:") + " " + a.Name,
				labelStyle.Render("Affiliation:") + " " + a.Affiliation,
				labelStyle.Render("Role:") + " " + a.Role,
				a.Description,
			}
			b.WriteString(card.Render(strings.Join(lines, "\n")))
			b.WriteString("\n")
		}
	}

	if v.HasReport() {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(sectionStyle.Render("Final Report"))
		b.WriteString("\n")
		b.WriteString(strings.TrimRight(v.FinalReport, "\n"))
		b.WriteString("\n")
	}
	return b.String()
}
