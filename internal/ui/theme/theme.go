package theme

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Catppuccin mocha.
var (
	Surface1 = lipgloss.Color("#45475a")
	Text     = lipgloss.Color("#cdd6f4")
	Subtext0 = lipgloss.Color("#a6adc8")
	Sapphire = lipgloss.Color("#74c7ec")
	Green    = lipgloss.Color("#a6e3a1")
	Peach    = lipgloss.Color("#fab387")
	Red      = lipgloss.Color("#f38ba8")

	Title = lipgloss.NewStyle().Foreground(Sapphire).Bold(true)
	Muted = lipgloss.NewStyle().Foreground(Subtext0)
	Pass  = lipgloss.NewStyle().Foreground(Green).Bold(true)
	Fail  = lipgloss.NewStyle().Foreground(Red).Bold(true)
	Warn  = lipgloss.NewStyle().Foreground(Peach)

	header = lipgloss.NewStyle().Foreground(Sapphire).Bold(true).Padding(0, 1)
	cell   = lipgloss.NewStyle().Foreground(Text).Padding(0, 1)
)

// Verdict renders the holding-time outcome.
func Verdict(held bool) string {
	if held {
		return Pass.Render("PASS")
	}
	return Fail.Render("FAIL")
}

func Warning(msg string) string {
	return Warn.Render("! " + msg)
}

// Warnings renders one line per message, or nothing.
func Warnings(msgs []string) string {
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		lines = append(lines, Warning(m))
	}
	return strings.Join(lines, "\n")
}

func Table(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Surface1)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		})
	return t.Render()
}
