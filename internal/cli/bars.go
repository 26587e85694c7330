package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/hyperjump/kabbel/internal/models"
)

const (
	barWidth    = 40
	barFill     = "█"
	defaultBarC = "#888888"
)

// BarLength scales count to at most width cells relative to top.
// Any non-zero count gets at least one cell.
func BarLength(count, top, width int) int {
	if count <= 0 || top <= 0 || width <= 0 {
		return 0
	}
	n := count * width / top
	if n == 0 {
		n = 1
	}
	return n
}

// RenderBars returns one coloured bar per party in the order of s.Counts.
func RenderBars(s *models.Statistics, colors map[string]string) string {
	maxCount := 0
	labelWidth := 0
	for _, c := range s.Counts {
		maxCount = max(maxCount, c.Count)
		labelWidth = max(labelWidth, len(c.Party))
	}
	label := lipgloss.NewStyle().Width(labelWidth + 1).Bold(true)
	var b strings.Builder
	for _, c := range s.Counts {
		color := colors[c.Party]
		if color == "" {
			color = defaultBarC
		}
		bar := lipgloss.NewStyle().Foreground(lipgloss.Color(color)).
			Render(strings.Repeat(barFill, BarLength(c.Count, maxCount, barWidth)))
		fmt.Fprintf(&b, "%s %s %d\n", label.Render(c.Party), bar, c.Count)
	}
	return b.String()
}

func writeBars(w io.Writer, s *models.Statistics, colors map[string]string) {
	fmt.Fprint(w, RenderBars(s, colors))
}
