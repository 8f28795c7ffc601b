package viz

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type styles struct {
	header   lipgloss.Style
	panel    lipgloss.Style
	label    lipgloss.Style
	value    lipgloss.Style
	active   lipgloss.Style
	graph    lipgloss.Style
	help     lipgloss.Style
	running  lipgloss.Style
	paused   lipgloss.Style
	failed   lipgloss.Style
	finished lipgloss.Style
}

// themed builds the styles of the current theme.
func themed() styles {
	th := CurrentTheme
	return styles{
		header: lipgloss.NewStyle().Bold(true).Foreground(th.Primary).
			BorderStyle(lipgloss.NormalBorder()).BorderBottom(true).BorderForeground(th.Muted),
		panel: lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(th.Muted).
			Padding(0, 2).Width(44),
		label:    lipgloss.NewStyle().Foreground(th.Muted).Width(12),
		value:    lipgloss.NewStyle().Foreground(th.Text),
		active:   lipgloss.NewStyle().Foreground(th.Accent).Bold(true),
		graph:    lipgloss.NewStyle().Foreground(th.Secondary).Padding(1, 0),
		help:     lipgloss.NewStyle().Foreground(th.Muted).Italic(true).MarginTop(1),
		running:  lipgloss.NewStyle().Bold(true).Foreground(th.Success),
		paused:   lipgloss.NewStyle().Bold(true).Foreground(th.Warning),
		failed:   lipgloss.NewStyle().Bold(true).Foreground(th.Error),
		finished: lipgloss.NewStyle().Bold(true).Foreground(th.Secondary),
	}
}

// ProgressBar renders the fraction of the horizon already simulated.
func ProgressBar(fraction float64, width int) string {
	if math.IsNaN(fraction) {
		fraction = 0
	}
	filled := int(fraction * float64(width))
	filled = max(0, min(filled, width))
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return lipgloss.NewStyle().Foreground(CurrentTheme.Primary).Render(bar)
}

// Sparkline renders values as block characters, sampling to fit width.
// Missing values are drawn as spaces.
func Sparkline(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return strings.Repeat("─", max(width, 0))
	}
	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if !math.IsNaN(v) {
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
	}
	rng := hi - lo
	if rng == 0 || math.IsInf(rng, 0) || math.IsNaN(rng) {
		rng = 1
	}

	step := max(len(values)/width, 1)
	var sb strings.Builder
	for i := 0; i < width && i*step < len(values); i++ {
		v := values[i*step]
		if math.IsNaN(v) {
			sb.WriteRune(' ')
			continue
		}
		idx := int((v - lo) / rng * float64(len(chars)-1))
		sb.WriteRune(chars[max(0, min(idx, len(chars)-1))])
	}
	return sb.String()
}
