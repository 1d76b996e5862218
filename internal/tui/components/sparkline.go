package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var levels = []rune{' ', '▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline is a one-row scrolling chart of the last Width samples.
type Sparkline struct {
	Data  []float64
	Width int
	Max   float64
	Style lipgloss.Style
	Label string
	Unit  string
}

func NewSparkline(width int, label, unit string, style lipgloss.Style) Sparkline {
	return Sparkline{
		Width: width,
		Label: label,
		Unit:  unit,
		Style: style,
		Data:  make([]float64, 0, width),
	}
}

func (s *Sparkline) Add(val float64) {
	s.Data = append(s.Data, val)
	if s.Width > 0 && len(s.Data) > s.Width {
		s.Data = s.Data[len(s.Data)-s.Width:]
	}

	// Scale to the visible window.
	s.Max = 0
	for _, v := range s.Data {
		if v > s.Max {
			s.Max = v
		}
	}
}

func (s *Sparkline) Resize(width int) {
	if width < 10 {
		width = 10
	}
	s.Width = width
	if len(s.Data) > width {
		s.Data = s.Data[len(s.Data)-width:]
	}
}

// Graph renders only the bars, left aligned and padded to Width.
func (s Sparkline) Graph() string {
	var graph strings.Builder
	for _, v := range s.Data {
		idx := 0
		if s.Max > 0 {
			idx = int(v / s.Max * float64(len(levels)-1))
		}
		if idx < 0 {
			idx = 0
		}
		if idx >= len(levels) {
			idx = len(levels) - 1
		}
		graph.WriteRune(levels[idx])
	}

	if pad := s.Width - len(s.Data); pad > 0 {
		graph.WriteString(strings.Repeat(" ", pad))
	}
	return graph.String()
}

func (s Sparkline) View() string {
	if s.Width <= 0 {
		return ""
	}

	last := 0.0
	if len(s.Data) > 0 {
		last = s.Data[len(s.Data)-1]
	}

	title := fmt.Sprintf("%s: %.1f %s", s.Label, last, s.Unit)
	return s.Style.Render(title) + "\n" + s.Style.Render(s.Graph())
}
