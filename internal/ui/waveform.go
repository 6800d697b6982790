package ui

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/dictate/internal/rms"
)

// maxAmplitude is the largest value rms.Display returns.
const maxAmplitude = 40.0

// waveBars converts timeline levels to bar half-heights in rows, 0..half.
func waveBars(timeline []float64, half int) []int {
	bars := make([]int, len(timeline))
	if half <= 0 {
		return bars
	}
	for i, v := range timeline {
		amp := rms.Display(v)
		h := int(math.Round(amp / maxAmplitude * float64(half)))
		if amp > 0 && h == 0 {
			h = 1
		}
		bars[i] = min(h, half)
	}
	return bars
}

// waveRows lays bars out as 2*half+1 text rows mirrored around a centre
// line. Silent slots draw the centre line only.
func waveRows(bars []int, half int) []string {
	rows := make([]strings.Builder, 2*half+1)
	for _, h := range bars {
		for r := range rows {
			dist := r - half
			if dist < 0 {
				dist = -dist
			}
			switch {
			case h > 0 && dist < h:
				rows[r].WriteRune('█')
			case h > 0 && dist == h:
				if r < half {
					rows[r].WriteRune('▄')
				} else {
					rows[r].WriteRune('▀')
				}
			case dist == 0:
				rows[r].WriteRune('─')
			default:
				rows[r].WriteRune(' ')
			}
		}
	}
	out := make([]string, len(rows))
	for i := range rows {
		out[i] = rows[i].String()
	}
	return out
}

// renderWaveform draws the timeline, colouring each row by its distance from
// the centre so loud passages stand out.
func (m Model) renderWaveform(half int, bgColor string) string {
	bars := waveBars(m.wave, half)
	rows := waveRows(bars, half)

	bg := lipgloss.Color(bgColor)
	idle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.Faint)).Background(bg)
	active := m.timeline != nil && m.timeline.Active()

	lines := make([]string, len(rows))
	for i, row := range rows {
		style := idle
		if active {
			dist := i - half
			if dist < 0 {
				dist = -dist
			}
			tier := 0
			if half > 0 {
				tier = min(dist*len(m.theme.Wave)/(half+1), len(m.theme.Wave)-1)
			}
			style = lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.Wave[tier])).Background(bg)
		}
		lines[i] = style.Render(row)
	}
	return strings.Join(lines, "\n")
}
