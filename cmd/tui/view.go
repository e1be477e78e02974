package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/metalblueberry/bard/pkg/session"
	"github.com/metalblueberry/bard/pkg/tuner"
)

const meterWidth = 51

var (
	frameStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(1, 2)
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	noteStyle     = lipgloss.NewStyle().Bold(true).Width(4).Align(lipgloss.Center)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	inTuneColor = lipgloss.Color("42")
	mildColor   = lipgloss.Color("214")
	severeColor = lipgloss.Color("196")
)

func statusColor(s tuner.Status) lipgloss.Color {
	switch {
	case s.Band == tuner.InTune:
		return inTuneColor
	case s.Severity == tuner.Severe:
		return severeColor
	default:
		return mildColor
	}
}

// meterBar renders the deviation as a needle over a -50..+50 cent scale.
func meterBar(s tuner.Status) string {
	bar := []rune(strings.Repeat("─", meterWidth))
	bar[meterWidth/2] = '┼'

	if !s.Empty() {
		pos := int(s.MeterPosition() / 100 * float64(meterWidth-1))
		bar[pos] = '█'
	}

	return string(bar)
}

func render(st session.State, notice string) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(st.Preset.Name))
	b.WriteString("\n\n")

	for i, s := range st.Preset.Strings {
		line := fmt.Sprintf("%d  %-3s %7.2f Hz", i+1, s.Label, s.Frequency)

		if i == st.SelectedString {
			line = selectedStyle.Render("▸ " + line)
		} else {
			line = "  " + line
		}

		b.WriteString(line + "\n")
	}

	b.WriteString("\n")
	status := st.Status

	switch {
	case st.Err != nil && !st.Listening:
		b.WriteString(errorStyle.Render("Microphone unavailable: " + st.Err.Error()))
	case !st.Listening:
		b.WriteString(dimStyle.Render("Press space to start tuning"))
	case status.Empty():
		b.WriteString(dimStyle.Render(status.Label()))
	default:
		clr := statusColor(status)
		b.WriteString(noteStyle.Foreground(clr).Render(status.Note))
		b.WriteString(fmt.Sprintf(" %7.2f Hz  %+4d cents  ", status.Frequency, status.Cents))
		b.WriteString(lipgloss.NewStyle().Foreground(clr).Render(status.Label()))
	}

	b.WriteString("\n\n")
	meter := meterBar(status)

	if !status.Empty() {
		meter = lipgloss.NewStyle().Foreground(statusColor(status)).Render(meter)
	}

	b.WriteString(meter + "\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("%-*s%s", meterWidth-3, "-50", "+50")))
	b.WriteString("\n\n")

	volume := fmt.Sprintf("Volume %3.0f%%", st.Volume*100)

	if st.Muted {
		volume += " (muted)"
	}

	b.WriteString(volume + "\n")

	if notice != "" {
		b.WriteString(errorStyle.Render(notice) + "\n")
	}

	b.WriteString(dimStyle.Render("space listen · 1-6/enter tone · m mute · ↑↓ volume · ←→ tuning · q quit"))
	return frameStyle.Render(b.String())
}
