// Command tui is the terminal guitar tuner.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/metalblueberry/bard/pkg/config"
	"github.com/metalblueberry/bard/pkg/loop"
	"github.com/metalblueberry/bard/pkg/session"
	"github.com/metalblueberry/bard/pkg/tone"
	"github.com/metalblueberry/bard/pkg/tuner"
	"github.com/metalblueberry/bard/pkg/tuning"
)

type frameMsg time.Time

type model struct {
	session *session.Session
	clock   *loop.FrameClock
	frame   time.Duration
	notice  string
}

func (m model) tick() tea.Cmd {
	return tea.Tick(m.frame, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

func (m model) Init() tea.Cmd { return m.tick() }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case frameMsg:
		m.clock.Tick()
		return m, m.tick()

	case tea.KeyMsg:
		m.notice = ""

		switch msg.String() {
		case "ctrl+c", "esc", "q":
			return m, tea.Quit
		case " ":
			if err := m.session.Toggle(context.Background()); err != nil {
				m.notice = err.Error()
			}
		case "m":
			m.session.ToggleMute()
		case "up", "+":
			m.session.VolumeUp()
		case "down", "-":
			m.session.VolumeDown()
		case "right", "tab":
			m.session.NextPreset(1)
		case "left", "shift+tab":
			m.session.NextPreset(-1)
		case "enter":
			m.play(m.session.PlaySelected())
		case "1", "2", "3", "4", "5", "6":
			m.play(m.session.PlayString(int(msg.String()[0] - '1')))
		}
	}

	return m, nil
}

func (m *model) play(err error) {
	if err != nil {
		m.notice = err.Error()
	}
}

func (m model) View() string {
	return render(m.session.State(), m.notice)
}

func main() {
	cfg, err := config.Parse(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger := cfg.Logger()

	out, err := tone.NewOtoOutput(cfg.Tone.SampleRate)
	if err != nil {
		logger.Error("cannot open audio output", "err", err)
		os.Exit(1)
	}

	table := tuning.Default()
	clock := loop.NewFrameClock()
	lp := loop.New(cfg.Source(logger), clock, tuner.Create(cfg.TunerSettings()), table.MustPreset(cfg.Tuner.Preset), logger)
	s := session.New(table, lp, tone.NewGenerator(out, logger), session.Options{
		PresetID:     cfg.Tuner.Preset,
		Volume:       cfg.Tone.Volume,
		ToneDuration: cfg.Tone.Duration,
	}, logger)
	defer s.Close()

	m := model{
		session: s,
		clock:   clock,
		frame:   time.Second / time.Duration(cfg.UI.RefreshRate),
	}

	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		logger.Error("terminal ui failed", "err", err)
		os.Exit(1)
	}

}
