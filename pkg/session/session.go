/*
 * Package session keeps the state of a tuner application and maps user
 * intents onto the acquisition loop and the reference tone generator.
 * Renderers read State once per frame and call the intent methods; they
 * never touch the loop or the generator directly.
 */
package session

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/metalblueberry/bard/pkg/loop"
	"github.com/metalblueberry/bard/pkg/tone"
	"github.com/metalblueberry/bard/pkg/tuner"
	"github.com/metalblueberry/bard/pkg/tuning"
)

const volumeSteps = 10

/*
 * VolumeStep is the change applied by VolumeUp and VolumeDown.
 */
const VolumeStep = 1.0 / volumeSteps

/*
 * State is a snapshot of everything a renderer shows.
 */
type State struct {
	Preset         tuning.Preset
	SelectedString int
	Muted          bool
	Volume         float64
	Listening      bool
	Status         tuner.Status
	// Err is the last acquisition error, nil after a successful start.
	Err error
}

type Options struct {
	PresetID     string
	Volume       float64
	ToneDuration time.Duration
}

/*
 * Session is not safe for concurrent use. All calls must come from the
 * goroutine that ticks the loop's scheduler.
 */
type Session struct {
	table  *tuning.Table
	loop   *loop.Loop
	tone   *tone.Generator
	logger *slog.Logger

	selected int
	volume   float64
	duration time.Duration
}

/*
 * New creates a session over an idle loop. It panics if opts.PresetID is
 * not in table.
 */
func New(table *tuning.Table, lp *loop.Loop, gen *tone.Generator, opts Options, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Session{
		table:    table,
		loop:     lp,
		tone:     gen,
		logger:   logger.With("component", "session"),
		duration: opts.ToneDuration,
	}
	s.SetVolume(opts.Volume)
	s.SelectPreset(opts.PresetID)
	return s
}

/*
 * State returns the current snapshot.
 */
func (s *Session) State() State {
	return State{
		Preset:         s.loop.Preset(),
		SelectedString: s.selected,
		Muted:          s.tone.Muted(),
		Volume:         s.volume,
		Listening:      s.loop.State() == loop.Listening,
		Status:         s.loop.Status(),
		Err:            s.loop.Err(),
	}
}

/*
 * Start begins listening. The error is also kept in State until the next
 * successful start.
 */
func (s *Session) Start(ctx context.Context) error {
	return s.loop.Start(ctx)
}

func (s *Session) Stop() {
	s.loop.Stop()
}

/*
 * Toggle starts listening when idle and stops otherwise.
 */
func (s *Session) Toggle(ctx context.Context) error {
	if s.loop.State() == loop.Listening {
		s.loop.Stop()
		return nil
	}

	return s.loop.Start(ctx)
}

/*
 * SelectPreset switches tuning, selects its first string and clears the
 * status. Unknown ids panic.
 */
func (s *Session) SelectPreset(id string) {
	preset := s.table.MustPreset(id)
	s.loop.SelectPreset(preset)
	s.selected = 0
	s.logger.Debug("preset", "id", id)
}

/*
 * NextPreset moves step presets forward in table order, wrapping around.
 */
func (s *Session) NextPreset(step int) {
	s.SelectPreset(s.table.Next(s.loop.Preset().ID, step))
}

/*
 * SelectString selects string i of the active preset. An index outside
 * the preset is ignored and reported as false.
 */
func (s *Session) SelectString(i int) bool {
	if i < 0 || i >= len(s.loop.Preset().Strings) {
		return false
	}

	s.selected = i
	return true
}

/*
 * PlayString selects string i and plays its reference tone at the session
 * volume.
 */
func (s *Session) PlayString(i int) error {
	if !s.SelectString(i) {
		return fmt.Errorf("no string %d in %s", i, s.loop.Preset().ID)
	}

	return s.PlaySelected()
}

/*
 * PlaySelected plays the reference tone of the selected string.
 */
func (s *Session) PlaySelected() error {
	target := s.loop.Preset().Strings[s.selected]

	return s.tone.Play(tone.Request{
		Frequency: target.Frequency,
		Amplitude: s.volume,
		Duration:  s.duration,
	})
}

func (s *Session) ToggleMute() {
	s.tone.SetMuted(!s.tone.Muted())
}

/*
 * SetVolume clamps v to [0, 1] and rounds it to a VolumeStep.
 */
func (s *Session) SetVolume(v float64) {
	v = math.Round(v*volumeSteps) / volumeSteps
	s.volume = math.Max(0, math.Min(1, v))
}

func (s *Session) VolumeUp() {
	s.SetVolume(s.volume + VolumeStep)
}

func (s *Session) VolumeDown() {
	s.SetVolume(s.volume - VolumeStep)
}

/*
 * Spectrum returns the magnitudes of the latest frame, see loop.Spectrum.
 */
func (s *Session) Spectrum(dst []float64) ([]float64, error) {
	return s.loop.Spectrum(dst)
}

/*
 * SampleRate of the open input, 0 while idle.
 */
func (s *Session) SampleRate() float64 {
	return s.loop.SampleRate()
}

/*
 * Close stops listening and silences any sounding tone.
 */
func (s *Session) Close() {
	s.loop.Stop()

	if err := s.tone.Stop(); err != nil {
		s.logger.Warn("cannot stop tone", "err", err)
	}

}
