/*
 * Package loop implements the acquisition loop of the tuner: a two state
 * machine (Idle, Listening) that, once per host frame, reads the current
 * spectrum, estimates the pitch and publishes a tuner.Status.
 *
 * A Loop is cooperative and not safe for concurrent use: Start, Stop,
 * SelectPreset and the queries must be called from the goroutine that ticks
 * the Scheduler, usually the renderer's update loop.
 */
package loop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/metalblueberry/bard/pkg/tuner"
	"github.com/metalblueberry/bard/pkg/tuning"
)

var (
	// ErrPermissionDenied is returned when the host refuses access to the
	// audio input.
	ErrPermissionDenied = errors.New("permission to capture audio denied")
	// ErrDeviceUnavailable is returned when no audio input can be opened.
	ErrDeviceUnavailable = errors.New("audio input device unavailable")
	// ErrDeviceLost is recorded when an open input stops delivering audio.
	ErrDeviceLost = errors.New("audio input device lost")
	// ErrNotListening is returned by queries that need an open input.
	ErrNotListening = errors.New("not listening")
)

/*
 * Input acquires the audio input resource.
 */
type Input interface {
	// Open may block, e.g. waiting for the user to grant access.
	Open(ctx context.Context) (Stream, error)
}

/*
 * Stream is an open audio input that yields one magnitude spectrum per
 * read. Reads never block.
 */
type Stream interface {
	ReadFrequencyData(dst []float64) error
	BinCount() int
	SampleRate() float64
	// Err returns a non-nil error once the stream is lost for good.
	Err() error
	Close() error
}

/*
 * State of the acquisition loop.
 */
type State int

const (
	Idle State = iota
	Listening
)

func (s State) String() string {
	if s == Listening {
		return "listening"
	}

	return "idle"
}

/*
 * Loop is the acquisition loop.
 */
type Loop struct {
	input  Input
	sched  Scheduler
	tuner  *tuner.Tuner
	logger *slog.Logger

	state      State
	preset     tuning.Preset
	stream     Stream
	sampleRate float64
	buf        []float64
	cancel     func()
	generation uint64
	status     tuner.Status
	err        error
	frames     uint64
}

/*
 * New creates an idle loop analysing against preset. A nil logger logs to
 * slog.Default().
 */
func New(input Input, sched Scheduler, tn *tuner.Tuner, preset tuning.Preset, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}

	return &Loop{
		input:  input,
		sched:  sched,
		tuner:  tn,
		preset: preset,
		logger: logger.With("component", "loop"),
	}
}

/*
 * Start acquires the audio input and schedules the first frame. It is a
 * no-op while listening. On failure the loop stays idle and the error is
 * returned once; starting again is the only retry.
 */
func (l *Loop) Start(ctx context.Context) error {
	if l.state == Listening {
		return nil
	}

	stream, err := l.input.Open(ctx)

	if err != nil {
		l.err = err
		l.logger.Error("cannot acquire audio input", "err", err)
		return fmt.Errorf("cannot start listening: %w", err)
	}

	l.err = nil
	l.stream = stream
	l.sampleRate = stream.SampleRate()
	l.buf = make([]float64, stream.BinCount())
	l.status = tuner.Status{}
	l.state = Listening
	l.generation++
	l.logger.Debug("listening", "sampleRate", l.sampleRate, "bins", len(l.buf), "preset", l.preset.ID)
	l.arm()
	return nil
}

/*
 * Stop cancels the pending frame, releases the audio input and clears the
 * status. It is safe to call in any state, any number of times, including
 * from within a frame.
 */
func (l *Loop) Stop() {
	l.stop()
}

func (l *Loop) stop() {
	l.generation++

	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}

	if l.stream != nil {
		if err := l.stream.Close(); err != nil {
			l.logger.Warn("cannot release audio input", "err", err)
		}

		l.stream = nil
	}

	if l.state == Listening {
		l.logger.Debug("idle", "frames", l.frames)
	}

	l.status = tuner.Status{}
	l.state = Idle
}

func (l *Loop) arm() {
	gen := l.generation
	l.cancel = l.sched.Schedule(func() {
		l.frame(gen)
	})
}

/*
 * frame is one read-estimate-publish cycle. A frame scheduled before the
 * last Stop or Start carries a stale generation and does nothing.
 */
func (l *Loop) frame(gen uint64) {
	if l.state != Listening || gen != l.generation {
		return
	}

	l.cancel = nil
	l.frames++

	if err := l.stream.Err(); err != nil {
		l.err = fmt.Errorf("%w: %v", ErrDeviceLost, err)
		l.logger.Error("audio input lost", "err", err)
		l.stop()
		return
	}

	err := l.stream.ReadFrequencyData(l.buf)

	// the read may have stopped or restarted the loop
	if l.state != Listening || gen != l.generation {
		return
	}

	if err != nil {
		l.logger.Debug("frame skipped", "err", err)
	} else if status, ok := l.tuner.Analyze(l.buf, l.sampleRate, l.preset); ok {
		l.status = status
	}

	l.arm()
}

/*
 * SelectPreset switches the target tuning and clears the status at once,
 * before any further frame is analysed.
 */
func (l *Loop) SelectPreset(preset tuning.Preset) {
	l.preset = preset
	l.status = tuner.Status{}
}

/*
 * Preset returns the active tuning.
 */
func (l *Loop) Preset() tuning.Preset {
	return l.preset
}

/*
 * Status returns the latest published status. It is the empty status while
 * idle.
 */
func (l *Loop) Status() tuner.Status {
	return l.status
}

/*
 * State returns Idle or Listening.
 */
func (l *Loop) State() State {
	return l.state
}

/*
 * Err returns the error that last moved the loop to, or kept it in, Idle:
 * a failed Start or a lost device. A successful Start clears it.
 */
func (l *Loop) Err() error {
	return l.err
}

/*
 * Frames returns the number of frames processed since creation.
 */
func (l *Loop) Frames() uint64 {
	return l.frames
}

/*
 * SampleRate of the open input, 0 while idle.
 */
func (l *Loop) SampleRate() float64 {
	if l.state != Listening {
		return 0
	}

	return l.sampleRate
}

/*
 * Spectrum appends the magnitudes read in the latest frame to dst[:0].
 */
func (l *Loop) Spectrum(dst []float64) ([]float64, error) {
	if l.state != Listening {
		return dst[:0], ErrNotListening
	}

	return append(dst[:0], l.buf...), nil
}
