/*
 * Package tone plays reference tones: short sine waves at a target pitch,
 * at most one at a time.
 */
package tone

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"
)

const (
	DefaultDuration   = time.Second
	DefaultSampleRate = 44100
	DefaultVolume     = 0.5
)

/*
 * ErrOutput wraps failures of the audio output.
 */
var ErrOutput = errors.New("audio output failed")

/*
 * Request describes one tone. It is consumed by a single Play call.
 */
type Request struct {
	Frequency float64
	Amplitude float64
	Duration  time.Duration
}

/*
 * Output plays PCM audio: signed 16-bit little-endian, two interleaved
 * channels, at SampleRate.
 */
type Output interface {
	Play(pcm io.Reader) (Voice, error)
	SampleRate() int
}

/*
 * Voice is a sound started by an Output.
 */
type Voice interface {
	// Stop silences the voice and releases it. It may be called after the
	// voice has ended by itself.
	Stop() error
}

/*
 * Generator owns the output for reference tones. Each Play preempts the
 * previous tone. It is meant to be driven from a single goroutine.
 */
type Generator struct {
	out     Output
	logger  *slog.Logger
	muted   bool
	current Voice
}

/*
 * NewGenerator creates a generator playing through out.
 */
func NewGenerator(out Output, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}

	return &Generator{out: out, logger: logger.With("component", "tone")}
}

/*
 * SetMuted mutes or unmutes future tones.
 */
func (g *Generator) SetMuted(muted bool) {
	g.muted = muted
}

/*
 * Muted reports whether tones are muted.
 */
func (g *Generator) Muted() bool {
	return g.muted
}

/*
 * Play stops the sounding tone, if any, then starts req unless muted. A
 * muted generator schedules nothing. A zero Duration plays DefaultDuration.
 * An output failure affects only this request.
 */
func (g *Generator) Play(req Request) error {
	if err := g.Stop(); err != nil {
		g.logger.Warn("cannot stop previous tone", "err", err)
	}

	if g.muted {
		return nil
	}

	if !(req.Frequency > 0) {
		return fmt.Errorf("invalid tone frequency %v", req.Frequency)
	}

	if req.Duration <= 0 {
		req.Duration = DefaultDuration
	}

	src := NewSine(req.Frequency, req.Amplitude, g.out.SampleRate(), req.Duration)
	voice, err := g.out.Play(src)

	if err != nil {
		g.logger.Error("cannot play tone", "frequency", req.Frequency, "err", err)
		return fmt.Errorf("%w: %v", ErrOutput, err)
	}

	g.current = voice
	g.logger.Debug("tone", "frequency", req.Frequency, "amplitude", req.Amplitude, "duration", req.Duration)
	return nil
}

/*
 * Stop silences the current tone. It is safe to call at any time.
 */
func (g *Generator) Stop() error {
	if g.current == nil {
		return nil
	}

	v := g.current
	g.current = nil
	return v.Stop()
}

/*
 * Sine is a finite sine wave encoded as 16-bit little-endian stereo PCM.
 */
type Sine struct {
	step      float64
	amplitude float64
	frames    int64
	pos       int64 // in bytes
	sample    int16
	sampleAt  int64
}

const bytesPerFrame = 4

/*
 * NewSine returns a reader of duration worth of a sine at frequency. The
 * amplitude is clamped to [0, 1].
 */
func NewSine(frequency, amplitude float64, sampleRate int, duration time.Duration) *Sine {
	amplitude = math.Max(0, math.Min(1, amplitude))
	frames := int64(math.Round(duration.Seconds() * float64(sampleRate)))

	return &Sine{
		step:      2 * math.Pi * frequency / float64(sampleRate),
		amplitude: amplitude,
		frames:    frames,
		sampleAt:  -1,
	}
}

/*
 * Len returns the total size of the stream in bytes.
 */
func (s *Sine) Len() int64 {
	return s.frames * bytesPerFrame
}

/*
 * Read implements io.Reader.
 */
func (s *Sine) Read(p []byte) (int, error) {
	total := s.Len()

	if s.pos >= total {
		return 0, io.EOF
	}

	n := 0

	for n < len(p) && s.pos < total {
		frame := s.pos / bytesPerFrame

		if frame != s.sampleAt {
			s.sample = int16(math.Round(s.amplitude * math.MaxInt16 * math.Sin(s.step*float64(frame))))
			s.sampleAt = frame
		}

		// both channels carry the same sample, low byte first
		if s.pos%2 == 0 {
			p[n] = byte(uint16(s.sample))
		} else {
			p[n] = byte(uint16(s.sample) >> 8)
		}

		n++
		s.pos++
	}

	return n, nil
}
