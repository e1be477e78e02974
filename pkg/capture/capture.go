/*
 * Package capture opens the default audio input with PortAudio and feeds it
 * into an analyser.
 */
package capture

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/metalblueberry/bard/pkg/analyser"
	"github.com/metalblueberry/bard/pkg/loop"
)

/*
 * Source implements loop.Input on the default PortAudio input device.
 */
type Source struct {
	// SampleRate requested from the device, 0 for its default rate.
	SampleRate float64
	// FramesPerBuffer per callback, 0 lets PortAudio choose.
	FramesPerBuffer int
	// StallTimeout after which a started stream without callbacks counts
	// as lost, 0 disables the check.
	StallTimeout time.Duration
	Analyser     analyser.Settings
	Logger       *slog.Logger
}

/*
 * Open initializes PortAudio, opens a mono input stream on the default
 * device and starts it.
 */
func (s *Source) Open(ctx context.Context) (loop.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger := s.Logger

	if logger == nil {
		logger = slog.Default()
	}

	a, err := analyser.New(s.Analyser)

	if err != nil {
		return nil, err
	}

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("%w: cannot initialize PortAudio: %v", loop.ErrDeviceUnavailable, err)
	}

	device, err := portaudio.DefaultInputDevice()

	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("%w: no default input: %v", loop.ErrDeviceUnavailable, err)
	}

	rate := s.SampleRate

	if rate <= 0 {
		rate = device.DefaultSampleRate
	}

	st := &stream{
		analyser:   a,
		sampleRate: rate,
		stall:      s.StallTimeout,
		logger:     logger.With("component", "capture", "device", device.Name),
	}

	st.pa, err = portaudio.OpenDefaultStream(1, 0, rate, s.FramesPerBuffer, st.processAudio)

	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("%w: cannot open %q: %v", loop.ErrDeviceUnavailable, device.Name, err)
	}

	if err := ctx.Err(); err != nil {
		st.pa.Close()
		portaudio.Terminate()
		return nil, err
	}

	st.started = time.Now()

	if err := st.pa.Start(); err != nil {
		st.pa.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("%w: cannot start %q: %v", loop.ErrDeviceUnavailable, device.Name, err)
	}

	st.logger.Info("capture started", "sampleRate", rate, "bins", a.BinCount())
	return st, nil
}

type stream struct {
	pa         *portaudio.Stream
	analyser   *analyser.Analyser
	sampleRate float64
	stall      time.Duration
	started    time.Time
	logger     *slog.Logger

	lastCallback atomic.Int64
	closeOnce    sync.Once
	closeErr     error
}

/*
 * processAudio runs on the PortAudio callback thread.
 */
func (st *stream) processAudio(in []float32) {
	st.analyser.Process(in)
	st.lastCallback.Store(time.Now().UnixNano())
}

func (st *stream) ReadFrequencyData(dst []float64) error {
	return st.analyser.ByteFrequencyData(dst)
}

func (st *stream) BinCount() int {
	return st.analyser.BinCount()
}

func (st *stream) SampleRate() float64 {
	return st.sampleRate
}

/*
 * Err reports a stream that has not called back for longer than the stall
 * timeout.
 */
func (st *stream) Err() error {
	if st.stall <= 0 {
		return nil
	}

	last := st.started

	if ns := st.lastCallback.Load(); ns != 0 {
		last = time.Unix(0, ns)
	}

	if idle := time.Since(last); idle > st.stall {
		return fmt.Errorf("no audio for %v", idle.Round(time.Millisecond))
	}

	return nil
}

/*
 * Close stops the stream and releases PortAudio. Only the first call has
 * any effect.
 */
func (st *stream) Close() error {
	st.closeOnce.Do(func() {
		if err := st.pa.Stop(); err != nil {
			st.logger.Warn("cannot stop stream", "err", err)
		}

		if err := st.pa.Close(); err != nil {
			st.closeErr = fmt.Errorf("cannot close stream: %w", err)
		}

		if err := portaudio.Terminate(); err != nil && st.closeErr == nil {
			st.closeErr = fmt.Errorf("cannot terminate PortAudio: %w", err)
		}

		st.logger.Info("capture stopped")
	})
	return st.closeErr
}
