/*
 * Package analyser turns a stream of audio samples into magnitude spectra.
 *
 * It keeps the most recent analysis window of samples, applies a Blackman
 * window, transforms it and smooths the magnitudes over time, the way a
 * browser analyser node does. Frequency data is read back synchronously,
 * once per display frame.
 */
package analyser

import (
	"fmt"
	"math"
	"math/cmplx"
	"sync"

	"github.com/andrepxx/go-dsp-guitar/fft"
	"github.com/metalblueberry/bard/pkg/circular"
	"github.com/mjibson/go-dsp/window"
	"github.com/viterin/vek"
)

const (
	DefaultWindowSize  = 4096
	DefaultSmoothing   = 0.8
	DefaultMinDecibels = -100.0
	DefaultMaxDecibels = -30.0
)

/*
 * Settings configure an Analyser.
 */
type Settings struct {
	// WindowSize is the number of samples per transform, a power of two.
	// The analyser yields WindowSize/2 frequency bins.
	WindowSize int
	// Smoothing in [0, 1) blends each frame with the previous one.
	Smoothing float64
	// MinDecibels and MaxDecibels map to 0 and 255 in ByteFrequencyData.
	MinDecibels float64
	MaxDecibels float64
}

/*
 * DefaultSettings mirror the analyser defaults of the web audio API, with
 * a 4096 sample window.
 */
func DefaultSettings() Settings {
	return Settings{
		WindowSize:  DefaultWindowSize,
		Smoothing:   DefaultSmoothing,
		MinDecibels: DefaultMinDecibels,
		MaxDecibels: DefaultMaxDecibels,
	}
}

/*
 * Validate reports inconsistent settings.
 */
func (s Settings) Validate() error {
	if s.WindowSize < 32 {
		return fmt.Errorf("window size %d too small", s.WindowSize)
	}

	if p, _ := fft.NextPowerOfTwo(uint64(s.WindowSize)); p != uint64(s.WindowSize) {
		return fmt.Errorf("window size %d is not a power of two", s.WindowSize)
	}

	if s.Smoothing < 0 || s.Smoothing >= 1 {
		return fmt.Errorf("smoothing %v out of [0, 1)", s.Smoothing)
	}

	if s.MinDecibels >= s.MaxDecibels {
		return fmt.Errorf("decibel range [%v, %v] is empty", s.MinDecibels, s.MaxDecibels)
	}

	return nil
}

/*
 * Analyser is safe for one writer (the audio callback) and one reader (the
 * frame loop) running concurrently.
 */
type Analyser struct {
	settings Settings
	samples  *circular.Buffer[float64]
	ft       fft.FourierTransform
	window   []float64
	gain     float64

	mu       sync.Mutex
	bufTime  []float64
	bufFFT   []complex128
	current  []float64
	smoothed []float64

	// owned by the writer
	scratch []float64
}

/*
 * New creates an analyser.
 */
func New(settings Settings) (*Analyser, error) {
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid analyser settings: %w", err)
	}

	n := settings.WindowSize
	a := &Analyser{
		settings: settings,
		samples:  circular.CreateBuffer[float64](n),
		ft:       fft.CreateFourierTransform(),
		window:   window.Blackman(n),
		bufTime:  make([]float64, n),
		bufFFT:   make([]complex128, n),
		current:  make([]float64, n/2),
		smoothed: make([]float64, n/2),
	}

	gain, err := a.calibrate()

	if err != nil {
		return nil, err
	}

	a.gain = gain
	return a, nil
}

/*
 * calibrate transforms a unit impulse to learn the scaling of the forward
 * transform, so that magnitudes come out as |X[k]| / N.
 */
func (a *Analyser) calibrate() (float64, error) {
	fft.ZeroFloat(a.bufTime)
	a.bufTime[0] = 1

	if err := a.ft.RealFourier(a.bufTime, a.bufFFT, fft.SCALING_DEFAULT); err != nil {
		return 0, fmt.Errorf("cannot calculate forward FFT: %w", err)
	}

	unit := cmplx.Abs(a.bufFFT[0])

	if unit == 0 || math.IsNaN(unit) {
		return 0, fmt.Errorf("forward FFT of an impulse is zero")
	}

	return 1 / (unit * float64(a.settings.WindowSize)), nil
}

/*
 * Settings returns the settings the analyser was created with.
 */
func (a *Analyser) Settings() Settings {
	return a.settings
}

/*
 * BinCount is the number of frequency bins, half the window size.
 */
func (a *Analyser) BinCount() int {
	return a.settings.WindowSize / 2
}

/*
 * Process appends captured samples. Only the most recent window is kept.
 * It must only be called from the single writer.
 */
func (a *Analyser) Process(samples []float32) {
	if cap(a.scratch) < len(samples) {
		a.scratch = make([]float64, len(samples))
	}

	buf := a.scratch[:len(samples)]

	for i, s := range samples {
		buf[i] = float64(s)
	}

	a.samples.Enqueue(buf...)
}

/*
 * ProcessFloat64 is Process for float64 samples.
 */
func (a *Analyser) ProcessFloat64(samples []float64) {
	a.samples.Enqueue(samples...)
}

/*
 * Reset forgets captured samples and the smoothing history.
 */
func (a *Analyser) Reset() {
	a.samples.Reset()
	a.mu.Lock()

	for i := range a.smoothed {
		a.smoothed[i] = 0
	}

	a.mu.Unlock()
}

/*
 * analyse runs one transform over the current window and updates the
 * smoothed spectrum. Must be called with mu held.
 */
func (a *Analyser) analyse() error {
	if err := a.samples.Retrieve(a.bufTime); err != nil {
		return fmt.Errorf("cannot retrieve samples: %w", err)
	}

	vek.Mul_Inplace(a.bufTime, a.window)

	if err := a.ft.RealFourier(a.bufTime, a.bufFFT, fft.SCALING_DEFAULT); err != nil {
		return fmt.Errorf("cannot calculate forward FFT: %w", err)
	}

	for i := range a.current {
		v := cmplx.Abs(a.bufFFT[i]) * a.gain

		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
		}

		a.current[i] = v
	}

	tau := a.settings.Smoothing
	vek.MulNumber_Inplace(a.smoothed, tau)
	vek.MulNumber_Inplace(a.current, 1-tau)
	vek.Add_Inplace(a.smoothed, a.current)
	return nil
}

/*
 * FloatFrequencyData analyses the current window and writes the linear,
 * smoothed magnitude of each bin into dst.
 */
func (a *Analyser) FloatFrequencyData(dst []float64) error {
	if len(dst) != a.BinCount() {
		return fmt.Errorf("target buffer has %d bins, analyser has %d", len(dst), a.BinCount())
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.analyse(); err != nil {
		return err
	}

	copy(dst, a.smoothed)
	return nil
}

/*
 * ByteFrequencyData analyses the current window and writes the magnitude
 * of each bin in decibels, mapped linearly from [MinDecibels, MaxDecibels]
 * onto the integers 0..255.
 */
func (a *Analyser) ByteFrequencyData(dst []float64) error {
	if err := a.FloatFrequencyData(dst); err != nil {
		return err
	}

	lo := a.settings.MinDecibels
	scale := 255 / (a.settings.MaxDecibels - lo)

	for i, m := range dst {
		db := 20 * math.Log10(m)
		v := math.Floor(scale * (db - lo))

		switch {
		case math.IsNaN(v) || v < 0:
			v = 0
		case v > 255:
			v = 255
		}

		dst[i] = v
	}

	return nil
}
