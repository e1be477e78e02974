package loop

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/metalblueberry/bard/pkg/tuner"
	"github.com/metalblueberry/bard/pkg/tuning"
)

const (
	testBins = 2048
	testRate = 44100.0
)

// --- fakes ---

type fakeStream struct {
	frames [][]float64 // consumed one per read, last one repeats
	reads  int
	err    error
	closed int
	onRead func() // runs at the start of every read
}

func (s *fakeStream) ReadFrequencyData(dst []float64) error {
	if s.onRead != nil {
		s.onRead()
	}

	if len(s.frames) == 0 {
		return errors.New("no data")
	}

	i := s.reads

	if i >= len(s.frames) {
		i = len(s.frames) - 1
	}

	s.reads++
	copy(dst, s.frames[i])
	return nil
}

func (s *fakeStream) BinCount() int       { return testBins }
func (s *fakeStream) SampleRate() float64 { return testRate }
func (s *fakeStream) Err() error          { return s.err }

func (s *fakeStream) Close() error {
	s.closed++
	return nil
}

type fakeInput struct {
	stream *fakeStream
	err    error
	opened int
}

func (in *fakeInput) Open(ctx context.Context) (Stream, error) {
	in.opened++

	if in.err != nil {
		return nil, in.err
	}

	return in.stream, nil
}

// spike returns a frame whose strongest bin is bin.
func spike(bin int) []float64 {
	buf := make([]float64, testBins)
	buf[bin] = 200
	return buf
}

func newTestLoop(in Input) (*Loop, *FrameClock) {
	clock := NewFrameClock()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	l := New(in, clock, tuner.Create(tuner.DefaultSettings()), tuning.Default().MustPreset("Standard"), logger)
	return l, clock
}

// --- tests ---

func TestStartFailureStaysIdle(t *testing.T) {
	for _, cause := range []error{ErrPermissionDenied, ErrDeviceUnavailable} {
		in := &fakeInput{err: cause}
		l, clock := newTestLoop(in)

		err := l.Start(context.Background())

		if !errors.Is(err, cause) {
			t.Errorf("Start() = %v, want %v", err, cause)
		}

		if l.State() != Idle || !errors.Is(l.Err(), cause) {
			t.Errorf("state %v, err %v", l.State(), l.Err())
		}

		if clock.Pending() != 0 {
			t.Errorf("%d frames scheduled after failed start", clock.Pending())
		}

		if in.opened != 1 {
			t.Errorf("opened %d times, want 1 (no automatic retry)", in.opened)
		}

	}
}

func TestFramePublishesStatus(t *testing.T) {
	// bin 10 = 107.67 Hz, an A, 38 cents flat of the 5th string
	stream := &fakeStream{frames: [][]float64{spike(10)}}
	l, clock := newTestLoop(&fakeInput{stream: stream})

	if err := l.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	if l.State() != Listening || !l.Status().Empty() {
		t.Fatalf("after start: %v %+v", l.State(), l.Status())
	}

	if clock.Pending() != 1 {
		t.Fatalf("pending = %d, want 1", clock.Pending())
	}

	clock.Tick()
	s := l.Status()

	if s.Note != "A" || s.Cents != -38 || s.Band != tuner.Low || s.StringIndex != 1 {
		t.Errorf("status = %+v", s)
	}

	if clock.Pending() != 1 {
		t.Errorf("frame did not re-arm: pending = %d", clock.Pending())
	}

	clock.Tick()
	clock.Tick()

	if stream.reads != 3 || l.Frames() != 3 {
		t.Errorf("reads = %d, frames = %d; want one per tick", stream.reads, l.Frames())
	}

	spec, err := l.Spectrum(nil)

	if err != nil || len(spec) != testBins || spec[10] != 200 {
		t.Errorf("Spectrum() = %d bins, %v", len(spec), err)
	}

}

func TestOutOfRangeHoldsStatus(t *testing.T) {
	// an A, then silence, then 430 Hz, then an F (no F string)
	stream := &fakeStream{frames: [][]float64{
		spike(10), make([]float64, testBins), spike(40), spike(8),
	}}
	l, clock := newTestLoop(&fakeInput{stream: stream})

	if err := l.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	clock.Tick()
	held := l.Status()

	if held.Empty() {
		t.Fatal("first frame did not publish")
	}

	for i := 0; i < 3; i++ {
		clock.Tick()

		if l.Status() != held {
			t.Fatalf("tick %d replaced held status with %+v", i+2, l.Status())
		}

	}

}

func TestSelectPresetClearsStatus(t *testing.T) {
	stream := &fakeStream{frames: [][]float64{spike(10)}}
	l, clock := newTestLoop(&fakeInput{stream: stream})

	if err := l.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	clock.Tick()

	if l.Status().Empty() {
		t.Fatal("no status before preset change")
	}

	l.SelectPreset(tuning.Default().MustPreset("DropC"))
	s := l.Status()

	if !s.Empty() || s.Frequency != 0 || s.Cents != 0 || s.Band != tuner.Silent {
		t.Errorf("status after preset change = %+v", s)
	}

	if l.Preset().ID != "DropC" || l.State() != Listening {
		t.Errorf("preset %q, state %v", l.Preset().ID, l.State())
	}

	// Drop C has an A on the 2nd string
	clock.Tick()

	if s := l.Status(); s.Note != "A" || s.StringIndex != 4 {
		t.Errorf("status with Drop C = %+v", s)
	}

}

func TestStopCancelsAndReleases(t *testing.T) {
	stream := &fakeStream{frames: [][]float64{spike(10)}}
	l, clock := newTestLoop(&fakeInput{stream: stream})

	if err := l.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	clock.Tick()
	l.Stop()

	if clock.Pending() != 0 {
		t.Errorf("pending after stop = %d", clock.Pending())
	}

	if stream.closed != 1 || l.State() != Idle || !l.Status().Empty() {
		t.Errorf("closed %d, state %v, status %+v", stream.closed, l.State(), l.Status())
	}

	reads := stream.reads
	clock.Tick()

	if stream.reads != reads {
		t.Error("frame ran after stop")
	}

	l.Stop()
	l.Stop()

	if stream.closed != 1 {
		t.Errorf("stream closed %d times", stream.closed)
	}

	if _, err := l.Spectrum(nil); !errors.Is(err, ErrNotListening) {
		t.Errorf("Spectrum() while idle = %v", err)
	}

}

func TestStopBeforePendingFrame(t *testing.T) {
	stream := &fakeStream{frames: [][]float64{spike(10)}}
	l, clock := newTestLoop(&fakeInput{stream: stream})

	// runs in the same tick as the first frame, but before it
	clock.Schedule(l.Stop)

	if err := l.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	if n := clock.Tick(); n != 1 {
		t.Errorf("tick ran %d callbacks, want 1", n)
	}

	if stream.reads != 0 || stream.closed != 1 {
		t.Errorf("reads %d, closed %d", stream.reads, stream.closed)
	}

	if l.State() != Idle || clock.Pending() != 0 {
		t.Errorf("state %v, pending %d", l.State(), clock.Pending())
	}

}

func TestStopDuringRead(t *testing.T) {
	stream := &fakeStream{frames: [][]float64{spike(10)}}
	l, clock := newTestLoop(&fakeInput{stream: stream})
	stream.onRead = l.Stop

	if err := l.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	clock.Tick()

	if l.State() != Idle || !l.Status().Empty() {
		t.Errorf("state %v, status %+v", l.State(), l.Status())
	}

	if clock.Pending() != 0 || stream.closed != 1 {
		t.Errorf("pending %d, closed %d", clock.Pending(), stream.closed)
	}

}

func TestRestartDuringRead(t *testing.T) {
	stream := &fakeStream{frames: [][]float64{spike(10)}}
	l, clock := newTestLoop(&fakeInput{stream: stream})
	restarted := false
	stream.onRead = func() {
		if restarted {
			return
		}

		restarted = true
		l.Stop()

		if err := l.Start(context.Background()); err != nil {
			t.Error(err)
		}

	}

	if err := l.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	clock.Tick()

	// only the frame armed by the restart may be pending
	if clock.Pending() != 1 || l.State() != Listening || !l.Status().Empty() {
		t.Fatalf("pending %d, state %v, status %+v", clock.Pending(), l.State(), l.Status())
	}

	clock.Tick()

	if s := l.Status(); s.Note != "A" || clock.Pending() != 1 {
		t.Errorf("status %+v, pending %d", s, clock.Pending())
	}

}

func TestRestartAfterStop(t *testing.T) {
	stream := &fakeStream{frames: [][]float64{spike(10)}}
	in := &fakeInput{stream: stream}
	l, clock := newTestLoop(in)

	for i := 0; i < 2; i++ {
		if err := l.Start(context.Background()); err != nil {
			t.Fatal(err)
		}

		if err := l.Start(context.Background()); err != nil {
			t.Fatal(err)
		}

		clock.Tick()

		if l.Status().Empty() {
			t.Errorf("round %d: no status", i)
		}

		l.Stop()
	}

	if in.opened != 2 {
		t.Errorf("opened %d times, want 2", in.opened)
	}

	if clock.Pending() != 0 {
		t.Errorf("pending = %d", clock.Pending())
	}

}

func TestDeviceLost(t *testing.T) {
	stream := &fakeStream{frames: [][]float64{spike(10)}}
	l, clock := newTestLoop(&fakeInput{stream: stream})

	if err := l.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	clock.Tick()
	stream.err = errors.New("unplugged")
	clock.Tick()

	if l.State() != Idle || !l.Status().Empty() || stream.closed != 1 {
		t.Errorf("state %v, status %+v, closed %d", l.State(), l.Status(), stream.closed)
	}

	if !errors.Is(l.Err(), ErrDeviceLost) {
		t.Errorf("Err() = %v", l.Err())
	}

	if clock.Pending() != 0 {
		t.Errorf("pending = %d", clock.Pending())
	}

}

func TestFrameClockOrdering(t *testing.T) {
	clock := NewFrameClock()
	var got []int

	clock.Schedule(func() { got = append(got, 1) })
	cancel := clock.Schedule(func() { got = append(got, 2) })
	clock.Schedule(func() {
		got = append(got, 3)
		clock.Schedule(func() { got = append(got, 4) })
	})
	cancel()
	cancel()

	if n := clock.Tick(); n != 2 {
		t.Errorf("first tick ran %d callbacks", n)
	}

	if len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Errorf("first tick: %v", got)
	}

	clock.Tick()

	if len(got) != 3 || got[2] != 4 || clock.Frames() != 2 {
		t.Errorf("second tick: %v, frames %d", got, clock.Frames())
	}

}
