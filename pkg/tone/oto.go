package tone

import (
	"fmt"
	"io"

	"github.com/hajimehoshi/oto/v2"
)

/*
 * OtoOutput plays tones on the default output device through oto.
 */
type OtoOutput struct {
	context    *oto.Context
	sampleRate int
}

/*
 * NewOtoOutput opens the default audio output. Failing to do so is fatal
 * for the caller: there is no fallback device.
 */
func NewOtoOutput(sampleRate int) (*OtoOutput, error) {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}

	ctx, ready, err := oto.NewContext(sampleRate, 2, oto.FormatSignedInt16LE)

	if err != nil {
		return nil, fmt.Errorf("%w: cannot create oto context: %v", ErrOutput, err)
	}

	<-ready
	return &OtoOutput{context: ctx, sampleRate: sampleRate}, nil
}

/*
 * SampleRate implements Output.
 */
func (o *OtoOutput) SampleRate() int {
	return o.sampleRate
}

/*
 * Play implements Output.
 */
func (o *OtoOutput) Play(pcm io.Reader) (Voice, error) {
	p := o.context.NewPlayer(pcm)
	p.Play()

	if err := p.Err(); err != nil {
		p.Close()
		return nil, fmt.Errorf("cannot start oto player: %w", err)
	}

	return otoVoice{player: p}, nil
}

type otoVoice struct {
	player oto.Player
}

func (v otoVoice) Stop() error {
	v.player.Pause()

	if err := v.player.Close(); err != nil {
		return fmt.Errorf("cannot close oto player: %w", err)
	}

	return nil
}
